// Package config loads, validates, and normalizes LaunchPro configuration
// from TOML. Sections are grouped per subsystem: store, api, workers,
// approval, platforms, ai, design_tasks, notifications, logging.
package config
