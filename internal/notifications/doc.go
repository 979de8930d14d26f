// Package notifications delivers campaign lifecycle push notifications via
// ntfy, falling back to a noop service when no topic is configured.
package notifications
