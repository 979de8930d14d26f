// Package main hosts the LaunchPro CLI entrypoint and command graph.
//
// The Cobra-based command tree maps terminal invocations onto stage worker
// runs, the trigger HTTP server, campaign status and audit views, and
// configuration scaffolding. It centralizes configuration resolution and
// structured logging setup so subcommands can focus on user experience.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
