// Package logging provides slog-based structured logging with a key=value
// console handler and a JSON handler, plus standardized attribute helpers
// shared by the stage workers.
package logging
