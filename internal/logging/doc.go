// Package logging assembles structured slog loggers and formatting helpers used
// across vnpipe commands.
//
// It owns the console/JSON handlers, routes output to stderr plus a rotated log
// file, and exposes context-aware helpers so workflow code tags log lines with
// the operation, project and correlation ID of the current command. A no-op
// logger is provided for tests and wiring code that cannot fail.
package logging
