// Package services defines shared utilities consumed by the export and publish
// workflows and by the external service adapters.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs and operation names for logging
//     and error reporting.
//   - Structured error markers, the typed errors the workflows surface to the
//     CLI, and the Wrap helper that tags free-form failures with a marker.
//   - ExitCode, which maps an error category to a process exit status.
//
// Use these helpers when wiring a new adapter so error handling and
// observability stay uniform across commands.
package services
