// Package log captures events from the notification pipeline.
//
// Components accept an optional Logger; pass nil or NoopLogger to disable
// logging entirely. Events are structured records, not text lines, so the
// same stream can feed a console adapter during development and a compact
// binary file in production.
//
// # Adapters
//
//   - SlogAdapter writes events to a log/slog logger for the console.
//   - FileLogger appends CBOR-encoded events to a file; Reader iterates
//     one back, optionally filtered.
//   - MultiLogger fans an event out to several loggers at once.
package log
