// Package logging assembles the structured slog loggers used across the
// timeclock daemon and CLI.
//
// It owns the console and JSON handlers, level and output plumbing, and the
// standardized field keys (component, worker id, correlation id, event type)
// so every subsystem emits lines with the same shape. Context helpers tag
// lines with the worker and correlation id of the scan being processed. A
// no-op logger is provided for tests and for wiring code that cannot fail.
package logging
