// Package logging assembles structured slog loggers used across filewell.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so conversion code can tag log
// lines with item IDs and engine invocation IDs. The package also provides a
// no-op logger for tests and wiring code that cannot fail.
package logging
