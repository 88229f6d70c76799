// Package logging assembles structured slog loggers and formatting helpers used
// across SmartCut.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code can automatically
// tag log lines with session UIDs, stages, segment UIDs, and correlation IDs.
// The package also provides a no-op logger for tests and wiring code that
// cannot fail.
package logging
