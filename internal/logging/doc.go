// Package logging assembles structured slog loggers and formatting helpers used
// across the scraper.
//
// It owns the console and JSON handlers, the daily rotating log file that
// mirrors stdout, and retention pruning of old daily files. Context-aware
// helpers tag log lines with the run ID plus the hall and meal being processed
// so a single run can be followed through the file. A no-op logger is provided
// for tests and wiring code that cannot fail.
package logging
