// Package logs reads the daily JSON log files written by internal/logging.
//
// Tail returns the last lines of a file together with the byte offset to
// resume from; Follow polls from an offset and hands new lines to a callback
// until the context is cancelled. Both optionally filter by minimum level.
package logs
