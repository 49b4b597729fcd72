package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"dinehall/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level   string
	Format  string    // console (default) or json; applies to Console only
	Console io.Writer // defaults to os.Stdout
	File    io.Writer // always JSON lines; nil disables the file sink
}

type handlerFactory func(io.Writer, slog.Leveler, bool) slog.Handler

var consoleFormats = map[string]handlerFactory{
	"":        newConsoleHandler,
	"console": newConsoleHandler,
	"json":    newJSONHandler,
}

// New builds a logger that tees records to the console and, when set, the
// file writer. Debug level turns on source locations.
func New(opts Options) (*slog.Logger, error) {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	factory, ok := consoleFormats[format]
	if !ok {
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	level := parseLevel(opts.Level)
	source := level <= slog.LevelDebug
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	var file slog.Handler
	if opts.File != nil {
		file = newJSONHandler(opts.File, level, source)
	}
	return slog.New(newTeeHandler(factory(console, level, source), file)), nil
}

// NewFromConfig creates a logger writing to console (stdout when nil) and to
// the daily rotating log file under cfg.Paths.LogDir. The returned closer
// releases the file.
func NewFromConfig(cfg *config.Config, console io.Writer) (*slog.Logger, io.Closer, error) {
	opts := Options{Level: "info", Console: console}
	if cfg == nil {
		logger, err := New(opts)
		return logger, nopCloser{}, err
	}
	opts.Level, opts.Format = cfg.Logging.Level, cfg.Logging.Format

	dir := strings.TrimSpace(cfg.Paths.LogDir)
	if dir == "" {
		logger, err := New(opts)
		return logger, nopCloser{}, err
	}

	file, err := OpenDailyFile(dir, DailyFilePrefix)
	if err != nil {
		return nil, nil, err
	}
	opts.File = file
	logger, err := New(opts)
	if err != nil {
		_ = file.Close()
		return nil, nil, err
	}
	return logger, file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
