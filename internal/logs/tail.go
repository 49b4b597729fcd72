package logs

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const maxLineBytes = 1024 * 1024

// DefaultPollInterval is how often Follow checks the file for growth.
const DefaultPollInterval = 250 * time.Millisecond

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// Filter keeps lines at or above MinLevel and, when set, mentioning Hall.
// Lines that are not JSON pass unless a filter is set.
type Filter struct {
	MinLevel string
	Hall     string
}

func (f Filter) empty() bool {
	return strings.TrimSpace(f.MinLevel) == "" && strings.TrimSpace(f.Hall) == ""
}

func (f Filter) keep(line string) bool {
	if f.empty() {
		return true
	}
	var record struct {
		Level string `json:"level"`
		Hall  string `json:"hall"`
	}
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		return false
	}
	if minLevel := strings.ToLower(strings.TrimSpace(f.MinLevel)); minLevel != "" {
		want, ok := levelRank[minLevel]
		if ok && levelRank[strings.ToLower(record.Level)] < want {
			return false
		}
	}
	if hall := strings.TrimSpace(f.Hall); hall != "" && !strings.EqualFold(hall, record.Hall) {
		return false
	}
	return true
}

// Tail returns up to limit matching lines from the end of path and the
// offset of end-of-file. A missing file yields no lines and offset 0.
func Tail(path string, limit int, filter Filter) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if info, err := file.Stat(); err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	} else if info.IsDir() {
		return nil, 0, fmt.Errorf("log path %q is a directory", path)
	}

	var ring []string
	offset, err := scanLines(file, func(line string) {
		if limit <= 0 || !filter.keep(line) {
			return
		}
		if len(ring) == limit {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, line)
	})
	if err != nil {
		return nil, 0, err
	}
	return ring, offset, nil
}

// Follow streams matching lines appended to path after offset until ctx is
// done. A file truncated below offset (a fresh day's file) restarts from 0.
func Follow(ctx context.Context, path string, offset int64, interval time.Duration, filter Filter, emit func(string)) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		next, err := readFrom(path, offset, filter, emit)
		if err != nil {
			return err
		}
		offset = next

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64, filter Filter, emit func(string)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}
	read, err := scanLines(file, func(line string) {
		if filter.keep(line) {
			emit(line)
		}
	})
	if err != nil {
		return offset, err
	}
	return offset + read, nil
}

// scanLines feeds each complete line to fn and returns the bytes consumed.
// A trailing partial line is left for the next read.
func scanLines(r io.Reader, fn func(string)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return consumed, nil
			}
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		if len(line) > maxLineBytes {
			continue
		}
		fn(strings.TrimRight(line, "\r\n"))
	}
}
