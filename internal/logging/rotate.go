package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DailyFilePrefix is the file name prefix of the scraper's daily log files.
const DailyFilePrefix = "dinehall"

// DailyFile is an io.WriteCloser that appends to <dir>/<prefix>-YYYY-MM-DD.log
// and switches to a new file when the local date changes between writes.
type DailyFile struct {
	mu     sync.Mutex
	dir    string
	prefix string
	now    func() time.Time
	day    string
	file   *os.File
}

// OpenDailyFile creates dir if needed and opens today's log file.
func OpenDailyFile(dir, prefix string) (*DailyFile, error) {
	return openDailyFile(dir, prefix, time.Now)
}

func openDailyFile(dir, prefix string, now func() time.Time) (*DailyFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}
	d := &DailyFile{dir: dir, prefix: prefix, now: now}
	if err := d.rotate(now()); err != nil {
		return nil, err
	}
	return d, nil
}

// DailyFileName returns the log file name used for the given day.
func DailyFileName(prefix string, day time.Time) string {
	return fmt.Sprintf("%s-%s.log", prefix, day.Format("2006-01-02"))
}

// DailyRetention returns the retention target matching daily files in dir.
func DailyRetention(dir, prefix string, exclude ...string) RetentionTarget {
	return RetentionTarget{Dir: dir, Pattern: prefix + "-*.log", Exclude: exclude}
}

// Path reports the file currently being written.
func (d *DailyFile) Path() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return ""
	}
	return d.file.Name()
}

func (d *DailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return 0, os.ErrClosed
	}
	if now := d.now(); now.Format("2006-01-02") != d.day {
		if err := d.rotate(now); err != nil {
			return 0, err
		}
	}
	return d.file.Write(p)
}

// Close releases the current file. Further writes fail with os.ErrClosed.
func (d *DailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

func (d *DailyFile) rotate(now time.Time) error {
	path := filepath.Join(d.dir, DailyFileName(d.prefix, now))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", path, err)
	}
	if d.file != nil {
		_ = d.file.Close()
	}
	d.file = file
	d.day = now.Format("2006-01-02")
	return nil
}
