package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSessionInit   = errors.New("browser session init failed")
	ErrRestart       = errors.New("browser session restart failed")
	ErrCrash         = errors.New("browser crashed")
	ErrTransient     = errors.New("transient failure")
	ErrTimeout       = errors.New("timeout")
	ErrNotFound      = errors.New("not found")
	ErrPersistence   = errors.New("persistence failure")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// PersistenceError reports a failed batch write together with the number of
// records the write attempted.
type PersistenceError struct {
	Attempted int
	Err       error
}

func (e *PersistenceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("persist %d records failed", e.Attempted)
	}
	return fmt.Sprintf("persist %d records failed: %v", e.Attempted, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is lets errors.Is match ErrPersistence against any PersistenceError.
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// Kind returns a short classification label for logging.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSessionInit):
		return "session_init"
	case errors.Is(err, ErrRestart):
		return "restart"
	case errors.Is(err, ErrCrash):
		return "crash"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "transient"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "scraper failure"
	}
	return strings.Join(parts, ": ")
}
