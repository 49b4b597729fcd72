package browser

import (
	"context"
	"errors"
	"strings"

	"dinehall/internal/services"
)

// Class separates failures of the browser process from UI timing failures.
type Class int

const (
	// Transient failures are retried in place: timeouts, missing elements.
	Transient Class = iota
	// Crash failures mean the browser process or its connection is gone and
	// the session must be restarted before retrying.
	Crash
)

func (c Class) String() string {
	if c == Crash {
		return "crash"
	}
	return "transient"
}

// crashSignatures are lowercase message fragments that indicate a dead
// browser. Anything else classifies as transient.
var crashSignatures = []string{
	"connection refused",
	"connection reset",
	"session not found",
	"invalid session id",
	"session deleted",
	"no such window",
	"chrome not reachable",
	"browser has disconnected",
	"process terminated",
	"process exited",
	"target closed",
	"target crashed",
	"websocket: close",
	"broken pipe",
	"unexpected eof",
}

// Classify matches an error message against the crash signature table.
func Classify(message string) Class {
	msg := strings.ToLower(message)
	for _, sig := range crashSignatures {
		if strings.Contains(msg, sig) {
			return Crash
		}
	}
	return Transient
}

// ClassifyError classifies err. Errors marked services.ErrCrash,
// ErrSessionInit, or ErrRestart are crashes; timeouts are transient; the rest
// fall through to message matching.
func ClassifyError(err error) Class {
	switch {
	case err == nil:
		return Transient
	case errors.Is(err, services.ErrCrash), errors.Is(err, services.ErrSessionInit), errors.Is(err, services.ErrRestart):
		return Crash
	case errors.Is(err, services.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return Transient
	default:
		return Classify(err.Error())
	}
}
