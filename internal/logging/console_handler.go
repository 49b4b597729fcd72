package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const consoleTimeLayout = "2006-01-02 15:04:05"

var consoleLevels = map[slog.Level]string{
	slog.LevelDebug: "DEBUG",
	slog.LevelInfo:  "INFO ",
	slog.LevelWarn:  "WARN ",
	slog.LevelError: "ERROR",
}

// consoleScope holds the attributes folded into a line's prefix rather than
// printed as key=value pairs.
type consoleScope struct {
	component string
	hall      string
	meal      string
	stage     string
}

func (s *consoleScope) absorb(key string, value slog.Value) bool {
	var slot *string
	switch key {
	case FieldComponent:
		slot = &s.component
	case FieldHall:
		slot = &s.hall
	case FieldMeal:
		slot = &s.meal
	case FieldStage:
		slot = &s.stage
	default:
		return false
	}
	if *slot == "" {
		*slot = plainValue(value)
	}
	return true
}

type field struct {
	key   string
	value slog.Value
}

// consoleHandler renders one line per record:
//
//	2026-10-14 12:00:00 INFO  scrape: [Hall A · Lunch] meal extracted items=12
type consoleHandler struct {
	mu     *sync.Mutex
	out    io.Writer
	level  slog.Leveler
	source bool
	scope  consoleScope
	fields []field
	prefix string
}

func newConsoleHandler(w io.Writer, level slog.Leveler, source bool) slog.Handler {
	return &consoleHandler{mu: &sync.Mutex{}, out: w, level: level, source: source}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	scope := h.scope
	fields := append([]field(nil), h.fields...)
	record.Attrs(func(attr slog.Attr) bool {
		fields = collectAttr(fields, &scope, h.prefix, attr)
		return true
	})

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	b.WriteString(ts.In(time.Local).Format(consoleTimeLayout))
	b.WriteByte(' ')
	b.WriteString(consoleLevel(record.Level))
	b.WriteByte(' ')
	if scope.component != "" {
		b.WriteString(scope.component)
		b.WriteString(": ")
	}
	if subject := FormatSubject(scope.hall, scope.meal, scope.stage); subject != "" {
		fmt.Fprintf(&b, "[%s] ", subject)
	}
	if msg := strings.TrimSpace(record.Message); msg != "" {
		b.WriteString(msg)
	} else {
		b.WriteString("(no message)")
	}
	if h.source {
		if src := record.Source(); src != nil {
			fmt.Fprintf(&b, " (%s:%d)", filepath.Base(src.File), src.Line)
		}
	}
	for _, f := range fields {
		b.WriteByte(' ')
		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(renderValue(f.value))
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.fields = append([]field(nil), h.fields...)
	for _, attr := range attrs {
		next.fields = collectAttr(next.fields, &next.scope, h.prefix, attr)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

// collectAttr flattens groups into dotted keys. Only ungrouped scope keys
// are folded into the prefix.
func collectAttr(dst []field, scope *consoleScope, prefix string, attr slog.Attr) []field {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		inner := prefix
		if attr.Key != "" {
			inner = prefix + attr.Key + "."
		}
		for _, child := range value.Group() {
			dst = collectAttr(dst, scope, inner, child)
		}
		return dst
	}
	if prefix == "" && scope.absorb(attr.Key, value) {
		return dst
	}
	if attr.Key == "" {
		return dst
	}
	return append(dst, field{key: prefix + attr.Key, value: value})
}

func consoleLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return consoleLevels[slog.LevelError]
	case level >= slog.LevelWarn:
		return consoleLevels[slog.LevelWarn]
	case level >= slog.LevelInfo:
		return consoleLevels[slog.LevelInfo]
	default:
		return consoleLevels[slog.LevelDebug]
	}
}

func plainValue(v slog.Value) string {
	if v.Kind() == slog.KindAny {
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
	}
	if v.Kind() == slog.KindString {
		return v.String()
	}
	return renderValue(v)
}

func renderValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	}
	var s string
	if err, ok := v.Any().(error); ok && v.Kind() == slog.KindAny {
		s = err.Error()
	} else if v.Kind() == slog.KindAny {
		s = fmt.Sprint(v.Any())
	} else {
		s = v.String()
	}
	if s == "" || strings.ContainsAny(s, " \t\r\n=\"") {
		return strconv.Quote(s)
	}
	return s
}
