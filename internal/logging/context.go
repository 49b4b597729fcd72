package logging

import (
	"context"
	"log/slog"

	"dinehall/internal/services"
)

// Structured field keys shared by every component. Console output folds
// component, hall, meal and stage into the line prefix.
const (
	FieldComponent = "component"
	FieldRunID     = "run_id"
	FieldHall      = "hall"
	FieldMeal      = "meal"
	FieldStation   = "station"
	FieldItem      = "item"
	FieldStage     = "stage" // per-hall state machine state
	FieldAttempt   = "attempt"

	FieldEventType = "event_type" // machine-filterable classification, e.g. hall_failed
	FieldErrorHint = "error_hint" // suggested next step for the operator
	FieldErrorKind = "error_kind" // services.Kind of the error
	FieldImpact    = "impact"
	FieldAlert     = "alert"
)

// WithContext returns logger with the run, hall, meal and stage carried by
// ctx attached. A nil logger is replaced by a no-op one.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}

	var attrs []Attr
	add := func(key string, value string, ok bool) {
		if ok {
			attrs = append(attrs, slog.String(key, value))
		}
	}
	id, ok := services.RunIDFromContext(ctx)
	add(FieldRunID, id, ok)
	hall, ok := services.HallFromContext(ctx)
	add(FieldHall, hall, ok)
	meal, ok := services.MealFromContext(ctx)
	add(FieldMeal, meal, ok)
	stage, ok := services.StageFromContext(ctx)
	add(FieldStage, stage, ok)

	if len(attrs) == 0 {
		return logger
	}
	return logger.With(Args(attrs...)...)
}
