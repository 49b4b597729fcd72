package services

import "context"

type contextKey string

const (
	hallKey  contextKey = "hall"
	mealKey  contextKey = "meal"
	stageKey contextKey = "stage"
	runIDKey contextKey = "run_id"
)

// WithHall annotates context with the dining hall being processed.
func WithHall(ctx context.Context, hall string) context.Context {
	if hall == "" {
		return ctx
	}
	return context.WithValue(ctx, hallKey, hall)
}

// HallFromContext returns the dining hall name if present.
func HallFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, hallKey)
}

// WithMeal annotates context with the meal being processed.
func WithMeal(ctx context.Context, meal string) context.Context {
	if meal == "" {
		return ctx
	}
	return context.WithValue(ctx, mealKey, meal)
}

// MealFromContext returns the meal name if present.
func MealFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, mealKey)
}

// WithStage annotates context with the orchestration stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, stageKey)
}

// WithRunID annotates context with the orchestration run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, runIDKey)
}

func stringValue(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
