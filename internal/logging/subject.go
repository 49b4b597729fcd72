package logging

import "strings"

// FormatSubject builds the hall/meal/stage subject string used in console output,
// e.g. "North Commons · Lunch (extracting)".
func FormatSubject(hall, meal, stage string) string {
	hall = strings.TrimSpace(hall)
	meal = strings.TrimSpace(meal)
	stage = strings.TrimSpace(stage)
	parts := make([]string, 0, 2)
	if hall != "" {
		parts = append(parts, hall)
	}
	if meal != "" {
		parts = append(parts, meal)
	}
	subject := strings.Join(parts, " · ")
	switch {
	case subject != "" && stage != "":
		return subject + " (" + stage + ")"
	case stage != "":
		return stage
	default:
		return subject
	}
}
