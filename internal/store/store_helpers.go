package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"dinehall/internal/services"
	"dinehall/internal/textutil"
)

const foodColumns = "id, date, dining_hall, meal_name, station, name, description, labels_json, ingredients_json, portion, nutrients_json, extraction_error, run_id, scraped_at"

func validateRecord(rec FoodRecord) error {
	missing := make([]string, 0, 5)
	for _, field := range [][2]string{
		{FieldDate, rec.Date},
		{FieldDiningHall, rec.DiningHall},
		{FieldMealName, rec.MealName},
		{FieldStation, rec.Station},
		{FieldName, rec.Name},
	} {
		if strings.TrimSpace(field[1]) == "" {
			missing = append(missing, field[0])
		}
	}
	if len(missing) > 0 {
		return services.Wrap(services.ErrValidation, "store", "validate", "missing "+strings.Join(missing, ", "), nil)
	}
	return nil
}

func insertRecord(ctx context.Context, db execer, rec FoodRecord, now time.Time) error {
	labels, err := marshalJSON(rec.Labels, "[]")
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}
	ingredients, err := marshalJSON(rec.Ingredients, "[]")
	if err != nil {
		return fmt.Errorf("marshal ingredients: %w", err)
	}
	nutrients, err := marshalJSON(rec.Nutrients, "{}")
	if err != nil {
		return fmt.Errorf("marshal nutrients: %w", err)
	}
	scraped := rec.ScrapedAt
	if scraped.IsZero() {
		scraped = now
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO foods (
            date, dining_hall, meal_name, hall_key, meal_key, station, name, description,
            labels_json, ingredients_json, portion, nutrients_json,
            extraction_error, run_id, scraped_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Date,
		rec.DiningHall,
		rec.MealName,
		textutil.Fold(rec.DiningHall),
		textutil.Fold(rec.MealName),
		rec.Station,
		rec.Name,
		nullableString(rec.Description),
		labels,
		ingredients,
		nullableString(rec.Portion),
		nutrients,
		nullableString(rec.ExtractionError),
		nullableString(rec.RunID),
		scraped.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert food %q: %w", rec.Name, err)
	}
	return nil
}

func scanFood(scanner interface{ Scan(dest ...any) error }) (FoodRecord, error) {
	var (
		rec             FoodRecord
		description     sql.NullString
		labelsRaw       string
		ingredientsRaw  string
		portion         sql.NullString
		nutrientsRaw    string
		extractionError sql.NullString
		runID           sql.NullString
		scrapedRaw      string
	)
	if err := scanner.Scan(
		&rec.ID,
		&rec.Date,
		&rec.DiningHall,
		&rec.MealName,
		&rec.Station,
		&rec.Name,
		&description,
		&labelsRaw,
		&ingredientsRaw,
		&portion,
		&nutrientsRaw,
		&extractionError,
		&runID,
		&scrapedRaw,
	); err != nil {
		return FoodRecord{}, fmt.Errorf("scan food: %w", err)
	}
	rec.Description = description.String
	rec.Portion = portion.String
	rec.ExtractionError = extractionError.String
	rec.RunID = runID.String
	if err := json.Unmarshal([]byte(labelsRaw), &rec.Labels); err != nil {
		return FoodRecord{}, fmt.Errorf("decode labels for %d: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(ingredientsRaw), &rec.Ingredients); err != nil {
		return FoodRecord{}, fmt.Errorf("decode ingredients for %d: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(nutrientsRaw), &rec.Nutrients); err != nil {
		return FoodRecord{}, fmt.Errorf("decode nutrients for %d: %w", rec.ID, err)
	}
	if ts, err := time.Parse(time.RFC3339Nano, scrapedRaw); err == nil {
		rec.ScrapedAt = ts
	}
	return rec, nil
}

func marshalJSON(value any, empty string) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return empty, nil
	}
	return string(data), nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
