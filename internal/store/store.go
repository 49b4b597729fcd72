package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"dinehall/internal/config"
	"dinehall/internal/services"
	"dinehall/internal/textutil"
)

// Store manages food record persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// sqlitePragmas are applied by the modernc driver on every new connection.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
}

// Open creates the data directory if needed, opens the food database and
// brings its schema up to date.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	path := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect sqlite db %s: %w", path, err)
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func dsn(path string) string {
	var b strings.Builder
	b.WriteString(path)
	for i, pragma := range sqlitePragmas {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString("_pragma=")
		b.WriteString(pragma)
	}
	return b.String()
}

// Close releases the database handle. It is safe on a nil Store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// UpsertFoods inserts every record in a single transaction and returns the
// number written. Existing rows are left untouched, so writing a combination
// that already has records produces duplicates. Any failure rolls the batch
// back and is reported as a *services.PersistenceError.
func (s *Store) UpsertFoods(ctx context.Context, records []FoodRecord) (int, error) {
	return s.writeBatch(ctx, records, false)
}

// ReplaceFoods deletes the existing records of every (date, hall, meal)
// combination present in records, then inserts records, all in one
// transaction. Used by forced re-scrapes so a combination never holds two
// generations of rows.
func (s *Store) ReplaceFoods(ctx context.Context, records []FoodRecord) (int, error) {
	return s.writeBatch(ctx, records, true)
}

func (s *Store) writeBatch(ctx context.Context, records []FoodRecord, replace bool) (int, error) {
	attempted := len(records)
	fail := func(err error) (int, error) {
		return 0, &services.PersistenceError{Attempted: attempted, Err: err}
	}
	if attempted == 0 {
		return 0, nil
	}
	for i, rec := range records {
		if err := validateRecord(rec); err != nil {
			return fail(fmt.Errorf("record %d: %w", i, err))
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fail(fmt.Errorf("begin batch tx: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	if replace {
		seen := make(map[[3]string]struct{})
		for _, rec := range records {
			key := [3]string{rec.Date, textutil.Fold(rec.DiningHall), textutil.Fold(rec.MealName)}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			if _, err := deleteWhere(ctx, tx, Filter{Date: rec.Date, DiningHall: rec.DiningHall, MealName: rec.MealName}); err != nil {
				return fail(err)
			}
		}
	}

	now := time.Now().UTC()
	for _, rec := range records {
		if err := insertRecord(ctx, tx, rec, now); err != nil {
			return fail(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fail(fmt.Errorf("commit batch: %w", err))
	}
	return attempted, nil
}

// DeleteFor removes the records matching filter. A filter without a date is
// rejected so a blank filter cannot wipe the table.
func (s *Store) DeleteFor(ctx context.Context, filter Filter) (int64, error) {
	if strings.TrimSpace(filter.Date) == "" {
		return 0, services.Wrap(services.ErrValidation, "store", "delete", "date is required", nil)
	}
	return deleteWhere(ctx, s.db, filter)
}

func deleteWhere(ctx context.Context, db execer, filter Filter) (int64, error) {
	where, args := filter.where()
	res, err := db.ExecContext(ctx, `DELETE FROM foods`+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete foods: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Find returns the records matching filter in insertion order.
func (s *Store) Find(ctx context.Context, filter Filter) ([]FoodRecord, error) {
	where, args := filter.where()
	rows, err := s.db.QueryContext(ctx, `SELECT `+foodColumns+` FROM foods`+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("find foods: %w", err)
	}
	defer rows.Close()

	var out []FoodRecord
	for rows.Next() {
		rec, err := scanFood(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate foods: %w", err)
	}
	return out, nil
}

// Distinct returns the distinct values of field among records matching
// filter, in first-seen order.
func (s *Store) Distinct(ctx context.Context, field string, filter Filter) ([]string, error) {
	if _, ok := distinctColumns[field]; !ok {
		return nil, services.Wrap(services.ErrValidation, "store", "distinct", fmt.Sprintf("unsupported field %q", field), nil)
	}
	where, args := filter.where()
	query := `SELECT ` + field + ` FROM foods` + where + ` GROUP BY ` + field + ` ORDER BY MIN(id)`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", field, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("scan distinct %s: %w", field, err)
		}
		out = append(out, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distinct %s: %w", field, err)
	}
	return out, nil
}

// CountDocuments returns the number of records matching filter.
func (s *Store) CountDocuments(ctx context.Context, filter Filter) (int, error) {
	where, args := filter.where()
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM foods`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count foods: %w", err)
	}
	return count, nil
}

// CountFor is the coverage diagnostic: records for date, optionally narrowed
// to a hall and meal.
func (s *Store) CountFor(ctx context.Context, date, hall, meal string) (int, error) {
	return s.CountDocuments(ctx, Filter{Date: date, DiningHall: hall, MealName: meal})
}

// Combinations returns every (hall, meal) pair with records on date, ordered
// by first insertion.
func (s *Store) Combinations(ctx context.Context, date string) ([]Combination, error) {
	if strings.TrimSpace(date) == "" {
		return nil, errors.New("combinations: date is required")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT dining_hall, meal_name, COUNT(1) FROM foods WHERE date = ?
         GROUP BY dining_hall, meal_name ORDER BY MIN(id)`, date)
	if err != nil {
		return nil, fmt.Errorf("query combinations: %w", err)
	}
	defer rows.Close()

	var out []Combination
	for rows.Next() {
		var combo Combination
		if err := rows.Scan(&combo.DiningHall, &combo.MealName, &combo.Count); err != nil {
			return nil, fmt.Errorf("scan combination: %w", err)
		}
		out = append(out, combo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate combinations: %w", err)
	}
	return out, nil
}
