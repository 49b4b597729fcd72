package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"dinehall/internal/textutil"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is stored in PRAGMA user_version. A fresh file reads 0.
// Version 2 added the Unicode-folded hall_key and meal_key filter columns.
const schemaVersion = 2

// ErrSchemaMismatch reports a database written by a different schema version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

func (s *Store) initSchema(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	switch version {
	case schemaVersion:
		return nil
	case 0:
		return s.applySchema(ctx)
	case 1:
		return s.migrateFoldedKeys(ctx)
	default:
		return fmt.Errorf("%w: %s is at version %d, this build expects %d (move the file aside to start fresh)",
			ErrSchemaMismatch, s.path, version, schemaVersion)
	}
}

func (s *Store) applySchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	// PRAGMA does not accept bind parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return tx.Commit()
}

// migrateFoldedKeys upgrades a version 1 file in place: it adds the key
// columns, fills them from the stored labels and rebuilds the combination
// index on them.
func (s *Store) migrateFoldedKeys(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		`ALTER TABLE foods ADD COLUMN hall_key TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE foods ADD COLUMN meal_key TEXT NOT NULL DEFAULT ''`,
		`DROP INDEX IF EXISTS idx_foods_combination`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}

	rows, err := tx.QueryContext(ctx, `SELECT DISTINCT dining_hall, meal_name FROM foods`)
	if err != nil {
		return fmt.Errorf("list labels: %w", err)
	}
	var labels [][2]string
	for rows.Next() {
		var pair [2]string
		if err := rows.Scan(&pair[0], &pair[1]); err != nil {
			rows.Close()
			return fmt.Errorf("scan labels: %w", err)
		}
		labels = append(labels, pair)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate labels: %w", err)
	}
	for _, pair := range labels {
		if _, err := tx.ExecContext(ctx,
			`UPDATE foods SET hall_key = ?, meal_key = ? WHERE dining_hall = ? AND meal_name = ?`,
			textutil.Fold(pair[0]), textutil.Fold(pair[1]), pair[0], pair[1]); err != nil {
			return fmt.Errorf("fill keys: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return tx.Commit()
}
