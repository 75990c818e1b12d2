package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var baseSchema string

// ErrSchemaMismatch means the journal was written by a newer build.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// migrations[i] upgrades a journal from user_version i to i+1. Journals hold
// unsynced scans, so upgrades are applied in place and never recreate tables.
var migrations = []string{
	baseSchema,
	`ALTER TABLE scan_records ADD COLUMN submitted_at TEXT`,
	`ALTER TABLE scan_records ADD COLUMN claimed_at INTEGER`,
}

func schemaVersion() int { return len(migrations) }

func (s *Store) initSchema(ctx context.Context) error {
	var current int
	if err := s.db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&current); err != nil {
		return fmt.Errorf("read journal version: %w", err)
	}
	switch {
	case current == schemaVersion():
		return nil
	case current > schemaVersion():
		return fmt.Errorf("%w: %s has version %d, this build supports %d",
			ErrSchemaMismatch, s.path, current, schemaVersion())
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for v := current; v < schemaVersion(); v++ {
			if _, err := tx.ExecContext(ctx, migrations[v]); err != nil {
				return fmt.Errorf("migrate journal to version %d: %w", v+1, err)
			}
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion())); err != nil {
			return fmt.Errorf("record journal version: %w", err)
		}
		return nil
	})
}
