package store

import (
	"context"
	"database/sql"
	"fmt"

	"timeclock/internal/attendance"
)

// ReplaceWorkers swaps the cached roster for workers.
func (s *Store) ReplaceWorkers(ctx context.Context, workers []attendance.Worker) error {
	stamp := nowText()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM workers`); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO workers (
            id, name, offsite, outcount, current_month_hours, previous_week_hours, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            name = excluded.name,
            offsite = excluded.offsite,
            outcount = excluded.outcount,
            current_month_hours = excluded.current_month_hours,
            previous_week_hours = excluded.previous_week_hours,
            updated_at = excluded.updated_at`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, w := range workers {
			if w.ID == "" {
				continue
			}
			if _, err := stmt.ExecContext(ctx,
				w.ID, w.Name, boolToInt(w.Offsite), boolToInt(w.Outcount),
				w.CurrentMonthHours, w.PreviousWeekHours, stamp,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace workers: %w", err)
	}
	return nil
}

// Workers returns the cached roster ordered by id.
func (s *Store) Workers(ctx context.Context) ([]attendance.Worker, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT
        id, name, offsite, outcount, current_month_hours, previous_week_hours
        FROM workers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	defer rows.Close()

	var workers []attendance.Worker
	for rows.Next() {
		var (
			w                 attendance.Worker
			offsite, outcount int
		)
		if err := rows.Scan(&w.ID, &w.Name, &offsite, &outcount, &w.CurrentMonthHours, &w.PreviousWeekHours); err != nil {
			return nil, fmt.Errorf("scan worker: %w", err)
		}
		w.Offsite = offsite != 0
		w.Outcount = outcount != 0
		workers = append(workers, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workers: %w", err)
	}
	return workers, nil
}
