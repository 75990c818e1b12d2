package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"timeclock/internal/attendance"
)

// PendingRecord is a locally confirmed scan the backend has not acknowledged.
type PendingRecord struct {
	ID        int64
	Record    attendance.ScanRecord
	Attempts  int
	LastError string
}

const recordColumns = `worker_id, timestamp_seconds, status, source, sequence_hint`

// MergeHistory upserts records fetched from the backend. A matching local
// record is marked acknowledged.
func (s *Store) MergeHistory(ctx context.Context, records []attendance.ScanRecord) error {
	stamp := nowText()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO scan_records (
            `+recordColumns+`, pending, created_at
        ) VALUES (?, ?, ?, ?, ?, 0, ?)
        ON CONFLICT(worker_id, timestamp_seconds, status) DO UPDATE SET
            pending = 0,
            source = excluded.source`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, rec := range records {
			if rec.WorkerID == "" || !rec.Status.Valid() {
				continue
			}
			if _, err := stmt.ExecContext(ctx,
				rec.WorkerID, rec.TimestampSeconds, string(rec.Status), rec.Source, rec.SequenceHint, stamp,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("merge history: %w", err)
	}
	return nil
}

// History returns records at or after since in processing order.
func (s *Store) History(ctx context.Context, since time.Time) ([]attendance.ScanRecord, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+`
        FROM scan_records WHERE timestamp_seconds >= ?
        ORDER BY timestamp_seconds, sequence_hint, id`, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var records []attendance.ScanRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return records, nil
}

// AppendPending journals a locally confirmed scan and returns its row id.
// Appending the same worker/second/status twice returns the existing row.
func (s *Store) AppendPending(ctx context.Context, rec attendance.ScanRecord) (int64, error) {
	_, err := s.execWithRetry(ctx, `INSERT INTO scan_records (
            `+recordColumns+`, pending, created_at
        ) VALUES (?, ?, ?, ?, ?, 1, ?)
        ON CONFLICT(worker_id, timestamp_seconds, status) DO NOTHING`,
		rec.WorkerID, rec.TimestampSeconds, string(rec.Status), rec.Source, rec.SequenceHint, nowText(),
	)
	if err != nil {
		return 0, fmt.Errorf("append pending record: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(ensureContext(ctx),
		`SELECT id FROM scan_records WHERE worker_id = ? AND timestamp_seconds = ? AND status = ?`,
		rec.WorkerID, rec.TimestampSeconds, string(rec.Status),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("lookup pending record: %w", err)
	}
	return id, nil
}

// ClaimTTL bounds how long a claim blocks other submitters. A claim older
// than this is treated as abandoned by a crashed owner, so every submit made
// under a claim must time out well inside it.
const ClaimTTL = time.Minute

// Claim marks a pending record as being submitted by the caller. It reports
// false when the record was already acknowledged or another submitter holds a
// live claim; the caller must then not submit it.
func (s *Store) Claim(ctx context.Context, id int64) (bool, error) {
	now := time.Now()
	res, err := s.execWithRetry(ctx,
		`UPDATE scan_records SET claimed_at = ?
		 WHERE id = ? AND pending = 1 AND (claimed_at IS NULL OR claimed_at <= ?)`,
		now.Unix(), id, now.Add(-ClaimTTL).Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("claim record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim record: %w", err)
	}
	return n == 1, nil
}

// ClaimPending claims every pending record no one else holds, oldest first.
// Each returned record must be settled with MarkSubmitted, MarkFailed or
// Release.
func (s *Store) ClaimPending(ctx context.Context) ([]PendingRecord, error) {
	pending, err := s.Pending(ctx)
	if err != nil {
		return nil, err
	}
	claimed := pending[:0]
	for _, p := range pending {
		ok, err := s.Claim(ctx, p.ID)
		if err != nil {
			_ = s.releaseAll(context.WithoutCancel(ensureContext(ctx)), claimed)
			return nil, err
		}
		if ok {
			claimed = append(claimed, p)
		}
	}
	return claimed, nil
}

func (s *Store) releaseAll(ctx context.Context, records []PendingRecord) error {
	var errs []error
	for _, p := range records {
		errs = append(errs, s.Release(ctx, p.ID))
	}
	return errors.Join(errs...)
}

// Release drops a claim without counting an attempt.
func (s *Store) Release(ctx context.Context, id int64) error {
	if _, err := s.execWithRetry(ctx, `UPDATE scan_records SET claimed_at = NULL WHERE id = ?`, id); err != nil {
		return fmt.Errorf("release record: %w", err)
	}
	return nil
}

// ReleaseClaims drops every claim. Only the journal's single daemon holds
// claims, so a starting daemon clears whatever a previous run left behind.
func (s *Store) ReleaseClaims(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `UPDATE scan_records SET claimed_at = NULL WHERE claimed_at IS NOT NULL`)
	if err != nil {
		return 0, fmt.Errorf("release claims: %w", err)
	}
	return res.RowsAffected()
}

// MarkSubmitted clears the pending flag and any claim.
func (s *Store) MarkSubmitted(ctx context.Context, id int64) error {
	if _, err := s.execWithRetry(ctx,
		`UPDATE scan_records
		 SET pending = 0, last_error = NULL, claimed_at = NULL,
		     submitted_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		 WHERE id = ?`, id,
	); err != nil {
		return fmt.Errorf("mark submitted: %w", err)
	}
	return nil
}

// MarkFailed records a failed submission attempt and releases the claim.
// The record stays pending.
func (s *Store) MarkFailed(ctx context.Context, id int64, reason string) error {
	if _, err := s.execWithRetry(ctx,
		`UPDATE scan_records SET attempts = attempts + 1, last_error = ?, claimed_at = NULL WHERE id = ?`, reason, id,
	); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// Pending lists unacknowledged records, oldest first, claimed or not.
func (s *Store) Pending(ctx context.Context) ([]PendingRecord, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT id, `+recordColumns+`, attempts, COALESCE(last_error, '')
        FROM scan_records WHERE pending = 1
        ORDER BY timestamp_seconds, sequence_hint, id`)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	var pending []PendingRecord
	for rows.Next() {
		var (
			p      PendingRecord
			status string
		)
		if err := rows.Scan(&p.ID, &p.Record.WorkerID, &p.Record.TimestampSeconds, &status,
			&p.Record.Source, &p.Record.SequenceHint, &p.Attempts, &p.LastError); err != nil {
			return nil, fmt.Errorf("scan pending: %w", err)
		}
		p.Record.Status = attendance.Status(status)
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending: %w", err)
	}
	return pending, nil
}

func scanRecord(rows *sql.Rows) (attendance.ScanRecord, error) {
	var (
		rec    attendance.ScanRecord
		status string
	)
	if err := rows.Scan(&rec.WorkerID, &rec.TimestampSeconds, &status, &rec.Source, &rec.SequenceHint); err != nil {
		return rec, fmt.Errorf("scan record: %w", err)
	}
	rec.Status = attendance.Status(status)
	return rec, nil
}
