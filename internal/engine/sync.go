package engine

import (
	"context"
	"errors"
	"log/slog"

	"timeclock/internal/backend"
	"timeclock/internal/logging"
	"timeclock/internal/store"
)

// PendingJournal claims and settles journaled records.
type PendingJournal interface {
	ClaimPending(ctx context.Context) ([]store.PendingRecord, error)
	Release(ctx context.Context, id int64) error
	MarkSubmitted(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string) error
}

// SyncResult counts the outcome of one sync pass.
type SyncResult struct {
	Submitted int `json:"submitted"`
	Failed    int `json:"failed"`
	Remaining int `json:"remaining"`
}

// SyncPending resubmits every journaled record still flagged pending, oldest
// first. Records the live submitter currently holds are skipped. It stops
// early when the backend is unreachable or rejects the credentials since
// every later record would fail the same way; unvisited claims are released.
func SyncPending(ctx context.Context, journal PendingJournal, submitter Submitter, logger *slog.Logger) (SyncResult, error) {
	logger = logging.NewComponentLogger(logger, "sync")
	if journal == nil || submitter == nil {
		return SyncResult{}, errors.New("sync requires a journal and a backend")
	}
	pending, err := journal.ClaimPending(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	settle := context.WithoutCancel(ctx)

	var result SyncResult
	stop := func(i int, err error) (SyncResult, error) {
		result.Remaining = len(pending) - i
		releaseClaims(settle, journal, pending[i:], logger)
		return result, err
	}
	for i, item := range pending {
		if err := ctx.Err(); err != nil {
			return stop(i, err)
		}
		submitCtx, cancel := context.WithTimeout(ctx, submitTimeout)
		err := submitter.SubmitScanRecord(submitCtx, item.Record)
		cancel()
		if err == nil {
			result.Submitted++
			if markErr := journal.MarkSubmitted(settle, item.ID); markErr != nil {
				return stop(i+1, markErr)
			}
			continue
		}
		if ctx.Err() != nil {
			return stop(i, ctx.Err())
		}

		result.Failed++
		if markErr := journal.MarkFailed(settle, item.ID, err.Error()); markErr != nil {
			return stop(i+1, markErr)
		}
		logging.WarnWithContext(logger, "pending record resubmission failed", "sync_submit_failed",
			logging.Error(err),
			logging.String(logging.FieldWorkerID, item.Record.WorkerID),
			logging.Int("attempts", item.Attempts+1),
			logging.String(logging.FieldImpact, "record stays pending"),
		)
		if errors.Is(err, backend.ErrUnavailable) || errors.Is(err, backend.ErrUnauthorized) {
			result.Remaining = len(pending) - i
			releaseClaims(settle, journal, pending[i+1:], logger)
			return result, err
		}
	}
	result.Remaining = result.Failed
	if len(pending) > 0 {
		logger.Info("pending records synced",
			logging.String(logging.FieldEventType, "sync_completed"),
			logging.Int("submitted", result.Submitted),
			logging.Int("failed", result.Failed),
		)
	}
	return result, nil
}

func releaseClaims(ctx context.Context, journal PendingJournal, items []store.PendingRecord, logger *slog.Logger) {
	for _, item := range items {
		if err := journal.Release(ctx, item.ID); err != nil {
			logging.WarnWithContext(logger, "failed to release pending record", "sync_release_failed",
				logging.Error(err),
				logging.String(logging.FieldWorkerID, item.Record.WorkerID),
				logging.String(logging.FieldImpact, "record waits for the claim to expire before the next sync"),
			)
		}
	}
}
