package engine

import (
	"context"
	"log/slog"
	"time"

	"timeclock/internal/attendance"
	"timeclock/internal/logging"
	"timeclock/internal/notifications"
)

// submitTimeout caps one backend call. It stays well inside store.ClaimTTL so
// a live claim never looks abandoned.
const submitTimeout = 30 * time.Second

type submission struct {
	rec           attendance.ScanRecord
	worker        attendance.Worker
	correlationID string

	// id is the journal row; journaled is false when there is none.
	id        int64
	journaled bool
}

// journal writes the record before any network I/O so a crash or a stalled
// backend never leaves a confirmed scan only in memory. It runs on the loop.
func (e *Engine) journal(sub submission) (int64, bool) {
	if e.opts.Journal == nil {
		return 0, false
	}
	id, err := e.opts.Journal.AppendPending(context.Background(), sub.rec)
	if err != nil {
		logging.WarnWithContext(e.logger, "failed to journal scan record", "journal_append_failed",
			logging.Error(err),
			logging.String(logging.FieldWorkerID, sub.rec.WorkerID),
			logging.String(logging.FieldCorrelationID, sub.correlationID),
			logging.String(logging.FieldErrorHint, "check disk space and the data_dir permissions"),
			logging.String(logging.FieldImpact, "record is lost on restart if the backend also rejects it"),
		)
		return 0, false
	}
	return id, true
}

// enqueue hands a record to the submitter without blocking the loop. When the
// queue is full the journaled copy waits for the next sync.
func (e *Engine) enqueue(sub submission) {
	select {
	case e.submissions <- sub:
	default:
		impact := "backend update delayed until the next sync"
		if !sub.journaled {
			impact = "record exists only in memory and will not reach the backend"
		}
		logging.WarnWithContext(e.logger, "submission queue full; record left for sync", "submit_queue_full",
			logging.String(logging.FieldWorkerID, sub.rec.WorkerID),
			logging.String(logging.FieldCorrelationID, sub.correlationID),
			logging.String(logging.FieldImpact, impact),
		)
	}
}

func (e *Engine) submitLoop(ctx context.Context) {
	defer e.submitWG.Done()
	for sub := range e.submissions {
		e.process(ctx, sub)
	}
}

func (e *Engine) process(ctx context.Context, sub submission) {
	ctx = logging.WithCorrelationID(logging.WithWorkerID(ctx, sub.rec.WorkerID), sub.correlationID)
	logger := logging.WithContext(ctx, e.logger)

	if e.opts.Submitter == nil {
		logger.Debug("no backend configured; record kept locally")
		return
	}
	if ctx.Err() != nil {
		logger.Debug("shutting down; record left for the next sync")
		return
	}
	// Settling must outlive shutdown or an acknowledged record would be
	// submitted again by the next sync.
	settle := context.WithoutCancel(ctx)

	if sub.journaled {
		claimed, err := e.opts.Journal.Claim(ctx, sub.id)
		if err != nil {
			e.logJournalError(logger, err)
			return
		}
		if !claimed {
			logger.Debug("record already claimed by sync; skipping submit")
			return
		}
	}

	submitCtx, cancel := context.WithTimeout(ctx, submitTimeout)
	err := e.opts.Submitter.SubmitScanRecord(submitCtx, sub.rec)
	cancel()

	if err != nil && ctx.Err() != nil {
		if sub.journaled {
			e.logJournalError(logger, e.opts.Journal.Release(settle, sub.id))
		}
		logger.Debug("submit interrupted by shutdown; record left for the next sync")
		return
	}
	if sub.journaled {
		if err == nil {
			e.logJournalError(logger, e.opts.Journal.MarkSubmitted(settle, sub.id))
		} else {
			e.logJournalError(logger, e.opts.Journal.MarkFailed(settle, sub.id, err.Error()))
		}
	}
	e.opts.Dispatch.Post(func() { e.onSubmitted(logger, sub, err) })
}

func (e *Engine) logJournalError(logger *slog.Logger, err error) {
	if err == nil {
		return
	}
	logging.WarnWithContext(logger, "failed to update journal", "journal_update_failed",
		logging.Error(err),
		logging.String(logging.FieldImpact, "record may be submitted twice by the next sync"),
	)
}

// onSubmitted runs on the owning loop.
func (e *Engine) onSubmitted(logger *slog.Logger, sub submission, err error) {
	if err == nil {
		logger.Debug("scan record submitted",
			logging.String(logging.FieldEventType, "scan_submitted"),
			logging.String("status", string(sub.rec.Status)),
		)
	} else {
		e.failures.Add(1)
		logging.WarnWithContext(logger, "scan record submission failed", "scan_submit_failed",
			logging.Error(err),
			logging.String("status", string(sub.rec.Status)),
			logging.String(logging.FieldErrorHint, "check backend connectivity; run timeclock sync once it recovers"),
			logging.String(logging.FieldImpact, "local record kept; backend is behind"),
		)
		e.notify(notifications.EventSubmitFailed, notifications.Payload{
			"worker_id":   sub.worker.ID,
			"worker_name": sub.worker.Name,
			"status":      string(sub.rec.Status),
			"error":       err,
		})
	}
	if e.opts.OnSubmitted != nil {
		e.opts.OnSubmitted(sub.rec, err)
	}
}
