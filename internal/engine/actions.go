package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"timeclock/internal/attendance"
	"timeclock/internal/logging"
	"timeclock/internal/notifications"
	"timeclock/internal/selection"
)

// Origins of a confirmed scan.
const (
	OriginBadge  = "badge"
	OriginSelect = "select"
)

// ScanResult describes one appended record.
type ScanResult struct {
	Worker        attendance.Worker     `json:"worker"`
	Record        attendance.ScanRecord `json:"record"`
	Origin        string                `json:"origin"`
	CorrelationID string                `json:"correlation_id"`
	WeekHours     float64               `json:"week_hours"`
	At            time.Time             `json:"at"`
}

// Query is the passive status lookup a Tap produces.
type Query struct {
	Worker    attendance.Worker         `json:"worker"`
	Status    attendance.PresenceStatus `json:"status"`
	Latest    *attendance.ScanRecord    `json:"latest,omitempty"`
	WeekHours float64                   `json:"week_hours"`
	At        time.Time                 `json:"at"`
}

// Scan handles a completed badge code as if the decoder emitted it. A match
// appends the worker's next record immediately.
func (e *Engine) Scan(code string) (ScanResult, bool) {
	return e.scanAgainst(e.roster.Load(), code)
}

// scanAgainst matches against the roster the emitting decoder was bound to.
func (e *Engine) scanAgainst(r *roster, code string) (ScanResult, bool) {
	cleaned := cleanCode(code, e.opts.ScanPrefix, e.opts.ScanSuffix)
	worker, ok := r.match(cleaned)
	if !ok {
		e.logger.Warn("scanned code matched no worker",
			logging.String(logging.FieldEventType, "scan_unmatched"),
			logging.String("code", cleaned),
			logging.String(logging.FieldErrorHint, "check the badge against the roster"),
			logging.String(logging.FieldImpact, "no attendance recorded"),
		)
		e.notify(notifications.EventUnmatchedScan, notifications.Payload{"code": cleaned})
		return ScanResult{}, false
	}
	return e.confirm(worker, e.sched.Now(), OriginBadge)
}

// Select feeds one row selection for the worker id. A second selection of the
// same worker inside the confirm window records a scan; a lone selection
// produces a Query once the window lapses.
func (e *Engine) Select(workerID string) {
	if e.closed.Load() {
		return
	}
	e.selector.Select(workerID, e.sched.Now())
}

// PendingSelection reports the worker awaiting a second selection.
func (e *Engine) PendingSelection() (string, bool) {
	return e.selector.Pending()
}

func (e *Engine) onSelection(ev selection.Event) {
	worker, ok := e.roster.Load().worker(ev.Target)
	if !ok {
		e.logger.Debug("selection for worker no longer on roster",
			logging.String(logging.FieldWorkerID, ev.Target),
			logging.String("action", ev.Action.String()),
		)
		return
	}
	switch ev.Action {
	case selection.Confirm:
		e.confirm(worker, ev.At, OriginSelect)
	case selection.Tap:
		e.query(worker, ev.At)
	}
}

func (e *Engine) confirm(worker attendance.Worker, at time.Time, origin string) (ScanResult, bool) {
	if e.closed.Load() {
		return ScanResult{}, false
	}
	snap := e.log.Snapshot()
	rec := e.log.Append(attendance.ScanRecord{
		WorkerID:         worker.ID,
		TimestampSeconds: at.Unix(),
		Status:           attendance.NextStatus(worker.ID, snap.Records()),
		Source:           e.opts.Source,
		SequenceHint:     int64(snap.Len() + 1),
	})
	e.local[keyOf(rec)] = rec
	e.confirmed.Add(1)

	result := ScanResult{
		Worker:        worker,
		Record:        rec,
		Origin:        origin,
		CorrelationID: uuid.NewString(),
		WeekHours:     attendance.WeekTotalHours(worker.ID, e.log.Snapshot().Records(), at, e.opts.Week),
		At:            at,
	}
	e.lastScan.Store(&result)

	e.logger.Info("scan recorded",
		logging.String(logging.FieldEventType, "scan_recorded"),
		logging.String(logging.FieldWorkerID, worker.ID),
		logging.String(logging.FieldCorrelationID, result.CorrelationID),
		logging.String("worker_name", worker.Name),
		logging.String("status", string(rec.Status)),
		logging.String("origin", origin),
		logging.Int64("sequence", rec.SequenceHint),
		logging.Float64("week_hours", result.WeekHours),
	)

	sub := submission{rec: rec, worker: worker, correlationID: result.CorrelationID}
	sub.id, sub.journaled = e.journal(sub)
	e.enqueue(sub)
	if e.opts.OnConfirm != nil {
		e.opts.OnConfirm(result)
	}
	return result, true
}

func (e *Engine) query(worker attendance.Worker, at time.Time) {
	records := e.log.Snapshot().Records()
	q := Query{
		Worker:    worker,
		Status:    attendance.ResolveStatus(worker, records),
		WeekHours: attendance.WeekTotalHours(worker.ID, records, at, e.opts.Week),
		At:        at,
	}
	if latest, ok := attendance.LatestRecord(worker.ID, records); ok {
		q.Latest = &latest
	}
	e.logger.Info("worker queried",
		logging.String(logging.FieldEventType, "worker_queried"),
		logging.String(logging.FieldWorkerID, worker.ID),
		logging.String("worker_name", worker.Name),
		logging.String("location", q.Status.Location.String()),
		logging.Float64("week_hours", q.WeekHours),
	)
	if e.opts.OnQuery != nil {
		e.opts.OnQuery(q)
	}
}

func (e *Engine) notify(event notifications.Event, payload notifications.Payload) {
	svc := e.opts.Notifier
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := svc.Publish(ctx, event, payload); err != nil {
			e.logger.Debug("notification failed", logging.Error(err), logging.String("event", string(event)))
		}
	}()
}
