package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"timeclock/internal/attendance"
	"timeclock/internal/backend"
	"timeclock/internal/engine"
	"timeclock/internal/logging"
	"timeclock/internal/notifications"
)

const (
	sourceBackend = "backend"
	sourceCache   = "cache"
)

// historySince covers both the configured history window and the whole
// current reporting week.
func (d *Daemon) historySince(now time.Time, week attendance.WeekOptions) time.Time {
	start := attendance.ReportingWeek(now, week).Start
	local := now.In(start.Location())
	y, m, day := local.Date()
	since := time.Date(y, m, day-d.cfg.Backend.HistoryDays, 0, 0, 0, 0, start.Location())
	if start.Before(since) {
		return start
	}
	return since
}

// load returns the roster and history to bind. The backend is preferred;
// when it is missing or unreachable the local store serves the last known
// state. History is always read back from the store so journaled records the
// backend has not seen stay in the log.
func (d *Daemon) load(ctx context.Context, week attendance.WeekOptions) ([]attendance.Worker, []attendance.ScanRecord, string) {
	since := d.historySince(time.Now(), week)
	source := sourceCache

	var pullErr error
	if d.backend != nil {
		if pullErr = d.pull(ctx, since); pullErr != nil {
			d.warnRefresh(pullErr)
		} else {
			source = sourceBackend
		}
	}
	d.setRefresh(source, pullErr)

	workers, err := d.store.Workers(ctx)
	if err != nil {
		logging.WarnWithContext(d.logger, "failed to read cached roster", "roster_cache_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "roster is empty until the next refresh"),
			logging.String(logging.FieldErrorHint, "check the data_dir database"),
		)
	}
	history, err := d.store.History(ctx, since)
	if err != nil {
		logging.WarnWithContext(d.logger, "failed to read cached history", "history_cache_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "presence and hours start empty"),
			logging.String(logging.FieldErrorHint, "check the data_dir database"),
		)
	}
	if history == nil {
		history = []attendance.ScanRecord{}
	}
	return workers, history, source
}

// pull copies the backend roster and history into the store.
func (d *Daemon) pull(ctx context.Context, since time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 2*d.cfg.BackendTimeout()+time.Second)
	defer cancel()

	workers, err := d.backend.FetchWorkers(ctx)
	if err != nil {
		return fmt.Errorf("fetch workers: %w", err)
	}
	history, err := d.backend.FetchScanHistory(ctx, since)
	if err != nil {
		return fmt.Errorf("fetch scan history: %w", err)
	}
	if err := d.store.ReplaceWorkers(ctx, workers); err != nil {
		return fmt.Errorf("cache workers: %w", err)
	}
	if err := d.store.MergeHistory(ctx, history); err != nil {
		return fmt.Errorf("cache history: %w", err)
	}
	d.logger.Debug("backend state pulled",
		logging.Int("workers", len(workers)),
		logging.Int("records", len(history)),
		logging.Time("since", since),
	)
	return nil
}

func (d *Daemon) warnRefresh(err error) {
	hint := "check backend.base_url and network connectivity"
	if errors.Is(err, backend.ErrUnauthorized) {
		hint = "check backend.api_key or TIMECLOCK_API_KEY"
	}
	logging.WarnWithContext(d.logger, "backend refresh failed; using cached roster", "backend_refresh_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, hint),
		logging.String(logging.FieldImpact, "roster and history may be stale"),
	)
}

// reload pulls fresh state and rebinds the engine on its loop.
func (d *Daemon) reload(ctx context.Context) (workers, records int, source string, err error) {
	d.refreshMu.Lock()
	defer d.refreshMu.Unlock()

	week, err := d.cfg.WeekOptions()
	if err != nil {
		return 0, 0, "", err
	}
	ws, history, source := d.load(ctx, week)
	if err := d.do(ctx, func() { d.engine.Rebind(ws, history) }); err != nil {
		return 0, 0, source, fmt.Errorf("rebind roster: %w", err)
	}
	return len(ws), d.engine.Snapshot().Len(), source, nil
}

// syncPending resubmits journaled records.
func (d *Daemon) syncPending(ctx context.Context) (engine.SyncResult, error) {
	if d.backend == nil {
		return engine.SyncResult{}, errors.New("no backend configured")
	}
	d.refreshMu.Lock()
	defer d.refreshMu.Unlock()

	result, err := engine.SyncPending(ctx, d.store, d.backend, d.logger)
	if result.Submitted > 0 {
		d.publish(ctx, notifications.EventPendingSynced, notifications.Payload{
			"submitted": result.Submitted,
			"remaining": result.Remaining,
		})
	}
	return result, err
}

func (d *Daemon) refreshLoop(ctx context.Context) {
	if _, err := d.syncPending(ctx); err != nil && ctx.Err() == nil {
		d.logger.Debug("startup sync incomplete", logging.Error(err))
	}

	interval := d.cfg.RefreshInterval()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if _, err := d.syncPending(ctx); err != nil && ctx.Err() == nil {
			d.logger.Debug("periodic sync incomplete", logging.Error(err))
		}
		if _, _, _, err := d.reload(ctx); err != nil && ctx.Err() == nil {
			logging.WarnWithContext(d.logger, "periodic roster refresh failed", "roster_refresh_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "roster keeps its previous contents"),
			)
		}
	}
}

func (d *Daemon) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := d.notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(d.logger, "notification failed", "notification_failed",
			logging.Error(err),
			logging.String("event", string(event)),
			logging.String(logging.FieldImpact, "operators were not alerted"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}
