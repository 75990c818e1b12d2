package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"timeclock/internal/attendance"
	"timeclock/internal/ipc"
	"timeclock/internal/logging"
	"timeclock/internal/logs"
	"timeclock/internal/notifications"
)

const maxFollowWait = 10 * time.Second

var _ ipc.Controller = (*Daemon)(nil)

// Status reports daemon, engine and journal state.
func (d *Daemon) Status(ctx context.Context, _ ipc.StatusRequest) (ipc.StatusResponse, error) {
	resp := ipc.StatusResponse{
		Running:           d.running.Load(),
		PID:               os.Getpid(),
		SessionID:         d.sessionID,
		StartedAt:         d.startedAt,
		BackendConfigured: d.backend != nil,
		DatabasePath:      d.store.Path(),
		LockPath:          d.lockPath,
	}

	d.mu.Lock()
	resp.RosterSource = d.rosterSource
	resp.LastRefresh = d.lastRefresh
	resp.LastRefreshError = d.lastRefreshErr
	resp.ScannerSource = d.scannerSource
	resp.ScannerAttached = d.scannerAttached
	d.mu.Unlock()

	if stats, err := d.store.Stats(ctx); err == nil {
		resp.Pending = stats.Pending
	} else {
		d.logger.Debug("store stats unavailable", logging.Error(err))
	}

	if d.engine != nil {
		resp.Stats = d.engine.Stats()
		if last, ok := d.engine.LastScan(); ok {
			resp.LastScan = &last
		}
		resp.ScanNotifyActive = d.engine.ScanNotifyActive()
	}
	return resp, nil
}

// Roster lists workers in display order with their presence.
func (d *Daemon) Roster(_ context.Context, req ipc.RosterRequest) (ipc.RosterResponse, error) {
	if d.engine == nil {
		return ipc.RosterResponse{}, errors.New("daemon not running")
	}
	entries := d.engine.Roster()
	if req.OnsiteOnly {
		filtered := entries[:0]
		for _, entry := range entries {
			if entry.Status.Location == attendance.Onsite {
				filtered = append(filtered, entry)
			}
		}
		entries = filtered
	}
	return ipc.RosterResponse{Entries: entries}, nil
}

// Hours returns the weekly grid, narrowed to one worker when requested.
func (d *Daemon) Hours(_ context.Context, req ipc.HoursRequest) (ipc.HoursResponse, error) {
	if d.engine == nil {
		return ipc.HoursResponse{}, errors.New("daemon not running")
	}
	view := d.engine.Hours()
	if req.WorkerID == "" {
		return ipc.HoursResponse{View: view}, nil
	}
	worker, ok := d.findWorker(req.WorkerID)
	if !ok {
		return ipc.HoursResponse{}, fmt.Errorf("worker %q not found", req.WorkerID)
	}
	view.Workers = []attendance.Worker{worker}
	view.Table = attendance.WeeklyHoursTable{worker.ID: view.Table[worker.ID]}
	return ipc.HoursResponse{View: view}, nil
}

// Scan handles a badge code as if the scanner produced it.
func (d *Daemon) Scan(ctx context.Context, req ipc.ScanRequest) (ipc.ScanResponse, error) {
	var resp ipc.ScanResponse
	err := d.do(ctx, func() {
		res, ok := d.engine.Scan(req.Code)
		resp.Matched = ok
		if ok {
			resp.Result = &res
		}
	})
	return resp, err
}

// Select feeds one row selection, or a double selection when Confirm is set.
func (d *Daemon) Select(ctx context.Context, req ipc.SelectRequest) (ipc.SelectResponse, error) {
	if _, ok := d.findWorker(req.WorkerID); !ok {
		return ipc.SelectResponse{}, fmt.Errorf("worker %q not found", req.WorkerID)
	}

	var resp ipc.SelectResponse
	err := d.do(ctx, func() {
		before := d.engine.Stats().Confirmed
		d.engine.Select(req.WorkerID)
		if req.Confirm {
			d.engine.Select(req.WorkerID)
		}
		if d.engine.Stats().Confirmed > before {
			if last, ok := d.engine.LastScan(); ok {
				resp.Result = &last
			}
		}
		resp.PendingWorker, resp.Pending = d.engine.PendingSelection()
	})
	return resp, err
}

// Reload refreshes the roster and history and rebinds the engine.
func (d *Daemon) Reload(ctx context.Context, _ ipc.ReloadRequest) (ipc.ReloadResponse, error) {
	workers, records, source, err := d.reload(ctx)
	if err != nil {
		return ipc.ReloadResponse{}, err
	}
	return ipc.ReloadResponse{Workers: workers, Records: records, Source: source}, nil
}

// Sync resubmits journaled records. A partial pass is reported, not failed.
func (d *Daemon) Sync(ctx context.Context, _ ipc.SyncRequest) (ipc.SyncResponse, error) {
	if d.backend == nil {
		return ipc.SyncResponse{}, errors.New("no backend configured")
	}
	result, err := d.syncPending(ctx)
	resp := ipc.SyncResponse{Result: result}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp, nil
}

// LogTail reads the daemon log file.
func (d *Daemon) LogTail(ctx context.Context, req ipc.LogTailRequest) (ipc.LogTailResponse, error) {
	wait := min(time.Duration(req.WaitMS)*time.Millisecond, maxFollowWait)
	result, err := logs.Tail(ctx, d.logPath, logs.TailOptions{
		Offset:   req.Offset,
		Limit:    req.Limit,
		Contains: req.Contains,
		Follow:   req.Follow,
		Wait:     wait,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return ipc.LogTailResponse{}, err
	}
	return ipc.LogTailResponse{Lines: result.Lines, Offset: result.Offset, Path: d.logPath}, nil
}

// TestNotification sends a test message through the configured notifier.
func (d *Daemon) TestNotification(ctx context.Context, _ ipc.TestNotificationRequest) (ipc.TestNotificationResponse, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return ipc.TestNotificationResponse{Sent: false, Message: "ntfy topic not configured"}, nil
	}
	if err := d.notifier.Publish(ctx, notifications.EventTestNotification, nil); err != nil {
		return ipc.TestNotificationResponse{Sent: false, Message: "failed to send notification"}, err
	}
	return ipc.TestNotificationResponse{Sent: true, Message: "test notification sent"}, nil
}

// Shutdown signals the hosting process to exit. The process stops the
// daemon itself once the response has been sent.
func (d *Daemon) Shutdown(_ context.Context, _ ipc.ShutdownRequest) (ipc.ShutdownResponse, error) {
	d.closeOnce.Do(func() { close(d.shutdown) })
	return ipc.ShutdownResponse{Stopped: true}, nil
}

func (d *Daemon) findWorker(id string) (attendance.Worker, bool) {
	if d.engine == nil {
		return attendance.Worker{}, false
	}
	id = strings.TrimSpace(id)
	for _, w := range d.engine.Workers() {
		if w.ID == id {
			return w, true
		}
	}
	return attendance.Worker{}, false
}
