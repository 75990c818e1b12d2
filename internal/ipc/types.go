package ipc

import (
	"context"
	"time"

	"timeclock/internal/engine"
)

// ServiceName is the RPC service prefix.
const ServiceName = "Timeclock"

// Controller is the daemon surface served over IPC.
type Controller interface {
	Status(ctx context.Context, req StatusRequest) (StatusResponse, error)
	Roster(ctx context.Context, req RosterRequest) (RosterResponse, error)
	Hours(ctx context.Context, req HoursRequest) (HoursResponse, error)
	Scan(ctx context.Context, req ScanRequest) (ScanResponse, error)
	Select(ctx context.Context, req SelectRequest) (SelectResponse, error)
	Reload(ctx context.Context, req ReloadRequest) (ReloadResponse, error)
	Sync(ctx context.Context, req SyncRequest) (SyncResponse, error)
	LogTail(ctx context.Context, req LogTailRequest) (LogTailResponse, error)
	TestNotification(ctx context.Context, req TestNotificationRequest) (TestNotificationResponse, error)
	Shutdown(ctx context.Context, req ShutdownRequest) (ShutdownResponse, error)
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon and engine status.
type StatusResponse struct {
	Running           bool               `json:"running"`
	PID               int                `json:"pid"`
	SessionID         string             `json:"session_id"`
	StartedAt         time.Time          `json:"started_at"`
	Stats             engine.Stats       `json:"stats"`
	Pending           int                `json:"pending"`
	BackendConfigured bool               `json:"backend_configured"`
	RosterSource      string             `json:"roster_source"`
	LastRefresh       time.Time          `json:"last_refresh"`
	LastRefreshError  string             `json:"last_refresh_error"`
	LastScan          *engine.ScanResult `json:"last_scan,omitempty"`
	ScanNotifyActive  bool               `json:"scan_notify_active"`
	ScannerSource     string             `json:"scanner_source"`
	ScannerAttached   bool               `json:"scanner_attached"`
	DatabasePath      string             `json:"database_path"`
	LockPath          string             `json:"lock_path"`
}

// RosterRequest lists workers, optionally only those on site.
type RosterRequest struct {
	OnsiteOnly bool `json:"onsite_only"`
}

// RosterResponse carries workers in display order.
type RosterResponse struct {
	Entries []engine.RosterEntry `json:"entries"`
}

// HoursRequest fetches the weekly grid, optionally for one worker.
type HoursRequest struct {
	WorkerID string `json:"worker_id"`
}

// HoursResponse carries the weekly grid.
type HoursResponse struct {
	View engine.HoursView `json:"view"`
}

// ScanRequest injects a decoded badge code.
type ScanRequest struct {
	Code string `json:"code"`
}

// ScanResponse reports whether the code matched and what was recorded.
type ScanResponse struct {
	Matched bool               `json:"matched"`
	Result  *engine.ScanResult `json:"result,omitempty"`
}

// SelectRequest injects one row selection, or two when Confirm is set.
type SelectRequest struct {
	WorkerID string `json:"worker_id"`
	Confirm  bool   `json:"confirm"`
}

// SelectResponse reports the disambiguator state after the selection.
type SelectResponse struct {
	Pending       bool               `json:"pending"`
	PendingWorker string             `json:"pending_worker"`
	Result        *engine.ScanResult `json:"result,omitempty"`
}

// ReloadRequest refreshes workers and history.
type ReloadRequest struct{}

// ReloadResponse summarizes the reload.
type ReloadResponse struct {
	Workers int    `json:"workers"`
	Records int    `json:"records"`
	Source  string `json:"source"`
}

// SyncRequest resubmits pending records.
type SyncRequest struct{}

// SyncResponse summarizes the sync pass.
type SyncResponse struct {
	Result engine.SyncResult `json:"result"`
	Error  string            `json:"error,omitempty"`
}

// LogTailRequest reads the daemon log. A negative Offset asks for the last
// Limit lines; Contains narrows the lines to those mentioning every value.
type LogTailRequest struct {
	Offset   int64    `json:"offset"`
	Limit    int      `json:"limit"`
	Contains []string `json:"contains,omitempty"`
	Follow   bool     `json:"follow"`
	WaitMS   int      `json:"wait_ms"`
}

// LogTailResponse carries log lines, oldest first, and the resume offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
	Path   string   `json:"path"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports the notification test result.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// ShutdownRequest asks the daemon process to exit.
type ShutdownRequest struct{}

// ShutdownResponse acknowledges the shutdown request.
type ShutdownResponse struct {
	Stopped bool `json:"stopped"`
}
