package daemon_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"timeclock/internal/attendance"
	"timeclock/internal/backend"
	"timeclock/internal/config"
	"timeclock/internal/daemon"
	"timeclock/internal/ipc"
	"timeclock/internal/logging"
	"timeclock/internal/notifications"
	"timeclock/internal/store"
	"timeclock/internal/testsupport"
)

var roster = []attendance.Worker{
	{ID: "1001", Name: "Zed Adams"},
	{ID: "1002", Name: "Ada Byron", Offsite: true},
	{ID: "1003", Name: "Mia Chen"},
}

type fakeBackend struct {
	mu        sync.Mutex
	workers   []attendance.Worker
	history   []attendance.ScanRecord
	fetchErr  error
	submitted []attendance.ScanRecord
}

func (f *fakeBackend) FetchWorkers(context.Context) ([]attendance.Worker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]attendance.Worker(nil), f.workers...), nil
}

func (f *fakeBackend) FetchScanHistory(context.Context, time.Time) ([]attendance.ScanRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]attendance.ScanRecord(nil), f.history...), nil
}

func (f *fakeBackend) SubmitScanRecord(_ context.Context, rec attendance.ScanRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, rec)
	return nil
}

func (f *fakeBackend) submissions() []attendance.ScanRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]attendance.ScanRecord(nil), f.submitted...)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingNotifier) has(event notifications.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == event {
			return true
		}
	}
	return false
}

func newDaemon(t *testing.T, cfg *config.Config, st *store.Store, opts ...daemon.Option) *daemon.Daemon {
	t.Helper()
	opts = append([]daemon.Option{daemon.WithKeySource(nil), daemon.WithSessionID("test-session")}, opts...)
	d, err := daemon.New(cfg, st, logging.NewNop(), opts...)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

func startOffline(t *testing.T) (*daemon.Daemon, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedWorkers(t, st, roster...)
	d := newDaemon(t, cfg, st, daemon.WithBackend(nil))
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return d, st
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestDaemonStartStop(t *testing.T) {
	d, _ := startOffline(t)
	ctx := context.Background()

	status, err := d.Status(ctx, ipc.StatusRequest{})
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.RosterSource != "cache" || status.Stats.Workers != 3 {
		t.Fatalf("unexpected status %#v", status)
	}
	if status.SessionID != "test-session" || status.BackendConfigured {
		t.Fatalf("unexpected identity %#v", status)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status, _ = d.Status(ctx, ipc.StatusRequest{})
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
	if _, err := d.Scan(ctx, ipc.ScanRequest{Code: "1001"}); err == nil {
		t.Fatal("expected scan after stop to fail")
	}
}

func TestDaemonSingleInstanceLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	first := newDaemon(t, cfg, st, daemon.WithBackend(nil))
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	second := newDaemon(t, cfg, st, daemon.WithBackend(nil))
	err := second.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock contention error, got %v", err)
	}
}

func TestDaemonScanAndSelect(t *testing.T) {
	d, st := startOffline(t)
	ctx := context.Background()

	scan, err := d.Scan(ctx, ipc.ScanRequest{Code: "1001"})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !scan.Matched || scan.Result == nil || scan.Result.Record.Status != attendance.StatusIn {
		t.Fatalf("unexpected scan %#v", scan)
	}

	miss, err := d.Scan(ctx, ipc.ScanRequest{Code: "4040"})
	if err != nil || miss.Matched {
		t.Fatalf("expected unmatched scan, got %#v err=%v", miss, err)
	}

	sel, err := d.Select(ctx, ipc.SelectRequest{WorkerID: "1002", Confirm: true})
	if err != nil {
		t.Fatalf("Select confirm: %v", err)
	}
	if sel.Result == nil || sel.Result.Worker.ID != "1002" || sel.Pending {
		t.Fatalf("expected confirmed selection, got %#v", sel)
	}

	tap, err := d.Select(ctx, ipc.SelectRequest{WorkerID: "1003"})
	if err != nil {
		t.Fatalf("Select tap: %v", err)
	}
	if !tap.Pending || tap.PendingWorker != "1003" || tap.Result != nil {
		t.Fatalf("expected pending selection, got %#v", tap)
	}

	if _, err := d.Select(ctx, ipc.SelectRequest{WorkerID: "9999"}); err == nil {
		t.Fatal("expected unknown worker to be rejected")
	}

	onsite, err := d.Roster(ctx, ipc.RosterRequest{OnsiteOnly: true})
	if err != nil {
		t.Fatalf("Roster: %v", err)
	}
	if len(onsite.Entries) != 1 || onsite.Entries[0].Worker.ID != "1001" {
		t.Fatalf("expected only 1001 on site, got %#v", onsite.Entries)
	}

	// Without a backend both records stay journaled as pending.
	waitFor(t, "journaled records", func() bool {
		stats, err := st.Stats(ctx)
		return err == nil && stats.Pending == 2
	})

	status, _ := d.Status(ctx, ipc.StatusRequest{})
	if status.LastScan == nil || status.LastScan.Worker.ID != "1002" || status.Pending != 2 {
		t.Fatalf("unexpected status after scans %#v", status)
	}
}

func TestDaemonHoursFilter(t *testing.T) {
	d, _ := startOffline(t)
	ctx := context.Background()

	all, err := d.Hours(ctx, ipc.HoursRequest{})
	if err != nil {
		t.Fatalf("Hours: %v", err)
	}
	if len(all.View.Workers) != 3 || len(all.View.Days) != 6 {
		t.Fatalf("unexpected grid %d workers %d days", len(all.View.Workers), len(all.View.Days))
	}

	one, err := d.Hours(ctx, ipc.HoursRequest{WorkerID: "1003"})
	if err != nil {
		t.Fatalf("Hours worker: %v", err)
	}
	if len(one.View.Workers) != 1 || len(one.View.Table) != 1 {
		t.Fatalf("expected a single row, got %#v", one.View)
	}
	if _, ok := one.View.Table["1003"]; !ok {
		t.Fatal("expected row for 1003")
	}

	if _, err := d.Hours(ctx, ipc.HoursRequest{WorkerID: "nobody"}); err == nil {
		t.Fatal("expected unknown worker error")
	}
}

func TestDaemonLoadsFromBackendAndSyncsPending(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	earlier := time.Now().Add(-2 * time.Hour).Unix()
	stale := attendance.ScanRecord{WorkerID: "1003", TimestampSeconds: earlier, Status: attendance.StatusIn, Source: "timeclock"}
	if _, err := st.AppendPending(ctx, stale); err != nil {
		t.Fatalf("AppendPending: %v", err)
	}

	fb := &fakeBackend{
		workers: roster,
		history: []attendance.ScanRecord{
			{WorkerID: "1001", TimestampSeconds: earlier, Status: attendance.StatusIn, Source: "Scan"},
		},
	}
	notifier := &recordingNotifier{}
	d := newDaemon(t, cfg, st, daemon.WithBackend(fb), daemon.WithNotifier(notifier))
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, "startup sync", func() bool { return len(fb.submissions()) == 1 })
	if got := fb.submissions()[0]; got.WorkerID != "1003" {
		t.Fatalf("unexpected resubmission %#v", got)
	}
	waitFor(t, "sync notification", func() bool { return notifier.has(notifications.EventPendingSynced) })

	status, err := d.Status(ctx, ipc.StatusRequest{})
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.RosterSource != "backend" || !status.BackendConfigured {
		t.Fatalf("unexpected status %#v", status)
	}
	// Backend history plus the journaled local record.
	if status.Stats.Records != 2 || status.Stats.Onsite != 2 {
		t.Fatalf("unexpected engine stats %#v", status.Stats)
	}

	fb.mu.Lock()
	fb.workers = append(fb.workers, attendance.Worker{ID: "1004", Name: "Noor Diaz"})
	fb.mu.Unlock()

	reload, err := d.Reload(ctx, ipc.ReloadRequest{})
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if reload.Workers != 4 || reload.Source != "backend" {
		t.Fatalf("unexpected reload %#v", reload)
	}

	syncResp, err := d.Sync(ctx, ipc.SyncRequest{})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if syncResp.Result.Submitted != 0 || syncResp.Error != "" {
		t.Fatalf("expected nothing left to sync, got %#v", syncResp)
	}
}

func TestDaemonFallsBackToCache(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedWorkers(t, st, roster...)

	fb := &fakeBackend{fetchErr: errors.Join(backend.ErrUnavailable, errors.New("connection refused"))}
	d := newDaemon(t, cfg, st, daemon.WithBackend(fb), daemon.WithNotifier(&recordingNotifier{}))
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	status, _ := d.Status(context.Background(), ipc.StatusRequest{})
	if status.RosterSource != "cache" || status.Stats.Workers != 3 {
		t.Fatalf("expected cached roster, got %#v", status)
	}
	if !strings.Contains(status.LastRefreshError, "connection refused") {
		t.Fatalf("expected refresh error, got %q", status.LastRefreshError)
	}
}

func TestDaemonSyncWithoutBackend(t *testing.T) {
	d, _ := startOffline(t)
	if _, err := d.Sync(context.Background(), ipc.SyncRequest{}); err == nil {
		t.Fatal("expected sync without backend to fail")
	}
}

func TestDaemonLogTail(t *testing.T) {
	d, _ := startOffline(t)
	if err := os.MkdirAll(filepath.Dir(d.LogPath()), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := "one worker_id=1001\ntwo worker_id=1002\nthree worker_id=1001\n"
	if err := os.WriteFile(d.LogPath(), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	resp, err := d.LogTail(context.Background(), ipc.LogTailRequest{Offset: -1, Limit: 5, Contains: []string{"worker_id=1001"}})
	if err != nil {
		t.Fatalf("LogTail: %v", err)
	}
	if len(resp.Lines) != 2 || resp.Lines[1] != "three worker_id=1001" || resp.Path != d.LogPath() {
		t.Fatalf("unexpected tail %#v", resp)
	}
}

func TestDaemonTestNotificationWithoutTopic(t *testing.T) {
	d, _ := startOffline(t)
	resp, err := d.TestNotification(context.Background(), ipc.TestNotificationRequest{})
	if err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if resp.Sent || !strings.Contains(resp.Message, "not configured") {
		t.Fatalf("unexpected response %#v", resp)
	}
}

func TestNewRequiresStore(t *testing.T) {
	if _, err := daemon.New(testsupport.NewConfig(t), nil, logging.NewNop()); err == nil {
		t.Fatal("expected error without store")
	}
}

func TestDaemonShutdownRequest(t *testing.T) {
	d, _ := startOffline(t)
	select {
	case <-d.ShutdownRequested():
		t.Fatal("shutdown signalled too early")
	default:
	}
	for range 2 {
		resp, err := d.Shutdown(context.Background(), ipc.ShutdownRequest{})
		if err != nil || !resp.Stopped {
			t.Fatalf("Shutdown: %#v %v", resp, err)
		}
	}
	select {
	case <-d.ShutdownRequested():
	default:
		t.Fatal("expected shutdown channel to be closed")
	}
}
