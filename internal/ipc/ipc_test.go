package ipc_test

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
	"timeclock/internal/engine"
	"timeclock/internal/ipc"
	"timeclock/internal/logging"
)

type fakeController struct {
	mu       sync.Mutex
	shutdown bool
	scans    []string
	selects  []ipc.SelectRequest
	onsite   bool
	logLimit int
}

func (f *fakeController) Status(context.Context, ipc.StatusRequest) (ipc.StatusResponse, error) {
	return ipc.StatusResponse{
		Running:   true,
		PID:       4242,
		SessionID: "session-1",
		Stats:     engine.Stats{Workers: 2, Records: 5, Onsite: 1},
		Pending:   1,
	}, nil
}

func (f *fakeController) Roster(_ context.Context, req ipc.RosterRequest) (ipc.RosterResponse, error) {
	f.mu.Lock()
	f.onsite = req.OnsiteOnly
	f.mu.Unlock()
	return ipc.RosterResponse{Entries: []engine.RosterEntry{{
		Worker:    attendance.Worker{ID: "1001", Name: "Ada Byron"},
		Status:    attendance.PresenceStatus{Location: attendance.Onsite},
		WeekHours: 7.5,
	}}}, nil
}

func (f *fakeController) Hours(_ context.Context, req ipc.HoursRequest) (ipc.HoursResponse, error) {
	if req.WorkerID == "missing" {
		return ipc.HoursResponse{}, errors.New("worker missing not found")
	}
	return ipc.HoursResponse{View: engine.HoursView{
		Days:  []string{"2024-03-07"},
		Table: attendance.WeeklyHoursTable{req.WorkerID: {"2024-03-07": {AM: 4}}},
	}}, nil
}

func (f *fakeController) Scan(_ context.Context, req ipc.ScanRequest) (ipc.ScanResponse, error) {
	f.mu.Lock()
	f.scans = append(f.scans, req.Code)
	f.mu.Unlock()
	if req.Code != "1001" {
		return ipc.ScanResponse{}, nil
	}
	return ipc.ScanResponse{Matched: true, Result: &engine.ScanResult{
		Worker: attendance.Worker{ID: "1001", Name: "Ada Byron"},
		Record: attendance.ScanRecord{WorkerID: "1001", Status: attendance.StatusOut},
		Origin: engine.OriginBadge,
	}}, nil
}

func (f *fakeController) Select(_ context.Context, req ipc.SelectRequest) (ipc.SelectResponse, error) {
	f.mu.Lock()
	f.selects = append(f.selects, req)
	f.mu.Unlock()
	if req.Confirm {
		return ipc.SelectResponse{Result: &engine.ScanResult{Origin: engine.OriginSelect}}, nil
	}
	return ipc.SelectResponse{Pending: true, PendingWorker: req.WorkerID}, nil
}

func (f *fakeController) Reload(context.Context, ipc.ReloadRequest) (ipc.ReloadResponse, error) {
	return ipc.ReloadResponse{Workers: 2, Records: 5, Source: "backend"}, nil
}

func (f *fakeController) Sync(context.Context, ipc.SyncRequest) (ipc.SyncResponse, error) {
	return ipc.SyncResponse{Result: engine.SyncResult{Submitted: 1}}, nil
}

func (f *fakeController) LogTail(_ context.Context, req ipc.LogTailRequest) (ipc.LogTailResponse, error) {
	f.mu.Lock()
	f.logLimit = req.Limit
	f.mu.Unlock()
	return ipc.LogTailResponse{Lines: []string{"first", "second"}, Path: "/tmp/timeclock.log"}, nil
}

func (f *fakeController) TestNotification(context.Context, ipc.TestNotificationRequest) (ipc.TestNotificationResponse, error) {
	return ipc.TestNotificationResponse{Sent: false, Message: "notifications disabled"}, nil
}

func (f *fakeController) Shutdown(context.Context, ipc.ShutdownRequest) (ipc.ShutdownResponse, error) {
	f.mu.Lock()
	f.shutdown = true
	f.mu.Unlock()
	return ipc.ShutdownResponse{Stopped: true}, nil
}

func startServer(t *testing.T, ctrl ipc.Controller) *ipc.Client {
	t.Helper()

	// Unix socket paths are length limited; keep the directory short.
	dir, err := os.MkdirTemp("", "tc-ipc")
	if err != nil {
		t.Fatalf("mkdir temp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	socket := filepath.Join(dir, "timeclock.sock")
	srv, err := ipc.NewServer(ctx, socket, ctrl, logging.NewNop())
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	time.Sleep(20 * time.Millisecond)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestIPCServerClient(t *testing.T) {
	ctrl := &fakeController{}
	client := startServer(t, ctrl)

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running || status.PID != 4242 || status.Stats.Workers != 2 || status.Pending != 1 {
		t.Fatalf("unexpected status %#v", status)
	}

	roster, err := client.Roster(true)
	if err != nil {
		t.Fatalf("Roster RPC failed: %v", err)
	}
	if len(roster.Entries) != 1 || roster.Entries[0].Status.Location != attendance.Onsite {
		t.Fatalf("unexpected roster %#v", roster.Entries)
	}
	if !ctrl.onsite {
		t.Fatal("expected onsite flag to reach the controller")
	}

	hours, err := client.Hours(" 1001 ")
	if err != nil {
		t.Fatalf("Hours RPC failed: %v", err)
	}
	if got := hours.View.Table["1001"]["2024-03-07"].AM; got != 4 {
		t.Fatalf("expected trimmed worker id to resolve, got %v", got)
	}

	scan, err := client.Scan("1001")
	if err != nil {
		t.Fatalf("Scan RPC failed: %v", err)
	}
	if !scan.Matched || scan.Result == nil || scan.Result.Record.Status != attendance.StatusOut {
		t.Fatalf("unexpected scan %#v", scan)
	}

	miss, err := client.Scan("9999")
	if err != nil {
		t.Fatalf("Scan RPC failed: %v", err)
	}
	if miss.Matched || miss.Result != nil {
		t.Fatalf("expected unmatched scan, got %#v", miss)
	}

	sel, err := client.Select("1001", false)
	if err != nil {
		t.Fatalf("Select RPC failed: %v", err)
	}
	if !sel.Pending || sel.PendingWorker != "1001" {
		t.Fatalf("unexpected select %#v", sel)
	}

	reload, err := client.Reload()
	if err != nil {
		t.Fatalf("Reload RPC failed: %v", err)
	}
	if reload.Source != "backend" || reload.Workers != 2 {
		t.Fatalf("unexpected reload %#v", reload)
	}

	syncResp, err := client.Sync()
	if err != nil {
		t.Fatalf("Sync RPC failed: %v", err)
	}
	if syncResp.Result.Submitted != 1 {
		t.Fatalf("unexpected sync %#v", syncResp)
	}

	tail, err := client.LogTail(ipc.LogTailRequest{Offset: -1})
	if err != nil {
		t.Fatalf("LogTail RPC failed: %v", err)
	}
	if len(tail.Lines) != 2 || ctrl.logLimit != 50 {
		t.Fatalf("expected default limit 50, got %d lines=%v", ctrl.logLimit, tail.Lines)
	}

	note, err := client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification RPC failed: %v", err)
	}
	if note.Sent {
		t.Fatalf("expected disabled notification, got %#v", note)
	}

	stop, err := client.Shutdown()
	if err != nil {
		t.Fatalf("Shutdown RPC failed: %v", err)
	}
	if !stop.Stopped || !ctrl.shutdown {
		t.Fatalf("expected shutdown to reach the controller, got %#v", stop)
	}

	if len(ctrl.scans) != 2 || len(ctrl.selects) != 1 {
		t.Fatalf("controller saw %d scans, %d selects", len(ctrl.scans), len(ctrl.selects))
	}
}

func TestIPCValidationErrors(t *testing.T) {
	client := startServer(t, &fakeController{})

	if _, err := client.Scan("   "); err == nil || !strings.Contains(err.Error(), "scan code is required") {
		t.Fatalf("expected empty code error, got %v", err)
	}
	if _, err := client.Select("", true); err == nil || !strings.Contains(err.Error(), "worker id is required") {
		t.Fatalf("expected empty worker error, got %v", err)
	}
	if _, err := client.Hours("missing"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected controller error to propagate, got %v", err)
	}
}

func TestNewServerRequiresController(t *testing.T) {
	if _, err := ipc.NewServer(context.Background(), filepath.Join(t.TempDir(), "x.sock"), nil, logging.NewNop()); err == nil {
		t.Fatal("expected error for nil controller")
	}
}
