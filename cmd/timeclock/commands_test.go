package main

import (
	"encoding/json"
	"strings"
	"testing"

	"timeclock/internal/attendance"
	"timeclock/internal/engine"
)

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "System Status")
	requireContains(t, out, "running (pid")
	requireContains(t, out, "not configured; scans stay local")
	requireContains(t, out, "Attendance")

	out, _, err = runCLI(t, []string{"status", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode status json: %v\n%s", err, out)
	}
	if decoded["running"] != true || decoded["session_id"] != "cli-session" {
		t.Fatalf("unexpected status json %v", decoded)
	}
}

func TestScanAndRoster(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"roster"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	requireContains(t, out, "Zed Adams")
	requireContains(t, out, "Offsite")

	out, _, err = runCLI(t, []string{"scan", "1001"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "Zed Adams clocked In")

	out, _, err = runCLI(t, []string{"scan", "9999"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("scan unknown: %v", err)
	}
	requireContains(t, out, `No worker matches badge "9999"`)

	out, _, err = runCLI(t, []string{"roster", "--onsite"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("roster --onsite: %v", err)
	}
	requireContains(t, out, "Zed Adams")
	requireNotContains(t, out, "Mia Chen")

	out, _, err = runCLI(t, []string{"roster", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("roster --json: %v", err)
	}
	var entries []engine.RosterEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode roster json: %v", err)
	}
	if len(entries) != len(testRoster) {
		t.Fatalf("expected %d entries, got %d", len(testRoster), len(entries))
	}
	for _, entry := range entries {
		if entry.Worker.ID == "1001" && entry.Status.Location != attendance.Onsite {
			t.Fatalf("expected 1001 onsite after scan, got %v", entry.Status)
		}
	}
}

func TestSelectCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"select", "1003"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	requireContains(t, out, "select again to confirm")

	out, _, err = runCLI(t, []string{"select", "1001", "--confirm"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("select --confirm: %v", err)
	}
	requireContains(t, out, "Zed Adams clocked In")

	if _, _, err := runCLI(t, []string{"select", "4040"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected unknown worker selection to fail")
	}
}

func TestHoursCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"hours"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("hours: %v", err)
	}
	requireContains(t, out, "Mia Chen")
	requireContains(t, out, "Cells show AM/PM hours")

	out, _, err = runCLI(t, []string{"hours", "--worker", "1003"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("hours --worker: %v", err)
	}
	requireContains(t, out, "Mia Chen")
	requireNotContains(t, out, "Zed Adams")

	_, _, err = runCLI(t, []string{"hours", "--worker", "4040"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestReloadAndSyncCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"reload"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	requireContains(t, out, "Reloaded 3 workers")
	requireContains(t, out, "from cache")

	_, _, err = runCLI(t, []string{"sync"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "no backend configured") {
		t.Fatalf("expected missing backend error, got %v", err)
	}
}

func TestLogsCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	if err := appendLine(env.logPath, "scan recorded worker_id=1001"); err != nil {
		t.Fatalf("seed log: %v", err)
	}
	if err := appendLine(env.logPath, "scan recorded worker_id=1003"); err != nil {
		t.Fatalf("seed log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "--lines", "5"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "worker_id=1001")
	requireContains(t, out, "worker_id=1003")

	out, _, err = runCLI(t, []string{"logs", "--worker", "1003"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs --worker: %v", err)
	}
	requireContains(t, out, "worker_id=1003")
	requireNotContains(t, out, "worker_id=1001")
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"test-notify"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "ntfy topic not configured")
}

func TestCommandsWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	missing := env.socketPath + ".missing"

	_, _, err := runCLI(t, []string{"roster"}, missing, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "timeclock start") {
		t.Fatalf("expected start hint, got %v", err)
	}

	out, _, err := runCLI(t, []string{"stop"}, missing, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Daemon is not running")

	out, _, err = runCLI(t, []string{"status"}, missing, env.configPath)
	if err != nil {
		t.Fatalf("offline status: %v", err)
	}
	requireContains(t, out, "not running")
}
