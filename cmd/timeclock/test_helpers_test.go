package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"timeclock/internal/attendance"
	"timeclock/internal/config"
	"timeclock/internal/daemon"
	"timeclock/internal/ipc"
	"timeclock/internal/logging"
	"timeclock/internal/store"
	"timeclock/internal/testsupport"
)

var testRoster = []attendance.Worker{
	{ID: "1001", Name: "Zed Adams"},
	{ID: "1002", Name: "Ada Byron", Offsite: true},
	{ID: "1003", Name: "Mia Chen"},
}

type cliTestEnv struct {
	cfg        *config.Config
	store      *store.Store
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
	logPath    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("TIMECLOCK_API_KEY", "")
	t.Setenv("TIMECLOCK_BASE_URL", "")
	t.Setenv("TIMECLOCK_DOCUMENT_ID", "")
	t.Setenv("TIMECLOCK_NTFY_TOPIC", "")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	configPath := filepath.Join(homeDir, ".config", "timeclock", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedWorkers(t, st, testRoster...)

	logger := logging.NewNop()
	d, err := daemon.New(cfg, st, logger,
		daemon.WithBackend(nil),
		daemon.WithKeySource(nil),
		daemon.WithSessionID("cli-session"),
	)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}

	// Unix socket paths are length limited; t.TempDir can exceed it.
	sockDir, err := os.MkdirTemp("", "tc")
	if err != nil {
		t.Fatalf("socket dir: %v", err)
	}
	socketPath := filepath.Join(sockDir, "cli.sock")

	ctx, cancel := context.WithCancel(context.Background())
	srv, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		cancel()
		d.Stop()
		os.RemoveAll(sockDir)
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("unix sockets unavailable: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Stop()
		os.RemoveAll(sockDir)
	})

	return &cliTestEnv{
		cfg:        cfg,
		store:      st,
		daemon:     d,
		server:     srv,
		socketPath: socketPath,
		configPath: configPath,
		logPath:    d.LogPath(),
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	return err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nlog_dir = %q\ndata_dir = %q\n\n[backend]\nrefresh_interval = 0\n\n[scanner]\nsource = \"none\"\n\n[hours]\ntimezone = \"UTC\"\n",
		cfg.Paths.LogDir,
		cfg.Paths.DataDir,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireNotContains(t *testing.T, output, substr string) {
	t.Helper()
	if strings.Contains(output, substr) {
		t.Fatalf("expected %q not to contain %q", output, substr)
	}
}
