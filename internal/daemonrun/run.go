package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"timeclock/internal/config"
	"timeclock/internal/daemon"
	"timeclock/internal/ipc"
	"timeclock/internal/logging"
	"timeclock/internal/store"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides logging.level when set.
	LogLevel string
	// SocketPath overrides the configured IPC socket.
	SocketPath string
}

// Run starts the kiosk and blocks until a signal or a Shutdown request.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return errors.New("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.Logging.Level = level
	}
	sessionID := uuid.NewString()
	logger, err := logging.NewFromConfig(cfg, sessionID)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logConfigSnapshot(logger, cfg)

	st, err := store.Open(cfg)
	if err != nil {
		logging.ErrorWithContext(logger, "open scan journal", "store_open_failed",
			logging.Error(err),
			logging.String("path", cfg.DatabasePath()),
			logging.String(logging.FieldErrorHint, "check data_dir permissions or remove an incompatible database"),
		)
		return err
	}
	defer st.Close()

	d, err := daemon.New(cfg, st, logger, daemon.WithSessionID(sessionID))
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	defer d.Stop()

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	socketPath := strings.TrimSpace(opts.SocketPath)
	if socketPath == "" {
		socketPath = cfg.SocketPath()
	}
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	select {
	case <-signalCtx.Done():
	case <-d.ShutdownRequested():
	}
	logger.Info("timeclock daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.Bool("backend_configured", cfg.BackendConfigured()),
		logging.Bool("api_key_present", strings.TrimSpace(cfg.Backend.APIKey) != ""),
		logging.String("scanner_source", cfg.Scanner.Source),
		logging.String("scanner_device", cfg.Scanner.Device),
		logging.String("match_field", cfg.Roster.MatchField),
		logging.Duration("confirm_window", cfg.ConfirmWindow()),
		logging.Duration("refresh_interval", cfg.RefreshInterval()),
		logging.String("period_boundary", cfg.Hours.PeriodBoundary),
		logging.String("week_start", cfg.Hours.WeekStart),
		logging.Bool("notifications", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
	)
}
