package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"timeclock/internal/config"
	"timeclock/internal/ipc"
	"timeclock/internal/store"
)

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	SocketPath string
	ConfigPath string
	LogLevel   string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State StartState
	PID   int
}

// ErrDaemonNotRunning indicates daemon IPC is unavailable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// Launch starts a detached `timeclock daemon` process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return errors.New("resolve executable: executable path is empty")
	}

	args := []string{"daemon"}
	if socket := strings.TrimSpace(opts.SocketPath); socket != "" {
		args = append(args, "--socket", socket)
	}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForClient waits for IPC socket availability and returns a connected client.
func WaitForClient(socketPath string, timeout time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err == nil {
			return client, nil
		}
		lastErr = err
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = errors.New("timeout waiting for daemon")
	}
	return nil, fmt.Errorf("daemon failed to start: %w", lastErr)
}

// EnsureStarted launches the daemon unless one already answers on the socket.
func EnsureStarted(socketPath, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	if client, err := ipc.Dial(socketPath); err == nil {
		status, statusErr := client.Status()
		_ = client.Close()
		if statusErr == nil && status.Running {
			return StartResult{State: StartStateAlreadyRunning, PID: status.PID}, nil
		}
	}

	if err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}
	client, err := WaitForClient(socketPath, waitTimeout)
	if err != nil {
		return StartResult{}, err
	}
	defer client.Close()

	status, err := client.Status()
	if err != nil {
		return StartResult{}, fmt.Errorf("query started daemon: %w", err)
	}
	return StartResult{State: StartStateStarted, PID: status.PID}, nil
}

// WaitForShutdown waits for daemon IPC to disappear or report not-running.
func WaitForShutdown(socketPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err != nil {
			if isDaemonUnavailable(err) {
				return nil
			}
			lastErr = err
			time.Sleep(200 * time.Millisecond)
			continue
		}
		status, statusErr := client.Status()
		_ = client.Close()
		if statusErr == nil && !status.Running {
			return nil
		}
		if statusErr != nil {
			lastErr = statusErr
		} else {
			lastErr = errors.New("daemon still running")
		}
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = errors.New("timeout waiting for shutdown")
	}
	return fmt.Errorf("daemon did not stop: %w", lastErr)
}

// ProcessInfo returns whether daemon IPC is reachable and the daemon PID when available.
func ProcessInfo(socketPath string) (bool, int, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	defer client.Close()
	status, err := client.Status()
	if err != nil {
		return true, 0, err
	}
	return true, status.PID, nil
}

// ReadPID reads the pid file written by a running daemon.
func ReadPID(pidPath string) (int, error) {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid file %q", pidPath)
	}
	return pid, nil
}

// ForceKillProcess sends SIGKILL to the daemon process and cleans pid/lock files.
func ForceKillProcess(pidPath, lockPath string, fallbackPID int) (int, error) {
	pid := fallbackPID
	if parsed, err := ReadPID(pidPath); err == nil {
		pid = parsed
	} else if !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("read daemon pid file: %w", err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("unable to determine daemon pid (pid file: %s)", pidPath)
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return 0, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("remove pid file %q: %w", pidPath, err)
	}
	if lockPath != "" {
		_ = os.Remove(lockPath)
	}
	return pid, nil
}

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	StopAcknowledged bool
	ForcedKill       bool
	PID              int
}

// StopAndTerminate requests a shutdown and force-kills the process if it is
// still alive after gracePeriod.
func StopAndTerminate(socketPath string, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	if cfg == nil {
		return StopResult{}, errors.New("configuration not available")
	}
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, err
	}
	pid := 0
	if status, statusErr := client.Status(); statusErr == nil {
		pid = status.PID
	}
	resp, err := client.Shutdown()
	_ = client.Close()
	if err != nil {
		return StopResult{}, err
	}
	result := StopResult{PID: pid, StopAcknowledged: resp.Stopped}

	_ = WaitForShutdown(socketPath, gracePeriod)
	alive, livePID, aliveErr := ProcessInfo(socketPath)
	if aliveErr != nil || !alive {
		return result, nil
	}
	if livePID != 0 {
		pid = livePID
	}
	killedPID, err := ForceKillProcess(cfg.PIDPath(), cfg.LockPath(), pid)
	if err != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", err)
	}
	_ = os.Remove(socketPath)
	result.ForcedKill = true
	result.PID = killedPID
	return result, nil
}

// RestartResult captures stop/start outcomes for daemon restart.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// Restart stops the daemon if running, then starts it again.
func Restart(socketPath string, cfg *config.Config, executablePath string, opts LaunchOptions, stopGracePeriod, startWaitTimeout time.Duration) (RestartResult, error) {
	stopResult, stopErr := StopAndTerminate(socketPath, cfg, stopGracePeriod)
	if stopErr != nil && !errors.Is(stopErr, ErrDaemonNotRunning) {
		return RestartResult{}, stopErr
	}
	startResult, err := EnsureStarted(socketPath, executablePath, opts, startWaitTimeout)
	if err != nil {
		return RestartResult{}, err
	}
	return RestartResult{WasRunning: stopErr == nil, Stop: stopResult, Start: startResult}, nil
}

// BuildStatusSnapshot returns the daemon's status, or an offline view built
// from the configuration and local journal when no daemon answers.
func BuildStatusSnapshot(ctx context.Context, socketPath string, cfg *config.Config) (*ipc.StatusResponse, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}

	if client, err := ipc.Dial(socketPath); err == nil {
		defer client.Close()
		if resp, statusErr := client.Status(); statusErr == nil {
			return resp, nil
		}
	}

	resp := &ipc.StatusResponse{
		BackendConfigured: cfg.BackendConfigured(),
		ScannerSource:     cfg.Scanner.Source,
		DatabasePath:      cfg.DatabasePath(),
		LockPath:          cfg.LockPath(),
		RosterSource:      "cache",
	}
	if _, err := os.Stat(cfg.DatabasePath()); err != nil {
		return resp, nil
	}

	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	st, err := store.Open(cfg)
	if err != nil {
		return resp, nil
	}
	defer st.Close()
	if stats, err := st.Stats(queryCtx); err == nil {
		resp.Stats.Workers = stats.Workers
		resp.Stats.Records = stats.Records
		resp.Pending = stats.Pending
	}
	return resp, nil
}

// StatusLine is one row of the status check list.
type StatusLine struct {
	Label   string
	Kind    string
	Message string
}

// Status line kinds.
const (
	KindOK    = "ok"
	KindInfo  = "info"
	KindWarn  = "warn"
	KindError = "error"
)

// BuildSystemChecks summarizes a status snapshot as labelled checks.
func BuildSystemChecks(cfg *config.Config, status *ipc.StatusResponse) []StatusLine {
	if status == nil {
		status = &ipc.StatusResponse{}
	}
	lines := make([]StatusLine, 0, 6)

	if status.Running {
		lines = append(lines, StatusLine{Label: "Daemon", Kind: KindOK, Message: fmt.Sprintf("running (pid %d)", status.PID)})
	} else {
		lines = append(lines, StatusLine{Label: "Daemon", Kind: KindError, Message: "not running"})
	}

	switch {
	case !status.BackendConfigured:
		lines = append(lines, StatusLine{Label: "Backend", Kind: KindWarn, Message: "not configured; scans stay local"})
	case status.LastRefreshError != "":
		lines = append(lines, StatusLine{Label: "Backend", Kind: KindWarn, Message: status.LastRefreshError})
	case status.Running:
		lines = append(lines, StatusLine{Label: "Backend", Kind: KindOK, Message: "roster from " + status.RosterSource})
	default:
		lines = append(lines, StatusLine{Label: "Backend", Kind: KindInfo, Message: "configured"})
	}

	switch {
	case status.ScannerSource == "" || status.ScannerSource == "none":
		lines = append(lines, StatusLine{Label: "Scanner", Kind: KindWarn, Message: "disabled"})
	case !status.Running:
		lines = append(lines, StatusLine{Label: "Scanner", Kind: KindInfo, Message: status.ScannerSource})
	case status.ScannerAttached:
		lines = append(lines, StatusLine{Label: "Scanner", Kind: KindOK, Message: status.ScannerSource + " attached"})
	default:
		message := status.ScannerSource + " waiting for device"
		if cfg != nil && cfg.Scanner.Device != "" {
			message += " " + cfg.Scanner.Device
		}
		lines = append(lines, StatusLine{Label: "Scanner", Kind: KindWarn, Message: message})
	}

	if status.Pending > 0 {
		lines = append(lines, StatusLine{Label: "Pending Scans", Kind: KindWarn, Message: fmt.Sprintf("%d awaiting sync", status.Pending)})
	} else {
		lines = append(lines, StatusLine{Label: "Pending Scans", Kind: KindOK, Message: "none"})
	}

	if status.Stats.Failures > 0 {
		lines = append(lines, StatusLine{Label: "Submit Failures", Kind: KindWarn, Message: strconv.FormatInt(status.Stats.Failures, 10)})
	}

	notify := "disabled"
	kind := KindInfo
	if cfg != nil && strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		notify, kind = "ntfy", KindOK
	}
	lines = append(lines, StatusLine{Label: "Notifications", Kind: kind, Message: notify})
	return lines
}

func isDaemonUnavailable(err error) bool {
	return os.IsNotExist(err) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
