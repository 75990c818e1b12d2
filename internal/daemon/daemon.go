package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/text/language"

	"timeclock/internal/attendance"
	"timeclock/internal/backend"
	"timeclock/internal/barcode"
	"timeclock/internal/clock"
	"timeclock/internal/config"
	"timeclock/internal/engine"
	"timeclock/internal/logging"
	"timeclock/internal/notifications"
	"timeclock/internal/store"
)

const loopDepth = 256

// Backend is the remote roster and scan log.
type Backend interface {
	FetchWorkers(ctx context.Context) ([]attendance.Worker, error)
	FetchScanHistory(ctx context.Context, since time.Time) ([]attendance.ScanRecord, error)
	SubmitScanRecord(ctx context.Context, rec attendance.ScanRecord) error
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithBackend replaces the backend built from configuration. Passing nil
// runs the kiosk offline.
func WithBackend(b Backend) Option {
	return func(d *Daemon) {
		d.backend = b
		d.backendSet = true
	}
}

// WithKeySource replaces the scanner selected by configuration.
func WithKeySource(src barcode.KeySource) Option {
	return func(d *Daemon) {
		d.keys = src
		d.keysSet = true
	}
}

// WithNotifier replaces the ntfy notifier.
func WithNotifier(n notifications.Service) Option {
	return func(d *Daemon) {
		d.notifier = n
	}
}

// WithSessionID sets the id reported in status and log lines.
func WithSessionID(id string) Option {
	return func(d *Daemon) {
		d.sessionID = id
	}
}

// Daemon coordinates the engine, scanner, refresh loop and single-instance lock.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *store.Store
	notifier  notifications.Service
	sessionID string
	logPath   string

	backend    Backend
	backendSet bool
	keys       barcode.KeySource
	keysSet    bool

	lockPath string
	lock     *flock.Flock

	loop   *clock.Loop
	engine *engine.Engine

	running   atomic.Bool
	startedAt time.Time
	shutdown  chan struct{}
	closeOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	// refreshMu serializes backend reloads and syncs.
	refreshMu sync.Mutex

	mu              sync.Mutex
	rosterSource    string
	lastRefresh     time.Time
	lastRefreshErr  string
	scannerSource   string
	scannerAttached bool
}

// New constructs a daemon. The store is owned by the caller until Close.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || st == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    st,
		logPath:  filepath.Join(cfg.Paths.LogDir, logging.LogFileName),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
		shutdown: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}

	if !d.backendSet {
		client, err := backend.NewFromConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("configure backend: %w", err)
		}
		if client != nil {
			d.backend = client
		}
	}
	if d.notifier == nil {
		d.notifier = notifications.NewService(cfg)
	}
	return d, nil
}

// Start acquires the lock, loads the roster and starts the engine.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("ensure lock directory: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another timeclock daemon instance is already running")
	}

	d.releaseStaleClaims(ctx)

	if err := d.startEngine(ctx); err != nil {
		_ = d.lock.Unlock()
		return err
	}

	d.running.Store(true)
	d.logger.Info("timeclock daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("roster_source", d.source()),
		logging.Bool("backend", d.backend != nil),
	)
	return nil
}

func (d *Daemon) startEngine(ctx context.Context) error {
	week, err := d.cfg.WeekOptions()
	if err != nil {
		return fmt.Errorf("hours configuration: %w", err)
	}
	locale, err := language.Parse(d.cfg.Roster.Locale)
	if err != nil {
		d.logger.Warn("unknown roster locale; using English collation",
			logging.String("locale", d.cfg.Roster.Locale),
			logging.Error(err),
			logging.String(logging.FieldEventType, "roster_locale_invalid"),
			logging.String(logging.FieldImpact, "names sort in English order"),
			logging.String(logging.FieldErrorHint, "set roster.locale to a BCP 47 tag such as en or es"),
		)
		locale = language.English
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.startedAt = time.Now()

	workers, history, _ := d.load(d.ctx, week)

	d.loop = clock.NewLoop(loopDepth, d.logger)
	sched := clock.NewLoopScheduler(d.loop)

	opts := engine.Options{
		Scheduler:     sched,
		Dispatch:      d.loop,
		Week:          week,
		ConfirmWindow: d.cfg.ConfirmWindow(),
		NotifyWindow:  d.cfg.NotifyWindow(),
		Locale:        locale,
		ScanPrefix:    d.cfg.Scanner.Prefix,
		ScanSuffix:    d.cfg.Scanner.Suffix,
		ScanTimeout:   d.cfg.ScanTimeout(),
		MatchField:    d.cfg.Roster.MatchField,
		Source:        d.cfg.Backend.Source,
		Journal:       d.store,
		Notifier:      d.notifier,
		OnConfirm:     d.onConfirm,
		OnQuery:       d.onQuery,
	}
	if d.backend != nil {
		opts.Submitter = d.backend
	}

	eng, err := engine.New(opts, workers, history, d.logger)
	if err != nil {
		d.cancel()
		return fmt.Errorf("create engine: %w", err)
	}
	d.engine = eng

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.loop.Run(d.ctx)
	}()
	eng.Start(d.ctx)

	d.attachScanner()

	if d.backend != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.refreshLoop(d.ctx)
		}()
	}
	return nil
}

// releaseStaleClaims frees journal claims a previous run held when it died.
// The lock guarantees no other submitter is live.
func (d *Daemon) releaseStaleClaims(ctx context.Context) {
	n, err := d.store.ReleaseClaims(ctx)
	if err != nil {
		logging.WarnWithContext(d.logger, "failed to release stale journal claims", "journal_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "records held by the previous run wait for their claims to expire"),
		)
		return
	}
	if n > 0 {
		d.logger.Info("released journal claims from previous run",
			logging.String(logging.FieldEventType, "journal_claims_released"),
			logging.Int64("records", n),
		)
	}
}

// Stop shuts down the scanner, engine and refresh loop and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	d.loop.Close()
	// The loop has stopped, so the engine may be closed from here.
	d.engine.Close()

	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_lock_release_failed",
			logging.Error(err),
			logging.String("lock", d.lockPath),
			logging.String(logging.FieldImpact, "the next start may report another instance running"),
		)
	}
	d.running.Store(false)
	d.logger.Info("timeclock daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether Start succeeded and Stop has not run.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// ShutdownRequested is closed when a client asks the process to exit.
func (d *Daemon) ShutdownRequested() <-chan struct{} {
	return d.shutdown
}

// LogPath returns the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// do runs fn on the engine loop.
func (d *Daemon) do(ctx context.Context, fn func()) error {
	if !d.running.Load() {
		return errors.New("daemon not running")
	}
	return d.loop.Do(ctx, fn)
}

func (d *Daemon) onConfirm(res engine.ScanResult) {
	d.logger.Debug("scan confirmed",
		logging.String(logging.FieldWorkerID, res.Worker.ID),
		logging.String(logging.FieldCorrelationID, res.CorrelationID),
		logging.String("origin", res.Origin),
	)
}

func (d *Daemon) onQuery(q engine.Query) {
	d.logger.Info("worker status queried",
		logging.String(logging.FieldEventType, "worker_queried"),
		logging.String(logging.FieldWorkerID, q.Worker.ID),
		logging.String("name", q.Worker.Name),
		logging.String("location", q.Status.Location.String()),
		logging.Float64("week_hours", q.WeekHours),
	)
}

func (d *Daemon) source() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rosterSource
}

func (d *Daemon) setRefresh(source string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rosterSource = source
	d.lastRefresh = time.Now()
	d.lastRefreshErr = ""
	if err != nil {
		d.lastRefreshErr = err.Error()
	}
}
