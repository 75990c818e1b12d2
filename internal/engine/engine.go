package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/text/language"

	"timeclock/internal/attendance"
	"timeclock/internal/barcode"
	"timeclock/internal/clock"
	"timeclock/internal/logging"
	"timeclock/internal/notifications"
	"timeclock/internal/selection"
)

const (
	// DefaultSource tags records appended by this kiosk.
	DefaultSource = "timeclock"
	// DefaultNotifyWindow is how long LastScan stays current.
	DefaultNotifyWindow = 5 * time.Second

	submitQueueDepth = 256
)

// Journal keeps a durable copy of locally appended records until the backend
// acknowledges them. A record is submitted only by whoever wins Claim on it.
type Journal interface {
	AppendPending(ctx context.Context, rec attendance.ScanRecord) (int64, error)
	Claim(ctx context.Context, id int64) (bool, error)
	Release(ctx context.Context, id int64) error
	MarkSubmitted(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string) error
}

// Submitter forwards a record to the backend.
type Submitter interface {
	SubmitScanRecord(ctx context.Context, rec attendance.ScanRecord) error
}

// Options configures an Engine.
type Options struct {
	Scheduler clock.Scheduler
	// Dispatch runs decoder keystrokes and submission completions on the
	// owning loop. Nil runs them inline.
	Dispatch clock.Dispatcher

	Week          attendance.WeekOptions
	ConfirmWindow time.Duration
	NotifyWindow  time.Duration
	Locale        language.Tag

	// Scanner framing, see barcode.Options.
	ScanPrefix    string
	ScanSuffix    string
	ScanTimeout   time.Duration
	ShouldCapture func() bool

	// MatchField selects what a decoded badge is compared with: "id" or "name".
	MatchField string
	Source     string

	Journal   Journal
	Submitter Submitter
	Notifier  notifications.Service

	// OnConfirm receives every appended record. It runs on the owning loop.
	OnConfirm func(ScanResult)
	// OnQuery receives the worker snapshot for every Tap.
	OnQuery func(Query)
	// OnSubmitted receives each submission outcome on the owning loop.
	OnSubmitted func(rec attendance.ScanRecord, err error)
}

// Engine is the attendance engine. See the package documentation for the
// threading contract.
type Engine struct {
	opts   Options
	sched  clock.Scheduler
	logger *slog.Logger

	log      *attendance.Log
	roster   atomic.Pointer[roster]
	lastScan atomic.Pointer[ScanResult]

	relay    *keyRelay
	decoder  *barcode.Decoder
	selector *selection.Disambiguator
	unsubKey func()

	// local holds records appended here that no backend history has echoed yet.
	local map[recordKey]attendance.ScanRecord

	submissions chan submission
	submitWG    sync.WaitGroup
	startOnce   sync.Once
	closeOnce   sync.Once
	closed      atomic.Bool

	confirmed atomic.Int64
	failures  atomic.Int64
}

// New builds an engine over an initial roster and history.
func New(opts Options, workers []attendance.Worker, history []attendance.ScanRecord, logger *slog.Logger) (*Engine, error) {
	if opts.Scheduler == nil {
		return nil, errors.New("engine: scheduler is required")
	}
	if opts.Dispatch == nil {
		opts.Dispatch = clock.Immediate{}
	}
	if opts.Week.Location == nil {
		opts.Week.Location = time.Local
	}
	if opts.NotifyWindow <= 0 {
		opts.NotifyWindow = DefaultNotifyWindow
	}
	if opts.Locale == language.Und {
		opts.Locale = language.English
	}
	if opts.MatchField == "" {
		opts.MatchField = MatchByID
	}
	if opts.MatchField != MatchByID && opts.MatchField != MatchByName {
		return nil, errors.New("engine: match field must be id or name")
	}
	if opts.Source == "" {
		opts.Source = DefaultSource
	}
	if opts.Notifier == nil {
		opts.Notifier = notifications.NewService(nil)
	}

	e := &Engine{
		opts:        opts,
		sched:       opts.Scheduler,
		logger:      logging.NewComponentLogger(logger, "engine"),
		log:         attendance.NewLog(history),
		relay:       &keyRelay{},
		local:       make(map[recordKey]attendance.ScanRecord),
		submissions: make(chan submission, submitQueueDepth),
	}
	e.selector = selection.New(e.sched, opts.ConfirmWindow, e.onSelection)
	e.bind(workers)
	return e, nil
}

// Start launches the background submitter. Records confirmed before Start
// are queued and submitted once it runs.
func (e *Engine) Start(ctx context.Context) {
	e.startOnce.Do(func() {
		e.submitWG.Add(1)
		go e.submitLoop(ctx)
	})
}

// Close detaches the scanner, cancels pending timers and waits for the
// submitter to drain its queue. Once the context given to Start is cancelled
// the submitter skips queued records, which stay journaled for the next sync.
// Close must run on the owning loop or after it stopped.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		e.DetachScanner()
		if e.decoder != nil {
			e.decoder.Detach()
		}
		e.selector.Close()
		close(e.submissions)
		e.startOnce.Do(func() {})
		e.submitWG.Wait()
	})
}

// AttachScanner subscribes to a peripheral. Keys flow through the relay to
// whichever decoder is bound to the current roster.
func (e *Engine) AttachScanner(src barcode.KeySource) error {
	if src == nil {
		return errors.New("engine: key source is nil")
	}
	if e.closed.Load() {
		return errors.New("engine: closed")
	}
	if e.unsubKey != nil {
		return errors.New("engine: scanner already attached")
	}
	unsub, err := src.Subscribe(e.relay.forward)
	if err != nil {
		return err
	}
	e.unsubKey = unsub
	e.logger.Info("scanner attached", logging.String(logging.FieldEventType, "scanner_attached"))
	return nil
}

// DetachScanner releases the peripheral subscription.
func (e *Engine) DetachScanner() {
	if e.unsubKey == nil {
		return
	}
	e.unsubKey()
	e.unsubKey = nil
	e.logger.Info("scanner detached", logging.String(logging.FieldEventType, "scanner_detached"))
}

// Rebind swaps in a new roster and, when history is non-nil, a new history.
// Local records the new history has not echoed yet are carried forward. The
// decoder is rebuilt against the new roster, dropping any partial scan.
func (e *Engine) Rebind(workers []attendance.Worker, history []attendance.ScanRecord) {
	if history != nil {
		e.log.Replace(e.mergeLocal(history))
	}
	e.bind(workers)
	e.logger.Info("roster rebound",
		logging.String(logging.FieldEventType, "roster_rebound"),
		logging.Int("workers", len(workers)),
		logging.Int("records", e.log.Snapshot().Len()),
		logging.Int("carried_forward", len(e.local)),
	)
}

func (e *Engine) bind(workers []attendance.Worker) {
	r := newRoster(workers, e.opts.Locale, e.opts.MatchField)
	e.roster.Store(r)

	if e.decoder != nil {
		e.decoder.Detach()
	}
	if e.closed.Load() {
		return
	}
	e.decoder = barcode.NewDecoder(e.sched, barcode.Options{
		Prefix:        e.opts.ScanPrefix,
		Suffix:        e.opts.ScanSuffix,
		Timeout:       e.opts.ScanTimeout,
		ShouldCapture: e.opts.ShouldCapture,
		OnCode:        func(code string) { e.scanAgainst(r, code) },
		Dispatch:      e.opts.Dispatch,
	}, e.logger)
	if err := e.decoder.Attach(e.relay); err != nil {
		logging.WarnWithContext(e.logger, "failed to bind decoder", "decoder_bind_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "badge scans are ignored until the next rebind"),
		)
	}
}

func (e *Engine) mergeLocal(history []attendance.ScanRecord) []attendance.ScanRecord {
	merged := make([]attendance.ScanRecord, 0, len(history)+len(e.local))
	merged = append(merged, history...)
	seen := make(map[recordKey]struct{}, len(history))
	for _, rec := range history {
		seen[keyOf(rec)] = struct{}{}
	}
	for key, rec := range e.local {
		if _, ok := seen[key]; ok {
			delete(e.local, key)
			continue
		}
		merged = append(merged, rec)
	}
	return merged
}

type recordKey struct {
	workerID  string
	timestamp int64
	status    attendance.Status
}

func keyOf(rec attendance.ScanRecord) recordKey {
	return recordKey{workerID: rec.WorkerID, timestamp: rec.TimestampSeconds, status: rec.Status}
}
