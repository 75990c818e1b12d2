package barcode

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"timeclock/internal/clock"
	"timeclock/internal/logging"
)

// DefaultTimeout is the maximum gap between keys of one scan.
const DefaultTimeout = 50 * time.Millisecond

// Options configures a Decoder.
type Options struct {
	Prefix  string
	Suffix  string
	Timeout time.Duration
	// ShouldCapture suppresses all processing while it returns false.
	ShouldCapture func() bool
	// OnCode receives each completed code.
	OnCode func(code string)
	// Dispatch moves keystrokes from the source goroutine onto the owning
	// thread. Nil runs them on the source goroutine.
	Dispatch clock.Dispatcher
}

// Decoder is a two-state framing machine: Idle with an empty buffer and no
// timer, Accumulating with a non-empty buffer and exactly one armed flush
// timer.
type Decoder struct {
	opts   Options
	sched  clock.Scheduler
	logger *slog.Logger

	buffer    strings.Builder
	lastEvent time.Time
	timer     clock.Handle

	unsubscribe func()
	detached    bool
}

// NewDecoder builds a decoder that arms its flush timer on sched.
func NewDecoder(sched clock.Scheduler, opts Options, logger *slog.Logger) *Decoder {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Dispatch == nil {
		opts.Dispatch = clock.Immediate{}
	}
	return &Decoder{
		opts:   opts,
		sched:  sched,
		logger: logging.NewComponentLogger(logger, "barcode"),
	}
}

// Attach subscribes the decoder to src. Keystrokes are handed to the
// dispatcher before they touch decoder state.
func (d *Decoder) Attach(src KeySource) error {
	if src == nil {
		return errors.New("barcode: nil key source")
	}
	if d.unsubscribe != nil {
		return errors.New("barcode: decoder already attached")
	}
	d.detached = false
	unsubscribe, err := src.Subscribe(func(ks Keystroke) {
		d.opts.Dispatch.Post(func() {
			at := ks.At
			if at.IsZero() {
				at = d.sched.Now()
			}
			d.OnKeystroke(ks.Key, at)
		})
	})
	if err != nil {
		return err
	}
	d.unsubscribe = unsubscribe
	return nil
}

// Detach cancels the pending flush and releases the key source. No code is
// emitted afterwards.
func (d *Decoder) Detach() {
	d.detached = true
	d.cancelTimer()
	d.buffer.Reset()
	if d.unsubscribe != nil {
		d.unsubscribe()
		d.unsubscribe = nil
	}
}

// OnKeystroke feeds one key observed at now.
func (d *Decoder) OnKeystroke(key string, now time.Time) {
	if d.detached {
		return
	}
	if d.opts.ShouldCapture != nil && !d.opts.ShouldCapture() {
		return
	}

	if now.Sub(d.lastEvent) > d.opts.Timeout {
		d.buffer.Reset()
	}
	d.lastEvent = now
	d.buffer.WriteString(key)

	d.cancelTimer()
	d.timer = d.sched.After(d.opts.Timeout, d.flush)
}

// Buffered returns the keys accumulated since the last flush.
func (d *Decoder) Buffered() string {
	return d.buffer.String()
}

// Accumulating reports whether a flush timer is armed.
func (d *Decoder) Accumulating() bool {
	return d.timer != 0
}

func (d *Decoder) flush() {
	d.timer = 0
	if d.detached {
		return
	}
	code := d.buffer.String()
	d.buffer.Reset()

	if d.opts.Prefix != "" && !strings.HasPrefix(code, d.opts.Prefix) {
		d.logger.Debug("discarding scan without prefix", logging.Int("length", len(code)))
		return
	}
	if d.opts.Suffix != "" && !strings.HasSuffix(code, d.opts.Suffix) {
		d.logger.Debug("discarding scan without suffix", logging.Int("length", len(code)))
		return
	}
	if code == "" {
		return
	}
	if d.opts.OnCode != nil {
		d.opts.OnCode(code)
	}
}

func (d *Decoder) cancelTimer() {
	if d.timer != 0 {
		d.sched.Cancel(d.timer)
		d.timer = 0
	}
}
