// Package selection classifies repeated row selections into passive taps
// and committing confirms.
package selection

import (
	"time"

	"timeclock/internal/clock"
)

// DefaultWindow is the double-select window.
const DefaultWindow = 600 * time.Millisecond

// Action is the classified outcome of one or two selections.
type Action int

const (
	// Tap is a single selection left alone for the whole window.
	Tap Action = iota + 1
	// Confirm is a second selection of the same target inside the window.
	Confirm
)

func (a Action) String() string {
	switch a {
	case Tap:
		return "tap"
	case Confirm:
		return "confirm"
	default:
		return "unknown"
	}
}

// Event is one emitted action.
type Event struct {
	Action Action
	Target string
	At     time.Time
}

// Disambiguator holds at most one pending target and one armed timer.
// It is not safe for concurrent use; drive it from the owning loop.
type Disambiguator struct {
	sched  clock.Scheduler
	window time.Duration
	emit   func(Event)

	pending string
	timer   clock.Handle
	closed  bool
}

// New creates a disambiguator that delivers actions to emit.
func New(sched clock.Scheduler, window time.Duration, emit func(Event)) *Disambiguator {
	if window <= 0 {
		window = DefaultWindow
	}
	if emit == nil {
		emit = func(Event) {}
	}
	return &Disambiguator{sched: sched, window: window, emit: emit}
}

// Select records a selection of target at now.
func (d *Disambiguator) Select(target string, now time.Time) {
	if d.closed || target == "" {
		return
	}
	if d.timer != 0 && d.pending == target {
		d.reset()
		d.emit(Event{Action: Confirm, Target: target, At: now})
		return
	}

	d.reset()
	d.pending = target
	d.timer = d.sched.After(d.window, func() {
		d.timer = 0
		d.pending = ""
		d.emit(Event{Action: Tap, Target: target, At: d.sched.Now()})
	})
}

// Pending returns the target awaiting a second selection.
func (d *Disambiguator) Pending() (string, bool) {
	return d.pending, d.timer != 0
}

// Close cancels the pending window. Nothing is emitted afterwards.
func (d *Disambiguator) Close() {
	d.closed = true
	d.reset()
}

func (d *Disambiguator) reset() {
	if d.timer != 0 {
		d.sched.Cancel(d.timer)
		d.timer = 0
	}
	d.pending = ""
}
