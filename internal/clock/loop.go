package clock

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"timeclock/internal/logging"
)

// ErrLoopClosed is returned when work is submitted after the loop stopped.
var ErrLoopClosed = errors.New("event loop closed")

// Loop serializes all state mutation onto one goroutine.
type Loop struct {
	tasks  chan func()
	done   chan struct{}
	logger *slog.Logger

	closeOnce sync.Once
}

// NewLoop creates a loop with the given queue depth.
func NewLoop(depth int, logger *slog.Logger) *Loop {
	if depth <= 0 {
		depth = 256
	}
	return &Loop{
		tasks:  make(chan func(), depth),
		done:   make(chan struct{}),
		logger: logging.NewComponentLogger(logger, "event-loop"),
	}
}

// Run processes posted work until ctx is cancelled or Close is called.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			l.Close()
			return
		case <-l.done:
			return
		case fn := <-l.tasks:
			l.run(fn)
		}
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(l.logger, "event handler panicked", "event_loop_panic",
				logging.Any("panic", r),
				logging.String(logging.FieldErrorHint, "report the stack trace; the kiosk keeps running"),
			)
		}
	}()
	fn()
}

// Post queues fn. It reports false once the loop is closed.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish. It must not be called
// from the loop goroutine.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrLoopClosed
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopClosed
	}
}

// Close stops accepting work. Queued functions that have not started are
// dropped.
func (l *Loop) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}

// Done is closed when the loop stops.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
