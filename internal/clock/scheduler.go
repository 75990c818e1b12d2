package clock

import (
	"sync"
	"time"
)

// Handle identifies an armed timer. The zero Handle is never issued.
type Handle uint64

// Scheduler is the clock and one-shot timer surface used by stateful
// components.
type Scheduler interface {
	Now() time.Time
	After(d time.Duration, fn func()) Handle
	Cancel(h Handle)
}

// Dispatcher runs fn on the owning thread. Post reports false when the
// dispatcher no longer accepts work.
type Dispatcher interface {
	Post(fn func()) bool
}

// Immediate runs posted functions synchronously on the caller's goroutine.
type Immediate struct{}

// Post runs fn immediately.
func (Immediate) Post(fn func()) bool {
	fn()
	return true
}

// LoopScheduler fires timers on a Dispatcher. A timer cancelled before its
// callback runs on the dispatcher never fires, even when the underlying
// runtime timer already expired.
type LoopScheduler struct {
	dispatcher Dispatcher

	mu     sync.Mutex
	next   Handle
	timers map[Handle]*time.Timer
}

// NewLoopScheduler creates a wall-clock scheduler bound to dispatcher.
func NewLoopScheduler(dispatcher Dispatcher) *LoopScheduler {
	if dispatcher == nil {
		dispatcher = Immediate{}
	}
	return &LoopScheduler{
		dispatcher: dispatcher,
		timers:     make(map[Handle]*time.Timer),
	}
}

// Now returns the current wall-clock time.
func (s *LoopScheduler) Now() time.Time {
	return time.Now()
}

// After arms fn to run on the dispatcher once d has elapsed.
func (s *LoopScheduler) After(d time.Duration, fn func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	h := s.next
	s.timers[h] = time.AfterFunc(d, func() {
		s.dispatcher.Post(func() {
			if s.take(h) {
				fn()
			}
		})
	})
	return h
}

// Cancel disarms the timer. Unknown or already fired handles are ignored.
func (s *LoopScheduler) Cancel(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[h]; ok {
		t.Stop()
		delete(s.timers, h)
	}
}

// Pending reports how many timers are armed.
func (s *LoopScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *LoopScheduler) take(h Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.timers[h]; !ok {
		return false
	}
	delete(s.timers, h)
	return true
}
