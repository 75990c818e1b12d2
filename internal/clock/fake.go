package clock

import (
	"slices"
	"sync"
	"time"
)

// Fake is a manually advanced Scheduler. Callbacks run synchronously inside
// Advance, in deadline order.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	next   Handle
	timers []fakeTimer
}

type fakeTimer struct {
	handle   Handle
	deadline time.Time
	fn       func()
}

// NewFake starts a fake clock at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the synthetic current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// After arms fn to run when the clock reaches now+d.
func (f *Fake) After(d time.Duration, fn func()) Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.timers = append(f.timers, fakeTimer{handle: f.next, deadline: f.now.Add(d), fn: fn})
	return f.next
}

// Cancel disarms the timer.
func (f *Fake) Cancel(h Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timers = slices.DeleteFunc(f.timers, func(t fakeTimer) bool { return t.handle == h })
}

// Pending reports how many timers are armed.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}

// Advance moves the clock forward by d, firing every timer that comes due.
// Timers armed by a firing callback fire too if they fall inside the window.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		idx := -1
		for i, t := range f.timers {
			if t.deadline.After(target) {
				continue
			}
			if idx == -1 || t.deadline.Before(f.timers[idx].deadline) {
				idx = i
			}
		}
		if idx == -1 {
			f.now = target
			f.mu.Unlock()
			return
		}
		due := f.timers[idx]
		f.timers = slices.Delete(f.timers, idx, idx+1)
		if due.deadline.After(f.now) {
			f.now = due.deadline
		}
		f.mu.Unlock()

		due.fn()
	}
}
