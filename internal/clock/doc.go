// Package clock provides the single logical thread the kiosk engine runs on
// and the timer abstraction its debounce state machines depend on.
//
// Loop executes posted functions one at a time in arrival order. Scheduler
// arms and cancels one-shot timers; LoopScheduler delivers expirations through
// a Loop so timer callbacks never race other state changes, and Fake advances
// a synthetic clock so tests can drive timers without sleeping.
package clock
