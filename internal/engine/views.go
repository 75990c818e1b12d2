package engine

import (
	"time"

	"timeclock/internal/attendance"
)

// RosterEntry is one worker with their derived presence.
type RosterEntry struct {
	Worker    attendance.Worker         `json:"worker"`
	Status    attendance.PresenceStatus `json:"status"`
	WeekHours float64                   `json:"week_hours"`
}

// HoursView is the weekly grid for the current reporting week.
type HoursView struct {
	Days    []string                    `json:"days"`
	Workers []attendance.Worker         `json:"workers"`
	Table   attendance.WeeklyHoursTable `json:"table"`
}

// Stats summarizes engine state.
type Stats struct {
	Workers   int    `json:"workers"`
	Records   int    `json:"records"`
	Version   uint64 `json:"version"`
	Onsite    int    `json:"onsite"`
	Confirmed int64  `json:"confirmed"`
	Failures  int64  `json:"failures"`
}

// Workers returns the roster in display order.
func (e *Engine) Workers() []attendance.Worker {
	r := e.roster.Load()
	if r == nil {
		return nil
	}
	return append([]attendance.Worker(nil), r.workers...)
}

// Snapshot returns the current immutable view of the scan log.
func (e *Engine) Snapshot() attendance.Snapshot {
	return e.log.Snapshot()
}

// Roster resolves every worker's presence against one snapshot.
func (e *Engine) Roster() []RosterEntry {
	workers := e.Workers()
	records := e.log.Snapshot().Records()
	now := e.sched.Now()
	entries := make([]RosterEntry, 0, len(workers))
	for _, w := range workers {
		entries = append(entries, RosterEntry{
			Worker:    w,
			Status:    attendance.ResolveStatus(w, records),
			WeekHours: attendance.WeekTotalHours(w.ID, records, now, e.opts.Week),
		})
	}
	return entries
}

// OnsiteWorkers lists workers currently on site, in display order.
func (e *Engine) OnsiteWorkers() []attendance.Worker {
	records := e.log.Snapshot().Records()
	var onsite []attendance.Worker
	for _, w := range e.Workers() {
		if attendance.ResolveStatus(w, records).Location == attendance.Onsite {
			onsite = append(onsite, w)
		}
	}
	return onsite
}

// Hours computes the weekly grid for the reporting week containing now.
func (e *Engine) Hours() HoursView {
	workers := e.Workers()
	now := e.sched.Now()
	return HoursView{
		Days:    attendance.ReportingWeek(now, e.opts.Week).Keys(),
		Workers: workers,
		Table:   attendance.ComputeWeeklyTable(workers, e.log.Snapshot().Records(), now, e.opts.Week),
	}
}

// LastScan returns the most recent confirmed scan.
func (e *Engine) LastScan() (ScanResult, bool) {
	last := e.lastScan.Load()
	if last == nil {
		return ScanResult{}, false
	}
	return *last, true
}

// ScanNotifyActive reports whether the last scan is still inside the
// notification window.
func (e *Engine) ScanNotifyActive() bool {
	last := e.lastScan.Load()
	return last != nil && e.sched.Now().Sub(last.At) < e.opts.NotifyWindow
}

// Stats reports roster and log sizes plus submission counters.
func (e *Engine) Stats() Stats {
	snap := e.log.Snapshot()
	return Stats{
		Workers:   len(e.Workers()),
		Records:   snap.Len(),
		Version:   snap.Version(),
		Onsite:    len(e.OnsiteWorkers()),
		Confirmed: e.confirmed.Load(),
		Failures:  e.failures.Load(),
	}
}

// NotifyWindow is how long a scan banner stays current.
func (e *Engine) NotifyWindow() time.Duration {
	return e.opts.NotifyWindow
}
