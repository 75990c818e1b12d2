package attendance

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Snapshot is an immutable view of the scan log at one version.
type Snapshot struct {
	records []ScanRecord
	version uint64
}

// Records returns the records in arrival order. The slice is shared with the
// log and must be treated as read-only; appending to it reallocates.
func (s Snapshot) Records() []ScanRecord {
	return s.records
}

// Len reports the number of records in the snapshot.
func (s Snapshot) Len() int {
	return len(s.records)
}

// Version increases by one on every append or replace.
func (s Snapshot) Version() uint64 {
	return s.version
}

// Log is the append-only scan record collection. Appends are serialized;
// readers take lock-free snapshots.
type Log struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
}

// NewLog seeds a log with an initial history.
func NewLog(records []ScanRecord) *Log {
	l := &Log{}
	l.current.Store(&Snapshot{records: slices.Clip(slices.Clone(records))})
	return l
}

// Snapshot returns the current immutable view.
func (l *Log) Snapshot() Snapshot {
	if snap := l.current.Load(); snap != nil {
		return *snap
	}
	return Snapshot{}
}

// Append adds a record and returns it. A zero SequenceHint is replaced with
// the record's 1-based position in the log.
func (l *Log) Append(rec ScanRecord) ScanRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.Snapshot()
	if rec.SequenceHint == 0 {
		rec.SequenceHint = int64(prev.Len() + 1)
	}
	next := append(prev.records, rec)
	l.current.Store(&Snapshot{records: slices.Clip(next), version: prev.version + 1})
	return rec
}

// Replace swaps in a freshly loaded history. Callers are responsible for
// carrying forward records that the new history does not yet contain.
func (l *Log) Replace(records []ScanRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.Snapshot()
	l.current.Store(&Snapshot{records: slices.Clip(slices.Clone(records)), version: prev.version + 1})
}
