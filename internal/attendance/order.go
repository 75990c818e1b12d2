package attendance

import (
	"cmp"
	"slices"
)

// CompareRecords orders records by timestamp, then by sequence hint.
func CompareRecords(a, b ScanRecord) int {
	if c := cmp.Compare(a.TimestampSeconds, b.TimestampSeconds); c != 0 {
		return c
	}
	return cmp.Compare(a.SequenceHint, b.SequenceHint)
}

// RecordsFor returns the worker's records in processing order. The input is
// never modified.
func RecordsFor(workerID string, records []ScanRecord) []ScanRecord {
	out := make([]ScanRecord, 0, 8)
	for _, rec := range records {
		if rec.WorkerID == workerID {
			out = append(out, rec)
		}
	}
	slices.SortStableFunc(out, CompareRecords)
	return out
}

// GroupByWorker splits records per worker, each group in processing order.
func GroupByWorker(records []ScanRecord) map[string][]ScanRecord {
	groups := make(map[string][]ScanRecord)
	for _, rec := range records {
		groups[rec.WorkerID] = append(groups[rec.WorkerID], rec)
	}
	for id, group := range groups {
		slices.SortStableFunc(group, CompareRecords)
		groups[id] = group
	}
	return groups
}
