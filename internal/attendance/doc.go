// Package attendance derives worker presence and worked hours from the
// append-only stream of badge scan records.
//
// Everything here is a pure function of a record snapshot and roster
// metadata: ResolveStatus picks the newest record for a worker,
// ComputeWeeklyHours pairs In/Out records and splits the elapsed time across
// calendar days and the AM/PM boundary, and Log hands out immutable snapshots
// so readers never observe a partial append.
//
// Malformed input (unknown status strings, unmatched Out records, In records
// left open) contributes nothing rather than failing.
package attendance
