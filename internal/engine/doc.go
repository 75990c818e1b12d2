// Package engine composes the kiosk's attendance pipeline.
//
// An Engine owns the append-only scan log and the current roster. Badge codes
// from the barcode decoder and row selections from the disambiguator both
// arrive on the owning event loop; a decoded badge or a confirmed double
// selection appends the worker's next In/Out record immediately, journals it,
// and hands it to a background submitter. A journaled record is sent only by
// whoever claims it first, the submitter or SyncPending. Submission failures
// are logged and leave the record pending but never roll back the local
// record, so the roster always reflects what the worker just did.
//
// Mutating methods (Scan, Select, Rebind, AttachScanner) must run on the
// owning loop. The read views (Roster, Hours, LastScan, Stats) work from
// immutable snapshots and are safe from any goroutine.
package engine
