package attendance

// LatestRecord returns the newest valid record for the worker. Records with an
// unrecognized status are skipped.
func LatestRecord(workerID string, records []ScanRecord) (ScanRecord, bool) {
	var (
		latest ScanRecord
		found  bool
	)
	for _, rec := range records {
		if rec.WorkerID != workerID || !rec.Status.Valid() {
			continue
		}
		if !found || CompareRecords(rec, latest) > 0 {
			latest = rec
			found = true
		}
	}
	return latest, found
}

// ResolveStatus derives where the worker is from their newest record.
func ResolveStatus(worker Worker, records []ScanRecord) PresenceStatus {
	latest, ok := LatestRecord(worker.ID, records)
	if !ok {
		return PresenceStatus{Location: NotPresent, Outcount: OutcountNone}
	}

	status := PresenceStatus{Location: NotPresent, Outcount: OutcountNone}
	switch latest.Status {
	case StatusIn:
		status.Location = Onsite
		if worker.Offsite {
			status.Location = Offsite
		}
		if worker.Outcount {
			status.Outcount = OutcountPending
		}
	case StatusOut:
		if worker.Outcount {
			status.Outcount = OutcountConfirmed
		}
	}
	return status
}

// NextStatus is the direction a new confirmed scan should record: In when the
// worker has no records or last scanned Out, Out when they last scanned In.
func NextStatus(workerID string, records []ScanRecord) Status {
	latest, ok := LatestRecord(workerID, records)
	if ok && latest.Status == StatusIn {
		return StatusOut
	}
	return StatusIn
}
