package attendance

import "time"

const millisPerHour = 3_600_000

// ComputeWeeklyHours pairs the worker's In/Out records and returns hours per
// displayed day of the reporting week containing now. Every displayed day is
// present in the result, zero when nothing was worked.
func ComputeWeeklyHours(workerID string, records []ScanRecord, now time.Time, opts WeekOptions) WeeklyHours {
	week := ReportingWeek(now, opts)
	row := week.emptyRow()
	accumulate(row, RecordsFor(workerID, records), opts)
	return row
}

// ComputeWeeklyTable builds a row for every worker in the roster.
func ComputeWeeklyTable(workers []Worker, records []ScanRecord, now time.Time, opts WeekOptions) WeeklyHoursTable {
	week := ReportingWeek(now, opts)
	groups := GroupByWorker(records)
	table := make(WeeklyHoursTable, len(workers))
	for _, worker := range workers {
		row := week.emptyRow()
		accumulate(row, groups[worker.ID], opts)
		table[worker.ID] = row
	}
	return table
}

// WeekTotalHours sums paired hours from records at or after the start of the
// reporting week, without the AM/PM split.
func WeekTotalHours(workerID string, records []ScanRecord, now time.Time, opts WeekOptions) float64 {
	start := ReportingWeek(now, opts).Start.Unix()
	var (
		total  float64
		openIn *int64
	)
	for _, rec := range RecordsFor(workerID, records) {
		if rec.TimestampSeconds < start {
			continue
		}
		switch rec.Status {
		case StatusIn:
			ts := rec.TimestampSeconds
			openIn = &ts
		case StatusOut:
			if openIn == nil {
				continue
			}
			if elapsed := rec.TimestampSeconds - *openIn; elapsed > 0 {
				total += float64(elapsed) / 3600
			}
			openIn = nil
		}
	}
	return total
}

// accumulate walks records already in processing order, adding each closed
// In/Out pair into the days present in row. Days outside row are dropped.
func accumulate(row WeeklyHours, records []ScanRecord, opts WeekOptions) {
	loc := opts.location()
	var openIn *time.Time
	for _, rec := range records {
		switch rec.Status {
		case StatusIn:
			t := rec.Time(loc)
			openIn = &t
		case StatusOut:
			if openIn == nil {
				continue
			}
			out := rec.Time(loc)
			for key, part := range splitInterval(*openIn, out, opts.Boundary) {
				day, ok := row[key]
				if !ok {
					continue
				}
				day.AM += part.AM
				day.PM += part.PM
				row[key] = day
			}
			openIn = nil
		}
	}
}

// splitInterval distributes [start, end) across calendar days and the AM/PM
// periods of each day. Both instants must share a location.
func splitInterval(start, end time.Time, boundary TimeOfDay) map[string]DayHours {
	result := make(map[string]DayHours)
	current := start
	for current.Before(end) {
		y, m, d := current.Date()
		loc := current.Location()
		periodBoundary := boundary.On(current)
		nextDay := time.Date(y, m, d+1, 0, 0, 0, 0, loc)

		key := DayKey(current)
		day := result[key]
		var next time.Time
		if current.Before(periodBoundary) {
			next = earliest(end, periodBoundary)
			day.AM += hoursBetween(current, next)
		} else {
			next = earliest(end, nextDay)
			day.PM += hoursBetween(current, next)
		}
		result[key] = day
		current = next
	}
	return result
}

func earliest(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func hoursBetween(from, to time.Time) float64 {
	return float64(to.Sub(from).Milliseconds()) / millisPerHour
}
