package attendance

import (
	"strings"
	"time"
)

// Status is the direction of a scan record.
type Status string

const (
	StatusIn  Status = "In"
	StatusOut Status = "Out"
)

// ParseStatus normalizes a backend status string. Unknown values report false.
func ParseStatus(value string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "in":
		return StatusIn, true
	case "out":
		return StatusOut, true
	default:
		return Status(value), false
	}
}

// Valid reports whether the status is In or Out.
func (s Status) Valid() bool {
	return s == StatusIn || s == StatusOut
}

// Worker is an identity record loaded from the backend roster.
type Worker struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Offsite           bool    `json:"offsite"`
	Outcount          bool    `json:"outcount"`
	CurrentMonthHours float64 `json:"current_month_hours"`
	PreviousWeekHours float64 `json:"previous_week_hours"`
}

// ScanRecord is one immutable badge-in or badge-out event.
type ScanRecord struct {
	WorkerID         string `json:"worker_id"`
	TimestampSeconds int64  `json:"timestamp_seconds"`
	Status           Status `json:"status"`
	Source           string `json:"source"`
	SequenceHint     int64  `json:"sequence_hint"`
}

// Time returns the record timestamp in the given location (UTC when nil).
func (r ScanRecord) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Unix(r.TimestampSeconds, 0).In(loc)
}

// Location describes where a worker currently is.
type Location int

const (
	NotPresent Location = iota
	Onsite
	Offsite
)

func (l Location) String() string {
	switch l {
	case Onsite:
		return "onsite"
	case Offsite:
		return "offsite"
	default:
		return "not_present"
	}
}

// MarshalText renders the location for JSON payloads.
func (l Location) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText parses a rendered location.
func (l *Location) UnmarshalText(text []byte) error {
	switch string(text) {
	case "onsite":
		*l = Onsite
	case "offsite":
		*l = Offsite
	default:
		*l = NotPresent
	}
	return nil
}

// OutcountFlag tracks the secondary headcount confirmation.
type OutcountFlag int

const (
	OutcountNone OutcountFlag = iota
	OutcountPending
	OutcountConfirmed
)

func (f OutcountFlag) String() string {
	switch f {
	case OutcountPending:
		return "pending"
	case OutcountConfirmed:
		return "confirmed"
	default:
		return "none"
	}
}

// MarshalText renders the flag for JSON payloads.
func (f OutcountFlag) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText parses a rendered flag.
func (f *OutcountFlag) UnmarshalText(text []byte) error {
	switch string(text) {
	case "pending":
		*f = OutcountPending
	case "confirmed":
		*f = OutcountConfirmed
	default:
		*f = OutcountNone
	}
	return nil
}

// PresenceStatus is the derived state of a single worker.
type PresenceStatus struct {
	Location Location     `json:"location"`
	Outcount OutcountFlag `json:"outcount"`
}

// DayHours holds worked hours for one worker on one calendar day.
type DayHours struct {
	AM float64 `json:"am"`
	PM float64 `json:"pm"`
}

// Total returns AM plus PM hours.
func (d DayHours) Total() float64 {
	return d.AM + d.PM
}

// WeeklyHours maps a day key (2006-01-02) to the hours worked that day.
type WeeklyHours map[string]DayHours

// Total sums every day in the row.
func (w WeeklyHours) Total() float64 {
	var total float64
	for _, day := range w {
		total += day.Total()
	}
	return total
}

// WeeklyHoursTable maps worker id to that worker's weekly row.
type WeeklyHoursTable map[string]WeeklyHours
