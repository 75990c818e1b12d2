package attendance

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DayKeyLayout formats the per-day keys of a WeeklyHours row.
const DayKeyLayout = "2006-01-02"

// TimeOfDay is a wall-clock offset from local midnight.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses an "HH:MM" string.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	hourText, minuteText, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("time of day %q: expected HH:MM", value)
	}
	hour, err := strconv.Atoi(hourText)
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("time of day %q: invalid hour", value)
	}
	minute, err := strconv.Atoi(minuteText)
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day %q: invalid minute", value)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On returns the instant at this time of day on the calendar date of day, in
// day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, day.Location())
}

// WeekOptions controls the reporting week and the AM/PM split.
type WeekOptions struct {
	Boundary  TimeOfDay
	WeekStart time.Weekday
	Excluded  []time.Weekday
	Location  *time.Location
}

// DefaultWeekOptions reports Thursday through Wednesday with Saturday hidden
// and the AM period ending at 10:30 local time.
func DefaultWeekOptions() WeekOptions {
	return WeekOptions{
		Boundary:  TimeOfDay{Hour: 10, Minute: 30},
		WeekStart: time.Thursday,
		Excluded:  []time.Weekday{time.Saturday},
		Location:  time.Local,
	}
}

func (o WeekOptions) location() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

// Week is a reporting window of seven calendar days starting at local
// midnight. Days lists only the displayed (non-excluded) days.
type Week struct {
	Start time.Time
	End   time.Time
	Days  []time.Time
}

// ReportingWeek returns the week containing now that starts on the most recent
// WeekStart at or before now.
func ReportingWeek(now time.Time, opts WeekOptions) Week {
	loc := opts.location()
	local := now.In(loc)
	since := (int(local.Weekday()) - int(opts.WeekStart) + 7) % 7
	y, m, d := local.Date()
	start := time.Date(y, m, d-since, 0, 0, 0, 0, loc)

	week := Week{
		Start: start,
		End:   time.Date(y, m, d-since+7, 0, 0, 0, 0, loc),
		Days:  make([]time.Time, 0, 7),
	}
	for i := 0; i < 7; i++ {
		day := time.Date(y, m, d-since+i, 0, 0, 0, 0, loc)
		if slices.Contains(opts.Excluded, day.Weekday()) {
			continue
		}
		week.Days = append(week.Days, day)
	}
	return week
}

// Keys returns the day keys of the displayed days in order.
func (w Week) Keys() []string {
	keys := make([]string, len(w.Days))
	for i, day := range w.Days {
		keys[i] = DayKey(day)
	}
	return keys
}

func (w Week) emptyRow() WeeklyHours {
	row := make(WeeklyHours, len(w.Days))
	for _, day := range w.Days {
		row[DayKey(day)] = DayHours{}
	}
	return row
}

// DayKey formats the calendar date of t in t's location.
func DayKey(t time.Time) string {
	return t.Format(DayKeyLayout)
}
