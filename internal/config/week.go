package config

import (
	"fmt"
	"strings"
	"time"

	"timeclock/internal/attendance"
)

// WeekOptions converts the [hours] section into reporting week options.
func (c *Config) WeekOptions() (attendance.WeekOptions, error) {
	opts := attendance.DefaultWeekOptions()

	boundary, err := attendance.ParseTimeOfDay(c.Hours.PeriodBoundary)
	if err != nil {
		return opts, fmt.Errorf("hours.period_boundary: %w", err)
	}
	opts.Boundary = boundary

	start, err := parseWeekday(c.Hours.WeekStart)
	if err != nil {
		return opts, fmt.Errorf("hours.week_start: %w", err)
	}
	opts.WeekStart = start

	opts.Excluded = make([]time.Weekday, 0, len(c.Hours.ExcludedWeekdays))
	for _, name := range c.Hours.ExcludedWeekdays {
		day, err := parseWeekday(name)
		if err != nil {
			return opts, fmt.Errorf("hours.excluded_weekdays: %w", err)
		}
		opts.Excluded = append(opts.Excluded, day)
	}
	if len(opts.Excluded) >= 7 {
		return opts, fmt.Errorf("hours.excluded_weekdays: at least one day must remain visible")
	}

	loc, err := c.Location()
	if err != nil {
		return opts, err
	}
	opts.Location = loc
	return opts, nil
}

// Location resolves hours.timezone.
func (c *Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Hours.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("hours.timezone: %w", err)
	}
	return loc, nil
}
