package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateScanner(); err != nil {
		return err
	}
	if err := c.validateRoster(); err != nil {
		return err
	}
	if _, err := c.WeekOptions(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateBackend() error {
	if c.Backend.BaseURL == "" && c.Backend.DocumentID == "" {
		return nil
	}
	if c.Backend.BaseURL == "" {
		return errors.New("backend.base_url must be set when backend.document_id is set (or set TIMECLOCK_BASE_URL)")
	}
	parsed, err := url.Parse(c.Backend.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("backend.base_url %q is not an absolute URL", c.Backend.BaseURL)
	}
	if c.Backend.DocumentID == "" {
		return errors.New("backend.document_id must be set when backend.base_url is set (or set TIMECLOCK_DOCUMENT_ID)")
	}
	if strings.ContainsAny(c.Backend.WorkersTable+c.Backend.HoursTable, " ;'\"") {
		return errors.New("backend table names must be plain identifiers")
	}
	return nil
}

func (c *Config) validateScanner() error {
	switch c.Scanner.Source {
	case "evdev", "stdin", "none":
	default:
		return fmt.Errorf("scanner.source must be one of evdev, stdin, none (got %q)", c.Scanner.Source)
	}
	if c.Scanner.TimeoutMS > 1000 {
		return errors.New("scanner.timeout_ms must be at most 1000")
	}
	return nil
}

func (c *Config) validateRoster() error {
	switch c.Roster.MatchField {
	case "id", "name":
	default:
		return fmt.Errorf("roster.match_field must be id or name (got %q)", c.Roster.MatchField)
	}
	if c.Roster.ConfirmWindowMS > 5000 {
		return errors.New("roster.confirm_window_ms must be at most 5000")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not recognised", c.Logging.Level)
	}
}

func parseWeekday(value string) (time.Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(value))
	for day := time.Sunday; day <= time.Saturday; day++ {
		name := strings.ToLower(day.String())
		if key == name || key == name[:3] {
			return day, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", value)
}
