package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBackend()
	c.normalizeScanner()
	c.normalizeRoster()
	c.normalizeHours()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeBackend() {
	c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(c.Backend.BaseURL), "/")
	c.Backend.APIKey = strings.TrimSpace(c.Backend.APIKey)
	c.Backend.DocumentID = strings.TrimSpace(c.Backend.DocumentID)
	c.Backend.WorkersTable = strings.TrimSpace(c.Backend.WorkersTable)
	if c.Backend.WorkersTable == "" {
		c.Backend.WorkersTable = defaultWorkersTable
	}
	c.Backend.HoursTable = strings.TrimSpace(c.Backend.HoursTable)
	if c.Backend.HoursTable == "" {
		c.Backend.HoursTable = defaultHoursTable
	}
	if c.Backend.RequestTimeout <= 0 {
		c.Backend.RequestTimeout = defaultBackendTimeout
	}
	if c.Backend.HistoryDays <= 0 {
		c.Backend.HistoryDays = defaultHistoryDays
	}
	if c.Backend.RefreshInterval < 0 {
		c.Backend.RefreshInterval = 0
	}
	c.Backend.Source = strings.TrimSpace(c.Backend.Source)
	if c.Backend.Source == "" {
		c.Backend.Source = defaultRecordSource
	}
}

func (c *Config) normalizeScanner() {
	c.Scanner.Source = strings.ToLower(strings.TrimSpace(c.Scanner.Source))
	if c.Scanner.Source == "" {
		c.Scanner.Source = defaultScannerSource
	}
	c.Scanner.Device = strings.TrimSpace(c.Scanner.Device)
	if c.Scanner.TimeoutMS <= 0 {
		c.Scanner.TimeoutMS = defaultScanTimeoutMS
	}
}

func (c *Config) normalizeRoster() {
	if c.Roster.ConfirmWindowMS <= 0 {
		c.Roster.ConfirmWindowMS = defaultConfirmWindowMS
	}
	c.Roster.MatchField = strings.ToLower(strings.TrimSpace(c.Roster.MatchField))
	if c.Roster.MatchField == "" {
		c.Roster.MatchField = defaultMatchField
	}
	if c.Roster.NotifySeconds < 0 {
		c.Roster.NotifySeconds = 0
	}
	c.Roster.Locale = strings.TrimSpace(c.Roster.Locale)
	if c.Roster.Locale == "" {
		c.Roster.Locale = defaultLocale
	}
}

func (c *Config) normalizeHours() {
	c.Hours.PeriodBoundary = strings.TrimSpace(c.Hours.PeriodBoundary)
	if c.Hours.PeriodBoundary == "" {
		c.Hours.PeriodBoundary = defaultPeriodBoundary
	}
	c.Hours.WeekStart = strings.ToLower(strings.TrimSpace(c.Hours.WeekStart))
	if c.Hours.WeekStart == "" {
		c.Hours.WeekStart = defaultWeekStart
	}
	days := make([]string, 0, len(c.Hours.ExcludedWeekdays))
	seen := make(map[string]struct{}, len(c.Hours.ExcludedWeekdays))
	for _, day := range c.Hours.ExcludedWeekdays {
		normalized := strings.ToLower(strings.TrimSpace(day))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		days = append(days, normalized)
	}
	c.Hours.ExcludedWeekdays = days
	c.Hours.Timezone = strings.TrimSpace(c.Hours.Timezone)
	if c.Hours.Timezone == "" {
		c.Hours.Timezone = defaultTimezone
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "console", "json":
	default:
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
