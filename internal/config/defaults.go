package config

const (
	defaultConfigPath        = "~/.config/timeclock/config.toml"
	defaultLogDir            = "~/.local/share/timeclock/logs"
	defaultDataDir           = "~/.local/share/timeclock"
	defaultWorkersTable      = "Workers"
	defaultHoursTable        = "TimeclockHours"
	defaultBackendTimeout    = 10
	defaultHistoryDays       = 8
	defaultRefreshInterval   = 300
	defaultRecordSource      = "timeclock"
	defaultScannerSource     = "evdev"
	defaultScanTimeoutMS     = 50
	defaultConfirmWindowMS   = 600
	defaultMatchField        = "id"
	defaultNotifySeconds     = 5
	defaultLocale            = "en"
	defaultPeriodBoundary    = "10:30"
	defaultWeekStart         = "thursday"
	defaultTimezone          = "Local"
	defaultNotifyTimeout     = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultExcludedDayOfWeek = "saturday"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:  defaultLogDir,
			DataDir: defaultDataDir,
		},
		Backend: Backend{
			WorkersTable:    defaultWorkersTable,
			HoursTable:      defaultHoursTable,
			RequestTimeout:  defaultBackendTimeout,
			HistoryDays:     defaultHistoryDays,
			RefreshInterval: defaultRefreshInterval,
			Source:          defaultRecordSource,
		},
		Scanner: Scanner{
			Source:    defaultScannerSource,
			Grab:      true,
			TimeoutMS: defaultScanTimeoutMS,
		},
		Roster: Roster{
			ConfirmWindowMS: defaultConfirmWindowMS,
			MatchField:      defaultMatchField,
			NotifySeconds:   defaultNotifySeconds,
			Locale:          defaultLocale,
		},
		Hours: Hours{
			PeriodBoundary:   defaultPeriodBoundary,
			WeekStart:        defaultWeekStart,
			ExcludedWeekdays: []string{defaultExcludedDayOfWeek},
			Timezone:         defaultTimezone,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			UnmatchedScans: true,
			SubmitFailures: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
