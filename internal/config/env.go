package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// envOverrides maps backend fields to their environment variables, newest
// name first.
var envOverrides = []struct {
	keys  []string
	apply func(*Config, string)
}{
	{[]string{"TIMECLOCK_API_KEY", "GRIST_API_KEY"}, func(c *Config, v string) { c.Backend.APIKey = v }},
	{[]string{"TIMECLOCK_BASE_URL", "GRIST_BASE_URL"}, func(c *Config, v string) { c.Backend.BaseURL = v }},
	{[]string{"TIMECLOCK_DOCUMENT_ID", "GRIST_DOCUMENT_ID"}, func(c *Config, v string) { c.Backend.DocumentID = v }},
	{[]string{"TIMECLOCK_NTFY_TOPIC"}, func(c *Config, v string) { c.Notifications.NtfyTopic = v }},
}

// loadDotEnv reads a .env file from dir into the process environment.
// Variables that are already set win.
func loadDotEnv(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return nil
	}
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	for _, override := range envOverrides {
		for _, key := range override.keys {
			if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
				override.apply(c, strings.TrimSpace(value))
				break
			}
		}
	}
}
