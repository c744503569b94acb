package config

import (
	"errors"
	"fmt"
	"sort"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := ensurePositiveMap(map[string]int{
		"cache.ttl_seconds":                  c.Cache.TTLSeconds,
		"cache.sweep_interval_seconds":       c.Cache.SweepIntervalSeconds,
		"uploads.retention_seconds":          c.Uploads.RetentionSeconds,
		"uploads.sweep_interval_seconds":     c.Uploads.SweepIntervalSeconds,
		"server.read_header_timeout_seconds": c.Server.ReadHeaderTimeoutSeconds,
		"server.shutdown_timeout_seconds":    c.Server.ShutdownTimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Uploads.MaxBytes <= 0 {
		return errors.New("uploads.max_bytes must be positive")
	}
	if c.Uploads.Dir == "" {
		return errors.New("uploads.dir must be set")
	}
	if c.Server.Bind == "" {
		return errors.New("server.bind must be set")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
