package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeExtractor(); err != nil {
		return err
	}
	if err := c.normalizeUploads(); err != nil {
		return err
	}
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeCaptions()
	c.normalizeServer()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		c.Paths.TempDir = defaultTempDir()
	}
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeExtractor() error {
	cookies := strings.TrimSpace(c.Extractor.CookiesFile)
	if cookies == "" {
		if value, ok := os.LookupEnv("VIDFETCH_COOKIES_FILE"); ok {
			cookies = strings.TrimSpace(value)
		}
	}
	if cookies == "" {
		// A cookie jar dropped next to the binary is picked up automatically.
		if info, err := os.Stat(defaultCookiesFileName); err == nil && !info.IsDir() {
			cookies = defaultCookiesFileName
		}
	}
	var err error
	if c.Extractor.CookiesFile, err = expandPath(cookies); err != nil {
		return fmt.Errorf("extractor.cookies_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeUploads() error {
	dir := strings.TrimSpace(c.Uploads.Dir)
	if dir == "" {
		if value, ok := os.LookupEnv("VIDFETCH_UPLOADS_DIR"); ok {
			dir = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("UPLOADS_DIR"); ok {
			dir = strings.TrimSpace(value)
		}
	}
	if dir == "" {
		dir = defaultUploadsDirName
	}
	var err error
	if c.Uploads.Dir, err = expandPath(dir); err != nil {
		return fmt.Errorf("uploads.dir: %w", err)
	}
	if c.Uploads.RetentionSeconds == 0 {
		c.Uploads.RetentionSeconds = defaultUploadRetentionSeconds
	}
	if c.Uploads.SweepIntervalSeconds == 0 {
		c.Uploads.SweepIntervalSeconds = defaultUploadSweepSeconds
	}
	if c.Uploads.MaxBytes == 0 {
		c.Uploads.MaxBytes = defaultUploadMaxBytes
	}
	return nil
}

func (c *Config) normalizeHistory() error {
	path := strings.TrimSpace(c.History.Path)
	if path == "" {
		path = filepath.Join(c.Paths.StateDir, defaultHistoryFileName)
	}
	var err error
	if c.History.Path, err = expandPath(path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeCaptions() {
	c.Captions.WhisperModel = strings.TrimSpace(c.Captions.WhisperModel)
	if c.Captions.WhisperModel == "" {
		c.Captions.WhisperModel = defaultWhisperModel
	}
	c.Captions.SpeechLanguage = strings.ToLower(strings.TrimSpace(c.Captions.SpeechLanguage))
	if c.Captions.SpeechLanguage == "" {
		c.Captions.SpeechLanguage = defaultSpeechLanguage
	}
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	if c.Server.ReadHeaderTimeoutSeconds <= 0 {
		c.Server.ReadHeaderTimeoutSeconds = defaultReadHeaderTimeoutSeconds
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		c.Server.ShutdownTimeoutSeconds = defaultShutdownTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "console", "json":
	default:
		// Empty selects console on a terminal and JSON otherwise.
		c.Logging.Format = ""
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
