package config

import (
	"os"
	"path/filepath"
)

const (
	defaultConfigPath               = "~/.config/vidfetch/config.toml"
	defaultStateDir                 = "~/.local/share/vidfetch"
	defaultUploadsDirName           = "uploads"
	defaultCookiesFileName          = "cookies.txt"
	defaultHistoryFileName          = "history.db"
	defaultCacheTTLSeconds          = 3600
	defaultCacheSweepSeconds        = 300
	defaultUploadRetentionSeconds   = 3600
	defaultUploadSweepSeconds       = 600
	defaultUploadMaxBytes           = 500 * 1024 * 1024
	defaultWhisperModel             = "base"
	defaultSpeechLanguage           = "en"
	defaultServerBind               = "127.0.0.1:3000"
	defaultReadHeaderTimeoutSeconds = 10
	defaultShutdownTimeoutSeconds   = 10
	defaultLogLevel                 = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			TempDir:  defaultTempDir(),
			StateDir: defaultStateDir,
		},
		Cache: Cache{
			TTLSeconds:           defaultCacheTTLSeconds,
			SweepIntervalSeconds: defaultCacheSweepSeconds,
		},
		Uploads: Uploads{
			RetentionSeconds:     defaultUploadRetentionSeconds,
			SweepIntervalSeconds: defaultUploadSweepSeconds,
			MaxBytes:             defaultUploadMaxBytes,
		},
		Captions: Captions{
			WhisperModel:   defaultWhisperModel,
			SpeechLanguage: defaultSpeechLanguage,
		},
		Server: Server{
			Bind:                     defaultServerBind,
			ReadHeaderTimeoutSeconds: defaultReadHeaderTimeoutSeconds,
			ShutdownTimeoutSeconds:   defaultShutdownTimeoutSeconds,
		},
		Logging: Logging{
			Level: defaultLogLevel,
		},
	}
}

func defaultTempDir() string {
	return filepath.Join(os.TempDir(), "vidfetch")
}
