package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"vidfetch/internal/deps"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains working directory configuration.
type Paths struct {
	TempDir  string `toml:"temp_dir"`
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Binaries pins external tool locations. Empty values fall back to the
// standard search order (home-local bin, common system paths, PATH).
type Binaries struct {
	YtDlp   string `toml:"ytdlp"`
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
	Whisper string `toml:"whisper"`
}

// Extractor contains yt-dlp invocation settings.
type Extractor struct {
	CookiesFile string `toml:"cookies_file"`
}

// Cache contains metadata cache tuning.
type Cache struct {
	TTLSeconds           int `toml:"ttl_seconds"`
	SweepIntervalSeconds int `toml:"sweep_interval_seconds"`
}

// Uploads contains uploaded-file storage and retention settings.
type Uploads struct {
	Dir                  string `toml:"dir"`
	RetentionSeconds     int    `toml:"retention_seconds"`
	SweepIntervalSeconds int    `toml:"sweep_interval_seconds"`
	MaxBytes             int64  `toml:"max_bytes"`
}

// Captions contains caption extraction settings.
type Captions struct {
	WhisperModel   string `toml:"whisper_model"`
	SpeechLanguage string `toml:"speech_language"`
}

// Server contains HTTP listener settings.
type Server struct {
	Bind                     string `toml:"bind"`
	ReadHeaderTimeoutSeconds int    `toml:"read_header_timeout_seconds"`
	ShutdownTimeoutSeconds   int    `toml:"shutdown_timeout_seconds"`
}

// History contains the optional job history store settings.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for vidfetch.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Binaries  Binaries  `toml:"binaries"`
	Extractor Extractor `toml:"extractor"`
	Cache     Cache     `toml:"cache"`
	Uploads   Uploads   `toml:"uploads"`
	Captions  Captions  `toml:"captions"`
	Server    Server    `toml:"server"`
	History   History   `toml:"history"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vidfetch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the working directories the server and CLI write to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.TempDir, c.Paths.StateDir, c.Uploads.Dir}
	if strings.TrimSpace(c.Paths.LogDir) != "" {
		dirs = append(dirs, c.Paths.LogDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// YtDlpBinary returns the resolved yt-dlp executable.
func (c *Config) YtDlpBinary() string {
	return deps.Resolve(firstNonEmpty(c.Binaries.YtDlp, deps.YtDlpCommand))
}

// FFmpegBinary returns the resolved ffmpeg executable.
func (c *Config) FFmpegBinary() string {
	return deps.Resolve(firstNonEmpty(c.Binaries.FFmpeg, deps.FFmpegCommand))
}

// FFprobeBinary returns the resolved ffprobe executable used for subtitle probing.
func (c *Config) FFprobeBinary() string {
	return deps.Resolve(firstNonEmpty(c.Binaries.FFprobe, deps.FFprobeCommand))
}

// WhisperBinary returns the resolved speech recognizer executable.
func (c *Config) WhisperBinary() string {
	return deps.Resolve(firstNonEmpty(c.Binaries.Whisper, deps.WhisperCommand))
}

// CacheTTL returns the metadata cache entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// CacheSweepInterval returns how often expired cache entries are swept.
func (c *Config) CacheSweepInterval() time.Duration {
	return time.Duration(c.Cache.SweepIntervalSeconds) * time.Second
}

// UploadRetention returns how long uploaded files are kept.
func (c *Config) UploadRetention() time.Duration {
	return time.Duration(c.Uploads.RetentionSeconds) * time.Second
}

// UploadSweepInterval returns the upload reaper interval.
func (c *Config) UploadSweepInterval() time.Duration {
	return time.Duration(c.Uploads.SweepIntervalSeconds) * time.Second
}

// LockPath returns the instance lock file used by the server.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "vidfetch.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
