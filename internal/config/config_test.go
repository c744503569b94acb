package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vidfetch/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("UPLOADS_DIR", "")
	t.Setenv("VIDFETCH_UPLOADS_DIR", filepath.Join(tempHome, "up"))

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if want := filepath.Join(tempHome, ".local", "share", "vidfetch"); cfg.Paths.StateDir != want {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, want)
	}
	if want := filepath.Join(tempHome, "up"); cfg.Uploads.Dir != want {
		t.Fatalf("expected uploads dir from env, got %q", cfg.Uploads.Dir)
	}
	if want := filepath.Join(cfg.Paths.StateDir, "history.db"); cfg.History.Path != want {
		t.Fatalf("unexpected history path %q", cfg.History.Path)
	}
	if cfg.History.Enabled {
		t.Fatal("expected history disabled by default")
	}
	if cfg.CacheTTL() != time.Hour {
		t.Fatalf("unexpected cache ttl %s", cfg.CacheTTL())
	}
	if cfg.CacheSweepInterval() != 5*time.Minute {
		t.Fatalf("unexpected cache sweep %s", cfg.CacheSweepInterval())
	}
	if cfg.UploadRetention() != time.Hour {
		t.Fatalf("unexpected retention %s", cfg.UploadRetention())
	}
	if cfg.UploadSweepInterval() != 10*time.Minute {
		t.Fatalf("unexpected upload sweep %s", cfg.UploadSweepInterval())
	}
	if cfg.Uploads.MaxBytes != 500*1024*1024 {
		t.Fatalf("unexpected max bytes %d", cfg.Uploads.MaxBytes)
	}
	if cfg.Captions.WhisperModel != "base" || cfg.Captions.SpeechLanguage != "en" {
		t.Fatalf("unexpected caption defaults %+v", cfg.Captions)
	}
	if cfg.Logging.Format != "" {
		t.Fatalf("expected auto log format, got %q", cfg.Logging.Format)
	}
	if cfg.LockPath() != filepath.Join(cfg.Paths.StateDir, "vidfetch.lock") {
		t.Fatalf("unexpected lock path %q", cfg.LockPath())
	}
}

func TestLoadCustomConfigFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(tempHome, "custom.toml")
	content := `
[paths]
temp_dir = "~/scratch"

[binaries]
ffmpeg = "/opt/ffmpeg/bin/ffmpeg"

[extractor]
cookies_file = "~/cookies.txt"

[cache]
ttl_seconds = 60

[uploads]
dir = "~/incoming"
retention_seconds = 120

[server]
bind = "0.0.0.0:8080"

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.TempDir != filepath.Join(tempHome, "scratch") {
		t.Fatalf("unexpected temp dir %q", cfg.Paths.TempDir)
	}
	if cfg.FFmpegBinary() != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("expected pinned ffmpeg path, got %q", cfg.FFmpegBinary())
	}
	if cfg.Extractor.CookiesFile != filepath.Join(tempHome, "cookies.txt") {
		t.Fatalf("unexpected cookies file %q", cfg.Extractor.CookiesFile)
	}
	if cfg.CacheTTL() != time.Minute {
		t.Fatalf("unexpected ttl %s", cfg.CacheTTL())
	}
	if cfg.Uploads.Dir != filepath.Join(tempHome, "incoming") {
		t.Fatalf("unexpected uploads dir %q", cfg.Uploads.Dir)
	}
	if cfg.UploadRetention() != 2*time.Minute {
		t.Fatalf("unexpected retention %s", cfg.UploadRetention())
	}
	if cfg.Server.Bind != "0.0.0.0:8080" {
		t.Fatalf("unexpected bind %q", cfg.Server.Bind)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging %+v", cfg.Logging)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cases := map[string]string{
		"negative ttl":  "[cache]\nttl_seconds = -1\n",
		"bad level":     "[logging]\nlevel = \"loud\"\n",
		"negative size": "[uploads]\nmax_bytes = -5\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(tempHome, strings.ReplaceAll(name, " ", "_")+".toml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, _, _, err := config.Load(path); err == nil {
				t.Fatalf("expected validation error for %s", name)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(tempHome, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Server.Bind != config.Default().Server.Bind {
		t.Fatalf("sample bind drifted from defaults: %q", cfg.Server.Bind)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.TempDir = filepath.Join(base, "tmp")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Uploads.Dir = filepath.Join(base, "uploads")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.TempDir, cfg.Paths.StateDir, cfg.Uploads.Dir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s", dir)
		}
	}
}
