package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vidfetch/internal/config"
	"vidfetch/internal/logging"
	"vidfetch/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Format = "console"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from config")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "vidfetch.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello from config") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")

	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller", logging.String("key", "value with space"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
	if !strings.Contains(string(content), `key="value with space"`) {
		t.Fatalf("expected quoted attribute, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")

	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := context.Background()
	ctx = services.WithJobID(ctx, "job-123")
	ctx = services.WithFileID(ctx, "file-456")
	ctx = services.WithRequestID(ctx, "req-xyz")

	logging.WithContext(ctx, logging.NewComponentLogger(logger, "transform")).Info("contextual log")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &record); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, content)
	}
	want := map[string]string{
		logging.FieldComponent:     "transform",
		logging.FieldJobID:         "job-123",
		logging.FieldFileID:        "file-456",
		logging.FieldRequestID:     "req-xyz",
		"msg":                      "contextual log",
		"level":                    "info",
	}
	for key, value := range want {
		if got, _ := record[key].(string); got != value {
			t.Fatalf("field %s = %q, want %q", key, got, value)
		}
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts field, got %v", record)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "temp file left behind", "temp_cleanup_failed",
		logging.String(logging.FieldImpact, "disk space not reclaimed"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for _, fragment := range []string{`"event_type":"temp_cleanup_failed"`, `"error_hint":"check logs for details"`, `"impact":"disk space not reclaimed"`} {
		if !strings.Contains(string(content), fragment) {
			t.Fatalf("expected %s in %q", fragment, content)
		}
	}
}

func TestJSONExpandsProcessErrors(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "proc.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	failure := services.Wrap(services.ErrProcessExit, "transform", "encode", "ffmpeg failed",
		services.NewProcessError("ffmpeg", 1, "Invalid data found when processing input"))
	logger.Info("step failed", logging.Error(failure))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record struct {
		Error struct {
			Command  string `json:"command"`
			ExitCode int    `json:"exit_code"`
			Stderr   string `json:"stderr"`
			Message  string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &record); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, content)
	}
	if record.Error.Command != "ffmpeg" || record.Error.ExitCode != 1 {
		t.Fatalf("unexpected process fields %+v", record.Error)
	}
	if !strings.Contains(record.Error.Stderr, "Invalid data") || !strings.Contains(record.Error.Message, "ffmpeg failed") {
		t.Fatalf("unexpected error detail %+v", record.Error)
	}
}
