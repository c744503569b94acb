package deps

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}
}

func TestResolveInPrefersFirstExecutable(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	script := []byte("#!/bin/sh\nexit 0\n")

	// Not executable in the first dir, so the second one wins.
	if err := os.WriteFile(filepath.Join(first, "yt-dlp"), script, 0o644); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	want := filepath.Join(second, "yt-dlp")
	if err := os.WriteFile(want, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	if got := ResolveIn("yt-dlp", []string{first, second}); got != want {
		t.Fatalf("ResolveIn = %q, want %q", got, want)
	}
}

func TestResolveInFallsBackToBareName(t *testing.T) {
	if got := ResolveIn("whisper", []string{t.TempDir()}); got != "whisper" {
		t.Fatalf("expected bare name fallback, got %q", got)
	}
	if got := ResolveIn("/opt/bin/ffmpeg", []string{t.TempDir()}); got != "/opt/bin/ffmpeg" {
		t.Fatalf("expected explicit path unchanged, got %q", got)
	}
}

func TestSearchDirsOrder(t *testing.T) {
	dirs := SearchDirs("/home/user")
	want := []string{"/home/user/.local/bin", "/usr/local/bin", "/opt/homebrew/bin"}
	if strings.Join(dirs, ",") != strings.Join(want, ",") {
		t.Fatalf("SearchDirs = %v, want %v", dirs, want)
	}
}

func TestExtractorEnvPrependsDeno(t *testing.T) {
	env := ExtractorEnv([]string{"HOME=/home/user", "PATH=/usr/bin"}, "/home/user")
	var path string
	for _, kv := range env {
		if strings.HasPrefix(kv, "PATH=") {
			path = kv
		}
	}
	if path != "PATH=/home/user/.deno/bin:/usr/bin" {
		t.Fatalf("unexpected PATH entry %q", path)
	}
	if len(env) != 2 {
		t.Fatalf("expected original entries preserved, got %v", env)
	}
}
