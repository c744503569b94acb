package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"vidfetch/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrParse, "metadata", "decode", "malformed json", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrParse) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"metadata", "decode", "malformed json"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestProcessErrorMatchesMarker(t *testing.T) {
	procErr := services.NewProcessError("yt-dlp", 1, "ERROR: Video unavailable")
	wrapped := fmt.Errorf("fetch info: %w", procErr)
	if !errors.Is(wrapped, services.ErrProcessExit) {
		t.Fatalf("expected ErrProcessExit match, got %v", wrapped)
	}
	if got := services.StderrTail(wrapped); got != "ERROR: Video unavailable" {
		t.Fatalf("unexpected stderr tail %q", got)
	}
	if !strings.Contains(procErr.Error(), "exited with code 1") {
		t.Fatalf("unexpected message %q", procErr.Error())
	}
}

func TestProcessErrorTrimsTail(t *testing.T) {
	stderr := strings.Repeat("x", 2000) + "END"
	procErr := services.NewProcessError("ffmpeg", 2, stderr)
	if len(procErr.StderrTail) > 512 {
		t.Fatalf("expected bounded tail, got %d bytes", len(procErr.StderrTail))
	}
	if !strings.HasSuffix(procErr.StderrTail, "END") {
		t.Fatalf("expected tail to keep the last bytes")
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want services.Kind
	}{
		{nil, ""},
		{services.Wrap(services.ErrValidation, "clip", "", "bad range", nil), services.KindValidation},
		{services.Wrap(services.ErrNotFound, "uploads", "resolve", "", nil), services.KindNotFound},
		{services.Wrap(services.ErrUnsupported, "captions", "", "", nil), services.KindUnsupported},
		{services.Wrap(services.ErrSpawn, "runner", "", "", errors.New("exec")), services.KindSpawn},
		{services.NewProcessError("ffmpeg", 1, ""), services.KindProcessExit},
		{fmt.Errorf("read: %w", context.Canceled), services.KindCancelled},
		{errors.New("plain"), services.KindInternal},
	}
	for _, tc := range cases {
		if got := services.KindOf(tc.err); got != tc.want {
			t.Fatalf("KindOf(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
