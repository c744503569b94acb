package services_test

import (
	"context"
	"testing"

	"vidfetch/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, "job-42")
	ctx = services.WithRequestID(ctx, "req-123")
	ctx = services.WithFileID(ctx, "0123456789abcdef0123456789abcdef")

	if id, ok := services.JobIDFromContext(ctx); !ok || id != "job-42" {
		t.Fatalf("unexpected job id: %v %v", id, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
	if fid, ok := services.FileIDFromContext(ctx); !ok || fid != "0123456789abcdef0123456789abcdef" {
		t.Fatalf("unexpected file id: %v %v", fid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	base := context.Background()
	ctx := services.WithJobID(services.WithFileID(base, ""), "")
	if ctx != base {
		t.Fatal("blank values should return the parent context")
	}
	if _, ok := services.JobIDFromContext(ctx); ok {
		t.Fatal("expected no job id")
	}
}
