package services_test

import (
	"context"
	"testing"

	"smartcut/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithSession(ctx, "sess-1")
	ctx = services.WithStage(ctx, "analysis")
	ctx = services.WithSegment(ctx, "seg-9")
	ctx = services.WithRequestID(ctx, "req-123")

	if uid, ok := services.SessionFromContext(ctx); !ok || uid != "sess-1" {
		t.Fatalf("unexpected session: %v %v", uid, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "analysis" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if seg, ok := services.SegmentFromContext(ctx); !ok || seg != "seg-9" {
		t.Fatalf("unexpected segment: %v %v", seg, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithSession(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage for blank value")
	}
	if _, ok := services.SessionFromContext(ctx); ok {
		t.Fatal("expected no session for blank value")
	}
}
