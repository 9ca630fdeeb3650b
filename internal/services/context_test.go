package services_test

import (
	"context"
	"testing"

	"reelsmith/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "k3x9q")
	ctx = services.WithStage(ctx, "selection")
	ctx = services.WithParagraph(ctx, 2)
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "k3x9q" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "selection" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if p, ok := services.ParagraphFromContext(ctx); !ok || p != 2 {
		t.Fatalf("unexpected paragraph: %v %v", p, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithParagraph(ctx, 0)
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.ParagraphFromContext(ctx); ok {
		t.Fatal("expected no paragraph value")
	}
}
