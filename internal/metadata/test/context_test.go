package metadata_test

import (
	"context"
	"testing"

	"github.com/bionicotaku/lingo-services-analysis/internal/metadata"

	"github.com/google/uuid"
)

func TestInjectAndRead(t *testing.T) {
	id := uuid.New()
	ctx := metadata.Inject(context.Background(), metadata.HandlerMetadata{UserID: id.String(), RequestID: "req-1"})

	meta, ok := metadata.FromContext(ctx)
	if !ok {
		t.Fatalf("expected metadata in context")
	}
	got, ok := meta.UserUUID()
	if !ok || got != id {
		t.Fatalf("expected user %s, got %s (ok=%v)", id, got, ok)
	}
}

func TestInjectZeroKeepsContext(t *testing.T) {
	ctx := metadata.Inject(context.Background(), metadata.HandlerMetadata{})
	if _, ok := metadata.FromContext(ctx); ok {
		t.Fatalf("zero metadata should not be stored")
	}
}

func TestUserUUIDRejectsInvalid(t *testing.T) {
	for _, raw := range []string{"", "  ", "not-a-uuid", uuid.Nil.String()} {
		if _, ok := (metadata.HandlerMetadata{UserID: raw}).UserUUID(); ok {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}
