package controllers_test

import (
	"context"
	"testing"
	"time"

	"github.com/bionicotaku/lingo-services-analysis/internal/controllers"
	"github.com/bionicotaku/lingo-services-analysis/internal/metadata"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	kmd "github.com/go-kratos/kratos/v2/metadata"
	"github.com/google/uuid"
)

func TestBaseHandlerExtractMetadata(t *testing.T) {
	md := kmd.Metadata{}
	md.Set(metadata.HeaderUserID, " 5a7c3f4e-8f7e-4b1e-9a3d-1b2c3d4e5f60 ")
	md.Set(metadata.HeaderRequestID, "req-456")
	ctx := kmd.NewServerContext(context.Background(), md)

	handler := controllers.NewBaseHandler(controllers.HandlerTimeouts{})
	meta := handler.ExtractMetadata(ctx)

	if meta.UserID != "5a7c3f4e-8f7e-4b1e-9a3d-1b2c3d4e5f60" {
		t.Fatalf("expected trimmed user id, got %q", meta.UserID)
	}
	if meta.RequestID != "req-456" {
		t.Fatalf("expected request id req-456, got %q", meta.RequestID)
	}
}

func TestBaseHandlerRequireUser(t *testing.T) {
	handler := controllers.NewBaseHandler(controllers.HandlerTimeouts{})
	userID := uuid.New()

	md := kmd.Metadata{}
	md.Set(metadata.HeaderUserID, userID.String())
	ctx, got, err := handler.RequireUser(kmd.NewServerContext(context.Background(), md))
	if err != nil {
		t.Fatalf("RequireUser: %v", err)
	}
	if got != userID {
		t.Fatalf("expected %s, got %s", userID, got)
	}
	stored, ok := metadata.FromContext(ctx)
	if !ok || stored.UserID != userID.String() {
		t.Fatalf("expected metadata injected into context, got %+v", stored)
	}

	_, _, err = handler.RequireUser(context.Background())
	if se := kerrors.FromError(err); se.Code != 401 {
		t.Fatalf("expected 401 without metadata, got %v", err)
	}

	bad := kmd.Metadata{}
	bad.Set(metadata.HeaderUserID, "not-a-uuid")
	_, _, err = handler.RequireUser(kmd.NewServerContext(context.Background(), bad))
	if se := kerrors.FromError(err); se.Code != 400 {
		t.Fatalf("expected 400 for malformed user id, got %v", err)
	}
}

func TestBaseHandlerWithTimeout(t *testing.T) {
	handler := controllers.NewBaseHandler(controllers.HandlerTimeouts{Command: 200 * time.Millisecond})
	ctx, cancel := handler.WithTimeout(context.Background(), controllers.HandlerTypeCommand)
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatalf("expected deadline to be set")
	}
	remaining := time.Until(deadline)
	if remaining < 150*time.Millisecond || remaining > 250*time.Millisecond {
		t.Fatalf("expected timeout near 200ms, got %v", remaining)
	}

	queryCtx, cancelQuery := handler.WithTimeout(context.Background(), controllers.HandlerTypeQuery)
	defer cancelQuery()
	if _, ok := queryCtx.Deadline(); !ok {
		t.Fatalf("expected query timeout to fall back to default")
	}
}
