package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestCallerContextRoundTrip(t *testing.T) {
	id := uuid.New()
	ctx := WithCaller(context.Background(), Caller{UserID: id, Role: RoleDoctor})

	caller, ok := CallerFromContext(ctx)
	if !ok {
		t.Fatal("expected caller in context")
	}
	if caller.UserID != id || caller.Role != RoleDoctor {
		t.Fatalf("unexpected caller %+v", caller)
	}
}

func TestCallerFromContextMissing(t *testing.T) {
	if _, ok := CallerFromContext(context.Background()); ok {
		t.Fatal("expected no caller in empty context")
	}
	if _, ok := CallerFromContext(WithCaller(context.Background(), Caller{})); ok {
		t.Fatal("expected nil user id to be rejected")
	}
}
