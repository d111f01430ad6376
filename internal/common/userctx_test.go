package common

import (
	"context"
	"testing"
)

func TestUserContext_RoundTrip(t *testing.T) {
	ctx := context.Background()

	if uc := UserContextFromContext(ctx); uc != nil {
		t.Error("Expected nil UserContext from empty context")
	}

	ctx = WithUserContext(ctx, &UserContext{UserID: "alice", Role: "admin"})

	got := UserContextFromContext(ctx)
	if got == nil {
		t.Fatal("Expected non-nil UserContext")
	}
	if got.UserID != "alice" {
		t.Errorf("Expected alice, got %s", got.UserID)
	}
	if got.Role != "admin" {
		t.Errorf("Expected admin, got %s", got.Role)
	}
}

func TestResolveUserID(t *testing.T) {
	if id := ResolveUserID(context.Background()); id != "" {
		t.Errorf("Expected empty user ID without context, got %q", id)
	}

	ctx := WithUserID(context.Background(), "bob")
	if id := ResolveUserID(ctx); id != "bob" {
		t.Errorf("Expected bob, got %q", id)
	}

	// An empty identity is still unauthenticated.
	ctx = WithUserContext(context.Background(), &UserContext{})
	if id := ResolveUserID(ctx); id != "" {
		t.Errorf("Expected empty user ID, got %q", id)
	}
}
