package common

import (
	"context"
)

// UserContext holds the caller identity resolved by the auth middleware.
// A nil UserContext means the request is unauthenticated.
type UserContext struct {
	UserID string
	Role   string
}

type contextKey int

const userContextKey contextKey = iota

// WithUserContext stores a UserContext in the request context.
func WithUserContext(ctx context.Context, uc *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, uc)
}

// UserContextFromContext retrieves the UserContext from context, or nil if absent.
func UserContextFromContext(ctx context.Context) *UserContext {
	uc, _ := ctx.Value(userContextKey).(*UserContext)
	return uc
}

// ResolveUserID returns the UserID from context, or "" when no identity is present.
func ResolveUserID(ctx context.Context) string {
	if uc := UserContextFromContext(ctx); uc != nil {
		return uc.UserID
	}
	return ""
}

// WithUserID is a shorthand for WithUserContext with a plain user role.
func WithUserID(ctx context.Context, userID string) context.Context {
	return WithUserContext(ctx, &UserContext{UserID: userID, Role: "user"})
}
