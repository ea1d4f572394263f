// Package auth carries the authenticated caller through a request and
// verifies the identity provider's bearer tokens.
package auth

import (
	"context"

	"github.com/dukerupert/larder/internal/model"
)

type contextKey struct{}

// AuthContext identifies the caller. HouseholdID and Role are zero until
// the household has been resolved.
type AuthContext struct {
	UserID      int64
	Subject     string
	HouseholdID int64
	Role        string
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func HouseholdID(ctx context.Context) int64 {
	ac, _ := FromContext(ctx)
	return ac.HouseholdID
}

func UserID(ctx context.Context) int64 {
	ac, _ := FromContext(ctx)
	return ac.UserID
}

func IsAdmin(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	return ok && ac.Role == model.RoleAdmin
}
