// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// Role is the set of roles recognized by the business layer.
// Role-gating is enforced inside the workflow services, not in middleware.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleManager   Role = "manager"
	RoleCashier   Role = "cashier"
	RoleWarehouse Role = "warehouse"
)

// UserContext contains authenticated user information.
type UserContext struct {
	UserID    string
	Username  string
	Role      Role
	SessionID string
}

// CanApproveDiscount reports whether the role may authorize large discounts
// and void completed sales.
func (u *UserContext) CanApproveDiscount() bool {
	return u.Role == RoleAdmin || u.Role == RoleManager
}

// CanAdjustStock reports whether the role may create manual stock adjustments.
func (u *UserContext) CanAdjustStock() bool {
	return u.Role == RoleAdmin || u.Role == RoleManager || u.Role == RoleWarehouse
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// GetRole returns the acting user's role from context or empty string.
func GetRole(ctx context.Context) Role {
	if u := GetUser(ctx); u != nil {
		return u.Role
	}
	return ""
}
