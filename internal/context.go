package internal

import (
	"context"
)

type Role string

const (
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

// Principal is the verified identity the auth layer attaches to every
// request. Services trust it as-is; token verification happens upstream.
type Principal struct {
	UserID       string `json:"user_id"`
	Role         Role   `json:"role"`
	DepartmentID string `json:"department_id,omitempty"`
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

type ctxKey string

const principalKey ctxKey = "principal"

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}
