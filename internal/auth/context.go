package auth

import (
	"context"
	"fmt"

	"github.com/rpattn/ctedash/internal/domain"
)

type contextKey string

const sessionKey contextKey = "session"

// Session is the caller identity for one request: who, which tenant and
// whether the caller may see every tenant.
type Session struct {
	Username   string
	Tenant     domain.TenantID
	Privileged bool
}

// ContextWithSession returns a new context that carries the authenticated session.
func ContextWithSession(ctx context.Context, session Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sessionKey, session)
}

// SessionFromContext retrieves the authenticated session from the context, if any.
func SessionFromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	session, ok := ctx.Value(sessionKey).(Session)
	if !ok || session.Tenant.IsZero() {
		return Session{}, false
	}
	return session, true
}

// EnforceTenantScope ensures the caller may act on tenant: its own tenant, or
// any tenant when privileged.
func EnforceTenantScope(ctx context.Context, tenant domain.TenantID) error {
	if tenant.IsZero() {
		return fmt.Errorf("%w: tenant is required", domain.ErrInvalidInput)
	}
	session, ok := SessionFromContext(ctx)
	if !ok {
		return domain.ErrUnauthorized
	}
	if session.Privileged || session.Tenant == tenant {
		return nil
	}
	return fmt.Errorf("%w: tenant %s does not match authenticated scope", domain.ErrForbidden, tenant)
}

// RequirePrivileged ensures the caller is an administrator.
func RequirePrivileged(ctx context.Context) (Session, error) {
	session, ok := SessionFromContext(ctx)
	if !ok {
		return Session{}, domain.ErrUnauthorized
	}
	if !session.Privileged {
		return Session{}, fmt.Errorf("%w: administrator access required", domain.ErrForbidden)
	}
	return session, nil
}
