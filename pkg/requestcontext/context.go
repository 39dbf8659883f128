// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// This package defines context keys and getter/setter functions for values
// that are set by middleware but consumed by services and stores. By keeping
// it free of net/http dependencies, stores can read the caller's security
// context without pulling in HTTP-related code.
//
// The security context is the single source of truth for "who is calling and
// on which tenant" for the lifetime of one request. It is a value stored in
// the request's context.Context, never a process-wide variable, so
// concurrent requests can never observe each other's caller or tenant.
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithSecurity(ctx, sec)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//
// Usage in services and stores (read values):
//
//	sec, ok := requestcontext.Security(ctx)
//	requestID := requestcontext.RequestID(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "brokergate/pkg/domain"
)

// SecurityContext is the per-request security context: the caller's identity,
// role, home tenant, and the tenant the request is effectively operating on.
//
// Invariants:
//   - Built exactly once per inbound request by the authorization pipeline.
//   - For non-privileged callers ActiveTenant always equals HomeTenant;
//     the resolver rejects any attempt to set it elsewhere.
//   - Read-only after the resolver fills ActiveTenant. Copies are cheap;
//     nothing in this struct is shared across requests.
type SecurityContext struct {
	// CallerID is the authenticated user, zero for anonymous callers.
	CallerID id.UserID
	// Role is the caller's platform role; RoleAnonymous when unauthenticated.
	Role id.Role
	// HomeTenant is the tenant the caller belongs to, zero for anonymous
	// callers and for tenant-less platform operators.
	HomeTenant id.TenantID
	// ActiveTenant is the tenant this request operates on. Zero only for
	// privileged callers on cross-tenant aggregate routes.
	ActiveTenant id.TenantID
}

// Authenticated reports whether the context carries a caller identity.
func (s SecurityContext) Authenticated() bool { return !s.CallerID.IsNil() }

// Privileged reports whether the caller may cross tenant boundaries.
func (s SecurityContext) Privileged() bool { return s.Role.Privileged() }

// CrossTenant reports whether the request operates on a tenant other than the
// caller's own. Only privileged callers can ever be in this state; it is the
// trigger for mandatory audit logging.
func (s SecurityContext) CrossTenant() bool {
	if s.HomeTenant.IsNil() && s.ActiveTenant.IsNil() {
		return false
	}
	return s.ActiveTenant != s.HomeTenant
}

// Context key types (unexported for encapsulation).
type (
	securityKey    struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// WithSecurity injects the security context. Called once per request by the
// authorization pipeline after tenant resolution.
func WithSecurity(ctx context.Context, sec SecurityContext) context.Context {
	return context.WithValue(ctx, securityKey{}, sec)
}

// Security retrieves the request's security context. The second return is
// false when no pipeline ran (background jobs, tests that bypass HTTP).
func Security(ctx context.Context) (SecurityContext, bool) {
	sec, ok := ctx.Value(securityKey{}).(SecurityContext)
	return sec, ok
}

// WithRequestID injects the correlation id assigned by the request-id
// middleware.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID retrieves the correlation id, empty when unset.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithTime pins "now" for the remainder of the request. Tests use this to
// make timestamp assertions deterministic.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// Now returns the pinned request time if set, else the wall clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}
