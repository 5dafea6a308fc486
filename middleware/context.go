package middleware

import (
	"context"

	"github.com/loomhq/tenantgate/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// IdentityKey is the context key for the authenticated identity
	IdentityKey contextKey = "identity"

	// TenantKey is the context key for the tenant context
	TenantKey contextKey = "tenant"
)

// GetRequestIDFromContext retrieves the request ID from context
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetIdentityFromContext retrieves the authenticated identity from
// context. Nil means the request is unauthenticated (public path or
// auth disabled).
func GetIdentityFromContext(ctx context.Context) *models.Identity {
	if val := ctx.Value(IdentityKey); val != nil {
		if identity, ok := val.(*models.Identity); ok {
			return identity
		}
	}
	return nil
}

// WithIdentity adds an authenticated identity to the context
func WithIdentity(ctx context.Context, identity *models.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// GetTenantFromContext retrieves the tenant context. Nil means no
// tenant was resolved for this request; a non-nil value is always
// fully populated.
func GetTenantFromContext(ctx context.Context) *models.TenantContext {
	if val := ctx.Value(TenantKey); val != nil {
		if tc, ok := val.(*models.TenantContext); ok {
			return tc
		}
	}
	return nil
}

// WithTenant adds a tenant context to the context
func WithTenant(ctx context.Context, tc *models.TenantContext) context.Context {
	return context.WithValue(ctx, TenantKey, tc)
}
