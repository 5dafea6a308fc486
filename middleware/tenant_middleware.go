package middleware

import (
	"errors"
	"net/http"

	"github.com/loomhq/tenantgate/models"
	"github.com/loomhq/tenantgate/tenant"
	"github.com/loomhq/tenantgate/utils"
	"go.uber.org/zap"
)

// TenantMiddleware is the tenant-isolation stage of the request
// pipeline: resolve the organization, validate membership, attach the
// tenant context. It can only be constructed with a reference to the
// authentication stage, which makes the auth-before-tenant ordering
// dependency explicit instead of an unchecked registration convention.
type TenantMiddleware struct {
	auth        *AuthMiddleware
	resolver    *tenant.Resolver
	memberships *tenant.MembershipValidator
	enforce     bool
	logger      *zap.Logger
}

// NewTenantMiddleware creates the tenant-isolation stage. The auth
// stage it depends on must be registered before it on every route.
func NewTenantMiddleware(auth *AuthMiddleware, resolver *tenant.Resolver, memberships *tenant.MembershipValidator, enforce bool, logger *zap.Logger) *TenantMiddleware {
	return &TenantMiddleware{
		auth:        auth,
		resolver:    resolver,
		memberships: memberships,
		enforce:     enforce,
		logger:      logger,
	}
}

// RequireTenant resolves the request's organization, confirms the
// caller's membership and attaches a fully populated TenantContext.
// Skipped (not an error) for public paths and when enforcement is off.
// Fails closed everywhere else: malformed ids are 400, a missing
// organization context or a non-member caller is 403.
func (m *TenantMiddleware) RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		if IsPublicPath(r.URL.Path) || !m.enforce {
			next.ServeHTTP(w, r)
			return
		}

		identity := GetIdentityFromContext(ctx)
		if identity == nil {
			// The auth stage must have run first; an unauthenticated
			// request cannot be tenant-isolated
			m.logger.Error("identity not found in context",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}

		orgID, err := m.resolver.Resolve(identity, r)
		if err != nil {
			switch {
			case errors.Is(err, tenant.ErrMalformedOrgID):
				_ = utils.WriteBadRequest(w, "Invalid organization ID", nil)
			case errors.Is(err, tenant.ErrNoTenant):
				_ = utils.WriteForbidden(w, "No organization context")
			default:
				m.logger.Error("tenant resolution failed",
					zap.String("request_id", requestID),
					zap.Error(err))
				_ = utils.WriteInternalServerError(w, "")
			}
			return
		}

		isMember, role, err := m.memberships.Validate(ctx, identity.UserID, orgID)
		if err != nil {
			m.logger.Error("membership lookup failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteInternalServerError(w, "")
			return
		}
		if !isMember {
			m.logger.Warn("caller is not a member of the organization",
				zap.String("request_id", requestID),
				zap.String("user_id", identity.UserID.String()),
				zap.String("org_id", orgID.String()))
			_ = utils.WriteForbidden(w, "Not a member of this organization")
			return
		}

		tc := &models.TenantContext{
			OrgID:  orgID,
			UserID: identity.UserID,
			Role:   role,
		}

		m.logger.Debug("tenant context attached",
			zap.String("request_id", requestID),
			zap.String("org_id", orgID.String()),
			zap.String("role", string(role)))

		next.ServeHTTP(w, r.WithContext(WithTenant(ctx, tc)))
	})
}

// RequireRole guards an endpoint with a minimum role. It reads the
// already-attached tenant context and compares ranks; it never
// re-queries membership.
func (m *TenantMiddleware) RequireRole(required models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			tc := GetTenantFromContext(ctx)
			if tc == nil {
				// Pipeline misconfiguration: a role guard on a route
				// without the tenant stage
				m.logger.Error("tenant context not found for role check",
					zap.String("request_id", requestID),
					zap.String("required_role", string(required)))
				_ = utils.WriteInternalServerError(w, "")
				return
			}

			if !tc.Role.Satisfies(required) {
				m.logger.Warn("insufficient role",
					zap.String("request_id", requestID),
					zap.String("required_role", string(required)),
					zap.String("actual_role", string(tc.Role)))
				_ = utils.WriteForbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
