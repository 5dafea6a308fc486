package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/loomhq/tenantgate/authn"
	"github.com/loomhq/tenantgate/models"
	"github.com/loomhq/tenantgate/utils"
	"go.uber.org/zap"
)

// Identity headers accepted in the header-trust deployment mode, where
// an upstream gateway has already validated authentication
const (
	headerUserID      = "X-User-ID"
	headerEmail       = "X-Email"
	headerSelectedOrg = "X-Selected-Org"
)

// publicPaths bypass both pipeline stages
var publicPaths = map[string]bool{
	"/healthz":      true,
	"/ping":         true,
	"/openapi.json": true,
	"/metrics":      true,
}

// IsPublicPath reports whether the path is on the public allowlist
func IsPublicPath(path string) bool {
	if publicPaths[path] {
		return true
	}
	return path == "/docs" || strings.HasPrefix(path, "/docs/")
}

// AuthMiddleware is the authentication stage of the request pipeline:
// extract bearer token, verify, map claims, attach identity
type AuthMiddleware struct {
	verifier     authn.Verifier
	disabled     bool
	trustHeaders bool
	logger       *zap.Logger
}

// NewAuthMiddleware creates the authentication stage. When disabled is
// true every request passes through unauthenticated; when trustHeaders
// is true identity comes from gateway-supplied headers instead of a
// token.
func NewAuthMiddleware(verifier authn.Verifier, disabled, trustHeaders bool, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier:     verifier,
		disabled:     disabled,
		trustHeaders: trustHeaders,
		logger:       logger,
	}
}

// RequireAuth authenticates the request and attaches the resulting
// identity to the request context. Public paths and disabled auth pass
// through without an identity. Every failure is a 401 with a coarse
// message; provider detail never reaches the client.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		if IsPublicPath(r.URL.Path) || m.disabled {
			next.ServeHTTP(w, r)
			return
		}

		if m.trustHeaders {
			identity, ok := m.identityFromHeaders(w, r)
			if !ok {
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
			return
		}

		token := authn.ExtractBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			m.logger.Warn("missing bearer token",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		claims, err := m.verifier.Verify(ctx, token)
		if err != nil {
			m.logger.Warn("token verification failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Invalid or expired token")
			return
		}

		identity, err := authn.MapClaims(m.logger, claims)
		if err != nil {
			m.logger.Warn("claim mapping failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Invalid or expired token")
			return
		}

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("user_id", identity.UserID.String()))

		next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
	})
}

// identityFromHeaders builds an identity from pre-validated gateway
// headers. The upstream validates authentication but not tenant
// membership, so only the org selection is re-validated downstream.
func (m *AuthMiddleware) identityFromHeaders(w http.ResponseWriter, r *http.Request) (*models.Identity, bool) {
	requestID := GetRequestIDFromContext(r.Context())

	userID, err := uuid.Parse(r.Header.Get(headerUserID))
	if err != nil {
		m.logger.Warn("missing or invalid identity header",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
		return nil, false
	}

	email := r.Header.Get(headerEmail)
	if email == "" {
		m.logger.Warn("missing email header",
			zap.String("request_id", requestID))
		_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
		return nil, false
	}

	identity := &models.Identity{
		UserID: userID,
		Email:  email,
	}

	if raw := r.Header.Get(headerSelectedOrg); raw != "" {
		orgID, err := uuid.Parse(raw)
		if err != nil {
			m.logger.Warn("malformed org selection header, treating as absent",
				zap.String("request_id", requestID),
				zap.Error(err))
		} else {
			identity.OrgID = &orgID
		}
	}

	return identity, true
}
