package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/loomhq/tenantgate/authn"
	"github.com/loomhq/tenantgate/models"
)

// MockVerifier is a mock implementation of authn.Verifier
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, token string) (authn.Claims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(authn.Claims), args.Error(1)
}

func TestIsPublicPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/healthz", true},
		{"/ping", true},
		{"/openapi.json", true},
		{"/metrics", true},
		{"/docs", true},
		{"/docs/swagger-ui.css", true},
		{"/api/v1/me", false},
		{"/docsomething", false},
		{"/", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPublicPath(tt.path))
		})
	}
}

func TestRequireAuth(t *testing.T) {
	logger := zap.NewNop()
	userID := uuid.New()

	okHandler := func(sawIdentity **models.Identity) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*sawIdentity = GetIdentityFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		})
	}

	t.Run("public path bypasses authentication", func(t *testing.T) {
		verifier := new(MockVerifier)
		m := NewAuthMiddleware(verifier, false, false, logger)

		var identity *models.Identity
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		w := httptest.NewRecorder()
		m.RequireAuth(okHandler(&identity)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, identity)
		verifier.AssertNotCalled(t, "Verify")
	})

	t.Run("disabled auth passes through without identity", func(t *testing.T) {
		verifier := new(MockVerifier)
		m := NewAuthMiddleware(verifier, true, false, logger)

		var identity *models.Identity
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		w := httptest.NewRecorder()
		m.RequireAuth(okHandler(&identity)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, identity)
		verifier.AssertNotCalled(t, "Verify")
	})

	t.Run("missing authorization header returns 401", func(t *testing.T) {
		verifier := new(MockVerifier)
		m := NewAuthMiddleware(verifier, false, false, logger)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		w := httptest.NewRecorder()
		m.RequireAuth(http.NotFoundHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("non-bearer scheme returns 401", func(t *testing.T) {
		verifier := new(MockVerifier)
		m := NewAuthMiddleware(verifier, false, false, logger)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		w := httptest.NewRecorder()
		m.RequireAuth(http.NotFoundHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		verifier.AssertNotCalled(t, "Verify")
	})

	t.Run("verification failure returns 401", func(t *testing.T) {
		verifier := new(MockVerifier)
		verifier.On("Verify", mock.Anything, "bad-token").
			Return(nil, errors.New("signature mismatch"))
		m := NewAuthMiddleware(verifier, false, false, logger)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.Header.Set("Authorization", "Bearer bad-token")
		w := httptest.NewRecorder()
		m.RequireAuth(http.NotFoundHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		// Coarse message only; the provider error stays server-side
		assert.NotContains(t, w.Body.String(), "signature mismatch")
		verifier.AssertExpectations(t)
	})

	t.Run("claims without subject return 401", func(t *testing.T) {
		verifier := new(MockVerifier)
		verifier.On("Verify", mock.Anything, "no-sub").
			Return(authn.Claims{"email": "user@example.com"}, nil)
		m := NewAuthMiddleware(verifier, false, false, logger)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.Header.Set("Authorization", "Bearer no-sub")
		w := httptest.NewRecorder()
		m.RequireAuth(http.NotFoundHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		verifier.AssertExpectations(t)
	})

	t.Run("valid token attaches identity", func(t *testing.T) {
		verifier := new(MockVerifier)
		verifier.On("Verify", mock.Anything, "good-token").
			Return(authn.Claims{
				"sub":   userID.String(),
				"email": "user@example.com",
			}, nil)
		m := NewAuthMiddleware(verifier, false, false, logger)

		var identity *models.Identity
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		w := httptest.NewRecorder()
		m.RequireAuth(okHandler(&identity)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, identity)
		assert.Equal(t, userID, identity.UserID)
		assert.Equal(t, "user@example.com", identity.Email)
		assert.Nil(t, identity.OrgID)
		verifier.AssertExpectations(t)
	})

	t.Run("org claim carries into identity", func(t *testing.T) {
		orgID := uuid.New()
		verifier := new(MockVerifier)
		verifier.On("Verify", mock.Anything, "org-token").
			Return(authn.Claims{
				"sub":    userID.String(),
				"email":  "user@example.com",
				"org_id": orgID.String(),
			}, nil)
		m := NewAuthMiddleware(verifier, false, false, logger)

		var identity *models.Identity
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.Header.Set("Authorization", "Bearer org-token")
		w := httptest.NewRecorder()
		m.RequireAuth(okHandler(&identity)).ServeHTTP(w, req)

		require.NotNil(t, identity)
		require.NotNil(t, identity.OrgID)
		assert.Equal(t, orgID, *identity.OrgID)
	})
}

func TestRequireAuthTrustHeaders(t *testing.T) {
	logger := zap.NewNop()
	userID := uuid.New()

	newMiddleware := func() *AuthMiddleware {
		return NewAuthMiddleware(new(MockVerifier), false, true, logger)
	}

	capture := func(sawIdentity **models.Identity) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*sawIdentity = GetIdentityFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		})
	}

	t.Run("valid headers attach identity", func(t *testing.T) {
		orgID := uuid.New()
		var identity *models.Identity

		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.Header.Set("X-User-ID", userID.String())
		req.Header.Set("X-Email", "user@example.com")
		req.Header.Set("X-Selected-Org", orgID.String())
		w := httptest.NewRecorder()
		newMiddleware().RequireAuth(capture(&identity)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, identity)
		assert.Equal(t, userID, identity.UserID)
		require.NotNil(t, identity.OrgID)
		assert.Equal(t, orgID, *identity.OrgID)
	})

	t.Run("missing user id header returns 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.Header.Set("X-Email", "user@example.com")
		w := httptest.NewRecorder()
		newMiddleware().RequireAuth(http.NotFoundHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing email header returns 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.Header.Set("X-User-ID", userID.String())
		w := httptest.NewRecorder()
		newMiddleware().RequireAuth(http.NotFoundHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed org header is treated as absent", func(t *testing.T) {
		var identity *models.Identity

		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.Header.Set("X-User-ID", userID.String())
		req.Header.Set("X-Email", "user@example.com")
		req.Header.Set("X-Selected-Org", "not-a-uuid")
		w := httptest.NewRecorder()
		newMiddleware().RequireAuth(capture(&identity)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, identity)
		assert.Nil(t, identity.OrgID)
	})
}
