package authn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestUserinfoVerifier(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()
	userID := uuid.New()

	t.Run("accepted token returns userinfo claims", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "Bearer the-token", r.Header.Get("Authorization"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"sub":"` + userID.String() + `","email":"user@example.com"}`))
		}))
		defer server.Close()

		v := newUserinfoVerifier(server.URL, time.Second, logger)
		claims, err := v.Verify(ctx, "the-token")
		require.NoError(t, err)
		assert.Equal(t, userID.String(), claims.String("sub"))
		assert.Equal(t, "user@example.com", claims.String("email"))
	})

	t.Run("401 response is invalid", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		v := newUserinfoVerifier(server.URL, time.Second, logger)
		_, err := v.Verify(ctx, "the-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unparsable body is invalid", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}))
		defer server.Close()

		v := newUserinfoVerifier(server.URL, time.Second, logger)
		_, err := v.Verify(ctx, "the-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unreachable endpoint degrades to invalid", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		v := newUserinfoVerifier(server.URL, time.Second, logger)
		_, err := v.Verify(ctx, "the-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
