package authn

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// jwkFromKey builds the published JWK form of an RSA public key
func jwkFromKey(kid string, key *rsa.PublicKey) JWK {
	return JWK{
		Kid: kid,
		Kty: "RSA",
		Alg: "RS256",
		Use: "sig",
		N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
	}
}

// newJWKSServer serves the given key set and counts fetches
func newJWKSServer(t *testing.T, keySet KeySet, fetchCount *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetchCount.Add(1)
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(keySet))
	}))
}

func TestJWKRSAPublicKey(t *testing.T) {
	key, _ := newTestKey(t)

	t.Run("round trip", func(t *testing.T) {
		parsed, err := jwkFromKey("key-1", &key.PublicKey).RSAPublicKey()
		require.NoError(t, err)
		assert.Zero(t, parsed.N.Cmp(key.N))
		assert.Equal(t, key.E, parsed.E)
	})

	t.Run("invalid modulus encoding", func(t *testing.T) {
		jwk := jwkFromKey("key-1", &key.PublicKey)
		jwk.N = "!!!not-base64url!!!"
		_, err := jwk.RSAPublicKey()
		assert.Error(t, err)
	})

	t.Run("invalid exponent encoding", func(t *testing.T) {
		jwk := jwkFromKey("key-1", &key.PublicKey)
		jwk.E = "!!!not-base64url!!!"
		_, err := jwk.RSAPublicKey()
		assert.Error(t, err)
	})
}

func TestJWKSCache(t *testing.T) {
	ctx := context.Background()
	key, _ := newTestKey(t)
	keySet := KeySet{Keys: []JWK{jwkFromKey("key-1", &key.PublicKey)}}

	t.Run("second call within TTL hits the cache", func(t *testing.T) {
		var fetches atomic.Int64
		server := newJWKSServer(t, keySet, &fetches)
		defer server.Close()

		cache := NewJWKSCache()
		for i := 0; i < 3; i++ {
			got, err := cache.Keys(ctx, server.URL)
			require.NoError(t, err)
			require.Len(t, got.Keys, 1)
		}
		assert.Equal(t, int64(1), fetches.Load())
	})

	t.Run("expired entry is refetched", func(t *testing.T) {
		var fetches atomic.Int64
		server := newJWKSServer(t, keySet, &fetches)
		defer server.Close()

		cache := NewJWKSCache()
		cache.ttl = 10 * time.Millisecond

		_, err := cache.Keys(ctx, server.URL)
		require.NoError(t, err)

		time.Sleep(20 * time.Millisecond)

		_, err = cache.Keys(ctx, server.URL)
		require.NoError(t, err)
		assert.Equal(t, int64(2), fetches.Load())
	})

	t.Run("clear forces the next call to fetch", func(t *testing.T) {
		var fetches atomic.Int64
		server := newJWKSServer(t, keySet, &fetches)
		defer server.Close()

		cache := NewJWKSCache()
		_, err := cache.Keys(ctx, server.URL)
		require.NoError(t, err)

		cache.Clear()

		_, err = cache.Keys(ctx, server.URL)
		require.NoError(t, err)
		assert.Equal(t, int64(2), fetches.Load())
	})

	t.Run("different source url evicts the entry", func(t *testing.T) {
		var fetches atomic.Int64
		server := newJWKSServer(t, keySet, &fetches)
		defer server.Close()

		cache := NewJWKSCache()
		_, err := cache.Keys(ctx, server.URL+"/tenant-a")
		require.NoError(t, err)

		_, err = cache.Keys(ctx, server.URL+"/tenant-b")
		require.NoError(t, err)

		// Back to the first URL: the single-entry cache refetches
		_, err = cache.Keys(ctx, server.URL+"/tenant-a")
		require.NoError(t, err)
		assert.Equal(t, int64(3), fetches.Load())
	})

	t.Run("non-2xx response is a fetch failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		cache := NewJWKSCache()
		_, err := cache.Keys(ctx, server.URL)
		assert.ErrorIs(t, err, ErrJWKSFetchFailed)
	})

	t.Run("failed fetch caches nothing", func(t *testing.T) {
		var fail atomic.Bool
		fail.Store(true)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if fail.Load() {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_ = json.NewEncoder(w).Encode(keySet)
		}))
		defer server.Close()

		cache := NewJWKSCache()
		_, err := cache.Keys(ctx, server.URL)
		require.ErrorIs(t, err, ErrJWKSFetchFailed)

		fail.Store(false)
		got, err := cache.Keys(ctx, server.URL)
		require.NoError(t, err)
		assert.Len(t, got.Keys, 1)
	})
}

func TestJWKSVerifier(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()
	key, _ := newTestKey(t)
	userID := uuid.New()

	signWithKid := func(t *testing.T, kid string) string {
		t.Helper()
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
			"iss":   testIssuer,
			"sub":   userID.String(),
			"email": "user@example.com",
			"exp":   time.Now().Add(time.Hour).Unix(),
		})
		if kid != "" {
			token.Header["kid"] = kid
		}
		signed, err := token.SignedString(key)
		require.NoError(t, err)
		return signed
	}

	newVerifier := func(server *httptest.Server) *jwksVerifier {
		return &jwksVerifier{
			jwksURL:   server.URL,
			cache:     NewJWKSCache(),
			issuer:    testIssuer,
			algorithm: "RS256",
			logger:    logger,
		}
	}

	t.Run("valid token against published key", func(t *testing.T) {
		var fetches atomic.Int64
		server := newJWKSServer(t, KeySet{Keys: []JWK{jwkFromKey("key-1", &key.PublicKey)}}, &fetches)
		defer server.Close()

		v := newVerifier(server)
		claims, err := v.Verify(ctx, signWithKid(t, "key-1"))
		require.NoError(t, err)
		assert.Equal(t, userID.String(), claims.String("sub"))

		// The key set is fetched once and reused
		_, err = v.Verify(ctx, signWithKid(t, "key-1"))
		require.NoError(t, err)
		assert.Equal(t, int64(1), fetches.Load())
	})

	t.Run("missing kid header is invalid", func(t *testing.T) {
		var fetches atomic.Int64
		server := newJWKSServer(t, KeySet{Keys: []JWK{jwkFromKey("key-1", &key.PublicKey)}}, &fetches)
		defer server.Close()

		_, err := newVerifier(server).Verify(ctx, signWithKid(t, ""))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unknown kid is invalid", func(t *testing.T) {
		var fetches atomic.Int64
		server := newJWKSServer(t, KeySet{Keys: []JWK{jwkFromKey("key-1", &key.PublicKey)}}, &fetches)
		defer server.Close()

		_, err := newVerifier(server).Verify(ctx, signWithKid(t, "rotated-away"))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unparsable key is skipped, not fatal", func(t *testing.T) {
		broken := jwkFromKey("key-1", &key.PublicKey)
		broken.N = "!!!not-base64url!!!"
		keySet := KeySet{Keys: []JWK{broken, jwkFromKey("key-1", &key.PublicKey)}}

		var fetches atomic.Int64
		server := newJWKSServer(t, keySet, &fetches)
		defer server.Close()

		claims, err := newVerifier(server).Verify(ctx, signWithKid(t, "key-1"))
		require.NoError(t, err)
		assert.Equal(t, userID.String(), claims.String("sub"))
	})

	t.Run("unreachable jwks endpoint is invalid", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		_, err := newVerifier(server).Verify(ctx, signWithKid(t, "key-1"))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
