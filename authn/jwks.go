package authn

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ErrJWKSFetchFailed is returned when the remote key set cannot be
// fetched. It propagates to the caller instead of caching an empty set.
var ErrJWKSFetchFailed = errors.New("failed to fetch JWKS")

// jwksCacheTTL is how long a fetched key set stays valid
const jwksCacheTTL = 3600 * time.Second

// defaultJWKSTimeout bounds the remote JWKS fetch
const defaultJWKSTimeout = 10 * time.Second

// KeySet represents a provider-published JSON Web Key Set
type KeySet struct {
	Keys []JWK `json:"keys"`
}

// JWK represents a single JSON Web Key
type JWK struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// RSAPublicKey converts the JWK's modulus and exponent into an RSA
// public key
func (k JWK) RSAPublicKey() (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}

	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}

	e := 0
	for _, b := range eBytes {
		e = e*256 + int(b)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}

// jwksEntry is the single cached key set. A fetch for a different
// source URL evicts the previous entry.
type jwksEntry struct {
	sourceURL string
	keys      *KeySet
	fetchedAt time.Time
	expiresAt time.Time
}

// JWKSCache is a process-wide TTL cache holding one remote key set.
// One instance is constructed per process and injected into the
// verifier; nothing here is package-global, so tests get isolated
// instances.
//
// The mutex only guards the entry pointer. The read-check-fetch-store
// sequence is deliberately not serialized: two concurrent misses both
// fetch and both store, and the last writer wins. The duplicate fetch
// costs a network round trip but never corrupts the cache, since both
// writes hold equivalent fresh data.
type JWKSCache struct {
	httpClient *http.Client
	ttl        time.Duration

	mu    sync.RWMutex
	entry *jwksEntry
}

// NewJWKSCache creates a JWKS cache with the standard TTL and fetch timeout
func NewJWKSCache() *JWKSCache {
	return &JWKSCache{
		httpClient: &http.Client{Timeout: defaultJWKSTimeout},
		ttl:        jwksCacheTTL,
	}
}

// Keys returns the key set for sourceURL, fetching it when the cached
// entry is missing, expired, or belongs to a different URL
func (c *JWKSCache) Keys(ctx context.Context, sourceURL string) (*KeySet, error) {
	c.mu.RLock()
	entry := c.entry
	c.mu.RUnlock()

	if entry != nil && entry.sourceURL == sourceURL && time.Now().Before(entry.expiresAt) {
		return entry.keys, nil
	}

	keys, err := c.fetch(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	c.mu.Lock()
	c.entry = &jwksEntry{
		sourceURL: sourceURL,
		keys:      keys,
		fetchedAt: now,
		expiresAt: now.Add(c.ttl),
	}
	c.mu.Unlock()

	return keys, nil
}

// Clear unconditionally evicts the cached entry, forcing the next Keys
// call to fetch
func (c *JWKSCache) Clear() {
	c.mu.Lock()
	c.entry = nil
	c.mu.Unlock()
}

func (c *JWKSCache) fetch(ctx context.Context, sourceURL string) (*KeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJWKSFetchFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJWKSFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status code %d", ErrJWKSFetchFailed, resp.StatusCode)
	}

	var keys KeySet
	if err := json.NewDecoder(resp.Body).Decode(&keys); err != nil {
		return nil, fmt.Errorf("%w: failed to decode key set: %v", ErrJWKSFetchFailed, err)
	}

	return &keys, nil
}

// jwksVerifier validates token signatures against the provider's
// published key set, looked up by the kid token header
type jwksVerifier struct {
	jwksURL   string
	cache     *JWKSCache
	issuer    string
	algorithm string
	logger    *zap.Logger
}

func (v *jwksVerifier) Verify(ctx context.Context, tokenString string) (Claims, error) {
	return verifyWithKey(tokenString, v.algorithm, v.issuer, func(token *jwt.Token) (interface{}, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, errors.New("kid header not found")
		}

		keySet, err := v.cache.Keys(ctx, v.jwksURL)
		if err != nil {
			return nil, err
		}

		return v.keyForKid(keySet, kid)
	})
}

// keyForKid scans the key set for a key with the given kid. Keys that
// fail to parse are skipped, not fatal; the scan continues to the next
// candidate.
func (v *jwksVerifier) keyForKid(keySet *KeySet, kid string) (*rsa.PublicKey, error) {
	for i := range keySet.Keys {
		if keySet.Keys[i].Kid != kid {
			continue
		}
		publicKey, err := keySet.Keys[i].RSAPublicKey()
		if err != nil {
			v.logger.Warn("skipping unparsable JWK",
				zap.String("kid", kid),
				zap.Error(err))
			continue
		}
		return publicKey, nil
	}
	return nil, fmt.Errorf("key with kid %s not found in JWKS", kid)
}
