package authn

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// introspectionVerifier validates tokens by POSTing them to the
// provider's introspection endpoint (RFC 7662 shape). A non-200
// response, an unparsable body, or active=false all mean the token is
// invalid. Network failures degrade to invalid rather than surfacing
// as server errors.
type introspectionVerifier struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

func newIntrospectionVerifier(endpoint string, timeout time.Duration, logger *zap.Logger) *introspectionVerifier {
	return &introspectionVerifier{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (v *introspectionVerifier) Verify(ctx context.Context, token string) (Claims, error) {
	form := url.Values{}
	form.Set("token", token)
	form.Set("token_type_hint", "access_token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		v.logger.Warn("introspection request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: introspection unreachable", ErrInvalidToken)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		v.logger.Warn("introspection returned non-200",
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: introspection status %d", ErrInvalidToken, resp.StatusCode)
	}

	var claims Claims
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, fmt.Errorf("%w: failed to decode introspection response: %v", ErrInvalidToken, err)
	}

	if active, ok := claims["active"].(bool); !ok || !active {
		return nil, fmt.Errorf("%w: token is not active", ErrInvalidToken)
	}

	return claims, nil
}
