package authn

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// userinfoVerifier validates tokens by presenting them as a bearer
// credential to the provider's userinfo endpoint. Any non-200 response
// means the token is invalid; the 200 body is the claim set.
type userinfoVerifier struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

func newUserinfoVerifier(endpoint string, timeout time.Duration, logger *zap.Logger) *userinfoVerifier {
	return &userinfoVerifier{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (v *userinfoVerifier) Verify(ctx context.Context, token string) (Claims, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		v.logger.Warn("userinfo request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: userinfo unreachable", ErrInvalidToken)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		v.logger.Warn("userinfo returned non-200",
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: userinfo status %d", ErrInvalidToken, resp.StatusCode)
	}

	var claims Claims
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, fmt.Errorf("%w: failed to decode userinfo response: %v", ErrInvalidToken, err)
	}

	return claims, nil
}
