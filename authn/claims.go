package authn

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/loomhq/tenantgate/models"
	"go.uber.org/zap"
)

// Claims is the raw key/value set returned by a provider: either the
// decoded JWT payload or the JSON body of an introspection/userinfo
// response. It is never persisted past the request.
type Claims map[string]interface{}

// Claim names recognized by the mapper
const (
	claimSubject           = "sub"
	claimEmail             = "email"
	claimPreferredUsername = "preferred_username"
	claimOrgID             = "org_id"
	claimOrganizationID    = "organization_id"
)

var (
	// ErrMissingSubject is returned when the subject claim is absent or not a UUID
	ErrMissingSubject = errors.New("missing or invalid subject claim")

	// ErrMissingEmail is returned when neither email nor preferred_username yields a value
	ErrMissingEmail = errors.New("missing email claim")
)

// String returns the named claim as a string, or "" when absent or not a string
func (c Claims) String(name string) string {
	if v, ok := c[name].(string); ok {
		return v
	}
	return ""
}

// MapClaims converts a raw claim set into a canonical Identity.
//
// The subject claim must be present and parse as a UUID. Email falls back
// to preferred_username; an empty string counts as absent. A present but
// malformed organization claim is logged and treated as absent rather than
// failing the identity, since the request may still carry the org id in
// its path or query.
func MapClaims(logger *zap.Logger, claims Claims) (*models.Identity, error) {
	sub := claims.String(claimSubject)
	if sub == "" {
		return nil, ErrMissingSubject
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingSubject, err)
	}

	email := claims.String(claimEmail)
	if email == "" {
		email = claims.String(claimPreferredUsername)
	}
	if email == "" {
		return nil, ErrMissingEmail
	}

	identity := &models.Identity{
		UserID: userID,
		Email:  email,
	}

	for _, name := range []string{claimOrgID, claimOrganizationID} {
		raw := claims.String(name)
		if raw == "" {
			continue
		}
		orgID, err := uuid.Parse(raw)
		if err != nil {
			logger.Warn("malformed organization claim, treating as absent",
				zap.String("claim", name),
				zap.Error(err))
			continue
		}
		identity.OrgID = &orgID
		break
	}

	return identity, nil
}
