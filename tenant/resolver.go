package tenant

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/loomhq/tenantgate/models"
	"go.uber.org/zap"
)

var (
	// ErrMalformedOrgID is returned when a path or query parameter holds
	// a value that is not a UUID. Malformed input fails closed instead of
	// falling through to the next source.
	ErrMalformedOrgID = errors.New("malformed organization id")

	// ErrNoTenant is returned when no source yields an organization id
	ErrNoTenant = errors.New("no organization context")

	// ErrNotMember is returned when the caller has no membership in the
	// resolved organization
	ErrNotMember = errors.New("not a member of the organization")
)

// orgIDParam is the path and query parameter name carrying the org id
const orgIDParam = "org_id"

// Resolver determines which organization a request belongs to
type Resolver struct {
	logger *zap.Logger
}

// NewResolver creates a new tenant resolver
func NewResolver(logger *zap.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// Resolve returns the candidate organization id for a request.
//
// Priority order, first match wins: the verified JWT organization claim,
// then the org_id path parameter, then the org_id query parameter. A
// present but malformed path or query value is an error immediately; it
// never falls through to a later source. When no source yields a value
// the result is ErrNoTenant, never a global default.
func (r *Resolver) Resolve(identity *models.Identity, req *http.Request) (uuid.UUID, error) {
	if identity != nil && identity.OrgID != nil {
		return *identity.OrgID, nil
	}

	if raw := chi.URLParam(req, orgIDParam); raw != "" {
		orgID, err := uuid.Parse(raw)
		if err != nil {
			r.logger.Warn("malformed org_id path parameter", zap.Error(err))
			return uuid.Nil, fmt.Errorf("%w: path parameter", ErrMalformedOrgID)
		}
		return orgID, nil
	}

	if raw := req.URL.Query().Get(orgIDParam); raw != "" {
		orgID, err := uuid.Parse(raw)
		if err != nil {
			r.logger.Warn("malformed org_id query parameter", zap.Error(err))
			return uuid.Nil, fmt.Errorf("%w: query parameter", ErrMalformedOrgID)
		}
		return orgID, nil
	}

	return uuid.Nil, ErrNoTenant
}
