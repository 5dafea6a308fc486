package tenant

import (
	"context"

	"github.com/google/uuid"
	"github.com/loomhq/tenantgate/models"
	"github.com/loomhq/tenantgate/repositories"
	"go.uber.org/zap"
)

// MembershipValidator confirms that a user belongs to an organization
// and returns their role, in a single lookup
type MembershipValidator struct {
	memberships repositories.MembershipRepository
	logger      *zap.Logger
}

// NewMembershipValidator creates a new membership validator
func NewMembershipValidator(memberships repositories.MembershipRepository, logger *zap.Logger) *MembershipValidator {
	return &MembershipValidator{
		memberships: memberships,
		logger:      logger,
	}
}

// Validate returns whether the user is a member of the organization and,
// if so, their role. A missing membership row is (false, "") with no
// error; errors are reserved for lookup failures.
func (v *MembershipValidator) Validate(ctx context.Context, userID, orgID uuid.UUID) (bool, models.Role, error) {
	isMember, role, err := v.memberships.GetMembership(ctx, userID, orgID)
	if err != nil {
		return false, "", err
	}

	if !isMember {
		v.logger.Debug("membership not found",
			zap.String("user_id", userID.String()),
			zap.String("org_id", orgID.String()))
		return false, "", nil
	}

	return true, role, nil
}
