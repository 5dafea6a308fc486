package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/loomhq/tenantgate/models"
	"github.com/loomhq/tenantgate/repositories"
	"go.uber.org/zap"
)

// MembershipRepository implements repositories.MembershipRepository
type MembershipRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *DB, logger *zap.Logger) repositories.MembershipRepository {
	return &MembershipRepository{
		db:     db,
		logger: logger,
	}
}

// GetMembership returns whether the user belongs to the organization and
// their role, in one round trip. The executor comes from the request
// context when a transaction is in flight, so the lookup reuses the
// caller's session instead of checking out a second pooled connection.
func (r *MembershipRepository) GetMembership(ctx context.Context, userID, orgID uuid.UUID) (bool, models.Role, error) {
	query := `
		SELECT role
		FROM memberships
		WHERE user_id = $1 AND org_id = $2
	`

	executor := GetExecutor(ctx, r.db)

	var roleStr string
	err := executor.QueryRowContext(ctx, query, userID, orgID).Scan(&roleStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, "", nil
		}
		return false, "", fmt.Errorf("failed to look up membership: %w", err)
	}

	role, err := models.ParseRole(roleStr)
	if err != nil {
		return false, "", fmt.Errorf("membership row has invalid role: %w", err)
	}

	r.logger.Debug("membership found",
		zap.String("user_id", userID.String()),
		zap.String("org_id", orgID.String()),
		zap.String("role", string(role)))

	return true, role, nil
}

// Create inserts a new membership row
func (r *MembershipRepository) Create(ctx context.Context, membership *models.Membership) error {
	query := `
		INSERT INTO memberships (id, user_id, org_id, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		membership.ID,
		membership.UserID,
		membership.OrgID,
		membership.Role,
		membership.CreatedAt,
		membership.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create membership: %w", err)
	}

	r.logger.Debug("membership created",
		zap.String("user_id", membership.UserID.String()),
		zap.String("org_id", membership.OrgID.String()))
	return nil
}
