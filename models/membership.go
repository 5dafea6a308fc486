package models

import (
	"time"

	"github.com/google/uuid"
)

// Membership represents the fact that a user belongs to an organization
// with a specific role. It is the unit of tenant isolation: a request is
// only granted a TenantContext when a membership row exists.
type Membership struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	OrgID     uuid.UUID `json:"org_id" db:"org_id"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Membership model
func (Membership) TableName() string {
	return "memberships"
}

// NewMembership creates a new Membership instance
func NewMembership(userID, orgID uuid.UUID, role Role) *Membership {
	now := time.Now()
	return &Membership{
		ID:        uuid.New(),
		UserID:    userID,
		OrgID:     orgID,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
