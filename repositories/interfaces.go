package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/loomhq/tenantgate/models"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// MembershipRepository handles membership lookups for tenant isolation
type MembershipRepository interface {
	// GetMembership returns whether the user is a member of the
	// organization and their role, in a single query. A missing
	// membership row is (false, "") with a nil error.
	GetMembership(ctx context.Context, userID, orgID uuid.UUID) (bool, models.Role, error)

	// Create inserts a new membership row
	Create(ctx context.Context, membership *models.Membership) error
}

// UserRepository handles user records provisioned from provider identities
type UserRepository interface {
	// GetBySubject returns the user for a provider subject identifier.
	// Returns ErrNotFound when no row exists.
	GetBySubject(ctx context.Context, subject string) (*models.User, error)

	// Create inserts a new user row
	Create(ctx context.Context, user *models.User) error
}

// OrganizationRepository handles organization (tenant) records
type OrganizationRepository interface {
	// GetByID returns the organization with the given id.
	// Returns ErrNotFound when no row exists.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)

	// Create inserts a new organization row
	Create(ctx context.Context, org *models.Organization) error

	// Update persists name and slug changes. Returns ErrNotFound when
	// the organization does not exist.
	Update(ctx context.Context, org *models.Organization) error

	// Delete removes the organization. Memberships cascade at the
	// schema level. Returns ErrNotFound when the organization does not
	// exist.
	Delete(ctx context.Context, id uuid.UUID) error
}
