package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/loomhq/tenantgate/models"
	"github.com/loomhq/tenantgate/repositories"
	"go.uber.org/zap"
)

// UserRepository implements repositories.UserRepository
type UserRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB, logger *zap.Logger) repositories.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// GetBySubject returns the user for a provider subject identifier
func (r *UserRepository) GetBySubject(ctx context.Context, subject string) (*models.User, error) {
	query := `
		SELECT id, email, subject, created_at, updated_at
		FROM users
		WHERE subject = $1
	`

	executor := GetExecutor(ctx, r.db)

	var user models.User
	err := executor.QueryRowContext(ctx, query, subject).Scan(
		&user.ID,
		&user.Email,
		&user.Subject,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// Create inserts a new user row
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, subject, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Subject,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.logger.Debug("user created",
		zap.String("user_id", user.ID.String()))
	return nil
}
