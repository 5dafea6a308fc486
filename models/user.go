package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user in the system authenticated via an external
// identity provider. Subject is the provider-issued subject identifier.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Subject   string    `json:"subject" db:"subject"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// NewUser creates a new User instance
func NewUser(email, subject string) *User {
	now := time.Now()
	return &User{
		ID:        uuid.New(),
		Email:     email,
		Subject:   subject,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
