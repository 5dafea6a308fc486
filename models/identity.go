package models

import "github.com/google/uuid"

// Identity is the canonical caller identity built once per request from
// verified token claims. OrgID is nil when the token carried no
// organization claim; tenant resolution then falls back to the request.
type Identity struct {
	UserID uuid.UUID
	Email  string
	OrgID  *uuid.UUID
}

// TenantContext is attached to a request after successful membership
// validation. All fields are always populated; absence of the object,
// not zero fields, signals "no tenant context".
type TenantContext struct {
	OrgID  uuid.UUID
	UserID uuid.UUID
	Role   Role
}
