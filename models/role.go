package models

import "fmt"

// Role represents a user's role within an organization
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// roleRanks defines the strict total order owner > admin > member
var roleRanks = map[Role]int{
	RoleOwner:  3,
	RoleAdmin:  2,
	RoleMember: 1,
}

// ParseRole converts a string to a Role, rejecting unknown values
func ParseRole(s string) (Role, error) {
	role := Role(s)
	if _, ok := roleRanks[role]; !ok {
		return "", fmt.Errorf("unknown role: %q", s)
	}
	return role, nil
}

// Rank returns the numeric rank of the role (0 for unknown roles)
func (r Role) Rank() int {
	return roleRanks[r]
}

// Valid returns true if the role is one of the known roles
func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

// Satisfies returns true if the role meets or exceeds the required role.
// Unknown roles never satisfy anything.
func (r Role) Satisfies(required Role) bool {
	actualRank, ok := roleRanks[r]
	if !ok {
		return false
	}
	requiredRank, ok := roleRanks[required]
	if !ok {
		return false
	}
	return actualRank >= requiredRank
}
