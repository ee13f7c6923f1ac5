package domain

import (
	"fmt"
	"strings"
	"time"
)

// StaffRole enumerates studio staff roles. The set is closed; AllRoles lists every member.
type StaffRole string

const (
	StaffRoleAdmin     StaffRole = "admin"
	StaffRoleMarketer  StaffRole = "marketer"
	StaffRoleSales     StaffRole = "sales"
	StaffRoleArtist    StaffRole = "artist"
	StaffRoleFrontDesk StaffRole = "front_desk"
)

// AllRoles returns every known role in a stable order.
func AllRoles() []StaffRole {
	return []StaffRole{
		StaffRoleAdmin,
		StaffRoleMarketer,
		StaffRoleSales,
		StaffRoleArtist,
		StaffRoleFrontDesk,
	}
}

// Valid reports whether r is a member of the closed role set.
func (r StaffRole) Valid() bool {
	for _, known := range AllRoles() {
		if r == known {
			return true
		}
	}
	return false
}

// ParseStaffRole converts user input into a StaffRole.
func ParseStaffRole(s string) (StaffRole, error) {
	role := StaffRole(strings.ToLower(strings.TrimSpace(s)))
	if !role.Valid() {
		return "", fmt.Errorf("unknown staff role %q", s)
	}
	return role, nil
}

// StaffRecord models a studio staff account.
type StaffRecord struct {
	ID           int64
	Email        string
	StaffName    string
	PasswordHash string
	Role         StaffRole
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeEmail is the canonical form used to join identities to staff records.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
