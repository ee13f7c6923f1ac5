package access

import "github.com/studio-ops/studio-erp/internal/domain"

// CanAccess decides whether user may reach path under table. A nil or inactive user never can.
func CanAccess(table *Table, user *domain.StaffRecord, path string) bool {
	if user == nil || !user.IsActive {
		return false
	}
	return table.Lookup(user.Role).Allows(path)
}

// IsRole reports whether user holds one of roles.
func IsRole(user *domain.StaffRecord, roles ...domain.StaffRole) bool {
	if user == nil {
		return false
	}
	for _, r := range roles {
		if user.Role == r {
			return true
		}
	}
	return false
}
