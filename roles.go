package vitalband

// UserRole is the principal's role claim. It gates navigation only; the
// server remains the authority for every operation.
type UserRole string

const (
	// RoleAdmin can reach the administrator views and provisioning.
	RoleAdmin UserRole = "admin"
	// RoleClient is an end user wearing a device.
	RoleClient UserRole = "client"
)

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleClient:
		return true
	default:
		return false
	}
}

// In reports whether the role is a member of the allowed set.
func (r UserRole) In(allowed ...UserRole) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}

// GetAllRoles returns all predefined roles.
func GetAllRoles() []UserRole {
	return []UserRole{RoleAdmin, RoleClient}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, role.IsValid()
}
