package auth

// Role is the account's access class
type Role string

const (
	// RoleUser is a regular user (i.e. read, share own documents)
	RoleUser Role = "user"
	// RoleResearcher is a researcher (i.e. read, annotate, bulk export)
	RoleResearcher Role = "researcher"
	// RoleAdmin is an administrator (i.e. everything, plus account management)
	RoleAdmin Role = "admin"
)

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleResearcher, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsAtLeast checks if this role meets the minimum required level
func (r Role) IsAtLeast(minRole Role) bool {
	currentLevel, ok := roleHierarchy[r]
	if !ok {
		return false
	}

	minLevel, ok := roleHierarchy[minRole]
	if !ok {
		return false
	}

	return currentLevel >= minLevel
}

var roleHierarchy = map[Role]int{
	RoleUser:       0,
	RoleResearcher: 1,
	RoleAdmin:      2,
}

// AllRoles returns the predefined roles in hierarchical order
func AllRoles() []Role {
	return []Role{RoleUser, RoleResearcher, RoleAdmin}
}

// ParseRole safely parses a string into a Role
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, role.IsValid()
}
