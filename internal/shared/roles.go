package shared

// Role is the coarse capability held by an authenticated principal.
type Role string

const (
	RoleAdmin          Role = "Admin"
	RoleAccountManager Role = "AccountManager"
	RoleHOF            Role = "HOF"
)

// ApproverRoles lists every role allowed to act on approval workflows.
func ApproverRoles() []Role {
	return []Role{RoleAdmin, RoleAccountManager, RoleHOF}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAccountManager, RoleHOF:
		return true
	}
	return false
}

// Allowed reports whether role is one of required. An empty required set
// allows nothing.
func Allowed(role Role, required ...Role) bool {
	for _, candidate := range required {
		if candidate == role {
			return true
		}
	}
	return false
}
