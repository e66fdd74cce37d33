package auth

import "time"

// Role enumerates principal roles.
type Role string

const (
	// RoleClient is a company account filing return requests.
	RoleClient Role = "client"
	// RoleAdmin processes return requests and manages master data.
	RoleAdmin Role = "admin"
	// RoleSupervisor has the same rights as RoleAdmin.
	RoleSupervisor Role = "supervisor"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleClient, RoleAdmin, RoleSupervisor:
		return true
	default:
		return false
	}
}

// IsAdministrative reports whether r satisfies administrator checks.
func (r Role) IsAdministrative() bool {
	return r == RoleAdmin || r == RoleSupervisor
}

// User represents an authenticated user account.
type User struct {
	ID           int64
	Login        string
	PasswordHash string
	Role         Role
	CompanyTaxID string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal is the verified identity attached to a request.
type Principal struct {
	UserID       int64  `json:"user_id"`
	CompanyTaxID string `json:"company_tax_id,omitempty"`
	Role         Role   `json:"role"`
	TokenID      string `json:"-"`
}

// IsAdministrative reports whether the principal acts as administrator.
func (p Principal) IsAdministrative() bool {
	return p.Role.IsAdministrative()
}

// IsClient reports whether the principal is a company account.
func (p Principal) IsClient() bool {
	return p.Role == RoleClient
}
