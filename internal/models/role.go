package models

// UserRole is the role claim carried by bearer tokens.
type UserRole string

const (
	// RoleSuperAdmin passes every role check.
	RoleSuperAdmin UserRole = "SUPERADMIN"
	// RoleAdmin may edit the schedule, the catalog and run the generator.
	RoleAdmin UserRole = "ADMIN"
	// RoleViewer is read-only.
	RoleViewer UserRole = "VIEWER"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleViewer:
		return true
	}
	return false
}

// Pagination describes one page of a list response.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
