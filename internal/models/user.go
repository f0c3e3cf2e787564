package models

// UserRole represents the roles carried in access tokens.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleManager    UserRole = "MANAGER"
	RoleStaff      UserRole = "STAFF"
)

// IsAdmin reports whether the role may act on other users' content.
func (r UserRole) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
