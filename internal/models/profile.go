package models

import "time"

// Role is the single role attached to a profile.
type Role string

const (
	RoleStudent    Role = "student"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// IsStaff reports whether r may enter the admin area.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Profile is the principal row. Profiles are never deleted by the application.
type Profile struct {
	ID           string    `db:"id" json:"id"`
	MatricNumber *string   `db:"matric_number" json:"matric_number,omitempty"`
	FullName     string    `db:"full_name" json:"full_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ProfileLookup is the only projection the public lookup endpoint exposes.
type ProfileLookup struct {
	ID    string `db:"id" json:"id"`
	Email string `db:"email" json:"email"`
	Role  Role   `db:"role" json:"role"`
}

// ProfileFilter narrows the admin user listing.
type ProfileFilter struct {
	Role     *Role
	Search   string
	Page     int
	PageSize int
}

// Pagination accompanies list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
