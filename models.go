package authclient

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the user's role in the facilities console
type Role = string

const (
	// RoleAdmin has full access to every view
	RoleAdmin Role = "admin"
	// RoleManager manages work orders and technicians
	RoleManager Role = "manager"
	// RoleTechnician executes assigned work orders
	RoleTechnician Role = "technician"
	// RoleUser is a regular requester account
	RoleUser Role = "user"
)

// IsValidRole checks if the role is one of the predefined valid roles
func IsValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleManager, RoleTechnician, RoleUser:
		return true
	default:
		return false
	}
}

// RoleLabel returns a display name for the role
func RoleLabel(r Role) string {
	if !IsValidRole(r) {
		return "Unknown"
	}
	return strings.ToUpper(r[:1]) + r[1:]
}

// RoleIn reports whether r belongs to the given set. An empty set means
// no role restriction applies.
func RoleIn(r Role, roles []Role) bool {
	for _, candidate := range roles {
		if candidate == r {
			return true
		}
	}
	return false
}

// User is the account record the server hands back on login and profile
// verification. Fields mirror the API's JSON naming.
type User struct {
	ID         uuid.UUID  `json:"id,omitempty"`
	Email      string     `json:"email,omitempty"`
	FirstName  string     `json:"firstName,omitempty"`
	LastName   string     `json:"lastName,omitempty"`
	Role       Role       `json:"role,omitempty"`
	IsActive   bool       `json:"isActive,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	Department string     `json:"department,omitempty"`
	AvatarURL  string     `json:"avatarUrl,omitempty"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

// FullName joins first and last name, tolerating either being empty.
func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}

// Clone returns a deep-enough copy; callers get their own record so session
// snapshots cannot be mutated behind the machine's back.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	clone := *u
	if u.CreatedAt != nil {
		t := *u.CreatedAt
		clone.CreatedAt = &t
	}
	if u.UpdatedAt != nil {
		t := *u.UpdatedAt
		clone.UpdatedAt = &t
	}
	return &clone
}

// Merge overlays non-zero fields from other onto u. Used when a profile
// update response carries a partial record.
func (u *User) Merge(other *User) {
	if u == nil || other == nil {
		return
	}
	if other.ID != uuid.Nil {
		u.ID = other.ID
	}
	if other.Email != "" {
		u.Email = other.Email
	}
	if other.FirstName != "" {
		u.FirstName = other.FirstName
	}
	if other.LastName != "" {
		u.LastName = other.LastName
	}
	if other.Role != "" {
		u.Role = other.Role
	}
	if other.Phone != "" {
		u.Phone = other.Phone
	}
	if other.Department != "" {
		u.Department = other.Department
	}
	if other.AvatarURL != "" {
		u.AvatarURL = other.AvatarURL
	}
	if other.UpdatedAt != nil {
		u.UpdatedAt = other.UpdatedAt
	}
	u.IsActive = other.IsActive
}
