package domain

import "time"

// OrgRole represents a user's role within an organization.
type OrgRole string

// Organization roles.
const (
	OrgRoleAdmin  OrgRole = "admin"
	OrgRoleMember OrgRole = "member"
)

// IsValid checks if the role is valid.
func (r OrgRole) IsValid() bool {
	return r == OrgRoleAdmin || r == OrgRoleMember
}

// HasPermission returns true if the role satisfies the minimum required role.
func (r OrgRole) HasPermission(min OrgRole) bool {
	if min == OrgRoleAdmin {
		return r == OrgRoleAdmin
	}
	return r == OrgRoleAdmin || r == OrgRoleMember
}

// Organization is the tenancy boundary. Every service, incident and metric
// belongs to exactly one organization.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrgMember links a user to an organization with a role.
type OrgMember struct {
	OrgID     string    `json:"org_id"`
	UserID    string    `json:"user_id"`
	Role      OrgRole   `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
