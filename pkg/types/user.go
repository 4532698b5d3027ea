package types

import "time"

// UserRole represents the role a member holds inside an organization
type UserRole string

const (
	RoleOwner   UserRole = "owner"
	RoleAdmin   UserRole = "admin"
	RoleBiller  UserRole = "biller"
	RoleViewer  UserRole = "viewer"
	RoleDefault UserRole = RoleViewer
)

// Organization is the tenant boundary. Every business record belongs to exactly one.
type Organization struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Profile links an authenticated identity to an organization
type Profile struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID *string   `json:"organization_id" db:"organization_id"`
	Email          *string   `json:"email" db:"email"`
	FullName       *string   `json:"full_name" db:"full_name"`
	Role           UserRole  `json:"role" db:"role"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// OrgID returns the profile's organization or "" when the user has none
func (p *Profile) OrgID() string {
	if p == nil || p.OrganizationID == nil {
		return ""
	}
	return *p.OrganizationID
}

// UserClaims holds the verified identity extracted from a bearer token
type UserClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
}

// Principal is the verified caller together with its resolved organization.
// OrganizationID is the only tenant key a request may use.
type Principal struct {
	UserID         string   `json:"user_id"`
	Email          string   `json:"email,omitempty"`
	Role           UserRole `json:"role,omitempty"`
	OrganizationID string   `json:"organization_id"`
}
