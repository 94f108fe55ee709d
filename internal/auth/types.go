package auth

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of membership roles, persisted as short text.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// ParseRole maps stored text onto a Role. An unknown value is a data
// integrity fault and is rejected rather than defaulted.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleMember:
		return RoleMember, nil
	case RoleViewer:
		return RoleViewer, nil
	}
	return "", fmt.Errorf("auth: unknown role %q", s)
}

func (r Role) String() string { return string(r) }

// Org is the tenant boundary. IDs are immutable once assigned.
type Org struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// User is a login identity bound to exactly one org. Email is lower-cased
// before storage and comparison; (OrgID, Email) is unique.
type User struct {
	ID           string
	OrgID        string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Membership assigns a role to a user inside an org. (OrgID, UserID) forms
// the composite identity; a user holds at most one membership.
type Membership struct {
	OrgID     string
	UserID    string
	Role      Role
	CreatedAt time.Time
}

// RefreshToken is a server-side session record. Only the SHA-256 digest of
// the session secret is persisted. Revocation is terminal: RevokedAt is set
// exactly once, together with ReplacedByTokenID when the row was rotated.
// Rows are never physically deleted so reuse stays detectable.
type RefreshToken struct {
	ID                string
	UserID            string
	TokenHash         string
	CreatedAt         time.Time
	ExpiresAt         time.Time
	RevokedAt         *time.Time
	ReplacedByTokenID *string
}

// Active reports whether the token can still be exchanged at the given time.
func (t *RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// Project is a tenant-scoped resource used by the authenticated surface.
type Project struct {
	ID              string
	OrgID           string
	Name            string
	CreatedByUserID string
	CreatedAt       time.Time
}
