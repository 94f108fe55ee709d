package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Orgs(ctx context.Context) OrgStore
	Users(ctx context.Context) UserStore
	Memberships(ctx context.Context) MembershipStore
	RefreshTokens(ctx context.Context) RefreshTokenStore
	Projects(ctx context.Context) ProjectStore
}

// OrgStore manages tenant records.
type OrgStore interface {
	Create(ctx context.Context, org *Org) error
	Find(ctx context.Context, id string) (*Org, error)
}

// UserStore manages login identities.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// MembershipStore manages role assignments keyed by (org, user).
type MembershipStore interface {
	Create(ctx context.Context, m *Membership) error
	Find(ctx context.Context, orgID, userID string) (*Membership, error)
	FindByUser(ctx context.Context, userID string) (*Membership, error)
}

// RefreshTokenStore manages the refresh session lifecycle. Rows transition
// once, from active to revoked, and are never deleted.
type RefreshTokenStore interface {
	Create(ctx context.Context, tok *RefreshToken) error
	FindByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)

	// Rotate revokes the predecessor row and persists its successor as one
	// atomic step. The revocation is conditional on the row still being
	// unrevoked: when two rotations race, exactly one succeeds and the other
	// returns ErrSessionReplayed with nothing written.
	Rotate(ctx context.Context, oldID string, now time.Time, successor *RefreshToken) error

	// Revoke terminates a session without a successor. Returns ErrNotFound
	// when the row is unknown or already revoked.
	Revoke(ctx context.Context, id string, now time.Time) error
}

// ProjectStore manages tenant-scoped project records.
type ProjectStore interface {
	Create(ctx context.Context, p *Project) error
	ListByOrg(ctx context.Context, orgID string) ([]*Project, error)
}
