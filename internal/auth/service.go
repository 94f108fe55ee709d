package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/yikev/saas-skeleton/internal/ids"
)

const defaultRefreshTTL = 14 * 24 * time.Hour

// Principal is the authenticated identity materialized from access-token
// claims. Role reflects the membership at issuance time; role changes take
// effect on the next token, not mid-lifetime.
type Principal struct {
	UserID string
	OrgID  string
	Email  string
	Role   Role
}

// Session is the result of a successful login or refresh. RefreshSecret is
// the only place the plaintext secret ever appears; it goes straight into the
// session cookie.
type Session struct {
	AccessToken      string
	ExpiresIn        int
	RefreshSecret    string
	RefreshExpiresAt time.Time
	Principal        Principal
}

// Service is the session rotation engine: it drives the login, refresh and
// logout transitions of refresh-token lineages and validates access tokens.
// Every operation takes its store handle explicitly; the only shared state is
// the store itself and the read-only issuer configuration.
type Service struct {
	store      Store
	issuer     *Issuer
	refreshTTL time.Duration
	now        func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithRefreshTTL overrides the refresh session lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the rotation engine over a Store and an Issuer.
func NewService(store Store, issuer *Issuer, opts ...ServiceOption) *Service {
	svc := &Service{
		store:      store,
		issuer:     issuer,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Login verifies email+password, mints a fresh refresh session and issues an
// access token. Unknown email, wrong password and missing membership all
// collapse to ErrInvalidCredentials; no row is written on any of them.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}
	user, err := s.store.Users(ctx).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	membership, err := s.store.Memberships(ctx).FindByUser(ctx, user.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}

	now := s.now().UTC()
	secret, rec, err := s.newRefreshToken(user.ID, now)
	if err != nil {
		return Session{}, err
	}
	if err := s.store.RefreshTokens(ctx).Create(ctx, rec); err != nil {
		return Session{}, err
	}
	return s.session(user, membership, secret, rec)
}

// Refresh exchanges an active refresh secret for a successor session. The
// matched row is revoked and the successor inserted in one conditional store
// mutation, so two concurrent calls presenting the same secret produce at
// most one successor; the loser gets ErrInvalidSession, indistinguishable
// from an unknown secret.
func (s *Service) Refresh(ctx context.Context, secret string) (Session, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return Session{}, ErrInvalidSession
	}
	tokens := s.store.RefreshTokens(ctx)
	rec, err := tokens.FindByHash(ctx, HashSecret(secret))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidSession
		}
		return Session{}, err
	}
	now := s.now().UTC()
	if rec.RevokedAt != nil {
		// The secret matched a rotated-out row: replay.
		return Session{}, ErrSessionReplayed
	}
	if !now.Before(rec.ExpiresAt) {
		return Session{}, ErrInvalidSession
	}

	user, err := s.store.Users(ctx).Find(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidSession
		}
		return Session{}, err
	}
	membership, err := s.store.Memberships(ctx).FindByUser(ctx, user.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidSession
		}
		return Session{}, err
	}

	newSecret, successor, err := s.newRefreshToken(user.ID, now)
	if err != nil {
		return Session{}, err
	}
	if err := tokens.Rotate(ctx, rec.ID, now, successor); err != nil {
		return Session{}, err
	}
	return s.session(user, membership, newSecret, successor)
}

// Logout revokes the session matching the presented secret. A missing,
// unknown, expired or already-revoked secret is treated as already logged
// out: idempotent success.
func (s *Service) Logout(ctx context.Context, secret string) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil
	}
	tokens := s.store.RefreshTokens(ctx)
	rec, err := tokens.FindByHash(ctx, HashSecret(secret))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if !rec.Active(s.now().UTC()) {
		return nil
	}
	if err := tokens.Revoke(ctx, rec.ID, s.now().UTC()); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// Authenticate validates a bearer access token and materializes the principal
// from its claims alone, without a store round-trip.
func (s *Service) Authenticate(token string) (Principal, error) {
	claims, err := s.issuer.Verify(token)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	role, err := ParseRole(claims.Role)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	return Principal{
		UserID: claims.Subject,
		OrgID:  claims.OrgID,
		Email:  claims.Email,
		Role:   role,
	}, nil
}

func (s *Service) session(user *User, m *Membership, secret string, rec *RefreshToken) (Session, error) {
	token, expiresIn, err := s.issuer.Issue(user, m)
	if err != nil {
		return Session{}, err
	}
	return Session{
		AccessToken:      token,
		ExpiresIn:        expiresIn,
		RefreshSecret:    secret,
		RefreshExpiresAt: rec.ExpiresAt,
		Principal: Principal{
			UserID: user.ID,
			OrgID:  m.OrgID,
			Email:  user.Email,
			Role:   m.Role,
		},
	}, nil
}

func (s *Service) newRefreshToken(userID string, now time.Time) (string, *RefreshToken, error) {
	secret, err := NewSecret()
	if err != nil {
		return "", nil, err
	}
	rec := &RefreshToken{
		ID:        ids.New(),
		UserID:    userID,
		TokenHash: HashSecret(secret),
		CreatedAt: now,
		ExpiresAt: now.Add(s.refreshTTL),
	}
	return secret, rec, nil
}

// SeedAdminResult reports what SeedAdmin created or found.
type SeedAdminResult struct {
	OrgID          string
	UserID         string
	Email          string
	Role           Role
	AlreadyExisted bool
}

// SeedAdmin provisions a tenant with a single admin user. Backs the dev-only
// seeding endpoint; an existing email is reported back instead of an error.
func (s *Service) SeedAdmin(ctx context.Context, orgName, email, password string) (SeedAdminResult, error) {
	orgName = strings.TrimSpace(orgName)
	email = strings.TrimSpace(strings.ToLower(email))
	if orgName == "" || email == "" || password == "" {
		return SeedAdminResult{}, ErrInvalidInput
	}

	users := s.store.Users(ctx)
	existing, err := users.FindByEmail(ctx, email)
	if err == nil {
		m, err := s.store.Memberships(ctx).FindByUser(ctx, existing.ID)
		if err != nil {
			return SeedAdminResult{}, err
		}
		return SeedAdminResult{
			OrgID:          existing.OrgID,
			UserID:         existing.ID,
			Email:          existing.Email,
			Role:           m.Role,
			AlreadyExisted: true,
		}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return SeedAdminResult{}, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return SeedAdminResult{}, err
	}
	now := s.now().UTC()
	org := &Org{ID: ids.New(), Name: orgName, CreatedAt: now}
	if err := s.store.Orgs(ctx).Create(ctx, org); err != nil {
		return SeedAdminResult{}, err
	}
	user := &User{ID: ids.New(), OrgID: org.ID, Email: email, PasswordHash: hash, CreatedAt: now}
	if err := users.Create(ctx, user); err != nil {
		return SeedAdminResult{}, err
	}
	m := &Membership{OrgID: org.ID, UserID: user.ID, Role: RoleAdmin, CreatedAt: now}
	if err := s.store.Memberships(ctx).Create(ctx, m); err != nil {
		return SeedAdminResult{}, err
	}
	return SeedAdminResult{
		OrgID:  org.ID,
		UserID: user.ID,
		Email:  user.Email,
		Role:   RoleAdmin,
	}, nil
}

// CreateProject adds a project inside the principal's org. Viewers cannot
// create projects.
func (s *Service) CreateProject(ctx context.Context, p Principal, name string) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidInput
	}
	if p.Role == RoleViewer {
		return nil, ErrForbidden
	}
	proj := &Project{
		ID:              ids.New(),
		OrgID:           p.OrgID,
		Name:            name,
		CreatedByUserID: p.UserID,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.store.Projects(ctx).Create(ctx, proj); err != nil {
		return nil, err
	}
	return proj, nil
}

// ListProjects returns the projects of the principal's org.
func (s *Service) ListProjects(ctx context.Context, p Principal) ([]*Project, error) {
	return s.store.Projects(ctx).ListByOrg(ctx, p.OrgID)
}
