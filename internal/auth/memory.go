package auth

import (
	"context"
	"sort"
	"sync"
	"time"
)

var _ Store = (*MemStore)(nil)

// MemStore is an in-memory Store used by tests and local development. Its
// Rotate and Revoke hold the store mutex across the check and the write, so
// it exposes the same single-winner semantics as the conditional SQL update.
type MemStore struct {
	mu           sync.Mutex
	orgs         map[string]*Org
	users        map[string]*User
	usersByEmail map[string]string
	memberships  map[string]*Membership // keyed by user id
	tokens       map[string]*RefreshToken
	tokensByHash map[string]string
	projects     map[string]*Project
}

func NewMemStore() *MemStore {
	return &MemStore{
		orgs:         make(map[string]*Org),
		users:        make(map[string]*User),
		usersByEmail: make(map[string]string),
		memberships:  make(map[string]*Membership),
		tokens:       make(map[string]*RefreshToken),
		tokensByHash: make(map[string]string),
		projects:     make(map[string]*Project),
	}
}

func (m *MemStore) Orgs(context.Context) OrgStore                   { return memOrgs{m} }
func (m *MemStore) Users(context.Context) UserStore                 { return memUsers{m} }
func (m *MemStore) Memberships(context.Context) MembershipStore     { return memMemberships{m} }
func (m *MemStore) RefreshTokens(context.Context) RefreshTokenStore { return memTokens{m} }
func (m *MemStore) Projects(context.Context) ProjectStore           { return memProjects{m} }

// TokenCount reports how many refresh token rows exist. Test helper.
func (m *MemStore) TokenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

// Token returns a copy of the refresh token row by id. Test helper.
func (m *MemStore) Token(id string) (RefreshToken, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.tokens[id]
	if !ok {
		return RefreshToken{}, false
	}
	return *tok, true
}

type memOrgs struct{ m *MemStore }

func (s memOrgs) Create(_ context.Context, org *Org) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.orgs[org.ID]; ok {
		return ErrAlreadyExists
	}
	cp := *org
	s.m.orgs[org.ID] = &cp
	return nil
}

func (s memOrgs) Find(_ context.Context, id string) (*Org, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	org, ok := s.m.orgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *org
	return &cp, nil
}

type memUsers struct{ m *MemStore }

func (s memUsers) Create(_ context.Context, u *User) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.users[u.ID]; ok {
		return ErrAlreadyExists
	}
	if _, ok := s.m.usersByEmail[u.Email]; ok {
		return ErrAlreadyExists
	}
	cp := *u
	s.m.users[u.ID] = &cp
	s.m.usersByEmail[u.Email] = u.ID
	return nil
}

func (s memUsers) Find(_ context.Context, id string) (*User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	u, ok := s.m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s memUsers) FindByEmail(_ context.Context, email string) (*User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	id, ok := s.m.usersByEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.m.users[id]
	return &cp, nil
}

type memMemberships struct{ m *MemStore }

func (s memMemberships) Create(_ context.Context, mem *Membership) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.memberships[mem.UserID]; ok {
		return ErrAlreadyExists
	}
	cp := *mem
	s.m.memberships[mem.UserID] = &cp
	return nil
}

func (s memMemberships) Find(_ context.Context, orgID, userID string) (*Membership, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	mem, ok := s.m.memberships[userID]
	if !ok || mem.OrgID != orgID {
		return nil, ErrNotFound
	}
	cp := *mem
	return &cp, nil
}

func (s memMemberships) FindByUser(_ context.Context, userID string) (*Membership, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	mem, ok := s.m.memberships[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *mem
	return &cp, nil
}

type memTokens struct{ m *MemStore }

func (s memTokens) Create(_ context.Context, tok *RefreshToken) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.tokens[tok.ID]; ok {
		return ErrAlreadyExists
	}
	cp := *tok
	s.m.tokens[tok.ID] = &cp
	s.m.tokensByHash[tok.TokenHash] = tok.ID
	return nil
}

func (s memTokens) FindByHash(_ context.Context, tokenHash string) (*RefreshToken, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	id, ok := s.m.tokensByHash[tokenHash]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.m.tokens[id]
	return &cp, nil
}

func (s memTokens) Rotate(_ context.Context, oldID string, now time.Time, successor *RefreshToken) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	old, ok := s.m.tokens[oldID]
	if !ok {
		return ErrNotFound
	}
	if old.RevokedAt != nil {
		return ErrSessionReplayed
	}
	revoked := now
	old.RevokedAt = &revoked
	replaced := successor.ID
	old.ReplacedByTokenID = &replaced
	cp := *successor
	s.m.tokens[successor.ID] = &cp
	s.m.tokensByHash[successor.TokenHash] = successor.ID
	return nil
}

func (s memTokens) Revoke(_ context.Context, id string, now time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	tok, ok := s.m.tokens[id]
	if !ok || tok.RevokedAt != nil {
		return ErrNotFound
	}
	revoked := now
	tok.RevokedAt = &revoked
	return nil
}

type memProjects struct{ m *MemStore }

func (s memProjects) Create(_ context.Context, p *Project) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.projects[p.ID]; ok {
		return ErrAlreadyExists
	}
	cp := *p
	s.m.projects[p.ID] = &cp
	return nil
}

func (s memProjects) ListByOrg(_ context.Context, orgID string) ([]*Project, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var res []*Project
	for _, p := range s.m.projects {
		if p.OrgID == orgID {
			cp := *p
			res = append(res, &cp)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID < res[j].ID
		}
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res, nil
}
