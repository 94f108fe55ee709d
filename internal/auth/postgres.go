package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL via database/sql (pgx stdlib
// driver). The store carries the concurrency contract: Rotate and Revoke are
// conditional mutations, so the replay guarantee holds across processes.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Orgs(context.Context) OrgStore                   { return &orgStore{db: s.db} }
func (s *PGStore) Users(context.Context) UserStore                 { return &userStore{db: s.db} }
func (s *PGStore) Memberships(context.Context) MembershipStore     { return &membershipStore{db: s.db} }
func (s *PGStore) RefreshTokens(context.Context) RefreshTokenStore { return &refreshTokenStore{db: s.db} }
func (s *PGStore) Projects(context.Context) ProjectStore           { return &projectStore{db: s.db} }

// Org store -----------------------------------------------------------------
type orgStore struct{ db *sql.DB }

func (s *orgStore) Create(ctx context.Context, org *Org) error {
	_, err := s.db.ExecContext(ctx,
		`insert into orgs(id, name, created_at) values($1,$2,$3)`,
		org.ID, org.Name, org.CreatedAt,
	)
	return err
}

func (s *orgStore) Find(ctx context.Context, id string) (*Org, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, name, created_at from orgs where id=$1`, id)
	var org Org
	if err := row.Scan(&org.ID, &org.Name, &org.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &org, nil
}

// User store ----------------------------------------------------------------
type userStore struct{ db *sql.DB }

func (s *userStore) Create(ctx context.Context, u *User) error {
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, org_id, email, password_hash, created_at) values($1,$2,$3,$4,$5)`,
		u.ID, u.OrgID, u.Email, u.PasswordHash, u.CreatedAt,
	)
	return err
}

func (s *userStore) Find(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, org_id, email, password_hash, created_at from users where id=$1`, id)
	return scanUser(row)
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, org_id, email, password_hash, created_at from users where email=$1`, email)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.OrgID, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Membership store ----------------------------------------------------------
type membershipStore struct{ db *sql.DB }

func (s *membershipStore) Create(ctx context.Context, m *Membership) error {
	_, err := s.db.ExecContext(ctx,
		`insert into memberships(org_id, user_id, role, created_at) values($1,$2,$3,$4)`,
		m.OrgID, m.UserID, m.Role.String(), m.CreatedAt,
	)
	return err
}

func (s *membershipStore) Find(ctx context.Context, orgID, userID string) (*Membership, error) {
	row := s.db.QueryRowContext(ctx,
		`select org_id, user_id, role, created_at from memberships where org_id=$1 and user_id=$2`,
		orgID, userID)
	return scanMembership(row)
}

func (s *membershipStore) FindByUser(ctx context.Context, userID string) (*Membership, error) {
	row := s.db.QueryRowContext(ctx,
		`select org_id, user_id, role, created_at from memberships where user_id=$1`, userID)
	return scanMembership(row)
}

func scanMembership(row *sql.Row) (*Membership, error) {
	var (
		m    Membership
		role string
	)
	if err := row.Scan(&m.OrgID, &m.UserID, &role, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	parsed, err := ParseRole(role)
	if err != nil {
		return nil, err
	}
	m.Role = parsed
	return &m, nil
}

// Refresh token store -------------------------------------------------------
type refreshTokenStore struct{ db *sql.DB }

func (s *refreshTokenStore) Create(ctx context.Context, tok *RefreshToken) error {
	_, err := s.db.ExecContext(ctx,
		`insert into refresh_tokens(id, user_id, token_hash, created_at, expires_at)
		 values($1,$2,$3,$4,$5)`,
		tok.ID, tok.UserID, tok.TokenHash, tok.CreatedAt, tok.ExpiresAt,
	)
	return err
}

func (s *refreshTokenStore) FindByHash(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, user_id, token_hash, created_at, expires_at, revoked_at, replaced_by_token_id
		 from refresh_tokens where token_hash=$1`, tokenHash)
	var (
		tok        RefreshToken
		revokedAt  sql.NullTime
		replacedBy sql.NullString
	)
	if err := row.Scan(&tok.ID, &tok.UserID, &tok.TokenHash, &tok.CreatedAt, &tok.ExpiresAt, &revokedAt, &replacedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		tok.RevokedAt = &t
	}
	if replacedBy.Valid {
		v := replacedBy.String
		tok.ReplacedByTokenID = &v
	}
	return &tok, nil
}

// Rotate revokes the old row and inserts its successor in one transaction.
// The update is conditioned on revoked_at still being null: under racing
// refresh calls only one transaction sees an unrevoked row, the other
// observes zero affected rows and rolls back without writing anything.
func (s *refreshTokenStore) Rotate(ctx context.Context, oldID string, now time.Time, successor *RefreshToken) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`update refresh_tokens set revoked_at=$1, replaced_by_token_id=$2
		 where id=$3 and revoked_at is null`,
		now, successor.ID, oldID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSessionReplayed
	}
	if _, err := tx.ExecContext(ctx,
		`insert into refresh_tokens(id, user_id, token_hash, created_at, expires_at)
		 values($1,$2,$3,$4,$5)`,
		successor.ID, successor.UserID, successor.TokenHash, successor.CreatedAt, successor.ExpiresAt,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *refreshTokenStore) Revoke(ctx context.Context, id string, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`update refresh_tokens set revoked_at=$1 where id=$2 and revoked_at is null`,
		now, id,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Project store -------------------------------------------------------------
type projectStore struct{ db *sql.DB }

func (s *projectStore) Create(ctx context.Context, p *Project) error {
	_, err := s.db.ExecContext(ctx,
		`insert into projects(id, org_id, name, created_by_user_id, created_at) values($1,$2,$3,$4,$5)`,
		p.ID, p.OrgID, p.Name, p.CreatedByUserID, p.CreatedAt,
	)
	return err
}

func (s *projectStore) ListByOrg(ctx context.Context, orgID string) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, org_id, name, created_by_user_id, created_at from projects
		 where org_id=$1 order by created_at asc`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.OrgID, &p.Name, &p.CreatedByUserID, &p.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, &p)
	}
	return res, rows.Err()
}
