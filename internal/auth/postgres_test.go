package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockStore(t *testing.T) (*PGStore, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	return NewPGStore(db), mock, func() { db.Close() }
}

func TestRotateCommitsUpdateAndInsertTogether(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	successor := &RefreshToken{
		ID:        "tok-2",
		UserID:    "user-1",
		TokenHash: "hash-2",
		CreatedAt: now,
		ExpiresAt: now.Add(defaultRefreshTTL),
	}

	mock.ExpectBegin()
	mock.ExpectExec("update refresh_tokens set revoked_at=.*revoked_at is null").
		WithArgs(now, "tok-2", "tok-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into refresh_tokens").
		WithArgs("tok-2", "user-1", "hash-2", successor.CreatedAt, successor.ExpiresAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := store.RefreshTokens(context.Background()).Rotate(context.Background(), "tok-1", now, successor); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRotateLostRaceRollsBack(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	now := time.Now().UTC()
	successor := &RefreshToken{ID: "tok-2", UserID: "user-1", TokenHash: "hash-2", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}

	mock.ExpectBegin()
	mock.ExpectExec("update refresh_tokens set revoked_at=.*revoked_at is null").
		WithArgs(now, "tok-2", "tok-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.RefreshTokens(context.Background()).Rotate(context.Background(), "tok-1", now, successor)
	if !errors.Is(err, ErrSessionReplayed) {
		t.Fatalf("expected ErrSessionReplayed, got %v", err)
	}
	if !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("replay must still read as an invalid session, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRevokeUnknownRowReportsNotFound(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectExec("update refresh_tokens set revoked_at=.*revoked_at is null").
		WithArgs(now, "tok-9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.RefreshTokens(context.Background()).Revoke(context.Background(), "tok-9", now)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindByHashMapsRowState(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()
	ctx := context.Background()

	mock.ExpectQuery("select id, user_id, token_hash.*from refresh_tokens where token_hash").
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)
	if _, err := store.RefreshTokens(ctx).FindByHash(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	created := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	revoked := created.Add(time.Minute)
	cols := []string{"id", "user_id", "token_hash", "created_at", "expires_at", "revoked_at", "replaced_by_token_id"}
	mock.ExpectQuery("select id, user_id, token_hash.*from refresh_tokens where token_hash").
		WithArgs("hash-1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("tok-1", "user-1", "hash-1", created, created.Add(time.Hour), revoked, "tok-2"))

	tok, err := store.RefreshTokens(ctx).FindByHash(ctx, "hash-1")
	if err != nil {
		t.Fatalf("FindByHash: %v", err)
	}
	if tok.RevokedAt == nil || !tok.RevokedAt.Equal(revoked) {
		t.Fatalf("revoked_at not mapped: %+v", tok)
	}
	if tok.ReplacedByTokenID == nil || *tok.ReplacedByTokenID != "tok-2" {
		t.Fatalf("replaced_by_token_id not mapped: %+v", tok)
	}
	if tok.Active(created) {
		t.Fatal("revoked row must not read as active")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMembershipScanRejectsUnknownRole(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()
	ctx := context.Background()

	cols := []string{"org_id", "user_id", "role", "created_at"}
	mock.ExpectQuery("select org_id, user_id, role, created_at from memberships where user_id").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("org-1", "user-1", "owner", time.Now()))

	if _, err := store.Memberships(ctx).FindByUser(ctx, "user-1"); err == nil {
		t.Fatal("expected an error for an unknown stored role")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserLookupMapsNoRows(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()
	ctx := context.Background()

	mock.ExpectQuery("select id, org_id, email, password_hash, created_at from users where email").
		WithArgs("nobody@acme.io").
		WillReturnError(sql.ErrNoRows)

	if _, err := store.Users(ctx).FindByEmail(ctx, "nobody@acme.io"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
