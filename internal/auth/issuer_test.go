package auth

import (
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testUser() (*User, *Membership) {
	user := &User{ID: "user-1", OrgID: "org-1", Email: "a@acme.io"}
	membership := &Membership{OrgID: "org-1", UserID: "user-1", Role: RoleAdmin}
	return user, membership
}

func newTestIssuer(t *testing.T, clock *fakeClock) *Issuer {
	t.Helper()
	iss, err := NewIssuer([]byte("test-signing-key"), "saas-test", "saas-test",
		WithIssuerClock(clock.Now))
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	return iss
}

func TestIssueAndVerifyClaims(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC))
	iss := newTestIssuer(t, clock)
	user, membership := testUser()

	token, expiresIn, err := iss.Issue(user, membership)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" {
		t.Fatal("expected a token")
	}
	if expiresIn != int(defaultAccessTTL/time.Second) {
		t.Fatalf("expiresIn=%d, want %d", expiresIn, int(defaultAccessTTL/time.Second))
	}

	claims, err := iss.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "user-1" || claims.OrgID != "org-1" {
		t.Fatalf("unexpected identity claims: %+v", claims)
	}
	if claims.Role != "admin" || claims.Email != "a@acme.io" {
		t.Fatalf("unexpected role/email claims: %+v", claims)
	}
	if claims.ID == "" {
		t.Fatal("expected a jti claim")
	}
}

func TestVerifyRejectsForeignTokens(t *testing.T) {
	clock := newFakeClock(time.Now().UTC())
	iss := newTestIssuer(t, clock)
	user, membership := testUser()

	token, _, err := iss.Issue(user, membership)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	otherKey, err := NewIssuer([]byte("other-key"), "saas-test", "saas-test",
		WithIssuerClock(clock.Now))
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	if _, err := otherKey.Verify(token); err == nil {
		t.Fatal("expected rejection for wrong key")
	}

	otherIssuer, _ := NewIssuer([]byte("test-signing-key"), "someone-else", "saas-test",
		WithIssuerClock(clock.Now))
	if _, err := otherIssuer.Verify(token); err == nil {
		t.Fatal("expected rejection for wrong issuer")
	}

	otherAudience, _ := NewIssuer([]byte("test-signing-key"), "saas-test", "someone-else",
		WithIssuerClock(clock.Now))
	if _, err := otherAudience.Verify(token); err == nil {
		t.Fatal("expected rejection for wrong audience")
	}

	if _, err := iss.Verify("not.a.token"); err == nil {
		t.Fatal("expected rejection for garbage")
	}
	if _, err := iss.Verify(""); err == nil {
		t.Fatal("expected rejection for empty token")
	}
}

func TestVerifyExpiryWindowWithLeeway(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC))
	iss := newTestIssuer(t, clock)
	user, membership := testUser()

	token, _, err := iss.Issue(user, membership)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	clock.Advance(defaultAccessTTL - time.Second)
	if _, err := iss.Verify(token); err != nil {
		t.Fatalf("token rejected just before expiry: %v", err)
	}

	// Inside the clock-skew allowance after expiry.
	clock.Advance(time.Second + verifyLeeway/2)
	if _, err := iss.Verify(token); err != nil {
		t.Fatalf("token rejected inside skew allowance: %v", err)
	}

	clock.Advance(verifyLeeway)
	if _, err := iss.Verify(token); err == nil {
		t.Fatal("expected rejection beyond expiry plus skew")
	}
}

func TestVerifyRejectsUnknownRoleClaim(t *testing.T) {
	clock := newFakeClock(time.Now().UTC())
	iss := newTestIssuer(t, clock)

	now := clock.Now()
	claims := AccessClaims{
		OrgID: "org-1",
		Role:  "owner",
		Email: "a@acme.io",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "saas-test",
			Audience:  jwt.ClaimStrings{"saas-test"},
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := iss.Verify(token); err == nil {
		t.Fatal("expected rejection for unknown role value")
	}
}

func TestVerifyRejectsWrongAlgorithm(t *testing.T) {
	clock := newFakeClock(time.Now().UTC())
	iss := newTestIssuer(t, clock)

	now := clock.Now()
	claims := AccessClaims{
		OrgID: "org-1",
		Role:  "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "saas-test",
			Audience:  jwt.ClaimStrings{"saas-test"},
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-signing-key"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := iss.Verify(token); err == nil {
		t.Fatal("expected rejection for unexpected signing method")
	}
}
