package auth

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("auth: not found")
	ErrAlreadyExists = errors.New("auth: already exists")
	ErrInvalidInput  = errors.New("auth: invalid input")
	ErrForbidden     = errors.New("auth: forbidden")

	// ErrInvalidCredentials covers unknown email, wrong password and missing
	// membership alike. Callers must surface it without distinguishing the
	// cause.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrInvalidSession covers missing, malformed, unknown, expired, revoked
	// and replayed refresh secrets alike.
	ErrInvalidSession = errors.New("auth: invalid session")

	// ErrInvalidToken indicates an access token failed verification.
	ErrInvalidToken = errors.New("auth: invalid token")
)

// ErrSessionReplayed marks reuse of an already-rotated refresh secret. It
// wraps ErrInvalidSession so the outward signal stays uniform; the distinct
// value only feeds audit logs and metrics.
var ErrSessionReplayed = fmt.Errorf("%w: replayed", ErrInvalidSession)
