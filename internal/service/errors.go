// Package service contains the identity, session and delegated-signer core.
// Everything here is storage-backed and collaborator-driven; handlers in the
// api package only translate these errors into HTTP responses.
package service

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the cases callers branch on with errors.Is.
var (
	ErrNotFound       = errors.New("record not found")
	ErrInvalidToken   = errors.New("token invalid or already used")
	ErrTokenExpired   = errors.New("token expired")
	ErrSessionExpired = errors.New("session expired")
	ErrSignInPending  = errors.New("sign-in not yet approved")
)

// ValidationError reports caller-supplied input that failed a precondition.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// TokenNotExpiredError is returned when issuing a token whose key still has a
// live row. Carries the live expiry so callers can report a retry-after.
type TokenNotExpiredError struct {
	ExpiresAt time.Time
}

func (e *TokenNotExpiredError) Error() string {
	return fmt.Sprintf("a token for this key is still valid until %s", e.ExpiresAt.Format(time.RFC3339))
}

// AlreadyExistsError is returned when linking an identity that is already
// linked. Key names the offending strategy (EMAIL, FARCASTER).
type AlreadyExistsError struct {
	Key string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("a %s profile with this identity already exists", e.Key)
}

// ExternalServiceError wraps a collaborator failure. The cause is kept for
// logs; clients only ever see the operation name.
type ExternalServiceError struct {
	Op  string
	Err error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("external call %s failed, %v", e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

func externalErr(op string, err error) error {
	return &ExternalServiceError{Op: op, Err: err}
}
