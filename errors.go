package tripauth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is an exported constant or variable used by the orchestrator.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotAuthenticated is an exported constant or variable used by the orchestrator.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrChallengeOutstanding is an exported constant or variable used by the orchestrator.
	ErrChallengeOutstanding = errors.New("a verification challenge is already outstanding")
	// ErrNoChallenge is an exported constant or variable used by the orchestrator.
	ErrNoChallenge = errors.New("no verification challenge outstanding")
	// ErrChallengeKindMismatch is an exported constant or variable used by the orchestrator.
	ErrChallengeKindMismatch = errors.New("submitted code does not match the outstanding challenge kind")
	// ErrCodeInvalid is an exported constant or variable used by the orchestrator.
	ErrCodeInvalid = errors.New("invalid verification code")
	// ErrCodeExpired is an exported constant or variable used by the orchestrator.
	ErrCodeExpired = errors.New("verification code expired")
	// ErrNoPendingCode is an exported constant or variable used by the orchestrator.
	ErrNoPendingCode = errors.New("no valid pending verification code")
	// ErrMFAConfig is an exported constant or variable used by the orchestrator.
	ErrMFAConfig = errors.New("email mfa enabled but no secondary email on file")
	// ErrSecondaryEmailMatchesPrimary is an exported constant or variable used by the orchestrator.
	ErrSecondaryEmailMatchesPrimary = errors.New("secondary email must differ from primary email")
	// ErrMailDispatch is an exported constant or variable used by the orchestrator.
	ErrMailDispatch = errors.New("verification email dispatch failed")
	// ErrTOTPSetupMismatch is an exported constant or variable used by the orchestrator.
	ErrTOTPSetupMismatch = errors.New("authenticator code mismatch, a new secret was generated")
	// ErrNewPasswordRequired is an exported constant or variable used by the orchestrator.
	ErrNewPasswordRequired = errors.New("directory requires a new password")
	// ErrDirectoryUnavailable is an exported constant or variable used by the orchestrator.
	ErrDirectoryUnavailable = errors.New("identity directory unavailable")
	// ErrProfileUnavailable is an exported constant or variable used by the orchestrator.
	ErrProfileUnavailable = errors.New("profile service unavailable")
	// ErrSessionMissing is an exported constant or variable used by the orchestrator.
	ErrSessionMissing = errors.New("no primary session available for challenge completion")
)

// PersistenceWarning reports that a security-relevant state change succeeded
// against the authoritative system but the follow-up profile write failed.
// The two systems are not transactional with each other, so the change is
// NOT rolled back; callers must surface this distinctly from a hard failure.
type PersistenceWarning struct {
	Op  string
	Err error
}

// Error describes the error operation and its observable behavior.
func (w *PersistenceWarning) Error() string {
	return fmt.Sprintf("%s succeeded but profile persistence failed: %v", w.Op, w.Err)
}

// Unwrap exposes the underlying store error for errors.Is/As matching.
func (w *PersistenceWarning) Unwrap() error {
	return w.Err
}

// IsRetryableChallengeError reports whether err leaves the outstanding
// challenge usable: the caller may re-enter a code or request a fresh one
// without restarting the login.
func IsRetryableChallengeError(err error) bool {
	return errors.Is(err, ErrCodeInvalid) ||
		errors.Is(err, ErrCodeExpired) ||
		errors.Is(err, ErrNoPendingCode)
}
