package tripauth

import "time"

// DirectoryChallengeKind is a challenge continuation reported by the external
// user directory after the primary credential handshake. The values mirror
// the directory's wire protocol.
type DirectoryChallengeKind string

const (
	// DirectorySMSMFA is an exported constant or variable used by the orchestrator.
	DirectorySMSMFA DirectoryChallengeKind = "SMS_MFA"
	// DirectorySoftwareTokenMFA is an exported constant or variable used by the orchestrator.
	DirectorySoftwareTokenMFA DirectoryChallengeKind = "SOFTWARE_TOKEN_MFA"
	// DirectorySelectMFAType is an exported constant or variable used by the orchestrator.
	DirectorySelectMFAType DirectoryChallengeKind = "SELECT_MFA_TYPE"
	// DirectoryMFASetup is an exported constant or variable used by the orchestrator.
	DirectoryMFASetup DirectoryChallengeKind = "MFA_SETUP"
	// DirectoryCustomChallenge is an exported constant or variable used by the orchestrator.
	DirectoryCustomChallenge DirectoryChallengeKind = "CUSTOM_CHALLENGE"
	// DirectoryNewPasswordRequired is an exported constant or variable used by the orchestrator.
	DirectoryNewPasswordRequired DirectoryChallengeKind = "NEW_PASSWORD_REQUIRED"
)

// OutcomeStatus discriminates the [Outcome] union.
type OutcomeStatus int

const (
	// OutcomeAuthenticated is an exported constant or variable used by the orchestrator.
	OutcomeAuthenticated OutcomeStatus = iota
	// OutcomeChallenge is an exported constant or variable used by the orchestrator.
	OutcomeChallenge
	// OutcomeFailed is an exported constant or variable used by the orchestrator.
	OutcomeFailed
)

// Outcome is the discriminated result of a directory call. The directory
// SDK's divergent callbacks (onSuccess / onFailure / mfaRequired / ...) are
// collapsed into this single value: exactly one of Session, Challenge(+Params)
// or Err is meaningful, selected by Status. Failures are always reported as a
// value, never panicked across the gateway boundary.
type Outcome struct {
	Status    OutcomeStatus
	Session   *Session
	Challenge DirectoryChallengeKind
	Params    map[string]string
	Err       error
}

// Authenticated constructs a success outcome carrying the issued session.
func Authenticated(sess *Session) Outcome {
	return Outcome{Status: OutcomeAuthenticated, Session: sess}
}

// ChallengeRequired constructs a continuation outcome for the given directory
// challenge kind.
func ChallengeRequired(kind DirectoryChallengeKind, params map[string]string) Outcome {
	return Outcome{Status: OutcomeChallenge, Challenge: kind, Params: params}
}

// Failed constructs a terminal failure outcome.
func Failed(err error) Outcome {
	return Outcome{Status: OutcomeFailed, Err: err}
}

// Session is the token set issued by the directory for an authenticated
// identity. It is replaced wholesale on refresh and cleared entirely on
// logout.
type Session struct {
	IDToken     string
	AccessToken string
	ExpiresAt   time.Time
}

// Expired reports whether the session's token lifetime has elapsed.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
