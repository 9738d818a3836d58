package tripauth

import (
	"go.uber.org/zap"
)

// State is the coarse lifecycle position of an [Orchestrator].
type State int

const (
	// StateIdle is an exported constant or variable used by the orchestrator.
	StateIdle State = iota
	// StateChallenged is an exported constant or variable used by the orchestrator.
	StateChallenged
	// StateAuthenticated is an exported constant or variable used by the orchestrator.
	StateAuthenticated
)

// String describes the string operation and its observable behavior.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateChallenged:
		return "CHALLENGED"
	case StateAuthenticated:
		return "AUTHENTICATED"
	}
	return "UNKNOWN"
}

// LoginResult reports how a login step resolved. Exactly one of
// Authenticated and Challenge is meaningful. Warn carries a non-fatal
// condition that accompanied an otherwise successful step, such as a failed
// code email or an unreachable profile service.
type LoginResult struct {
	Authenticated bool
	Challenge     *Challenge
	Claims        DisplayClaims
	Warn          error
}

// Orchestrator is the client-side state machine that layers application
// MFA on top of the external directory's login handshake. It owns the single
// outstanding [Challenge], the pending session held between primary success
// and login resolution, and the [SessionManager] that callers read tokens
// from.
//
// An Orchestrator holds per-session client state and is not safe for
// concurrent use; drive it from one goroutine, the way a UI event loop does.
type Orchestrator struct {
	gateway  IdentityGateway
	profiles ProfileService
	sessions *SessionManager
	log      *zap.Logger
	cfg      Config

	state     State
	challenge *Challenge

	// challengeParams is the opaque directory continuation state for the
	// outstanding primary challenge; nil for challenges raised app-side.
	challengeParams map[string]string

	// pendingSession holds tokens issued by the directory while an
	// email-stage or fallback challenge still gates the login. It moves
	// into sessions only when the login fully resolves.
	pendingSession *Session

	// directoryMFA records that a directory-native code challenge was
	// answered during the current handshake, so login resolution does not
	// gate on a second authenticator code.
	directoryMFA bool

	profile *Profile
	claims  DisplayClaims
}

// NewOrchestrator wires an orchestrator over its three collaborators.
// profiles must authenticate its calls through this orchestrator's Token so
// that challenge-stage calls ride on the pending session.
func NewOrchestrator(gateway IdentityGateway, profiles ProfileService, sessions *SessionManager, cfg Config) *Orchestrator {
	cfg.applyDefaults()
	return &Orchestrator{
		gateway:  gateway,
		profiles: profiles,
		sessions: sessions,
		log:      cfg.Logger,
		cfg:      cfg,
		state:    StateIdle,
	}
}

// State returns the orchestrator's current lifecycle position.
func (o *Orchestrator) State() State {
	return o.state
}

// CurrentChallenge returns the outstanding challenge, or nil.
func (o *Orchestrator) CurrentChallenge() *Challenge {
	return o.challenge
}

// Profile returns the MFA profile loaded during the last login resolution,
// or nil before one completes.
func (o *Orchestrator) Profile() *Profile {
	return o.profile
}

// Claims returns the display claims decoded from the current ID token.
func (o *Orchestrator) Claims() DisplayClaims {
	return o.claims
}

// Token implements [TokenSource]. It prefers the pending session so that
// profile and code-issuer calls made while a challenge gates the login carry
// the already-issued token; otherwise it falls through to the session
// manager.
func (o *Orchestrator) Token() string {
	if o.pendingSession != nil {
		return o.pendingSession.IDToken
	}
	return o.sessions.Token()
}

// finalize promotes the pending session into the session manager and marks
// the login resolved. No session is observable through the manager until
// this point.
func (o *Orchestrator) finalize(prof *Profile) {
	o.sessions.Set(o.pendingSession)
	o.pendingSession = nil
	o.profile = prof
	o.challenge = nil
	o.challengeParams = nil
	o.state = StateAuthenticated
}

func (o *Orchestrator) reset() {
	o.sessions.Clear()
	o.state = StateIdle
	o.challenge = nil
	o.challengeParams = nil
	o.pendingSession = nil
	o.directoryMFA = false
	o.profile = nil
	o.claims = DisplayClaims{}
}
