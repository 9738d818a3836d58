package tripauth

import "sync"

// TokenSource supplies the bearer token for authenticated HTTP calls.
// [SessionManager] and [Orchestrator] both implement it; the orchestrator
// variant also covers the window where a primary handshake has succeeded but
// the login has not yet resolved.
type TokenSource interface {
	Token() string
}

// SessionManager holds the bearer token required by every authenticated HTTP
// call for the lifetime of the authenticated session. It is an explicit
// object threaded through the orchestrator rather than a module-level
// singleton, so concurrent sessions (and tests) do not interfere.
//
// Sessions are not persisted beyond the process; on app start a restored
// directory session is re-adopted via [Orchestrator.AdoptSession].
type SessionManager struct {
	mu      sync.RWMutex
	session *Session
}

// NewSessionManager describes the newsessionmanager operation and its observable behavior.
func NewSessionManager() *SessionManager {
	return &SessionManager{}
}

// Set replaces the held session wholesale.
func (m *SessionManager) Set(sess *Session) {
	m.mu.Lock()
	m.session = sess
	m.mu.Unlock()
}

// Clear drops the held session entirely.
func (m *SessionManager) Clear() {
	m.mu.Lock()
	m.session = nil
	m.mu.Unlock()
}

// Current returns the held session, or nil when logged out.
func (m *SessionManager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// Token returns the bearer token for the Authorization header, or "" when no
// session is held.
func (m *SessionManager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return ""
	}
	return m.session.IDToken
}
