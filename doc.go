// Package tripauth implements the login and multi-factor verification
// orchestration used by the Tripwell travel product: the primary credential
// handshake against an external user directory, the branching into secondary
// verification challenges (authenticator-app codes, one-time email codes),
// challenge setup and verification lifecycles, and bearer-token session
// management.
//
// # Architecture boundaries
//
// tripauth is the client-facing surface. It exposes [Orchestrator],
// [SessionManager], [Challenge], and the [IdentityGateway] and
// [ProfileService] contracts. The concrete HTTP clients live in the directory
// and profileapi subpackages; the backend collaborator (profile store, code
// issuer, HTTP handlers) lives in profile, issuer, totp, and httpapi.
//
// # Concurrency contract
//
// An [Orchestrator] models one client session and is driven from a single
// logical thread of control: at most one [Challenge] is outstanding and no
// operation fans out concurrently within a transition. [SessionManager] is
// safe for concurrent reads because the HTTP clients consult it from request
// goroutines.
package tripauth
