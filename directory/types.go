// Package directory implements [tripauth.IdentityGateway] against the
// external user directory's HTTP API. The credential handshake protocol is
// the directory's own; this client only carries opaque parameters between
// calls.
package directory

// initiateRequest starts the primary credential handshake.
type initiateRequest struct {
	ClientID string `json:"client_id"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// challengeRequest answers an outstanding challenge continuation.
type challengeRequest struct {
	ClientID  string            `json:"client_id"`
	Username  string            `json:"username"`
	Challenge string            `json:"challenge_name"`
	Session   string            `json:"session"`
	Answers   map[string]string `json:"answers"`
}

// authResponse is common to initiate and challenge responses: either tokens
// or a further challenge.
type authResponse struct {
	Tokens    *tokenPayload     `json:"authentication_result,omitempty"`
	Challenge string            `json:"challenge_name,omitempty"`
	Session   string            `json:"session,omitempty"`
	Params    map[string]string `json:"challenge_parameters,omitempty"`
}

type tokenPayload struct {
	IDToken     string `json:"id_token"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type associateResponse struct {
	SecretCode string `json:"secret_code"`
}

type verifyTokenRequest struct {
	AccessToken string `json:"access_token"`
	UserCode    string `json:"user_code"`
}

type verifyTokenResponse struct {
	Status string `json:"status"`
}

type mfaPreferenceRequest struct {
	AccessToken string `json:"access_token"`
	ClearAll    bool   `json:"clear_all"`
}

type errorResponse struct {
	Code    string `json:"__type"`
	Message string `json:"message"`
}

// Directory error codes that mean the caller's input was rejected rather
// than the directory being unavailable.
const (
	codeNotAuthorized   = "NotAuthorizedException"
	codeUserNotFound    = "UserNotFoundException"
	codeCodeMismatch    = "CodeMismatchException"
	codeExpiredCode     = "ExpiredCodeException"
	codePasswordReset   = "PasswordResetRequiredException"
	codeEnableSoftware  = "EnableSoftwareTokenMFAException"
	statusVerifySuccess = "SUCCESS"
)
