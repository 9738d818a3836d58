// Package profileapi is the HTTP client for the profile and MFA backend.
// It implements [tripauth.ProfileService] over the bearer-authenticated
// endpoints served by the httpapi package, and also carries the wire types
// both sides share.
package profileapi

// Machine-readable reasons carried in error and warning responses.
const (
	ReasonCodeMismatch  = "CODE_MISMATCH"
	ReasonCodeExpired   = "CODE_EXPIRED"
	ReasonNoPendingCode = "NO_PENDING_CODE"
	ReasonSameEmail     = "SAME_EMAIL"
	ReasonMailDispatch  = "MAIL_DISPATCH_FAILED"
	ReasonNotConfigured = "MFA_NOT_CONFIGURED"
)

// ProfileDTO is the wire form of a user's MFA profile. Code and secret
// fields never appear here.
type ProfileDTO struct {
	UserID            string `json:"user_id"`
	Email             string `json:"email"`
	MFAEnabled        bool   `json:"mfa_enabled"`
	MFAMethod         string `json:"mfa_method"`
	MFASecondaryEmail string `json:"mfa_secondary_email,omitempty"`
}

// ProfilePatchDTO is a partial profile update; absent fields stay untouched.
type ProfilePatchDTO struct {
	MFAEnabled        *bool   `json:"mfa_enabled,omitempty"`
	MFAMethod         *string `json:"mfa_method,omitempty"`
	MFASecondaryEmail *string `json:"mfa_secondary_email,omitempty"`
}

// EmailSetupRequest starts email-method enrollment.
type EmailSetupRequest struct {
	SecondaryEmail string `json:"secondary_email"`
}

// CodeRequest submits an emailed or authenticator code.
type CodeRequest struct {
	Code string `json:"code"`
}

// AckResponse reports a state-changing call that has no payload. Warning,
// when set, names a non-fatal condition such as a failed code email.
type AckResponse struct {
	Success bool   `json:"success"`
	Warning string `json:"warning,omitempty"`
}

// VerifyResponse reports a code check.
type VerifyResponse struct {
	Verified bool   `json:"verified"`
	Purpose  string `json:"purpose,omitempty"`

	// Setup carries a fresh provisioning payload when an authenticator
	// enrollment failed and restarted with a new secret.
	Setup *TOTPSetupDTO `json:"setup,omitempty"`
}

// TOTPSetupDTO is the authenticator provisioning payload.
type TOTPSetupDTO struct {
	Secret     string `json:"secret"`
	OtpauthURL string `json:"otpauth_url"`
	QRCode     string `json:"qr_code"`
}
