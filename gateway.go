package tripauth

import "context"

// AuthenticatorAssociation is returned when a TOTP secret is associated with
// an already-authenticated identity.
type AuthenticatorAssociation struct {
	Secret     string
	OtpauthURI string
}

// IdentityGateway performs the primary credential handshake against the
// external user directory and drives directory-native challenges. The
// handshake protocol itself (SRP) is opaque behind this contract.
//
// The gateway never decides whether application-level (email) MFA applies;
// the directory has no notion of the EMAIL method, so that branching is
// layered on top by [Orchestrator] after a primary success.
//
// Credential and code failures come back inside the returned [Outcome]; the
// error return is reserved for transport breakdowns (context cancellation,
// unreachable directory).
type IdentityGateway interface {
	Authenticate(ctx context.Context, email, password string) (Outcome, error)
	VerifyChallengeCode(ctx context.Context, code string, kind DirectoryChallengeKind) (Outcome, error)

	// AssociateAuthenticatorSecret and ConfirmAuthenticatorCode implement
	// TOTP *setup* and must be called on an already-primary-authenticated
	// identity; setup is not a login-time operation.
	AssociateAuthenticatorSecret(ctx context.Context) (*AuthenticatorAssociation, error)
	ConfirmAuthenticatorCode(ctx context.Context, code string) (bool, error)

	// ClearMFAPreference best-effort removes the directory-side MFA
	// preference. Disable flows log and ignore its failure: the profile
	// store is the source of truth this application consults at login.
	ClearMFAPreference(ctx context.Context) error
}

// Profile is the MFA configuration view of a user profile consumed during
// challenge selection.
type Profile struct {
	UserID            string
	Email             string
	MFAEnabled        bool
	MFAMethod         Method
	MFASecondaryEmail string
}

// TOTPSetup is the provisioning payload returned by the backend TOTP setup
// endpoint.
type TOTPSetup struct {
	Secret     string
	QRCode     string
	OtpauthURL string
}

// ProfilePatch is a partial profile update; nil fields are left untouched.
type ProfilePatch struct {
	MFAEnabled        *bool
	MFAMethod         *Method
	MFASecondaryEmail *string
}

// ProfileService is the bearer-token-authenticated backend surface the
// orchestrator consults: profile reads/writes and the email code issuer
// endpoints. profileapi.Client is the HTTP implementation.
type ProfileService interface {
	GetProfile(ctx context.Context) (*Profile, error)
	UpdateProfile(ctx context.Context, patch ProfilePatch) (*Profile, error)
	SetupEmailMFA(ctx context.Context, secondaryEmail string) (bool, error)
	VerifyEmailMFA(ctx context.Context, code string) (bool, error)
	RequestLoginCode(ctx context.Context) (bool, error)
	DisableMFA(ctx context.Context) error
}
