package tripauth

// ChallengeKind identifies the verification mechanism a challenge expects.
type ChallengeKind string

const (
	// KindTOTP is an exported constant or variable used by the orchestrator.
	KindTOTP ChallengeKind = "TOTP"
	// KindSMS is an exported constant or variable used by the orchestrator.
	KindSMS ChallengeKind = "SMS"
	// KindEmail is an exported constant or variable used by the orchestrator.
	KindEmail ChallengeKind = "EMAIL"
)

// ChallengeStage identifies where in a lifecycle a challenge was raised:
// during the login handshake, while setting a method up, or as a standalone
// re-verification (settings changes, verify-then-logout).
type ChallengeStage string

const (
	// StagePrimaryLogin is an exported constant or variable used by the orchestrator.
	StagePrimaryLogin ChallengeStage = "PRIMARY_LOGIN"
	// StageSetup is an exported constant or variable used by the orchestrator.
	StageSetup ChallengeStage = "SETUP"
	// StageVerify is an exported constant or variable used by the orchestrator.
	StageVerify ChallengeStage = "VERIFY"
)

// Challenge is the single outstanding verification step held by the client.
// It is a closed variant type: Stage and Kind select the populated fields.
// Setup-TOTP carries Secret/OtpauthURL/QRCode, setup- and verify-email carry
// PendingEmail, and nothing else is ever set. Challenges are never persisted;
// they die on success, explicit cancel, or session teardown.
type Challenge struct {
	Stage ChallengeStage
	Kind  ChallengeKind

	// Directory is the raw continuation name reported by the directory for
	// primary-login challenges. Empty for challenges raised app-side.
	Directory DirectoryChallengeKind

	// TOTP setup payload.
	Secret     string
	OtpauthURL string
	QRCode     string

	// Email setup/verify payload.
	PendingEmail string

	// PendingLogout marks that successful verification must tear the
	// session down instead of completing a login.
	PendingLogout bool
}

func newPrimaryChallenge(directory DirectoryChallengeKind) *Challenge {
	c := &Challenge{Stage: StagePrimaryLogin, Directory: directory}
	switch directory {
	case DirectorySMSMFA:
		c.Kind = KindSMS
	case DirectorySoftwareTokenMFA:
		c.Kind = KindTOTP
	}
	return c
}

func newEmailLoginChallenge() *Challenge {
	return &Challenge{Stage: StagePrimaryLogin, Kind: KindEmail}
}

func newTOTPLoginChallenge() *Challenge {
	return &Challenge{Stage: StagePrimaryLogin, Kind: KindTOTP}
}

func newTOTPSetupChallenge(secret, otpauthURL, qrCode string) *Challenge {
	return &Challenge{
		Stage:      StageSetup,
		Kind:       KindTOTP,
		Secret:     secret,
		OtpauthURL: otpauthURL,
		QRCode:     qrCode,
	}
}

func newEmailSetupChallenge(pendingEmail string) *Challenge {
	return &Challenge{Stage: StageSetup, Kind: KindEmail, PendingEmail: pendingEmail}
}

func newVerifyChallenge(kind ChallengeKind, pendingLogout bool) *Challenge {
	return &Challenge{Stage: StageVerify, Kind: kind, PendingLogout: pendingLogout}
}

// Method is the application-level MFA method stored on a user profile.
// The external directory only knows TOTP and SMS; EMAIL is layered on top by
// the orchestrator and the backend code issuer.
type Method string

const (
	// MethodNone is an exported constant or variable used by the orchestrator.
	MethodNone Method = "NONE"
	// MethodTOTP is an exported constant or variable used by the orchestrator.
	MethodTOTP Method = "TOTP"
	// MethodEmail is an exported constant or variable used by the orchestrator.
	MethodEmail Method = "EMAIL"
)
