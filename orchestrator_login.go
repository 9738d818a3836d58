package tripauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Login runs the primary credential handshake and resolves as far as the
// account's MFA configuration allows. It returns either a completed session,
// a [Challenge] the caller must answer, or an error. Calling Login while a
// challenge is outstanding fails with [ErrChallengeOutstanding]; cancel the
// challenge first. Calling it while authenticated starts a fresh session.
func (o *Orchestrator) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if o.challenge != nil {
		return LoginResult{}, ErrChallengeOutstanding
	}
	o.reset()

	out, err := o.gateway.Authenticate(ctx, email, password)
	if err != nil {
		return LoginResult{}, fmt.Errorf("primary handshake: %w", err)
	}

	switch out.Status {
	case OutcomeFailed:
		o.log.Debug("primary handshake rejected", zap.Error(out.Err))
		return LoginResult{}, ErrInvalidCredentials
	case OutcomeChallenge:
		if out.Challenge == DirectoryNewPasswordRequired {
			return LoginResult{}, ErrNewPasswordRequired
		}
		o.challenge = newPrimaryChallenge(out.Challenge)
		o.challengeParams = out.Params
		o.state = StateChallenged
		return LoginResult{Challenge: o.challenge}, nil
	case OutcomeAuthenticated:
		o.pendingSession = out.Session
		return o.resolveLogin(ctx)
	}
	return LoginResult{}, fmt.Errorf("primary handshake: unknown outcome status %d", out.Status)
}

// resolveLogin runs after the directory has issued tokens: it loads the MFA
// profile and decides whether the login completes now or an application-level
// challenge still gates it.
func (o *Orchestrator) resolveLogin(ctx context.Context) (LoginResult, error) {
	claims, err := DecodeDisplayClaims(o.pendingSession.IDToken)
	if err != nil {
		o.log.Warn("id token claims undecodable", zap.Error(err))
	}
	o.claims = claims

	var warn error
	prof, err := o.profiles.GetProfile(ctx)
	if err != nil {
		// The directory vouched for the identity; an unreachable profile
		// service must not lock the user out. Fall back to claims-derived
		// defaults and let the caller know.
		o.log.Warn("profile load failed, using claim defaults", zap.Error(err))
		warn = fmt.Errorf("%w: %v", ErrProfileUnavailable, err)
		prof = &Profile{
			UserID:    claims.Subject,
			Email:     claims.Email,
			MFAMethod: MethodNone,
		}
	}

	if !prof.MFAEnabled || prof.MFAMethod == MethodNone {
		o.finalize(prof)
		return LoginResult{Authenticated: true, Claims: claims, Warn: warn}, nil
	}

	switch prof.MFAMethod {
	case MethodEmail:
		if prof.MFASecondaryEmail == "" || sameEmail(prof.MFASecondaryEmail, prof.Email) {
			// Email MFA is on but undeliverable. Fail closed: gate the
			// login on an authenticator code instead of waving it through.
			o.log.Warn("email mfa misconfigured, falling back to authenticator",
				zap.String("user", prof.UserID))
			o.profile = prof
			o.challenge = newTOTPLoginChallenge()
			o.state = StateChallenged
			return LoginResult{Challenge: o.challenge, Warn: ErrMFAConfig}, nil
		}
		if _, err := o.profiles.RequestLoginCode(ctx); err != nil {
			// The challenge is raised regardless: the previous code may
			// still be valid, and failing open here would skip MFA.
			o.log.Warn("login code dispatch failed", zap.Error(err))
			warn = errors.Join(warn, ErrMailDispatch)
		}
		o.profile = prof
		o.challenge = newEmailLoginChallenge()
		o.state = StateChallenged
		return LoginResult{Challenge: o.challenge, Warn: warn}, nil
	default:
		// An authenticator enrolled through the backend is invisible to
		// the directory, which then issues tokens on password alone. The
		// code gate is raised here unless a directory-native challenge
		// was already answered in this handshake.
		if o.directoryMFA {
			o.finalize(prof)
			return LoginResult{Authenticated: true, Claims: claims, Warn: warn}, nil
		}
		o.profile = prof
		o.challenge = newTOTPLoginChallenge()
		o.state = StateChallenged
		return LoginResult{Challenge: o.challenge, Warn: warn}, nil
	}
}

// SubmitDirectoryCode answers the outstanding directory-raised primary
// challenge (SMS, authenticator, custom). Code failures leave the challenge
// in place for another attempt.
func (o *Orchestrator) SubmitDirectoryCode(ctx context.Context, code string) (LoginResult, error) {
	if o.challenge == nil {
		return LoginResult{}, ErrNoChallenge
	}
	if o.challenge.Stage != StagePrimaryLogin || o.challenge.Directory == "" {
		return LoginResult{}, ErrChallengeKindMismatch
	}
	return o.respondToDirectory(ctx, code)
}

// SelectChallengeType answers a SELECT_MFA_TYPE continuation by naming the
// factor the user chose; the directory follows up with the corresponding
// code challenge.
func (o *Orchestrator) SelectChallengeType(ctx context.Context, kind ChallengeKind) (LoginResult, error) {
	if o.challenge == nil {
		return LoginResult{}, ErrNoChallenge
	}
	if o.challenge.Directory != DirectorySelectMFAType {
		return LoginResult{}, ErrChallengeKindMismatch
	}
	var answer string
	switch kind {
	case KindSMS:
		answer = string(DirectorySMSMFA)
	case KindTOTP:
		answer = string(DirectorySoftwareTokenMFA)
	default:
		return LoginResult{}, ErrChallengeKindMismatch
	}
	return o.respondToDirectory(ctx, answer)
}

func (o *Orchestrator) respondToDirectory(ctx context.Context, answer string) (LoginResult, error) {
	out, err := o.gateway.VerifyChallengeCode(ctx, answer, o.challenge.Directory)
	if err != nil {
		return LoginResult{}, fmt.Errorf("challenge response: %w", err)
	}
	switch out.Status {
	case OutcomeFailed:
		o.log.Debug("directory rejected challenge answer", zap.Error(out.Err))
		return LoginResult{}, ErrCodeInvalid
	case OutcomeChallenge:
		o.challenge = newPrimaryChallenge(out.Challenge)
		o.challengeParams = out.Params
		return LoginResult{Challenge: o.challenge}, nil
	case OutcomeAuthenticated:
		switch o.challenge.Directory {
		case DirectorySMSMFA, DirectorySoftwareTokenMFA, DirectoryCustomChallenge:
			o.directoryMFA = true
		}
		o.challenge = nil
		o.challengeParams = nil
		o.pendingSession = out.Session
		return o.resolveLogin(ctx)
	}
	return LoginResult{}, fmt.Errorf("challenge response: unknown outcome status %d", out.Status)
}

// SubmitEmailCode answers an outstanding email challenge: the login-stage
// code sent to the secondary address, or a re-verification gating a
// settings change or verified logout. [IsRetryableChallengeError] failures
// leave the challenge in place.
func (o *Orchestrator) SubmitEmailCode(ctx context.Context, code string) (LoginResult, error) {
	if o.challenge == nil {
		return LoginResult{}, ErrNoChallenge
	}
	if o.challenge.Kind != KindEmail || o.challenge.Stage == StageSetup {
		return LoginResult{}, ErrChallengeKindMismatch
	}

	ok, err := o.profiles.VerifyEmailMFA(ctx, code)
	if err != nil {
		return LoginResult{}, err
	}
	if !ok {
		return LoginResult{}, ErrCodeInvalid
	}
	return o.completeVerified()
}

// SubmitTOTPCode answers an app-raised authenticator challenge: the
// fail-closed fallback gating a misconfigured email login, or a
// re-verification. Directory-raised authenticator challenges go through
// [Orchestrator.SubmitDirectoryCode] instead.
func (o *Orchestrator) SubmitTOTPCode(ctx context.Context, code string) (LoginResult, error) {
	if o.challenge == nil {
		return LoginResult{}, ErrNoChallenge
	}
	if o.challenge.Kind != KindTOTP || o.challenge.Stage == StageSetup || o.challenge.Directory != "" {
		return LoginResult{}, ErrChallengeKindMismatch
	}

	ok, err := o.gateway.ConfirmAuthenticatorCode(ctx, code)
	if err != nil {
		return LoginResult{}, fmt.Errorf("authenticator check: %w", err)
	}
	if !ok {
		return LoginResult{}, ErrCodeInvalid
	}
	return o.completeVerified()
}

// completeVerified resolves a successfully answered app-side challenge
// according to its stage.
func (o *Orchestrator) completeVerified() (LoginResult, error) {
	ch := o.challenge
	switch {
	case ch.Stage == StageVerify && ch.PendingLogout:
		o.Logout()
		return LoginResult{}, nil
	case ch.Stage == StageVerify:
		o.challenge = nil
		return LoginResult{Authenticated: true, Claims: o.claims}, nil
	default: // login-stage
		o.finalize(o.profile)
		return LoginResult{Authenticated: true, Claims: o.claims}, nil
	}
}

// CancelChallenge abandons the outstanding challenge. Cancelling a
// login-stage challenge abandons the whole login attempt and drops the
// pending session; cancelling a setup or re-verification challenge returns
// to the authenticated state with the profile unchanged. No backend call is made:
// stored codes simply age out.
func (o *Orchestrator) CancelChallenge() error {
	if o.challenge == nil {
		return ErrNoChallenge
	}
	if o.challenge.Stage == StagePrimaryLogin {
		o.reset()
		return nil
	}
	o.challenge = nil
	return nil
}

func normalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

func sameEmail(a, b string) bool {
	return normalizeEmail(a) == normalizeEmail(b)
}
