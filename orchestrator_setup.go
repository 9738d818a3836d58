package tripauth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tripwell/tripauth/totp"
)

// BeginTOTPSetup associates a fresh authenticator secret with the current
// identity and raises a setup challenge carrying the secret, its otpauth
// URL, and a QR rendering. The secret is not active until
// [Orchestrator.ConfirmTOTPSetup] succeeds.
func (o *Orchestrator) BeginTOTPSetup(ctx context.Context) (*Challenge, error) {
	if o.state != StateAuthenticated {
		return nil, ErrNotAuthenticated
	}
	if o.challenge != nil {
		return nil, ErrChallengeOutstanding
	}

	assoc, err := o.gateway.AssociateAuthenticatorSecret(ctx)
	if err != nil {
		return nil, fmt.Errorf("associate authenticator: %w", err)
	}
	o.challenge = newTOTPSetupChallenge(assoc.Secret, assoc.OtpauthURI, o.renderQR(assoc.OtpauthURI))
	return o.challenge, nil
}

// ConfirmTOTPSetup verifies the first authenticator code against the pending
// secret and, on success, activates TOTP on the profile. A mismatched code
// invalidates the pending secret: a new one is associated, the outstanding
// challenge payload is refreshed, and [ErrTOTPSetupMismatch] is returned so
// the caller re-renders the QR.
//
// The directory accepts the secret before the profile write happens; when
// that write fails the method returns a [*PersistenceWarning] and the
// authenticator stays active directory-side.
func (o *Orchestrator) ConfirmTOTPSetup(ctx context.Context, code string) error {
	if o.challenge == nil {
		return ErrNoChallenge
	}
	if o.challenge.Stage != StageSetup || o.challenge.Kind != KindTOTP {
		return ErrChallengeKindMismatch
	}

	ok, err := o.gateway.ConfirmAuthenticatorCode(ctx, code)
	if err != nil {
		return fmt.Errorf("confirm authenticator: %w", err)
	}
	if !ok {
		assoc, aerr := o.gateway.AssociateAuthenticatorSecret(ctx)
		if aerr != nil {
			o.log.Warn("secret rotation after mismatch failed", zap.Error(aerr))
			return errors.Join(ErrTOTPSetupMismatch, aerr)
		}
		o.challenge = newTOTPSetupChallenge(assoc.Secret, assoc.OtpauthURI, o.renderQR(assoc.OtpauthURI))
		return ErrTOTPSetupMismatch
	}

	o.challenge = nil
	enabled, method := true, MethodTOTP
	prof, perr := o.profiles.UpdateProfile(ctx, ProfilePatch{MFAEnabled: &enabled, MFAMethod: &method})
	if perr != nil {
		o.log.Error("totp activation persisted directory-side only", zap.Error(perr))
		if o.profile != nil {
			o.profile.MFAEnabled = true
			o.profile.MFAMethod = MethodTOTP
		}
		return &PersistenceWarning{Op: "totp setup", Err: perr}
	}
	o.profile = prof
	return nil
}

// BeginEmailSetup requests an email-method enrollment for secondaryEmail and
// raises the setup challenge for the code that was sent there. The secondary
// address must differ from the account's primary address; that is checked
// here before any backend call and again server-side.
func (o *Orchestrator) BeginEmailSetup(ctx context.Context, secondaryEmail string) (*Challenge, error) {
	if o.state != StateAuthenticated {
		return nil, ErrNotAuthenticated
	}
	if o.challenge != nil {
		return nil, ErrChallengeOutstanding
	}
	if o.profile != nil && sameEmail(secondaryEmail, o.profile.Email) {
		return nil, ErrSecondaryEmailMatchesPrimary
	}

	if _, err := o.profiles.SetupEmailMFA(ctx, secondaryEmail); err != nil {
		if !errors.Is(err, ErrMailDispatch) {
			return nil, err
		}
		// The code was stored; only the send failed. Raise the challenge
		// and let the caller offer a resend.
		o.log.Warn("setup code dispatch failed", zap.Error(err))
		o.challenge = newEmailSetupChallenge(secondaryEmail)
		return o.challenge, ErrMailDispatch
	}
	o.challenge = newEmailSetupChallenge(secondaryEmail)
	return o.challenge, nil
}

// ConfirmEmailSetup verifies the enrollment code. On success the backend has
// already activated the email method atomically with the code consumption,
// so only the local profile view is refreshed.
func (o *Orchestrator) ConfirmEmailSetup(ctx context.Context, code string) error {
	if o.challenge == nil {
		return ErrNoChallenge
	}
	if o.challenge.Stage != StageSetup || o.challenge.Kind != KindEmail {
		return ErrChallengeKindMismatch
	}

	ok, err := o.profiles.VerifyEmailMFA(ctx, code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCodeInvalid
	}
	if o.profile != nil {
		o.profile.MFAEnabled = true
		o.profile.MFAMethod = MethodEmail
		o.profile.MFASecondaryEmail = o.challenge.PendingEmail
	}
	o.challenge = nil
	return nil
}

// DisableMFA turns multi-factor off for the account. The directory-side
// preference clear is best effort and its failure is only logged; the
// profile store write is the one that decides the outcome, since login
// challenge selection reads the profile.
func (o *Orchestrator) DisableMFA(ctx context.Context) error {
	if o.state != StateAuthenticated {
		return ErrNotAuthenticated
	}
	if err := o.gateway.ClearMFAPreference(ctx); err != nil {
		o.log.Warn("directory mfa preference clear failed", zap.Error(err))
	}
	if err := o.profiles.DisableMFA(ctx); err != nil {
		return fmt.Errorf("disable mfa: %w", err)
	}
	if o.profile != nil {
		o.profile.MFAEnabled = false
		o.profile.MFAMethod = MethodNone
		o.profile.MFASecondaryEmail = ""
	}
	return nil
}

func (o *Orchestrator) renderQR(otpauthURL string) string {
	qr, err := totp.QRCodeFromURL(otpauthURL)
	if err != nil {
		o.log.Warn("qr render failed", zap.Error(err))
		return ""
	}
	return qr
}
