// Package issuer owns the lifecycle of emailed verification codes and
// pending authenticator secrets: generation, persistence on the auth
// profile, dispatch, expiry, and consumption. Setup codes and login codes
// are distinct lifecycles with distinct lifetimes; starting one voids the
// other.
package issuer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tripwell/tripauth/internal"
	"github.com/tripwell/tripauth/profile"
	"github.com/tripwell/tripauth/totp"
)

const (
	// SetupCodeTTL bounds enrollment codes. Enrollment is a deliberate,
	// user-driven flow and gets the longer window.
	SetupCodeTTL = 15 * time.Minute
	// LoginCodeTTL bounds login-gate codes.
	LoginCodeTTL = 10 * time.Minute
)

var (
	ErrCodeMismatch  = errors.New("verification code mismatch")
	ErrCodeExpired   = errors.New("verification code expired")
	ErrNoPendingCode = errors.New("no verification pending")
	ErrSameEmail     = errors.New("secondary email must differ from primary email")
	ErrNotConfigured = errors.New("email mfa is not configured for this user")
	ErrMailDispatch  = errors.New("verification email dispatch failed")
)

// Purpose names which lifecycle a verified code belonged to.
type Purpose int

const (
	PurposeSetup Purpose = iota
	PurposeLogin
)

func (p Purpose) String() string {
	if p == PurposeLogin {
		return "LOGIN"
	}
	return "SETUP"
}

// Issuer coordinates the profile store, the code generator, and the mailer.
type Issuer struct {
	store  *profile.Store
	mailer Mailer
	log    *zap.Logger
	now    func() time.Time
}

func New(store *profile.Store, mailer Mailer, log *zap.Logger) *Issuer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Issuer{
		store:  store,
		mailer: mailer,
		log:    log,
		now:    time.Now,
	}
}

// WithClock overrides the issuer clock for tests.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// BeginEmailSetup stores a fresh setup code against secondaryEmail and mails
// it there. The code is persisted before the send: a failed send returns
// [ErrMailDispatch] but leaves the code valid, so a resend or a code from an
// earlier attempt can still complete the enrollment.
func (i *Issuer) BeginEmailSetup(ctx context.Context, userID, primaryEmail, secondaryEmail string) error {
	if sameEmail(primaryEmail, secondaryEmail) {
		return ErrSameEmail
	}

	var code string
	_, err := i.store.Mutate(ctx, userID, func(p *profile.UserAuthProfile) error {
		if p.Email == "" {
			p.Email = primaryEmail
		} else if sameEmail(p.Email, secondaryEmail) {
			return ErrSameEmail
		}
		var err error
		code, err = i.freshCode(p.PendingCode, p.ChallengeCode)
		if err != nil {
			return err
		}
		p.PendingEmail = secondaryEmail
		p.PendingCode = code
		p.PendingExpiresAt = i.now().Add(SetupCodeTTL).Unix()
		p.PendingTOTPSecret = ""
		p.ClearChallenge()
		return nil
	})
	if err != nil {
		return err
	}

	if err := i.mailer.SendCode(ctx, secondaryEmail, code, PurposeSetup); err != nil {
		i.log.Warn("setup code send failed",
			zap.String("user", userID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrMailDispatch, err)
	}
	return nil
}

// BeginTOTPSetup stores a fresh pending authenticator secret and returns its
// provisioning payload. Any earlier pending enrollment or login code is
// voided.
func (i *Issuer) BeginTOTPSetup(ctx context.Context, userID, primaryEmail string) (*totp.Provisioning, error) {
	prov, err := totp.Generate(accountLabel(primaryEmail, userID))
	if err != nil {
		return nil, err
	}
	_, err = i.store.Mutate(ctx, userID, func(p *profile.UserAuthProfile) error {
		if p.Email == "" {
			p.Email = primaryEmail
		}
		p.ClearPending()
		p.ClearChallenge()
		p.PendingTOTPSecret = prov.Secret
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prov, nil
}

// VerifyTOTPSetup checks code against the pending secret. A valid code
// activates the authenticator method in the same write that consumes the
// pending secret. An invalid code voids the pending secret and returns a
// fresh provisioning payload alongside ok=false, so a mistyped or
// stale-clock enrollment restarts from a new QR rather than leaving a
// half-trusted secret behind.
func (i *Issuer) VerifyTOTPSetup(ctx context.Context, userID string, code string) (bool, *totp.Provisioning, error) {
	var (
		ok    bool
		fresh *totp.Provisioning
	)
	_, err := i.store.Mutate(ctx, userID, func(p *profile.UserAuthProfile) error {
		ok, fresh = false, nil
		if p.PendingTOTPSecret == "" {
			return ErrNoPendingCode
		}
		if totp.Validate(code, p.PendingTOTPSecret) {
			ok = true
			p.MFAEnabled = true
			p.Method = profile.MethodTOTP
			p.ClearPending()
			p.ClearChallenge()
			return nil
		}
		prov, err := totp.Generate(accountLabel(p.Email, userID))
		if err != nil {
			return err
		}
		fresh = prov
		p.PendingTOTPSecret = prov.Secret
		return nil
	})
	if err != nil {
		return false, nil, err
	}
	return ok, fresh, nil
}

// IssueLoginCode stores a fresh login code and mails it to the secondary
// address. It refuses when the email method is not fully configured. Send
// failures keep the stored code, as in [Issuer.BeginEmailSetup].
func (i *Issuer) IssueLoginCode(ctx context.Context, userID string) error {
	var (
		code      string
		secondary string
	)
	_, err := i.store.Mutate(ctx, userID, func(p *profile.UserAuthProfile) error {
		if !p.MFAEnabled || p.Method != profile.MethodEmail || p.SecondaryEmail == "" {
			return ErrNotConfigured
		}
		var err error
		code, err = i.freshCode(p.ChallengeCode, p.PendingCode)
		if err != nil {
			return err
		}
		secondary = p.SecondaryEmail
		p.ClearPending()
		p.ChallengeCode = code
		p.ChallengeExpiresAt = i.now().Add(LoginCodeTTL).Unix()
		return nil
	})
	if err != nil {
		return err
	}

	if err := i.mailer.SendCode(ctx, secondary, code, PurposeLogin); err != nil {
		i.log.Warn("login code send failed",
			zap.String("user", userID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrMailDispatch, err)
	}
	return nil
}

// VerifyCode consumes whichever emailed code is outstanding, resolving the
// purpose from the record itself: a pending enrollment wins over a login
// code, and the two never coexist. Expiry is checked before comparison, so
// an expired code always reports [ErrCodeExpired] even when the digits
// match. A mismatch leaves the code in place for another attempt; success
// for the setup purpose activates the email method in the same write.
func (i *Issuer) VerifyCode(ctx context.Context, userID string, code string) (Purpose, error) {
	var (
		purpose Purpose
		verr    error
	)
	_, err := i.store.Mutate(ctx, userID, func(p *profile.UserAuthProfile) error {
		verr = nil
		now := i.now().Unix()
		switch {
		case p.PendingCode != "":
			purpose = PurposeSetup
			if now > p.PendingExpiresAt {
				// The clear must persist, so the callback succeeds and the
				// verification error rides out separately.
				p.ClearPending()
				verr = ErrCodeExpired
				return nil
			}
			if !internal.CodesEqual(code, p.PendingCode) {
				return ErrCodeMismatch
			}
			p.MFAEnabled = true
			p.Method = profile.MethodEmail
			p.SecondaryEmail = p.PendingEmail
			p.ClearPending()
			p.ClearChallenge()
			return nil
		case p.ChallengeCode != "":
			purpose = PurposeLogin
			if now > p.ChallengeExpiresAt {
				p.ClearChallenge()
				verr = ErrCodeExpired
				return nil
			}
			if !internal.CodesEqual(code, p.ChallengeCode) {
				return ErrCodeMismatch
			}
			p.ClearChallenge()
			return nil
		default:
			return ErrNoPendingCode
		}
	})
	if err != nil {
		return purpose, err
	}
	return purpose, verr
}

// freshCode generates a code guaranteed to differ from the ones it replaces.
func (i *Issuer) freshCode(previous ...string) (string, error) {
	for attempt := 0; attempt < 8; attempt++ {
		code, err := internal.NewNumericCode(internal.CodeDigits)
		if err != nil {
			return "", err
		}
		reused := false
		for _, prev := range previous {
			if prev != "" && code == prev {
				reused = true
				break
			}
		}
		if !reused {
			return code, nil
		}
	}
	return "", errors.New("code generation exhausted")
}

func accountLabel(email, userID string) string {
	if email != "" {
		return email
	}
	return userID
}

func sameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
