package tripauth

import (
	"context"

	"go.uber.org/zap"
)

// Logout tears the whole client session down: held tokens, pending tokens,
// outstanding challenge, cached profile. It never fails and makes no
// backend call.
func (o *Orchestrator) Logout() {
	o.reset()
}

// RequestVerifiedLogout raises a re-verification challenge that, once
// answered, logs the user out. Accounts without MFA have nothing to verify
// against and are logged out immediately with a nil challenge.
//
// For the email method a fresh code is dispatched first; a dispatch failure
// still raises the challenge (a previously issued code may remain valid) and
// is reported as [ErrMailDispatch] alongside it.
func (o *Orchestrator) RequestVerifiedLogout(ctx context.Context) (*Challenge, error) {
	if o.state != StateAuthenticated {
		return nil, ErrNotAuthenticated
	}
	if o.challenge != nil {
		return nil, ErrChallengeOutstanding
	}
	if o.profile == nil || !o.profile.MFAEnabled || o.profile.MFAMethod == MethodNone {
		o.Logout()
		return nil, nil
	}

	switch o.profile.MFAMethod {
	case MethodEmail:
		o.challenge = newVerifyChallenge(KindEmail, true)
		if _, err := o.profiles.RequestLoginCode(ctx); err != nil {
			o.log.Warn("logout code dispatch failed", zap.Error(err))
			return o.challenge, ErrMailDispatch
		}
		return o.challenge, nil
	default:
		o.challenge = newVerifyChallenge(KindTOTP, true)
		return o.challenge, nil
	}
}

// AdoptSession installs a session restored from app storage, skipping the
// handshake; its challenges were already answered when the directory issued
// it. Expired sessions are rejected. The profile reload is best effort: the
// user stays signed in even when the profile service is down.
//
// Gateways that hold an access token for authenticated directory operations
// and expose an AdoptAccessToken method are primed with the adopted
// session's token, so authenticator checks keep working after a restore.
func (o *Orchestrator) AdoptSession(ctx context.Context, sess *Session) error {
	if sess == nil || sess.Expired(o.cfg.Now()) {
		return ErrSessionMissing
	}
	o.reset()
	o.pendingSession = sess
	if g, ok := o.gateway.(interface{ AdoptAccessToken(token string) }); ok {
		g.AdoptAccessToken(sess.AccessToken)
	}

	claims, err := DecodeDisplayClaims(sess.IDToken)
	if err != nil {
		o.log.Warn("adopted id token claims undecodable", zap.Error(err))
	}
	o.claims = claims

	prof, err := o.profiles.GetProfile(ctx)
	if err != nil {
		o.log.Warn("profile reload failed on session adoption", zap.Error(err))
		prof = &Profile{UserID: claims.Subject, Email: claims.Email, MFAMethod: MethodNone}
	}
	o.finalize(prof)
	return nil
}
