package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tripwell/tripauth"
)

// apiError is a rejection the directory returned deliberately, as opposed to
// the directory being unreachable.
type apiError struct {
	Code    string
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Client drives the directory's HTTP API for one user at a time. It carries
// the opaque challenge continuation and the access token between calls, the
// same way a device-held SDK session would.
//
// Client implements [tripauth.IdentityGateway]. Like the orchestrator that
// owns it, it is per-session state and not safe for concurrent use.
type Client struct {
	baseURL  string
	clientID string
	issuer   string
	http     *http.Client
	log      *zap.Logger
	now      func() time.Time

	username string
	session  string
	access   string
}

// Option configures a directory client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the client logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithIssuer overrides the issuer label encoded into otpauth URIs.
func WithIssuer(issuer string) Option {
	return func(c *Client) { c.issuer = issuer }
}

// NewClient creates a directory client for the given endpoint and app
// client id.
func NewClient(baseURL, clientID string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		clientID: clientID,
		issuer:   "TripWell",
		http:     &http.Client{Timeout: 30 * time.Second},
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authenticate runs the primary credential handshake.
func (c *Client) Authenticate(ctx context.Context, email, password string) (tripauth.Outcome, error) {
	c.username = email
	c.session = ""
	c.access = ""

	var resp authResponse
	err := c.call(ctx, "/auth/initiate", &initiateRequest{
		ClientID: c.clientID,
		Username: email,
		Password: password,
	}, &resp)
	if err != nil {
		var rejected *apiError
		if errors.As(err, &rejected) {
			return c.mapRejection(rejected), nil
		}
		return tripauth.Outcome{}, err
	}
	return c.mapAuthResponse(&resp)
}

// VerifyChallengeCode answers the outstanding directory challenge.
func (c *Client) VerifyChallengeCode(ctx context.Context, code string, kind tripauth.DirectoryChallengeKind) (tripauth.Outcome, error) {
	var resp authResponse
	err := c.call(ctx, "/auth/challenge", &challengeRequest{
		ClientID:  c.clientID,
		Username:  c.username,
		Challenge: string(kind),
		Session:   c.session,
		Answers:   map[string]string{answerKey(kind): code},
	}, &resp)
	if err != nil {
		var rejected *apiError
		if errors.As(err, &rejected) {
			return c.mapRejection(rejected), nil
		}
		return tripauth.Outcome{}, err
	}
	return c.mapAuthResponse(&resp)
}

// AssociateAuthenticatorSecret asks the directory for a fresh software token
// secret bound to the current access token and renders its otpauth URI.
func (c *Client) AssociateAuthenticatorSecret(ctx context.Context) (*tripauth.AuthenticatorAssociation, error) {
	if c.access == "" {
		return nil, tripauth.ErrNotAuthenticated
	}
	var resp associateResponse
	err := c.call(ctx, "/auth/totp/associate", &mfaPreferenceRequest{AccessToken: c.access}, &resp)
	if err != nil {
		return nil, err
	}
	return &tripauth.AuthenticatorAssociation{
		Secret:     resp.SecretCode,
		OtpauthURI: c.otpauthURI(resp.SecretCode),
	}, nil
}

// ConfirmAuthenticatorCode verifies a code against the associated software
// token. A mismatch is reported as ok=false, not an error.
func (c *Client) ConfirmAuthenticatorCode(ctx context.Context, code string) (bool, error) {
	if c.access == "" {
		return false, tripauth.ErrNotAuthenticated
	}
	var resp verifyTokenResponse
	err := c.call(ctx, "/auth/totp/verify", &verifyTokenRequest{
		AccessToken: c.access,
		UserCode:    code,
	}, &resp)
	if err != nil {
		var rejected *apiError
		if errors.As(err, &rejected) {
			switch rejected.Code {
			case codeCodeMismatch, codeEnableSoftware:
				return false, nil
			}
		}
		return false, err
	}
	return resp.Status == statusVerifySuccess, nil
}

// ClearMFAPreference removes the directory-side MFA preference for the
// current user.
func (c *Client) ClearMFAPreference(ctx context.Context) error {
	if c.access == "" {
		return tripauth.ErrNotAuthenticated
	}
	return c.call(ctx, "/auth/mfa/preference", &mfaPreferenceRequest{
		AccessToken: c.access,
		ClearAll:    true,
	}, nil)
}

// AdoptAccessToken primes the client with an access token restored from app
// storage, so authenticated directory operations work after a session
// adoption.
func (c *Client) AdoptAccessToken(token string) {
	c.access = token
}

func (c *Client) mapAuthResponse(resp *authResponse) (tripauth.Outcome, error) {
	if resp.Tokens != nil {
		c.session = ""
		c.access = resp.Tokens.AccessToken
		return tripauth.Authenticated(&tripauth.Session{
			IDToken:     resp.Tokens.IDToken,
			AccessToken: resp.Tokens.AccessToken,
			ExpiresAt:   c.now().Add(time.Duration(resp.Tokens.ExpiresIn) * time.Second),
		}), nil
	}
	if resp.Challenge != "" {
		c.session = resp.Session
		return tripauth.ChallengeRequired(tripauth.DirectoryChallengeKind(resp.Challenge), resp.Params), nil
	}
	return tripauth.Outcome{}, fmt.Errorf("%w: response carries neither tokens nor a challenge", tripauth.ErrDirectoryUnavailable)
}

func (c *Client) mapRejection(rejected *apiError) tripauth.Outcome {
	c.log.Debug("directory rejected request", zap.String("code", rejected.Code))
	if rejected.Code == codePasswordReset {
		return tripauth.ChallengeRequired(tripauth.DirectoryNewPasswordRequired, nil)
	}
	return tripauth.Failed(rejected)
}

func (c *Client) call(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: marshal request: %v", tripauth.ErrDirectoryUnavailable, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", tripauth.ErrDirectoryUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", tripauth.ErrDirectoryUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", tripauth.ErrDirectoryUnavailable, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(respBody) == 0 {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("%w: decode response: %v", tripauth.ErrDirectoryUnavailable, err)
		}
		return nil
	}

	var rejection errorResponse
	if resp.StatusCode < 500 && json.Unmarshal(respBody, &rejection) == nil && rejection.Code != "" {
		return &apiError{Code: rejection.Code, Message: rejection.Message}
	}
	return fmt.Errorf("%w: status %d", tripauth.ErrDirectoryUnavailable, resp.StatusCode)
}

func (c *Client) otpauthURI(secret string) string {
	label := url.PathEscape(c.issuer + ":" + c.username)
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", c.issuer)
	v.Set("algorithm", "SHA1")
	v.Set("digits", "6")
	v.Set("period", "30")
	return "otpauth://totp/" + label + "?" + v.Encode()
}

func answerKey(kind tripauth.DirectoryChallengeKind) string {
	switch kind {
	case tripauth.DirectorySMSMFA:
		return "SMS_MFA_CODE"
	case tripauth.DirectorySoftwareTokenMFA:
		return "SOFTWARE_TOKEN_MFA_CODE"
	case tripauth.DirectorySelectMFAType:
		return "ANSWER"
	case tripauth.DirectoryNewPasswordRequired:
		return "NEW_PASSWORD"
	}
	return "ANSWER"
}
