package profileapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/tripwell/tripauth"
)

// Option configures the profile API client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http.httpClient = hc
	}
}

// Client talks to the profile and MFA backend. Every call reads the bearer
// token from its [tripauth.TokenSource] at request time, so challenge-stage
// calls automatically ride on a pending session.
//
// Client implements [tripauth.ProfileService].
type Client struct {
	http *httpClient
}

// NewClient creates a profile API client rooted at baseURL.
func NewClient(baseURL string, tokens tripauth.TokenSource, opts ...Option) *Client {
	c := &Client{
		http: newHTTPClient(baseURL, tokens, &http.Client{Timeout: 30 * time.Second}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetProfile describes the getprofile operation and its observable behavior.
func (c *Client) GetProfile(ctx context.Context) (*tripauth.Profile, error) {
	raw, err := c.http.get(ctx, "/user/profile")
	if err != nil {
		return nil, err
	}
	var dto ProfileDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return nil, &TransportError{Message: "failed to decode profile: " + err.Error()}
	}
	return profileFromDTO(&dto), nil
}

// UpdateProfile describes the updateprofile operation and its observable behavior.
func (c *Client) UpdateProfile(ctx context.Context, patch tripauth.ProfilePatch) (*tripauth.Profile, error) {
	dto := ProfilePatchDTO{
		MFAEnabled:        patch.MFAEnabled,
		MFASecondaryEmail: patch.MFASecondaryEmail,
	}
	if patch.MFAMethod != nil {
		method := string(*patch.MFAMethod)
		dto.MFAMethod = &method
	}
	raw, err := c.http.put(ctx, "/user/profile", &dto)
	if err != nil {
		return nil, mapReason(err)
	}
	var out ProfileDTO
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &TransportError{Message: "failed to decode profile: " + err.Error()}
	}
	return profileFromDTO(&out), nil
}

// SetupEmailMFA describes the setupemailmfa operation and its observable behavior.
func (c *Client) SetupEmailMFA(ctx context.Context, secondaryEmail string) (bool, error) {
	raw, err := c.http.post(ctx, "/user/mfa/email/setup", &EmailSetupRequest{SecondaryEmail: secondaryEmail})
	if err != nil {
		return false, mapReason(err)
	}
	return decodeAck(raw)
}

// VerifyEmailMFA describes the verifyemailmfa operation and its observable behavior.
func (c *Client) VerifyEmailMFA(ctx context.Context, code string) (bool, error) {
	raw, err := c.http.post(ctx, "/user/mfa/email/verify", &CodeRequest{Code: code})
	if err != nil {
		return false, mapReason(err)
	}
	var out VerifyResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return false, &TransportError{Message: "failed to decode verify response: " + err.Error()}
	}
	return out.Verified, nil
}

// RequestLoginCode describes the requestlogincode operation and its observable behavior.
func (c *Client) RequestLoginCode(ctx context.Context) (bool, error) {
	raw, err := c.http.post(ctx, "/auth/email-mfa/request", nil)
	if err != nil {
		return false, mapReason(err)
	}
	return decodeAck(raw)
}

// DisableMFA describes the disablemfa operation and its observable behavior.
func (c *Client) DisableMFA(ctx context.Context) error {
	_, err := c.http.post(ctx, "/user/mfa/disable", nil)
	return mapReason(err)
}

// SetupTOTP requests a fresh pending authenticator secret from the backend.
// This is the backend-issued flavor of enrollment used by the settings
// surface; directory-native enrollment goes through the identity gateway
// instead.
func (c *Client) SetupTOTP(ctx context.Context) (*tripauth.TOTPSetup, error) {
	raw, err := c.http.post(ctx, "/user/mfa/totp/setup", nil)
	if err != nil {
		return nil, mapReason(err)
	}
	var dto TOTPSetupDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return nil, &TransportError{Message: "failed to decode totp setup: " + err.Error()}
	}
	return totpSetupFromDTO(&dto), nil
}

// VerifyTOTP submits the first authenticator code for a backend-issued
// pending secret. On a mismatch the backend rotates the secret; the fresh
// provisioning payload comes back alongside verified=false.
func (c *Client) VerifyTOTP(ctx context.Context, code string) (bool, *tripauth.TOTPSetup, error) {
	raw, err := c.http.post(ctx, "/user/mfa/totp/verify", &CodeRequest{Code: code})
	if err != nil {
		return false, nil, mapReason(err)
	}
	var out VerifyResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return false, nil, &TransportError{Message: "failed to decode verify response: " + err.Error()}
	}
	if out.Setup != nil {
		return out.Verified, totpSetupFromDTO(out.Setup), nil
	}
	return out.Verified, nil, nil
}

func decodeAck(raw json.RawMessage) (bool, error) {
	var out AckResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return false, &TransportError{Message: "failed to decode response: " + err.Error()}
	}
	if out.Warning == ReasonMailDispatch {
		return out.Success, tripauth.ErrMailDispatch
	}
	return out.Success, nil
}

func profileFromDTO(dto *ProfileDTO) *tripauth.Profile {
	method := tripauth.Method(dto.MFAMethod)
	if dto.MFAMethod == "" {
		method = tripauth.MethodNone
	}
	return &tripauth.Profile{
		UserID:            dto.UserID,
		Email:             dto.Email,
		MFAEnabled:        dto.MFAEnabled,
		MFAMethod:         method,
		MFASecondaryEmail: dto.MFASecondaryEmail,
	}
}

func totpSetupFromDTO(dto *TOTPSetupDTO) *tripauth.TOTPSetup {
	return &tripauth.TOTPSetup{
		Secret:     dto.Secret,
		QRCode:     dto.QRCode,
		OtpauthURL: dto.OtpauthURL,
	}
}
