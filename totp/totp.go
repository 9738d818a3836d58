// Package totp wraps time-based one-time password provisioning and
// validation for the authenticator method: secret generation, otpauth URL
// construction, QR rendering, and code checks.
package totp

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Issuer is the issuer label encoded into provisioning URLs and shown by
// authenticator apps.
const Issuer = "TripWell"

// validateOpts are the parameters every code check uses. A skew of one
// period tolerates client clock drift of up to thirty seconds either way.
var validateOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// Provisioning carries everything a client needs to enroll an authenticator.
type Provisioning struct {
	Secret     string
	OtpauthURL string
	QRCode     string
}

// Generate creates a fresh secret for account and renders its provisioning
// payload.
func Generate(account string) (*Provisioning, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      Issuer,
		AccountName: account,
		SecretSize:  20,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp secret: %w", err)
	}
	qr, err := renderQR(key)
	if err != nil {
		return nil, err
	}
	return &Provisioning{
		Secret:     key.Secret(),
		OtpauthURL: key.URL(),
		QRCode:     qr,
	}, nil
}

// QRCodeFromURL renders an existing otpauth URL as a base64-encoded PNG, for
// secrets associated elsewhere.
func QRCodeFromURL(otpauthURL string) (string, error) {
	key, err := otp.NewKeyFromURL(otpauthURL)
	if err != nil {
		return "", fmt.Errorf("parse otpauth url: %w", err)
	}
	return renderQR(key)
}

// Validate reports whether code is currently valid for secret.
func Validate(code, secret string) bool {
	ok, err := totp.ValidateCustom(code, secret, time.Now().UTC(), validateOpts)
	return err == nil && ok
}

// Code computes the current code for secret. Tests and the directory stub
// use it to produce valid submissions.
func Code(secret string, at time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, at.UTC(), validateOpts)
}

func renderQR(key *otp.Key) (string, error) {
	img, err := key.Image(256, 256)
	if err != nil {
		return "", fmt.Errorf("render qr image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode qr png: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
