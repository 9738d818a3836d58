package totp

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"
)

func TestGenerateProducesValidatableCodes(t *testing.T) {
	prov, err := Generate("alice@example.com")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if prov.Secret == "" {
		t.Fatal("expected non-empty secret")
	}
	if !strings.HasPrefix(prov.OtpauthURL, "otpauth://totp/") {
		t.Fatalf("unexpected otpauth url %q", prov.OtpauthURL)
	}
	if !strings.Contains(prov.OtpauthURL, Issuer) {
		t.Fatal("expected issuer label in otpauth url")
	}

	code, err := Code(prov.Secret, time.Now())
	if err != nil {
		t.Fatalf("Code failed: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected six digits, got %q", code)
	}
	if !Validate(code, prov.Secret) {
		t.Fatal("expected current code to validate")
	}
	if Validate("000000", prov.Secret) && code != "000000" {
		t.Fatal("expected wrong code to fail")
	}
}

func TestValidateAcceptsAdjacentPeriod(t *testing.T) {
	prov, err := Generate("alice@example.com")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	code, err := Code(prov.Secret, time.Now().Add(-30*time.Second))
	if err != nil {
		t.Fatalf("Code failed: %v", err)
	}
	if !Validate(code, prov.Secret) {
		t.Fatal("expected one period of drift to be tolerated")
	}
}

func TestQRCodeIsPNG(t *testing.T) {
	prov, err := Generate("alice@example.com")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(prov.QRCode)
	if err != nil {
		t.Fatalf("qr code is not base64: %v", err)
	}
	if len(raw) < 8 || string(raw[1:4]) != "PNG" {
		t.Fatal("expected PNG payload")
	}

	again, err := QRCodeFromURL(prov.OtpauthURL)
	if err != nil {
		t.Fatalf("QRCodeFromURL failed: %v", err)
	}
	if again == "" {
		t.Fatal("expected rendered qr from url")
	}
}
