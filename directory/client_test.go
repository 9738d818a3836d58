package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tripwell/tripauth"
)

func newStubDirectory(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "client-1")
}

func tokensResponse() authResponse {
	return authResponse{
		Tokens: &tokenPayload{IDToken: "id-tok", AccessToken: "access-tok", ExpiresIn: 3600},
	}
}

func TestAuthenticateSuccess(t *testing.T) {
	client := newStubDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/initiate" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req initiateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request failed: %v", err)
		}
		if req.ClientID != "client-1" || req.Username != "alice@example.com" {
			t.Fatalf("unexpected request %+v", req)
		}
		json.NewEncoder(w).Encode(tokensResponse())
	})

	out, err := client.Authenticate(context.Background(), "alice@example.com", "pw")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if out.Status != tripauth.OutcomeAuthenticated || out.Session == nil {
		t.Fatalf("expected authenticated outcome, got %+v", out)
	}
	if out.Session.IDToken != "id-tok" || out.Session.ExpiresAt.IsZero() {
		t.Fatalf("unexpected session %+v", out.Session)
	}
}

func TestAuthenticateChallengeThenVerify(t *testing.T) {
	step := 0
	client := newStubDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		switch step {
		case 0:
			step++
			json.NewEncoder(w).Encode(authResponse{
				Challenge: "SOFTWARE_TOKEN_MFA",
				Session:   "opaque-continuation",
				Params:    map[string]string{"FRIENDLY_DEVICE_NAME": "phone"},
			})
		default:
			var req challengeRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode challenge failed: %v", err)
			}
			if req.Session != "opaque-continuation" || req.Challenge != "SOFTWARE_TOKEN_MFA" {
				t.Fatalf("continuation not carried: %+v", req)
			}
			if req.Answers["SOFTWARE_TOKEN_MFA_CODE"] != "123456" {
				t.Fatalf("unexpected answers %+v", req.Answers)
			}
			json.NewEncoder(w).Encode(tokensResponse())
		}
	})

	out, err := client.Authenticate(context.Background(), "alice@example.com", "pw")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if out.Status != tripauth.OutcomeChallenge || out.Challenge != tripauth.DirectorySoftwareTokenMFA {
		t.Fatalf("expected challenge outcome, got %+v", out)
	}

	out, err = client.VerifyChallengeCode(context.Background(), "123456", tripauth.DirectorySoftwareTokenMFA)
	if err != nil {
		t.Fatalf("VerifyChallengeCode failed: %v", err)
	}
	if out.Status != tripauth.OutcomeAuthenticated {
		t.Fatalf("expected authenticated outcome, got %+v", out)
	}
}

func TestAuthenticateRejectionIsFailedOutcome(t *testing.T) {
	client := newStubDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(errorResponse{Code: "NotAuthorizedException", Message: "bad creds"})
	})

	out, err := client.Authenticate(context.Background(), "alice@example.com", "wrong")
	if err != nil {
		t.Fatalf("rejections must not be transport errors: %v", err)
	}
	if out.Status != tripauth.OutcomeFailed || out.Err == nil {
		t.Fatalf("expected failed outcome, got %+v", out)
	}
}

func TestAuthenticatePasswordResetBecomesNewPasswordChallenge(t *testing.T) {
	client := newStubDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(errorResponse{Code: "PasswordResetRequiredException", Message: "reset"})
	})

	out, err := client.Authenticate(context.Background(), "alice@example.com", "pw")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if out.Status != tripauth.OutcomeChallenge || out.Challenge != tripauth.DirectoryNewPasswordRequired {
		t.Fatalf("expected NEW_PASSWORD_REQUIRED, got %+v", out)
	}
}

func TestAuthenticateServerErrorIsTransportError(t *testing.T) {
	client := newStubDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := client.Authenticate(context.Background(), "alice@example.com", "pw")
	if !errors.Is(err, tripauth.ErrDirectoryUnavailable) {
		t.Fatalf("expected ErrDirectoryUnavailable, got %v", err)
	}
}

func TestAuthenticatorOpsRequireAccessToken(t *testing.T) {
	client := newStubDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected without an access token")
	})
	if _, err := client.AssociateAuthenticatorSecret(context.Background()); !errors.Is(err, tripauth.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := client.ConfirmAuthenticatorCode(context.Background(), "123456"); !errors.Is(err, tripauth.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestAssociateAndConfirmAuthenticator(t *testing.T) {
	client := newStubDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/initiate":
			json.NewEncoder(w).Encode(tokensResponse())
		case "/auth/totp/associate":
			var req mfaPreferenceRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccessToken != "access-tok" {
				t.Fatalf("expected access token, got %+v err=%v", req, err)
			}
			json.NewEncoder(w).Encode(associateResponse{SecretCode: "SECRETBASE32"})
		case "/auth/totp/verify":
			json.NewEncoder(w).Encode(verifyTokenResponse{Status: "SUCCESS"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	if _, err := client.Authenticate(context.Background(), "alice@example.com", "pw"); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	assoc, err := client.AssociateAuthenticatorSecret(context.Background())
	if err != nil {
		t.Fatalf("AssociateAuthenticatorSecret failed: %v", err)
	}
	if assoc.Secret != "SECRETBASE32" {
		t.Fatalf("unexpected secret %q", assoc.Secret)
	}
	if want := "secret=SECRETBASE32"; !strings.Contains(assoc.OtpauthURI, want) || !strings.HasPrefix(assoc.OtpauthURI, "otpauth://totp/") {
		t.Fatalf("unexpected otpauth uri %q", assoc.OtpauthURI)
	}

	ok, err := client.ConfirmAuthenticatorCode(context.Background(), "123456")
	if err != nil || !ok {
		t.Fatalf("expected confirmation, got ok=%v err=%v", ok, err)
	}
}

func TestConfirmAuthenticatorMismatchIsNotError(t *testing.T) {
	client := newStubDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/initiate" {
			json.NewEncoder(w).Encode(tokensResponse())
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(errorResponse{Code: "CodeMismatchException", Message: "wrong code"})
	})

	if _, err := client.Authenticate(context.Background(), "alice@example.com", "pw"); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	ok, err := client.ConfirmAuthenticatorCode(context.Background(), "000000")
	if err != nil {
		t.Fatalf("mismatch must not be an error: %v", err)
	}
	if ok {
		t.Fatal("expected mismatch to report false")
	}
}

