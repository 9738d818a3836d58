package issuer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/tripwell/tripauth/profile"
	"github.com/tripwell/tripauth/totp"
)

type recordingMailer struct {
	sent    []sentMail
	sendErr error
}

type sentMail struct {
	to      string
	code    string
	purpose Purpose
}

func (m *recordingMailer) SendCode(_ context.Context, to, code string, purpose Purpose) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMail{to: to, code: code, purpose: purpose})
	return nil
}

func newTestIssuer(t *testing.T) (*Issuer, *profile.Store, *recordingMailer, *time.Time) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	now := time.Unix(1760000000, 0)
	clock := func() time.Time { return now }

	store := profile.NewStore(rdb, "aup").WithClock(clock)
	mailer := &recordingMailer{}
	iss := New(store, mailer, nil).WithClock(clock)
	return iss, store, mailer, &now
}

func TestBeginEmailSetupStoresAndMailsCode(t *testing.T) {
	iss, store, mailer, _ := newTestIssuer(t)
	ctx := context.Background()

	if err := iss.BeginEmailSetup(ctx, "u1", "alice@example.com", "backup@example.com"); err != nil {
		t.Fatalf("BeginEmailSetup failed: %v", err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].to != "backup@example.com" || mailer.sent[0].purpose != PurposeSetup {
		t.Fatalf("unexpected mail: %+v", mailer.sent)
	}

	record, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if record.PendingEmail != "backup@example.com" || record.PendingCode != mailer.sent[0].code {
		t.Fatalf("pending state mismatch: %+v", record)
	}
	if record.MFAEnabled {
		t.Fatal("enrollment must not activate before verification")
	}
	if len(record.PendingCode) != 6 {
		t.Fatalf("expected six digit code, got %q", record.PendingCode)
	}
}

func TestBeginEmailSetupRejectsSameEmail(t *testing.T) {
	iss, _, _, _ := newTestIssuer(t)
	err := iss.BeginEmailSetup(context.Background(), "u1", "alice@example.com", " ALICE@example.com ")
	if !errors.Is(err, ErrSameEmail) {
		t.Fatalf("expected ErrSameEmail, got %v", err)
	}
}

func TestBeginEmailSetupMailFailureKeepsCode(t *testing.T) {
	iss, store, mailer, _ := newTestIssuer(t)
	ctx := context.Background()
	mailer.sendErr = errors.New("smtp down")

	err := iss.BeginEmailSetup(ctx, "u1", "alice@example.com", "backup@example.com")
	if !errors.Is(err, ErrMailDispatch) {
		t.Fatalf("expected ErrMailDispatch, got %v", err)
	}

	record, gerr := store.Get(ctx, "u1")
	if gerr != nil {
		t.Fatalf("Get failed: %v", gerr)
	}
	if record.PendingCode == "" {
		t.Fatal("expected code to survive a failed send")
	}

	// The stored code still completes the enrollment.
	purpose, verr := iss.VerifyCode(ctx, "u1", record.PendingCode)
	if verr != nil || purpose != PurposeSetup {
		t.Fatalf("expected setup verification, got purpose=%v err=%v", purpose, verr)
	}
}

func TestVerifyCodeActivatesEmailMethodInOneWrite(t *testing.T) {
	iss, store, mailer, _ := newTestIssuer(t)
	ctx := context.Background()

	if err := iss.BeginEmailSetup(ctx, "u1", "alice@example.com", "backup@example.com"); err != nil {
		t.Fatalf("BeginEmailSetup failed: %v", err)
	}
	if _, err := iss.VerifyCode(ctx, "u1", mailer.sent[0].code); err != nil {
		t.Fatalf("VerifyCode failed: %v", err)
	}

	record, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !record.MFAEnabled || record.Method != profile.MethodEmail || record.SecondaryEmail != "backup@example.com" {
		t.Fatalf("activation incomplete: %+v", record)
	}
	if record.PendingCode != "" || record.PendingEmail != "" {
		t.Fatalf("pending fields survived consumption: %+v", record)
	}
}

func TestVerifyCodeExpiredBeatsMismatch(t *testing.T) {
	iss, store, mailer, now := newTestIssuer(t)
	ctx := context.Background()

	if err := iss.BeginEmailSetup(ctx, "u1", "alice@example.com", "backup@example.com"); err != nil {
		t.Fatalf("BeginEmailSetup failed: %v", err)
	}
	code := mailer.sent[0].code

	*now = now.Add(SetupCodeTTL + time.Minute)

	// Correct digits, but past the deadline: expiry must win.
	if _, err := iss.VerifyCode(ctx, "u1", code); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("expected ErrCodeExpired, got %v", err)
	}

	record, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if record.PendingCode != "" {
		t.Fatal("expected expired code to be cleared")
	}
	if _, err := iss.VerifyCode(ctx, "u1", code); !errors.Is(err, ErrNoPendingCode) {
		t.Fatalf("expected ErrNoPendingCode after clear, got %v", err)
	}
}

func TestVerifyCodeMismatchKeepsCode(t *testing.T) {
	iss, _, mailer, _ := newTestIssuer(t)
	ctx := context.Background()

	if err := iss.BeginEmailSetup(ctx, "u1", "alice@example.com", "backup@example.com"); err != nil {
		t.Fatalf("BeginEmailSetup failed: %v", err)
	}
	if _, err := iss.VerifyCode(ctx, "u1", "000000"); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("expected ErrCodeMismatch, got %v", err)
	}
	// The real code still works.
	if _, err := iss.VerifyCode(ctx, "u1", mailer.sent[0].code); err != nil {
		t.Fatalf("VerifyCode after mismatch failed: %v", err)
	}
}

func TestIssueLoginCodeRequiresConfiguredMethod(t *testing.T) {
	iss, _, _, _ := newTestIssuer(t)
	if err := iss.IssueLoginCode(context.Background(), "u1"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestLoginCodeLifecycle(t *testing.T) {
	iss, store, mailer, now := newTestIssuer(t)
	ctx := context.Background()

	if err := iss.BeginEmailSetup(ctx, "u1", "alice@example.com", "backup@example.com"); err != nil {
		t.Fatalf("BeginEmailSetup failed: %v", err)
	}
	if _, err := iss.VerifyCode(ctx, "u1", mailer.sent[0].code); err != nil {
		t.Fatalf("setup verification failed: %v", err)
	}

	if err := iss.IssueLoginCode(ctx, "u1"); err != nil {
		t.Fatalf("IssueLoginCode failed: %v", err)
	}
	if len(mailer.sent) != 2 || mailer.sent[1].purpose != PurposeLogin || mailer.sent[1].to != "backup@example.com" {
		t.Fatalf("unexpected login mail: %+v", mailer.sent)
	}

	record, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	wantExpiry := now.Add(LoginCodeTTL).Unix()
	if record.ChallengeCode != mailer.sent[1].code || record.ChallengeExpiresAt != wantExpiry {
		t.Fatalf("challenge state mismatch: %+v", record)
	}

	purpose, err := iss.VerifyCode(ctx, "u1", mailer.sent[1].code)
	if err != nil || purpose != PurposeLogin {
		t.Fatalf("expected login verification, got purpose=%v err=%v", purpose, err)
	}

	record, err = store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if record.ChallengeCode != "" {
		t.Fatal("expected consumed login code to be cleared")
	}
	if !record.MFAEnabled || record.Method != profile.MethodEmail {
		t.Fatal("login verification must not change configuration")
	}
}

func TestBeginEmailSetupVoidsLoginChallenge(t *testing.T) {
	iss, store, mailer, _ := newTestIssuer(t)
	ctx := context.Background()

	if err := iss.BeginEmailSetup(ctx, "u1", "alice@example.com", "backup@example.com"); err != nil {
		t.Fatalf("BeginEmailSetup failed: %v", err)
	}
	if _, err := iss.VerifyCode(ctx, "u1", mailer.sent[0].code); err != nil {
		t.Fatalf("setup verification failed: %v", err)
	}
	if err := iss.IssueLoginCode(ctx, "u1"); err != nil {
		t.Fatalf("IssueLoginCode failed: %v", err)
	}

	// Starting a new enrollment while a login code is outstanding voids it.
	if err := iss.BeginEmailSetup(ctx, "u1", "alice@example.com", "other@example.com"); err != nil {
		t.Fatalf("second BeginEmailSetup failed: %v", err)
	}
	record, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if record.ChallengeCode != "" {
		t.Fatal("expected login challenge to be voided by new enrollment")
	}
	if record.PendingEmail != "other@example.com" {
		t.Fatalf("expected fresh pending enrollment: %+v", record)
	}
}

func TestTOTPSetupLifecycle(t *testing.T) {
	iss, store, _, _ := newTestIssuer(t)
	ctx := context.Background()

	prov, err := iss.BeginTOTPSetup(ctx, "u1", "alice@example.com")
	if err != nil {
		t.Fatalf("BeginTOTPSetup failed: %v", err)
	}
	if prov.Secret == "" || prov.OtpauthURL == "" || prov.QRCode == "" {
		t.Fatalf("incomplete provisioning: %+v", prov)
	}

	code, err := totp.Code(prov.Secret, time.Now())
	if err != nil {
		t.Fatalf("code generation failed: %v", err)
	}
	ok, fresh, err := iss.VerifyTOTPSetup(ctx, "u1", code)
	if err != nil {
		t.Fatalf("VerifyTOTPSetup failed: %v", err)
	}
	if !ok || fresh != nil {
		t.Fatalf("expected successful activation, got ok=%v fresh=%+v", ok, fresh)
	}

	record, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !record.MFAEnabled || record.Method != profile.MethodTOTP || record.PendingTOTPSecret != "" {
		t.Fatalf("activation incomplete: %+v", record)
	}
}

func TestVerifyTOTPSetupMismatchRotatesSecret(t *testing.T) {
	iss, store, _, _ := newTestIssuer(t)
	ctx := context.Background()

	prov, err := iss.BeginTOTPSetup(ctx, "u1", "alice@example.com")
	if err != nil {
		t.Fatalf("BeginTOTPSetup failed: %v", err)
	}

	ok, fresh, err := iss.VerifyTOTPSetup(ctx, "u1", "000000")
	if err != nil {
		t.Fatalf("VerifyTOTPSetup failed: %v", err)
	}
	if ok || fresh == nil {
		t.Fatalf("expected rotation on mismatch, got ok=%v fresh=%+v", ok, fresh)
	}
	if fresh.Secret == prov.Secret {
		t.Fatal("expected a different replacement secret")
	}

	record, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if record.PendingTOTPSecret != fresh.Secret {
		t.Fatal("expected replacement secret to be stored")
	}
	if record.MFAEnabled {
		t.Fatal("mismatch must not activate anything")
	}
}

func TestVerifyTOTPSetupWithoutPending(t *testing.T) {
	iss, _, _, _ := newTestIssuer(t)
	if _, _, err := iss.VerifyTOTPSetup(context.Background(), "u1", "123456"); !errors.Is(err, ErrNoPendingCode) {
		t.Fatalf("expected ErrNoPendingCode, got %v", err)
	}
}
