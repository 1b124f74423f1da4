package delivery

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/JordanSekky/cereal-convert/app/cfg"
	"github.com/JordanSekky/cereal-convert/app/database"
)

type fakeDeliveryMethodRepo struct {
	methods map[string]*database.DeliveryMethod
}

func newFakeDeliveryMethodRepo() *fakeDeliveryMethodRepo {
	return &fakeDeliveryMethodRepo{methods: make(map[string]*database.DeliveryMethod)}
}

func (r *fakeDeliveryMethodRepo) get(userID string) *database.DeliveryMethod {
	dm, ok := r.methods[userID]
	if !ok {
		dm = &database.DeliveryMethod{UserID: userID}
		r.methods[userID] = dm
	}
	return dm
}

func (r *fakeDeliveryMethodRepo) GetDeliveryMethod(userID string) (*database.DeliveryMethod, error) {
	return r.methods[userID], nil
}

func (r *fakeDeliveryMethodRepo) SetKindleEmail(userID, email, verificationCode string, codeTime time.Time) error {
	dm := r.get(userID)
	dm.KindleEmail = &email
	dm.KindleEmailVerified = false
	dm.KindleEmailEnabled = false
	dm.KindleEmailVerificationCode = &verificationCode
	dm.KindleEmailVerificationCodeTime = &codeTime
	return nil
}

func (r *fakeDeliveryMethodRepo) MarkKindleEmailVerified(userID string) error {
	dm := r.get(userID)
	dm.KindleEmailVerified = true
	dm.KindleEmailEnabled = true
	dm.KindleEmailVerificationCode = nil
	return nil
}

func (r *fakeDeliveryMethodRepo) SetKindleEmailEnabled(userID string, enabled bool) error {
	r.get(userID).KindleEmailEnabled = enabled
	return nil
}

func (r *fakeDeliveryMethodRepo) SetPushoverKey(userID, key, verificationCode string, codeTime time.Time) error {
	dm := r.get(userID)
	dm.PushoverKey = &key
	dm.PushoverKeyVerified = false
	dm.PushoverEnabled = false
	dm.PushoverVerificationCode = &verificationCode
	dm.PushoverVerificationCodeTime = &codeTime
	return nil
}

func (r *fakeDeliveryMethodRepo) MarkPushoverVerified(userID string) error {
	dm := r.get(userID)
	dm.PushoverKeyVerified = true
	dm.PushoverEnabled = true
	dm.PushoverVerificationCode = nil
	return nil
}

func (r *fakeDeliveryMethodRepo) SetPushoverEnabled(userID string, enabled bool) error {
	r.get(userID).PushoverEnabled = enabled
	return nil
}

type fakeArtifactMaker struct{}

func (fakeArtifactMaker) VerificationArtifact(ctx context.Context, code string) ([]byte, error) {
	return []byte("epub:" + code), nil
}

func newTestVerifier(t *testing.T) (*Verifier, *fakeDeliveryMethodRepo, *fakeEmailSender, *fakePushSender) {
	t.Helper()
	cfg.SetForTesting(&cfg.Cfg{VerificationTTL: 300})

	repo := newFakeDeliveryMethodRepo()
	email := &fakeEmailSender{}
	push := &fakePushSender{}
	return NewVerifier(repo, email, push, fakeArtifactMaker{}), repo, email, push
}

func TestKindleVerificationRoundTrip(t *testing.T) {
	verifier, repo, email, _ := newTestVerifier(t)
	ctx := context.Background()

	if err := verifier.BeginKindleVerification(ctx, "user-1", "reader@kindle.com"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(email.sent) != 1 {
		t.Fatalf("Expected 1 verification email, got: %d", len(email.sent))
	}
	if email.sent[0].Attachment == nil {
		t.Fatal("Expected verification artifact attached")
	}

	dm := repo.methods["user-1"]
	if dm.KindleEmailVerified {
		t.Error("Expected email to start unverified")
	}
	code := *dm.KindleEmailVerificationCode
	if !strings.HasSuffix(string(email.sent[0].Attachment.Data), code) {
		t.Error("Expected attached artifact to carry the issued code")
	}

	if err := verifier.ConfirmKindle(ctx, "user-1", code); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !dm.KindleEmailVerified || !dm.KindleEmailEnabled {
		t.Error("Expected confirmation to verify and enable the email")
	}
}

func TestConfirmKindleWrongCode(t *testing.T) {
	verifier, repo, _, _ := newTestVerifier(t)
	ctx := context.Background()

	if err := verifier.BeginKindleVerification(ctx, "user-1", "reader@kindle.com"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if err := verifier.ConfirmKindle(ctx, "user-1", "WRONGCODE"); err == nil {
		t.Error("Expected error for mismatched code")
	}
	if repo.methods["user-1"].KindleEmailVerified {
		t.Error("Expected email to stay unverified after mismatch")
	}
}

func TestConfirmKindleExpiredCode(t *testing.T) {
	verifier, repo, _, _ := newTestVerifier(t)
	ctx := context.Background()

	issued := time.Now()
	verifier.now = func() time.Time { return issued }
	if err := verifier.BeginKindleVerification(ctx, "user-1", "reader@kindle.com"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	verifier.now = func() time.Time { return issued.Add(301 * time.Second) }
	code := *repo.methods["user-1"].KindleEmailVerificationCode
	err := verifier.ConfirmKindle(ctx, "user-1", code)
	if err == nil || !strings.Contains(err.Error(), "expired") {
		t.Errorf("Expected expiry error, got: %v", err)
	}
}

func TestConfirmKindleNothingPending(t *testing.T) {
	verifier, _, _, _ := newTestVerifier(t)

	if err := verifier.ConfirmKindle(context.Background(), "user-1", "ANYCODE"); err == nil {
		t.Error("Expected error when no verification is pending")
	}
}

func TestPushoverVerificationRoundTrip(t *testing.T) {
	verifier, repo, _, push := newTestVerifier(t)
	ctx := context.Background()

	if err := verifier.BeginPushoverVerification(ctx, "user-1", "po-key"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(push.sent) != 1 {
		t.Fatalf("Expected 1 verification push, got: %d", len(push.sent))
	}
	dm := repo.methods["user-1"]
	code := *dm.PushoverVerificationCode
	if !strings.Contains(push.sent[0].Message, code) {
		t.Error("Expected push message to carry the issued code")
	}

	if err := verifier.ConfirmPushover(ctx, "user-1", code); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !dm.PushoverKeyVerified || !dm.PushoverEnabled {
		t.Error("Expected confirmation to verify and enable the key")
	}
}

func TestNewVerificationCodeAlphabet(t *testing.T) {
	code, err := newVerificationCode()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(code) != 8 {
		t.Errorf("Expected 8 character code, got: %q", code)
	}
	for _, r := range code {
		if !strings.ContainsRune(codeAlphabet, r) {
			t.Errorf("Unexpected character in code: %q", r)
		}
	}
}
