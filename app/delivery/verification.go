package delivery

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/JordanSekky/cereal-convert/app/cfg"
	"github.com/JordanSekky/cereal-convert/app/database"
)

// ArtifactMaker produces the validation epub sent to a kindle address.
type ArtifactMaker interface {
	VerificationArtifact(ctx context.Context, code string) ([]byte, error)
}

// Verifier drives the channel verification state machine: a freshly
// supplied address or key is pending until its code is confirmed within
// the validity window, after which the channel is verified and enabled.
type Verifier struct {
	repo      database.DeliveryMethodRepository
	email     EmailSender
	push      PushSender
	artifacts ArtifactMaker
	ttl       time.Duration
	now       func() time.Time
}

func NewVerifier(repo database.DeliveryMethodRepository, email EmailSender,
	push PushSender, artifacts ArtifactMaker) *Verifier {
	return &Verifier{
		repo:      repo,
		email:     email,
		push:      push,
		artifacts: artifacts,
		ttl:       time.Duration(cfg.Get().VerificationTTL) * time.Second,
		now:       time.Now,
	}
}

// BeginKindleVerification stores the address in pending state and sends
// a validation epub carrying the code, proving the address can receive
// converted artifacts.
func (v *Verifier) BeginKindleVerification(ctx context.Context, userID, email string) error {
	code, err := newVerificationCode()
	if err != nil {
		return err
	}

	if err := v.repo.SetKindleEmail(userID, email, code, v.now()); err != nil {
		return err
	}

	artifact, err := v.artifacts.VerificationArtifact(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to build verification artifact: %w", err)
	}

	attachment := &Attachment{
		FileName: "Cereal Kindle Email Validation.epub",
		Data:     artifact,
	}
	subject := "Cereal kindle email verification"
	if err := v.email.Send(ctx, email, subject, subject, attachment); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}

	return nil
}

func (v *Verifier) ConfirmKindle(ctx context.Context, userID, code string) error {
	dm, err := v.repo.GetDeliveryMethod(userID)
	if err != nil {
		return err
	}
	if dm == nil {
		return fmt.Errorf("no verification is pending")
	}

	if err := v.checkCode(dm.KindleEmailVerificationCode, dm.KindleEmailVerificationCodeTime, code); err != nil {
		return err
	}

	return v.repo.MarkKindleEmailVerified(userID)
}

// BeginPushoverVerification stores the key in pending state and pushes
// the code to it.
func (v *Verifier) BeginPushoverVerification(ctx context.Context, userID, key string) error {
	code, err := newVerificationCode()
	if err != nil {
		return err
	}

	if err := v.repo.SetPushoverKey(userID, key, code, v.now()); err != nil {
		return err
	}

	message := fmt.Sprintf("Your cereal verification code is: %s", code)
	if err := v.push.Send(ctx, key, "Cereal verification", message); err != nil {
		return fmt.Errorf("failed to send verification push: %w", err)
	}

	return nil
}

func (v *Verifier) ConfirmPushover(ctx context.Context, userID, code string) error {
	dm, err := v.repo.GetDeliveryMethod(userID)
	if err != nil {
		return err
	}
	if dm == nil {
		return fmt.Errorf("no verification is pending")
	}

	if err := v.checkCode(dm.PushoverVerificationCode, dm.PushoverVerificationCodeTime, code); err != nil {
		return err
	}

	return v.repo.MarkPushoverVerified(userID)
}

func (v *Verifier) checkCode(stored *string, issued *time.Time, supplied string) error {
	if stored == nil || issued == nil {
		return fmt.Errorf("no verification is pending")
	}
	if v.now().Sub(*issued) > v.ttl {
		return fmt.Errorf("verification code expired, request a new one")
	}
	if *stored != supplied {
		return fmt.Errorf("verification code does not match")
	}
	return nil
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newVerificationCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
