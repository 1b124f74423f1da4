package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ DeliveryMethodRepository = (*DeliveryMethodRepo)(nil)

// DeliveryMethodRepo handles database operations for per-user delivery
// channel configuration
type DeliveryMethodRepo struct {
	db *DB
}

func NewDeliveryMethodRepository(db *DB) *DeliveryMethodRepo {
	return &DeliveryMethodRepo{db: db}
}

func (r *DeliveryMethodRepo) GetDeliveryMethod(userID string) (*DeliveryMethod, error) {
	var dm DeliveryMethod
	err := r.db.QueryRow(`
		SELECT user_id, kindle_email, kindle_email_verified, kindle_email_enabled,
		       kindle_email_verification_code, kindle_email_verification_code_time,
		       pushover_key, pushover_key_verified, pushover_enabled,
		       pushover_verification_code, pushover_verification_code_time,
		       created_at, updated_at
		FROM delivery_methods
		WHERE user_id = $1
	`, userID).Scan(
		&dm.UserID, &dm.KindleEmail, &dm.KindleEmailVerified, &dm.KindleEmailEnabled,
		&dm.KindleEmailVerificationCode, &dm.KindleEmailVerificationCodeTime,
		&dm.PushoverKey, &dm.PushoverKeyVerified, &dm.PushoverEnabled,
		&dm.PushoverVerificationCode, &dm.PushoverVerificationCodeTime,
		&dm.CreatedAt, &dm.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery method: %w", err)
	}
	return &dm, nil
}

// SetKindleEmail registers a kindle address and puts the channel into
// pending verification. Setting a new address always clears any earlier
// verified state.
func (r *DeliveryMethodRepo) SetKindleEmail(userID, email, verificationCode string, codeTime time.Time) error {
	_, err := r.db.Exec(`
		INSERT INTO delivery_methods (user_id, kindle_email, kindle_email_verified,
		                              kindle_email_enabled, kindle_email_verification_code,
		                              kindle_email_verification_code_time)
		VALUES ($1, $2, FALSE, FALSE, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			kindle_email = EXCLUDED.kindle_email,
			kindle_email_verified = FALSE,
			kindle_email_enabled = FALSE,
			kindle_email_verification_code = EXCLUDED.kindle_email_verification_code,
			kindle_email_verification_code_time = EXCLUDED.kindle_email_verification_code_time,
			updated_at = NOW()
	`, userID, email, verificationCode, codeTime)
	if err != nil {
		return fmt.Errorf("failed to set kindle email: %w", err)
	}
	return nil
}

func (r *DeliveryMethodRepo) MarkKindleEmailVerified(userID string) error {
	_, err := r.db.Exec(`
		UPDATE delivery_methods
		SET kindle_email_verified = TRUE,
		    kindle_email_enabled = TRUE,
		    kindle_email_verification_code = NULL,
		    kindle_email_verification_code_time = NULL,
		    updated_at = NOW()
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to mark kindle email verified: %w", err)
	}
	return nil
}

func (r *DeliveryMethodRepo) SetKindleEmailEnabled(userID string, enabled bool) error {
	result, err := r.db.Exec(`
		UPDATE delivery_methods
		SET kindle_email_enabled = $2, updated_at = NOW()
		WHERE user_id = $1 AND kindle_email_verified = TRUE
	`, userID, enabled)
	if err != nil {
		return fmt.Errorf("failed to toggle kindle email: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read toggle result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("kindle email is not verified for user %s", userID)
	}
	return nil
}

func (r *DeliveryMethodRepo) SetPushoverKey(userID, key, verificationCode string, codeTime time.Time) error {
	_, err := r.db.Exec(`
		INSERT INTO delivery_methods (user_id, pushover_key, pushover_key_verified,
		                              pushover_enabled, pushover_verification_code,
		                              pushover_verification_code_time)
		VALUES ($1, $2, FALSE, FALSE, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			pushover_key = EXCLUDED.pushover_key,
			pushover_key_verified = FALSE,
			pushover_enabled = FALSE,
			pushover_verification_code = EXCLUDED.pushover_verification_code,
			pushover_verification_code_time = EXCLUDED.pushover_verification_code_time,
			updated_at = NOW()
	`, userID, key, verificationCode, codeTime)
	if err != nil {
		return fmt.Errorf("failed to set pushover key: %w", err)
	}
	return nil
}

func (r *DeliveryMethodRepo) MarkPushoverVerified(userID string) error {
	_, err := r.db.Exec(`
		UPDATE delivery_methods
		SET pushover_key_verified = TRUE,
		    pushover_enabled = TRUE,
		    pushover_verification_code = NULL,
		    pushover_verification_code_time = NULL,
		    updated_at = NOW()
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to mark pushover verified: %w", err)
	}
	return nil
}

func (r *DeliveryMethodRepo) SetPushoverEnabled(userID string, enabled bool) error {
	result, err := r.db.Exec(`
		UPDATE delivery_methods
		SET pushover_enabled = $2, updated_at = NOW()
		WHERE user_id = $1 AND pushover_key_verified = TRUE
	`, userID, enabled)
	if err != nil {
		return fmt.Errorf("failed to toggle pushover: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read toggle result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("pushover key is not verified for user %s", userID)
	}
	return nil
}
