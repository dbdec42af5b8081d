package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Rate-limited action names. Policies are looked up by these keys; any
// string is accepted by the limiter, these are the ones the API uses.
const (
	ActionLogin         = "login"
	ActionPasswordReset = "password_reset"
	ActionFormSubmit    = "form_submit"
	ActionFileUpload    = "file_upload"
)

// SecurityEvent is one timestamped attempt-event in the security audit log.
// Events are append-only; the rate limiter counts them inside a trailing
// window to reach its decision.
type SecurityEvent struct {
	ID         string    `json:"id" db:"id" validate:"required,uuid"`
	Identifier string    `json:"identifier" db:"identifier" validate:"required,max=255"`
	Action     string    `json:"action" db:"action" validate:"required,max=100"`
	Metadata   *string   `json:"metadata,omitempty" db:"metadata"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// SecurityBlock is an active (or expired) block for an identifier+action
// pair. Blocks are never deleted on expiry; a block whose ExpiresAt is in
// the past is simply treated as open.
type SecurityBlock struct {
	Identifier string    `json:"identifier" db:"identifier" validate:"required,max=255"`
	Action     string    `json:"action" db:"action" validate:"required,max=100"`
	ExpiresAt  time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// NewSecurityEvent creates a new audit event with generated ID and timestamp
func NewSecurityEvent(identifier, action string, metadata *string) *SecurityEvent {
	return &SecurityEvent{
		ID:         uuid.New().String(),
		Identifier: identifier,
		Action:     action,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	}
}

// Validate validates the security event data
func (e *SecurityEvent) Validate() error {
	if err := ValidateUUID(e.ID, "event ID"); err != nil {
		return err
	}

	if err := ValidateRequired(e.Identifier, "identifier"); err != nil {
		return err
	}

	if err := ValidateStringLength(e.Identifier, "identifier", 1, 255); err != nil {
		return err
	}

	if err := ValidateRequired(e.Action, "action"); err != nil {
		return err
	}

	if err := ValidateStringLength(e.Action, "action", 1, 100); err != nil {
		return err
	}

	if e.CreatedAt.IsZero() {
		return fmt.Errorf("created at is required")
	}

	return nil
}

// Validate validates the security block data
func (b *SecurityBlock) Validate() error {
	if err := ValidateRequired(b.Identifier, "identifier"); err != nil {
		return err
	}

	if err := ValidateRequired(b.Action, "action"); err != nil {
		return err
	}

	if b.ExpiresAt.IsZero() {
		return fmt.Errorf("expires at is required")
	}

	return nil
}

// Active reports whether the block is still in force at the given time
func (b *SecurityBlock) Active(now time.Time) bool {
	return now.Before(b.ExpiresAt)
}
