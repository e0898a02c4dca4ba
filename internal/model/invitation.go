package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DeliveryMethod says how an invitation reaches its recipient.
type DeliveryMethod string

const (
	DeliveryMethodLink  DeliveryMethod = "LINK"
	DeliveryMethodEmail DeliveryMethod = "EMAIL"
)

// ParseDeliveryMethod rejects anything outside the closed enumeration.
func ParseDeliveryMethod(s string) (DeliveryMethod, error) {
	switch DeliveryMethod(s) {
	case DeliveryMethodLink, DeliveryMethodEmail:
		return DeliveryMethod(s), nil
	}
	return "", fmt.Errorf("unknown delivery method: %q", s)
}

// Invitation grants access to an event via an opaque join token. The token
// is unique and immutable once created.
type Invitation struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	EventID       uuid.UUID      `json:"event_id" db:"event_id"`
	Token         string         `json:"token" db:"token"`
	Method        DeliveryMethod `json:"method" db:"method"`
	Recipient     string         `json:"recipient,omitempty" db:"recipient"`
	IsActive      bool           `json:"is_active" db:"is_active"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	DeactivatedAt *time.Time     `json:"deactivated_at,omitempty" db:"deactivated_at"`
	UsedAt        *time.Time     `json:"used_at,omitempty" db:"used_at"`
}

// Summary is the invitation view exposed on the public join path.
func (i *Invitation) Summary() *InvitationSummary {
	return &InvitationSummary{
		Method:    i.Method,
		CreatedAt: i.CreatedAt,
		UsedAt:    i.UsedAt,
	}
}

type InvitationSummary struct {
	Method    DeliveryMethod `json:"method"`
	CreatedAt time.Time      `json:"created_at"`
	UsedAt    *time.Time     `json:"used_at,omitempty"`
}
