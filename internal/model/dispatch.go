package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DispatchOutcome is the terminal state of one dispatch attempt.
type DispatchOutcome string

const (
	DispatchOutcomeSent        DispatchOutcome = "SENT"
	DispatchOutcomeFailed      DispatchOutcome = "FAILED"
	DispatchOutcomeDisabled    DispatchOutcome = "DISABLED"
	DispatchOutcomeRateLimited DispatchOutcome = "RATE_LIMITED"
)

// ParseDispatchOutcome rejects unknown values instead of silently matching
// all records.
func ParseDispatchOutcome(s string) (DispatchOutcome, error) {
	switch DispatchOutcome(s) {
	case DispatchOutcomeSent, DispatchOutcomeFailed, DispatchOutcomeDisabled, DispatchOutcomeRateLimited:
		return DispatchOutcome(s), nil
	}
	return "", fmt.Errorf("unknown dispatch outcome: %q", s)
}

// CountsTowardQuota reports whether a record with this outcome consumes
// quota. Rejected attempts do not, so limit checks never self-amplify.
func (o DispatchOutcome) CountsTowardQuota() bool {
	return o != DispatchOutcomeRateLimited
}

// DispatchRecord is the immutable, append-only audit entry for one dispatch
// attempt. It is the single source of truth for quota accounting.
type DispatchRecord struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	EventID      uuid.UUID       `json:"event_id" db:"event_id"`
	InvitationID *uuid.UUID      `json:"invitation_id,omitempty" db:"invitation_id"`
	OperatorID   *uuid.UUID      `json:"operator_id,omitempty" db:"operator_id"`
	Recipient    string          `json:"recipient" db:"recipient"`
	Subject      string          `json:"subject" db:"subject"`
	Outcome      DispatchOutcome `json:"outcome" db:"outcome"`
	ErrorMessage string          `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// DispatchStats aggregates record counts per outcome for dashboards.
type DispatchStats struct {
	Total       int64 `json:"total" db:"total"`
	Sent        int64 `json:"sent" db:"sent"`
	Failed      int64 `json:"failed" db:"failed"`
	Disabled    int64 `json:"disabled" db:"disabled"`
	RateLimited int64 `json:"rate_limited" db:"rate_limited"`
}
