package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/event-api/internal/repository"
)

// QuotaDecision is the outcome of a quota check.
type QuotaDecision struct {
	Allowed bool
	Window  string
	Message string
}

const (
	windowHour = "hour"
	windowDay  = "day"
)

// QuotaLedger counts past quota-consuming dispatch records for an operator
// within sliding windows. Counting recorded outcomes keeps the ledger
// trivially consistent with the audit trail; the extra read per dispatch is
// fine for an operator-triggered action.
type QuotaLedger struct {
	records  repository.DispatchRepository
	settings repository.SettingsRepository
}

func NewQuotaLedger(records repository.DispatchRepository, settings repository.SettingsRepository) *QuotaLedger {
	return &QuotaLedger{records: records, settings: settings}
}

// Check evaluates the hourly window first and short-circuits on denial
// without touching the daily window. A ceiling of zero or less means that
// window is unlimited; it is the operator escape hatch, not "deny all".
// Ceilings are read from current settings at call time, never cached.
func (l *QuotaLedger) Check(ctx context.Context, operatorID uuid.UUID, now time.Time) (*QuotaDecision, error) {
	settings, err := l.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read dispatch settings: %w", err)
	}

	if settings.HourlyCeiling > 0 {
		count, err := l.records.CountForOperatorSince(ctx, operatorID, now.Add(-time.Hour))
		if err != nil {
			return nil, fmt.Errorf("failed to count hourly dispatches: %w", err)
		}
		if count >= settings.HourlyCeiling {
			return &QuotaDecision{
				Window:  windowHour,
				Message: fmt.Sprintf("hourly invitation limit of %d reached, try again later", settings.HourlyCeiling),
			}, nil
		}
	}

	if settings.DailyCeiling > 0 {
		count, err := l.records.CountForOperatorSince(ctx, operatorID, now.Add(-24*time.Hour))
		if err != nil {
			return nil, fmt.Errorf("failed to count daily dispatches: %w", err)
		}
		if count >= settings.DailyCeiling {
			return &QuotaDecision{
				Window:  windowDay,
				Message: fmt.Sprintf("daily invitation limit of %d reached, try again tomorrow", settings.DailyCeiling),
			}, nil
		}
	}

	return &QuotaDecision{Allowed: true}, nil
}
