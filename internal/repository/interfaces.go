package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/event-api/internal/model"
)

// ErrDuplicateToken is surfaced on a join-token unique violation so the
// issuer can retry with a fresh token.
var ErrDuplicateToken = errors.New("invitation token already exists")

// All repository interfaces in one file
type (
	// EventRepository handles event storage. Delete cascades invitations and
	// dispatch records in a single transaction.
	EventRepository interface {
		Create(ctx context.Context, event *model.Event) error
		Get(ctx context.Context, id uuid.UUID) (*model.Event, error)
		Update(ctx context.Context, event *model.Event) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.EventFilters) ([]*model.Event, error)
	}

	// InvitationRepository handles invitation rows keyed by their opaque
	// join token.
	InvitationRepository interface {
		Create(ctx context.Context, invitation *model.Invitation) error
		Get(ctx context.Context, id uuid.UUID) (*model.Invitation, error)
		GetByToken(ctx context.Context, token string) (*model.Invitation, error)
		GetForEvent(ctx context.Context, eventID, id uuid.UUID) (*model.Invitation, error)
		ListForEvent(ctx context.Context, eventID uuid.UUID) ([]*model.Invitation, error)
		SetActive(ctx context.Context, id uuid.UUID, active bool, deactivatedAt *time.Time) error
		Delete(ctx context.Context, id uuid.UUID) error
	}

	// DispatchRepository is append-only except for retention cleanup.
	DispatchRepository interface {
		Create(ctx context.Context, record *model.DispatchRecord) error
		ListForEvent(ctx context.Context, eventID uuid.UUID, outcome *model.DispatchOutcome, limit int) ([]*model.DispatchRecord, error)
		CountForOperatorSince(ctx context.Context, operatorID uuid.UUID, since time.Time) (int, error)
		StatsForEvent(ctx context.Context, eventID uuid.UUID) (*model.DispatchStats, error)
		DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}

	// SettingsRepository stores the central delivery configuration.
	SettingsRepository interface {
		Get(ctx context.Context) (*model.DispatchSettings, error)
		Update(ctx context.Context, settings *model.DispatchSettings) error
	}

	OperatorRepository interface {
		Create(ctx context.Context, operator *model.Operator) error
		Get(ctx context.Context, id uuid.UUID) (*model.Operator, error)
		GetByEmail(ctx context.Context, email string) (*model.Operator, error)
	}
)
