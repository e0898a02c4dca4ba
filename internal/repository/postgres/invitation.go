package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jwalitptl/event-api/internal/model"
	"github.com/jwalitptl/event-api/internal/repository"
	apperrors "github.com/jwalitptl/event-api/pkg/errors"
)

const pqUniqueViolation = "23505"

type invitationRepository struct {
	BaseRepository
}

func NewInvitationRepository(base BaseRepository) repository.InvitationRepository {
	return &invitationRepository{base}
}

func (r *invitationRepository) Create(ctx context.Context, invitation *model.Invitation) error {
	query := `
        INSERT INTO invitations (
            id, event_id, token, method, recipient, is_active, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7)
    `

	_, err := r.GetDB().ExecContext(ctx, query,
		invitation.ID,
		invitation.EventID,
		invitation.Token,
		invitation.Method,
		invitation.Recipient,
		invitation.IsActive,
		invitation.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return repository.ErrDuplicateToken
		}
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

func (r *invitationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Invitation, error) {
	query := `SELECT * FROM invitations WHERE id = $1`

	var invitation model.Invitation
	if err := r.GetDB().GetContext(ctx, &invitation, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("invitation", err)
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return &invitation, nil
}

func (r *invitationRepository) GetByToken(ctx context.Context, token string) (*model.Invitation, error) {
	query := `SELECT * FROM invitations WHERE token = $1`

	var invitation model.Invitation
	if err := r.GetDB().GetContext(ctx, &invitation, query, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("invitation", err)
		}
		return nil, fmt.Errorf("failed to get invitation by token: %w", err)
	}
	return &invitation, nil
}

func (r *invitationRepository) GetForEvent(ctx context.Context, eventID, id uuid.UUID) (*model.Invitation, error) {
	query := `SELECT * FROM invitations WHERE id = $1 AND event_id = $2`

	var invitation model.Invitation
	if err := r.GetDB().GetContext(ctx, &invitation, query, id, eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("invitation", err)
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return &invitation, nil
}

func (r *invitationRepository) ListForEvent(ctx context.Context, eventID uuid.UUID) ([]*model.Invitation, error) {
	query := `SELECT * FROM invitations WHERE event_id = $1 ORDER BY created_at DESC`

	var invitations []*model.Invitation
	if err := r.GetDB().SelectContext(ctx, &invitations, query, eventID); err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invitations, nil
}

func (r *invitationRepository) SetActive(ctx context.Context, id uuid.UUID, active bool, deactivatedAt *time.Time) error {
	query := `
        UPDATE invitations
        SET is_active = $2, deactivated_at = $3
        WHERE id = $1
    `

	result, err := r.GetDB().ExecContext(ctx, query, id, active, deactivatedAt)
	if err != nil {
		return fmt.Errorf("failed to update invitation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("invitation", nil)
	}
	return nil
}

func (r *invitationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.GetDB().ExecContext(ctx, `DELETE FROM invitations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete invitation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("invitation", nil)
	}
	return nil
}
