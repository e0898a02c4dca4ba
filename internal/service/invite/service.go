package invite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/event-api/internal/model"
	"github.com/jwalitptl/event-api/internal/repository"
)

// issueRetries bounds retries on a token collision. With 128-bit tokens a
// collision is effectively impossible, so one retry is plenty.
const issueRetries = 2

// Service issues join tokens and manages their active state.
type Service struct {
	invitations repository.InvitationRepository
}

func NewService(invitations repository.InvitationRepository) *Service {
	return &Service{invitations: invitations}
}

// Issue creates an invitation with a fresh token, active and unused.
func (s *Service) Issue(ctx context.Context, eventID uuid.UUID, method model.DeliveryMethod, recipient string) (*model.Invitation, error) {
	var lastErr error
	for i := 0; i < issueRetries; i++ {
		token, err := NewToken()
		if err != nil {
			return nil, err
		}

		invitation := &model.Invitation{
			ID:        uuid.New(),
			EventID:   eventID,
			Token:     token,
			Method:    method,
			Recipient: recipient,
			IsActive:  true,
			CreatedAt: time.Now(),
		}

		if err := s.invitations.Create(ctx, invitation); err != nil {
			if errors.Is(err, repository.ErrDuplicateToken) {
				lastErr = err
				continue
			}
			return nil, fmt.Errorf("failed to create invitation: %w", err)
		}
		return invitation, nil
	}
	return nil, fmt.Errorf("failed to issue invitation token: %w", lastErr)
}

// SetActive flips the flag and stamps or clears the deactivation timestamp.
// The invitation must belong to the given event.
func (s *Service) SetActive(ctx context.Context, eventID, invitationID uuid.UUID, active bool) (*model.Invitation, error) {
	invitation, err := s.invitations.GetForEvent(ctx, eventID, invitationID)
	if err != nil {
		return nil, err
	}

	var deactivatedAt *time.Time
	if !active {
		now := time.Now()
		deactivatedAt = &now
	}

	if err := s.invitations.SetActive(ctx, invitation.ID, active, deactivatedAt); err != nil {
		return nil, err
	}

	invitation.IsActive = active
	invitation.DeactivatedAt = deactivatedAt
	return invitation, nil
}

// Resolve looks up an invitation by its join token.
func (s *Service) Resolve(ctx context.Context, token string) (*model.Invitation, error) {
	return s.invitations.GetByToken(ctx, token)
}

// Delete removes a single invitation. Used as the compensating action when
// the authoritative quota check denies an already-issued token.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.invitations.Delete(ctx, id)
}

func (s *Service) ListForEvent(ctx context.Context, eventID uuid.UUID) ([]*model.Invitation, error) {
	return s.invitations.ListForEvent(ctx, eventID)
}
