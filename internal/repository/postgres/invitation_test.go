package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/event-api/internal/model"
	"github.com/jwalitptl/event-api/internal/repository"
)

func TestCreateInvitationDuplicateToken(t *testing.T) {
	db := testDB(t)
	base := NewBaseRepository(db)
	events := &eventRepository{base}
	invitations := &invitationRepository{base}

	event := seedEvent(t, events, "token uniqueness")
	token := uuid.NewString()
	seedInvitation(t, invitations, event.ID, token)

	duplicate := &model.Invitation{
		ID:        uuid.New(),
		EventID:   event.ID,
		Token:     token,
		Method:    model.DeliveryMethodLink,
		IsActive:  true,
		CreatedAt: time.Now(),
	}

	err := invitations.Create(context.Background(), duplicate)
	assert.ErrorIs(t, err, repository.ErrDuplicateToken)
}

func TestInvitationRoundTrip(t *testing.T) {
	db := testDB(t)
	base := NewBaseRepository(db)
	events := &eventRepository{base}
	invitations := &invitationRepository{base}

	event := seedEvent(t, events, "round trip")
	created := seedInvitation(t, invitations, event.ID, uuid.NewString())

	byToken, err := invitations.GetByToken(context.Background(), created.Token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byToken.ID)
	assert.True(t, byToken.IsActive)
	assert.Nil(t, byToken.DeactivatedAt)

	now := time.Now()
	require.NoError(t, invitations.SetActive(context.Background(), created.ID, false, &now))

	deactivated, err := invitations.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)
	require.NotNil(t, deactivated.DeactivatedAt)
}
