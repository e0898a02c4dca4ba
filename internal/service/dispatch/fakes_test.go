package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/event-api/internal/email"
	"github.com/jwalitptl/event-api/internal/model"
	apperrors "github.com/jwalitptl/event-api/pkg/errors"
)

type fakeEventRepo struct {
	events map[uuid.UUID]*model.Event
}

func newFakeEventRepo(events ...*model.Event) *fakeEventRepo {
	r := &fakeEventRepo{events: make(map[uuid.UUID]*model.Event)}
	for _, e := range events {
		r.events[e.ID] = e
	}
	return r
}

func (r *fakeEventRepo) Create(ctx context.Context, event *model.Event) error {
	r.events[event.ID] = event
	return nil
}

func (r *fakeEventRepo) Get(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	event, ok := r.events[id]
	if !ok {
		return nil, apperrors.NotFound("event", nil)
	}
	return event, nil
}

func (r *fakeEventRepo) Update(ctx context.Context, event *model.Event) error {
	r.events[event.ID] = event
	return nil
}

func (r *fakeEventRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.events, id)
	return nil
}

func (r *fakeEventRepo) List(ctx context.Context, filters *model.EventFilters) ([]*model.Event, error) {
	out := make([]*model.Event, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e)
	}
	return out, nil
}

type fakeInvitationRepo struct {
	mu          sync.Mutex
	invitations map[uuid.UUID]*model.Invitation
	createErrs  []error
	deleted     []uuid.UUID
	// createHook runs after a successful create, outside the lock.
	createHook func()
}

func newFakeInvitationRepo() *fakeInvitationRepo {
	return &fakeInvitationRepo{invitations: make(map[uuid.UUID]*model.Invitation)}
}

func (r *fakeInvitationRepo) Create(ctx context.Context, invitation *model.Invitation) error {
	r.mu.Lock()
	if len(r.createErrs) > 0 {
		err := r.createErrs[0]
		r.createErrs = r.createErrs[1:]
		if err != nil {
			r.mu.Unlock()
			return err
		}
	}
	r.invitations[invitation.ID] = invitation
	hook := r.createHook
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

func (r *fakeInvitationRepo) Get(ctx context.Context, id uuid.UUID) (*model.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invitations[id]
	if !ok {
		return nil, apperrors.NotFound("invitation", nil)
	}
	return inv, nil
}

func (r *fakeInvitationRepo) GetByToken(ctx context.Context, token string) (*model.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invitations {
		if inv.Token == token {
			return inv, nil
		}
	}
	return nil, apperrors.NotFound("invitation", nil)
}

func (r *fakeInvitationRepo) GetForEvent(ctx context.Context, eventID, id uuid.UUID) (*model.Invitation, error) {
	inv, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.EventID != eventID {
		return nil, apperrors.NotFound("invitation", nil)
	}
	return inv, nil
}

func (r *fakeInvitationRepo) ListForEvent(ctx context.Context, eventID uuid.UUID) ([]*model.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Invitation
	for _, inv := range r.invitations {
		if inv.EventID == eventID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *fakeInvitationRepo) SetActive(ctx context.Context, id uuid.UUID, active bool, deactivatedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invitations[id]
	if !ok {
		return apperrors.NotFound("invitation", nil)
	}
	inv.IsActive = active
	inv.DeactivatedAt = deactivatedAt
	return nil
}

func (r *fakeInvitationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.invitations, id)
	r.deleted = append(r.deleted, id)
	return nil
}

type fakeDispatchRepo struct {
	mu        sync.Mutex
	records   []*model.DispatchRecord
	countErr  error
	createErr error
}

func newFakeDispatchRepo() *fakeDispatchRepo {
	return &fakeDispatchRepo{}
}

func (r *fakeDispatchRepo) Create(ctx context.Context, record *model.DispatchRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.records = append(r.records, record)
	return nil
}

func (r *fakeDispatchRepo) ListForEvent(ctx context.Context, eventID uuid.UUID, outcome *model.DispatchOutcome, limit int) ([]*model.DispatchRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.DispatchRecord
	for i := len(r.records) - 1; i >= 0; i-- {
		rec := r.records[i]
		if rec.EventID != eventID {
			continue
		}
		if outcome != nil && rec.Outcome != *outcome {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakeDispatchRepo) CountForOperatorSince(ctx context.Context, operatorID uuid.UUID, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countErr != nil {
		return 0, r.countErr
	}
	count := 0
	for _, rec := range r.records {
		if rec.OperatorID == nil || *rec.OperatorID != operatorID {
			continue
		}
		if !rec.Outcome.CountsTowardQuota() {
			continue
		}
		if rec.CreatedAt.Before(since) {
			continue
		}
		count++
	}
	return count, nil
}

func (r *fakeDispatchRepo) StatsForEvent(ctx context.Context, eventID uuid.UUID) (*model.DispatchStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &model.DispatchStats{}
	for _, rec := range r.records {
		if rec.EventID != eventID {
			continue
		}
		stats.Total++
		switch rec.Outcome {
		case model.DispatchOutcomeSent:
			stats.Sent++
		case model.DispatchOutcomeFailed:
			stats.Failed++
		case model.DispatchOutcomeDisabled:
			stats.Disabled++
		case model.DispatchOutcomeRateLimited:
			stats.RateLimited++
		}
	}
	return stats, nil
}

func (r *fakeDispatchRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*model.DispatchRecord
	var removed int64
	for _, rec := range r.records {
		if rec.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	return removed, nil
}

func (r *fakeDispatchRepo) byOutcome(outcome model.DispatchOutcome) []*model.DispatchRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.DispatchRecord
	for _, rec := range r.records {
		if rec.Outcome == outcome {
			out = append(out, rec)
		}
	}
	return out
}

type fakeSettingsRepo struct {
	mu       sync.Mutex
	settings model.DispatchSettings
	getErr   error
}

func newFakeSettingsRepo(settings model.DispatchSettings) *fakeSettingsRepo {
	return &fakeSettingsRepo{settings: settings}
}

func (r *fakeSettingsRepo) Get(ctx context.Context) (*model.DispatchSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	copy := r.settings
	return &copy, nil
}

func (r *fakeSettingsRepo) Update(ctx context.Context, settings *model.DispatchSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = *settings
	return nil
}

type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent []*email.Message
	// hook runs before each send, while the dispatch is in flight.
	hook func()
}

func (s *fakeSender) Send(ctx context.Context, srv email.Server, msg *email.Message) error {
	s.mu.Lock()
	hook := s.hook
	s.mu.Unlock()
	if hook != nil {
		hook()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

var errSMTPDown = errors.New("dial tcp: connection refused")
