package event

import (
	"context"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/event-api/internal/model"
	"github.com/jwalitptl/event-api/internal/repository"
)

// Service owns event CRUD. The dispatch engine treats events as read-only;
// the public join path goes through a short-lived read cache so token
// resolution does not hammer the store.
type Service struct {
	repo  repository.EventRepository
	cache *gocache.Cache
}

func NewService(repo repository.EventRepository, cacheTTL, cacheSweep time.Duration) *Service {
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	if cacheSweep <= 0 {
		cacheSweep = 5 * time.Minute
	}
	return &Service{
		repo:  repo,
		cache: gocache.New(cacheTTL, cacheSweep),
	}
}

func (s *Service) CreateEvent(ctx context.Context, event *model.Event) error {
	return s.repo.Create(ctx, event)
}

func (s *Service) GetEvent(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	return s.repo.Get(ctx, id)
}

// GetEventCached serves the join path. Staleness is bounded by the cache
// TTL, which is acceptable for a read-only public view.
func (s *Service) GetEventCached(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	if cached, ok := s.cache.Get(id.String()); ok {
		return cached.(*model.Event), nil
	}

	event, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.SetDefault(id.String(), event)
	return event, nil
}

func (s *Service) UpdateEvent(ctx context.Context, event *model.Event) error {
	if err := s.repo.Update(ctx, event); err != nil {
		return err
	}
	s.cache.Delete(event.ID.String())
	return nil
}

// DeleteEvent cascades invitations and dispatch records atomically; the
// repository runs the whole delete in one transaction.
func (s *Service) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Delete(id.String())
	return nil
}

func (s *Service) ListEvents(ctx context.Context, filters *model.EventFilters) ([]*model.Event, error) {
	return s.repo.List(ctx, filters)
}
