package dispatch

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/event-api/internal/email"
	"github.com/jwalitptl/event-api/internal/model"
	"github.com/jwalitptl/event-api/internal/repository"
	eventService "github.com/jwalitptl/event-api/internal/service/event"
	"github.com/jwalitptl/event-api/internal/service/invite"
	apperrors "github.com/jwalitptl/event-api/pkg/errors"
	"github.com/jwalitptl/event-api/pkg/logger"
	"github.com/jwalitptl/event-api/pkg/messaging"
	"github.com/jwalitptl/event-api/pkg/metrics"
)

// joinInvalidMessage is deliberately generic: an unauthenticated caller must
// not learn whether a token was deactivated or the event ended.
const joinInvalidMessage = "this invitation is no longer valid"

const defaultLogPageSize = 100

type Config struct {
	JoinBaseURL string
	LogPageSize int
}

// Request is one dispatch: create an invitation and, for EMAIL, send it.
type Request struct {
	EventID    uuid.UUID
	Method     model.DeliveryMethod
	Recipient  string
	OperatorID *uuid.UUID
}

// Status reported back to the caller on success.
type Status string

const (
	StatusCreated  Status = "CREATED"
	StatusSent     Status = "SENT"
	StatusDisabled Status = "DISABLED"
)

type Result struct {
	Invitation *model.Invitation `json:"invitation"`
	JoinLink   string            `json:"join_link"`
	Status     Status            `json:"status"`
}

// EventView is the subset of an event shown to a joining guest.
type EventView struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
}

type JoinView struct {
	Event      *EventView               `json:"event"`
	Invitation *model.InvitationSummary `json:"invitation"`
}

// Service orchestrates a dispatch: validates the request, consults the
// quota ledger, renders the message, invokes the transport and records the
// true outcome.
type Service struct {
	events   *eventService.Service
	invites  *invite.Service
	records  repository.DispatchRepository
	settings repository.SettingsRepository
	quota    *QuotaLedger
	sender   email.Sender
	broker   messaging.Broker
	logger   *logger.Logger
	metrics  *metrics.Metrics
	cfg      Config
}

func NewService(
	events *eventService.Service,
	invites *invite.Service,
	records repository.DispatchRepository,
	settings repository.SettingsRepository,
	quota *QuotaLedger,
	sender email.Sender,
	broker messaging.Broker,
	l *logger.Logger,
	m *metrics.Metrics,
	cfg Config,
) *Service {
	if cfg.LogPageSize <= 0 {
		cfg.LogPageSize = defaultLogPageSize
	}
	if m == nil {
		m = metrics.NewMetrics("eventapi", prometheus.NewRegistry())
	}
	if l == nil {
		l = logger.NewLogger(nil)
	}
	return &Service{
		events:   events,
		invites:  invites,
		records:  records,
		settings: settings,
		quota:    quota,
		sender:   sender,
		broker:   broker,
		logger:   l,
		metrics:  m,
		cfg:      cfg,
	}
}

// CreateInvitation runs the dispatch state machine. Every terminal state
// except InvalidRequest and the boundary Disabled check leaves exactly one
// dispatch record.
func (s *Service) CreateInvitation(ctx context.Context, req *Request) (*Result, error) {
	if req.Method == model.DeliveryMethodEmail && strings.TrimSpace(req.Recipient) == "" {
		return nil, apperrors.BadRequest("recipient is required for EMAIL invitations", nil)
	}

	event, err := s.events.GetEvent(ctx, req.EventID)
	if err != nil {
		return nil, err
	}

	// Boundary capability check: an EMAIL dispatch against an unconfigured
	// transport is rejected before any token exists. No record is written;
	// the request never reached a dispatchable state.
	if req.Method == model.DeliveryMethodEmail {
		settings, err := s.settings.Get(ctx)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		if !settings.MailEnabled() {
			return nil, apperrors.Disabled("email delivery is not configured")
		}

		// Pre-quota gate. Denial is recorded without creating an invitation.
		if req.OperatorID != nil {
			decision, err := s.quota.Check(ctx, *req.OperatorID, time.Now())
			if err != nil {
				return nil, apperrors.Internal(err)
			}
			if !decision.Allowed {
				s.metrics.QuotaDenials.WithLabelValues(decision.Window).Inc()
				s.record(ctx, &model.DispatchRecord{
					EventID:      event.ID,
					OperatorID:   req.OperatorID,
					Recipient:    req.Recipient,
					Outcome:      model.DispatchOutcomeRateLimited,
					ErrorMessage: decision.Message,
				})
				return nil, apperrors.RateLimited(decision.Message)
			}
		}
	}

	invitation, err := s.invites.Issue(ctx, event.ID, req.Method, req.Recipient)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	joinLink := s.JoinLink(invitation.Token)

	s.publish(ctx, messaging.ChannelInvitations, "invitation.created", invitation)

	if req.Method == model.DeliveryMethodLink {
		return &Result{Invitation: invitation, JoinLink: joinLink, Status: StatusCreated}, nil
	}

	return s.deliver(ctx, event, invitation, joinLink, req)
}

// deliver renders and sends an EMAIL invitation. The invitation already
// exists; only a denied authoritative quota check rolls it back.
func (s *Service) deliver(ctx context.Context, event *model.Event, invitation *model.Invitation, joinLink string, req *Request) (*Result, error) {
	subjectTmpl := event.SubjectTmpl
	if subjectTmpl == "" {
		subjectTmpl = DefaultSubjectTemplate
	}
	bodyTmpl := event.BodyTmpl
	if bodyTmpl == "" {
		bodyTmpl = DefaultBodyTemplate
	}

	tmplCtx := map[string]string{
		"eventName":        event.Name,
		"eventDescription": event.Description,
		"startsAt":         event.StartsAt.Format(time.RFC3339),
		"endsAt":           event.EndsAt.Format(time.RFC3339),
		LinkPlaceholder:    joinLink,
	}

	subject := Render(subjectTmpl, tmplCtx)
	body := EnsureLink(Render(bodyTmpl, tmplCtx), LinkPlaceholder, joinLink)

	// Settings may have changed since the boundary check; re-read them. A
	// mid-flight disablement is recorded, and the invitation stays usable
	// as a plain link.
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if !settings.MailEnabled() {
		s.record(ctx, &model.DispatchRecord{
			EventID:      event.ID,
			InvitationID: &invitation.ID,
			OperatorID:   req.OperatorID,
			Recipient:    req.Recipient,
			Subject:      subject,
			Outcome:      model.DispatchOutcomeDisabled,
		})
		return &Result{Invitation: invitation, JoinLink: s.JoinLink(invitation.Token), Status: StatusDisabled}, nil
	}

	// Authoritative quota re-check, narrowing the race against concurrent
	// dispatches from the same operator. On denial the just-created
	// invitation is deleted so no dangling unusable token remains; the
	// deferred cleanup runs even if recording panics.
	if req.OperatorID != nil {
		decision, err := s.quota.Check(ctx, *req.OperatorID, time.Now())
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		if !decision.Allowed {
			defer func() {
				if err := s.invites.Delete(ctx, invitation.ID); err != nil {
					s.logger.ZL.Error().Err(err).
						Str("invitation_id", invitation.ID.String()).
						Msg("failed to roll back invitation after quota denial")
				}
			}()
			s.metrics.QuotaDenials.WithLabelValues(decision.Window).Inc()
			s.record(ctx, &model.DispatchRecord{
				EventID:      event.ID,
				OperatorID:   req.OperatorID,
				Recipient:    req.Recipient,
				Subject:      subject,
				Outcome:      model.DispatchOutcomeRateLimited,
				ErrorMessage: decision.Message,
			})
			return nil, apperrors.RateLimited(decision.Message)
		}
	}

	from := event.SenderEmail
	if from == "" {
		from = settings.SenderEmail
	}

	start := time.Now()
	sendErr := s.sender.Send(ctx, email.Server{
		Host:     settings.SMTPHost,
		Port:     settings.SMTPPort,
		User:     settings.SMTPUser,
		Password: settings.SMTPPassword,
	}, &email.Message{
		From:    from,
		To:      req.Recipient,
		Subject: subject,
		Body:    body,
	})
	s.metrics.SendDuration.Observe(time.Since(start).Seconds())

	if sendErr != nil {
		// The invitation is kept; the token may still be shared manually.
		s.record(ctx, &model.DispatchRecord{
			EventID:      event.ID,
			InvitationID: &invitation.ID,
			OperatorID:   req.OperatorID,
			Recipient:    req.Recipient,
			Subject:      subject,
			Outcome:      model.DispatchOutcomeFailed,
			ErrorMessage: shortReason(sendErr),
		})
		return nil, apperrors.DispatchFailed("failed to send invitation email", sendErr)
	}

	s.record(ctx, &model.DispatchRecord{
		EventID:      event.ID,
		InvitationID: &invitation.ID,
		OperatorID:   req.OperatorID,
		Recipient:    req.Recipient,
		Subject:      subject,
		Outcome:      model.DispatchOutcomeSent,
	})
	s.publish(ctx, messaging.ChannelDispatches, "dispatch.completed", map[string]interface{}{
		"event_id":      event.ID,
		"invitation_id": invitation.ID,
		"recipient":     req.Recipient,
	})

	return &Result{Invitation: invitation, JoinLink: s.JoinLink(invitation.Token), Status: StatusSent}, nil
}

// ResolveJoin is the side-effect-free read path for a join token.
func (s *Service) ResolveJoin(ctx context.Context, token string) (*JoinView, error) {
	invitation, err := s.invites.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	if !invitation.IsActive {
		return nil, apperrors.Gone(joinInvalidMessage)
	}

	event, err := s.events.GetEventCached(ctx, invitation.EventID)
	if err != nil {
		return nil, err
	}
	if event.Ended(time.Now()) {
		return nil, apperrors.Gone(joinInvalidMessage)
	}

	return &JoinView{
		Event: &EventView{
			ID:          event.ID,
			Name:        event.Name,
			Description: event.Description,
			StartsAt:    event.StartsAt,
			EndsAt:      event.EndsAt,
		},
		Invitation: invitation.Summary(),
	}, nil
}

// ListRecords returns the newest records first, bounded to the configured
// page size. An unrecognized status filter is rejected, never widened.
func (s *Service) ListRecords(ctx context.Context, eventID uuid.UUID, statusFilter string) ([]*model.DispatchRecord, error) {
	var outcome *model.DispatchOutcome
	if statusFilter != "" {
		parsed, err := model.ParseDispatchOutcome(statusFilter)
		if err != nil {
			return nil, apperrors.BadRequest(err.Error(), err)
		}
		outcome = &parsed
	}
	return s.records.ListForEvent(ctx, eventID, outcome, s.cfg.LogPageSize)
}

func (s *Service) Stats(ctx context.Context, eventID uuid.UUID) (*model.DispatchStats, error) {
	return s.records.StatsForEvent(ctx, eventID)
}

// JoinLink derives the public join URL for a token.
func (s *Service) JoinLink(token string) string {
	return strings.TrimRight(s.cfg.JoinBaseURL, "/") + "/join/" + token
}

// record appends an immutable audit row. Write failures are logged and
// counted; the terminal outcome has already happened and must not be
// masked by a bookkeeping error.
func (s *Service) record(ctx context.Context, rec *model.DispatchRecord) {
	rec.ID = uuid.New()
	rec.CreatedAt = time.Now()
	if err := s.records.Create(ctx, rec); err != nil {
		s.metrics.RecordWriteFailures.Inc()
		s.logger.ZL.Error().Err(err).
			Str("event_id", rec.EventID.String()).
			Str("outcome", string(rec.Outcome)).
			Msg("failed to write dispatch record")
		return
	}
	s.metrics.DispatchOutcomes.WithLabelValues(string(rec.Outcome)).Inc()
}

// publish forwards an event to the broker, best effort. A broker outage
// never changes a dispatch outcome.
func (s *Service) publish(ctx context.Context, channel, eventType string, payload interface{}) {
	if s.broker == nil {
		return
	}
	msg := messaging.Message{Type: eventType, Payload: payload}
	if err := s.broker.Publish(ctx, channel, msg); err != nil {
		s.logger.ZL.Warn().Err(err).Str("channel", channel).Msg("failed to publish event")
	}
}

// shortReason keeps the audit trail free of stack traces and credentials.
func shortReason(err error) string {
	msg := err.Error()
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
