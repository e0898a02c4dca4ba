package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/event-api/internal/model"
	"github.com/jwalitptl/event-api/internal/repository"
	eventService "github.com/jwalitptl/event-api/internal/service/event"
	"github.com/jwalitptl/event-api/internal/service/invite"
	apperrors "github.com/jwalitptl/event-api/pkg/errors"
)

const testJoinBase = "https://events.example.com"

func mailOnSettings() model.DispatchSettings {
	return model.DispatchSettings{
		SMTPEnabled:   true,
		SMTPHost:      "smtp.local",
		SMTPPort:      587,
		SenderEmail:   "noreply@example.com",
		HourlyCeiling: 100,
		DailyCeiling:  1000,
	}
}

func testEvent() *model.Event {
	now := time.Now()
	return &model.Event{
		ID:          uuid.New(),
		Name:        "Launch Party",
		Description: "Celebrating the launch",
		StartsAt:    now.Add(24 * time.Hour),
		EndsAt:      now.Add(26 * time.Hour),
	}
}

type testEnv struct {
	event       *model.Event
	events      *fakeEventRepo
	invitations *fakeInvitationRepo
	records     *fakeDispatchRepo
	settings    repository.SettingsRepository
	sender      *fakeSender
	svc         *Service
}

func newTestEnv(t *testing.T, settings repository.SettingsRepository) *testEnv {
	t.Helper()

	env := &testEnv{
		event:       testEvent(),
		invitations: newFakeInvitationRepo(),
		records:     newFakeDispatchRepo(),
		settings:    settings,
		sender:      &fakeSender{},
	}
	env.events = newFakeEventRepo(env.event)

	eventSvc := eventService.NewService(env.events, time.Minute, time.Minute)
	inviteSvc := invite.NewService(env.invitations)
	quota := NewQuotaLedger(env.records, env.settings)

	env.svc = NewService(
		eventSvc,
		inviteSvc,
		env.records,
		env.settings,
		quota,
		env.sender,
		nil,
		nil,
		nil,
		Config{JoinBaseURL: testJoinBase},
	)
	return env
}

// seqSettingsRepo returns each configured settings snapshot in turn,
// sticking on the last one. Lets a test change settings between the
// boundary check and the in-flight re-read.
type seqSettingsRepo struct {
	seq []model.DispatchSettings
	i   int
}

func (r *seqSettingsRepo) Get(ctx context.Context) (*model.DispatchSettings, error) {
	idx := r.i
	if idx >= len(r.seq) {
		idx = len(r.seq) - 1
	}
	r.i++
	copy := r.seq[idx]
	return &copy, nil
}

func (r *seqSettingsRepo) Update(ctx context.Context, settings *model.DispatchSettings) error {
	r.seq = []model.DispatchSettings{*settings}
	r.i = 0
	return nil
}

func TestCreateInvitationLink(t *testing.T) {
	env := newTestEnv(t, newFakeSettingsRepo(model.DispatchSettings{}))

	result, err := env.svc.CreateInvitation(context.Background(), &Request{
		EventID: env.event.ID,
		Method:  model.DeliveryMethodLink,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCreated, result.Status)
	assert.NotEmpty(t, result.Invitation.Token)
	assert.True(t, result.Invitation.IsActive)
	assert.Equal(t, testJoinBase+"/join/"+result.Invitation.Token, result.JoinLink)

	// LINK never touches the transport or the audit trail.
	assert.Empty(t, env.sender.sent)
	assert.Empty(t, env.records.records)
}

func TestCreateInvitationLinkIgnoresDisabledMail(t *testing.T) {
	// The transport being unconfigured only matters for EMAIL.
	env := newTestEnv(t, newFakeSettingsRepo(model.DispatchSettings{SMTPEnabled: false}))

	result, err := env.svc.CreateInvitation(context.Background(), &Request{
		EventID: env.event.ID,
		Method:  model.DeliveryMethodLink,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, result.Status)
}

func TestCreateInvitationEmailSent(t *testing.T) {
	env := newTestEnv(t, newFakeSettingsRepo(mailOnSettings()))
	operatorID := uuid.New()

	result, err := env.svc.CreateInvitation(context.Background(), &Request{
		EventID:    env.event.ID,
		Method:     model.DeliveryMethodEmail,
		Recipient:  "guest@example.com",
		OperatorID: &operatorID,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusSent, result.Status)

	require.Len(t, env.sender.sent, 1)
	msg := env.sender.sent[0]
	assert.Equal(t, "guest@example.com", msg.To)
	assert.Equal(t, "noreply@example.com", msg.From)
	assert.Equal(t, "You're invited to Launch Party", msg.Subject)
	assert.Contains(t, msg.Body, result.JoinLink)

	sent := env.records.byOutcome(model.DispatchOutcomeSent)
	require.Len(t, sent, 1)
	require.NotNil(t, sent[0].InvitationID)
	assert.Equal(t, result.Invitation.ID, *sent[0].InvitationID)
	assert.Equal(t, operatorID, *sent[0].OperatorID)
}

func TestCreateInvitationCountsLostAuditRecord(t *testing.T) {
	env := newTestEnv(t, newFakeSettingsRepo(mailOnSettings()))
	env.records.createErr = errors.New("insert failed: connection reset")

	result, err := env.svc.CreateInvitation(context.Background(), &Request{
		EventID:   env.event.ID,
		Method:    model.DeliveryMethodEmail,
		Recipient: "guest@example.com",
	})
	require.NoError(t, err)

	// The send already happened; the lost audit row must not change the
	// outcome, but it must show up in the failure counter.
	assert.Equal(t, StatusSent, result.Status)
	require.Len(t, env.sender.sent, 1)
	assert.Empty(t, env.records.records)
	assert.Equal(t, float64(1), testutil.ToFloat64(env.svc.metrics.RecordWriteFailures))
	assert.Equal(t, float64(0), testutil.ToFloat64(env.svc.metrics.DispatchOutcomes.WithLabelValues(string(model.DispatchOutcomeSent))))
}

func TestCreateInvitationEmailUsesEventSender(t *testing.T) {
	env := newTestEnv(t, newFakeSettingsRepo(mailOnSettings()))
	env.event.SenderEmail = "host@example.com"

	_, err := env.svc.CreateInvitation(context.Background(), &Request{
		EventID:   env.event.ID,
		Method:    model.DeliveryMethodEmail,
		Recipient: "guest@example.com",
	})
	require.NoError(t, err)

	require.Len(t, env.sender.sent, 1)
	assert.Equal(t, "host@example.com", env.sender.sent[0].From)
}

func TestCreateInvitationEmailCustomTemplates(t *testing.T) {
	env := newTestEnv(t, newFakeSettingsRepo(mailOnSettings()))
	env.event.SubjectTmpl = "{{eventName}}: see you there"
	env.event.BodyTmpl = "Short note, no link."

	result, err := env.svc.CreateInvitation(context.Background(), &Request{
		EventID:   env.event.ID,
		Method:    model.DeliveryMethodEmail,
		Recipient: "guest@example.com",
	})
	require.NoError(t, err)

	require.Len(t, env.sender.sent, 1)
	msg := env.sender.sent[0]
	assert.Equal(t, "Launch Party: see you there", msg.Subject)
	// A template without a link placeholder still delivers the link.
	assert.Contains(t, msg.Body, result.JoinLink)
}

func TestCreateInvitationEmailRequiresRecipient(t *testing.T) {
	env := newTestEnv(t, newFakeSettingsRepo(mailOnSettings()))

	_, err := env.svc.CreateInvitation(context.Background(), &Request{
		EventID: env.event.ID,
		Method:  model.DeliveryMethodEmail,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.Code(err))
	assert.Empty(t, env.invitations.invitations)
}

func TestCreateInvitationUnknownEvent(t *testing.T) {
	env := newTestEnv(t, newFakeSettingsRepo(mailOnSettings()))

	_, err := env.svc.CreateInvitation(context.Background(), &Request{
		EventID: uuid.New(),
		Method:  model.DeliveryMethodLink,
	})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCreateInvitationEmailDisabledAtBoundary(t *testing.T) {
	env := newTestEnv(t, newFakeSettingsRepo(model.DispatchSettings{SMTPEnabled: false}))

	_, err := env.svc.CreateInvitation(context.Background(), &Request{
		EventID:   env.event.ID,
		Method:    model.DeliveryMethodEmail,
		Recipient: "guest@example.com",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsDisabled(err))

	// Rejected before a token existed: nothing to audit, nothing issued.
	assert.Empty(t, env.invitations.invitations)
	assert.Empty(t, env.records.records)
}

func TestCreateInvitationEmailDisabledMidFlight(t *testing.T) {
	enabled := mailOnSettings()
	disabled := enabled
	disabled.SMTPEnabled = false
	env := newTestEnv(t, &seqSettingsRepo{seq: []model.DispatchSettings{enabled, disabled}})

	result, err := env.svc.CreateInvitation(context.Background(), &Request{
		EventID:   env.event.ID,
		Method:    model.DeliveryMethodEmail,
		Recipient: "guest@example.com",
	})
	require.NoError(t, err)

	// The invitation survives as a shareable link.
	assert.Equal(t, StatusDisabled, result.Status)
	assert.Len(t, env.invitations.invitations, 1)
	assert.Empty(t, env.sender.sent)

	recs := env.records.byOutcome(model.DispatchOutcomeDisabled)
	require.Len(t, recs, 1)
	require.NotNil(t, recs[0].InvitationID)
	assert.Equal(t, result.Invitation.ID, *recs[0].InvitationID)
}

func TestCreateInvitationQuotaDeniedUpfront(t *testing.T) {
	settings := mailOnSettings()
	settings.HourlyCeiling = 1
	env := newTestEnv(t, newFakeSettingsRepo(settings))
	operatorID := uuid.New()

	env.records.Create(context.Background(), quotaRecord(operatorID, model.DispatchOutcomeSent, time.Minute))

	_, err := env.svc.CreateInvitation(context.Background(), &Request{
		EventID:    env.event.ID,
		Method:     model.DeliveryMethodEmail,
		Recipient:  "guest@example.com",
		OperatorID: &operatorID,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsRateLimited(err))

	// Denied before issuance: no token, but the denial is on the record.
	assert.Empty(t, env.invitations.invitations)
	denied := env.records.byOutcome(model.DispatchOutcomeRateLimited)
	require.Len(t, denied, 1)
	assert.Nil(t, denied[0].InvitationID)
	assert.NotEmpty(t, denied[0].ErrorMessage)
}

func TestCreateInvitationQuotaDeniedInFlight(t *testing.T) {
	settings := mailOnSettings()
	settings.HourlyCeiling = 1
	env := newTestEnv(t, newFakeSettingsRepo(settings))
	operatorID := uuid.New()

	// A concurrent dispatch lands between the upfront gate and the
	// authoritative re-check.
	env.invitations.createHook = func() {
		env.records.Create(context.Background(), quotaRecord(operatorID, model.DispatchOutcomeSent, 0))
	}

	_, err := env.svc.CreateInvitation(context.Background(), &Request{
		EventID:    env.event.ID,
		Method:     model.DeliveryMethodEmail,
		Recipient:  "guest@example.com",
		OperatorID: &operatorID,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsRateLimited(err))

	// The freshly issued token was rolled back.
	assert.Empty(t, env.invitations.invitations)
	assert.Len(t, env.invitations.deleted, 1)
	assert.Empty(t, env.sender.sent)
	assert.Len(t, env.records.byOutcome(model.DispatchOutcomeRateLimited), 1)
}

func TestCreateInvitationNoOperatorSkipsQuota(t *testing.T) {
	settings := mailOnSettings()
	settings.HourlyCeiling = 1
	env := newTestEnv(t, newFakeSettingsRepo(settings))

	for i := 0; i < 3; i++ {
		result, err := env.svc.CreateInvitation(context.Background(), &Request{
			EventID:   env.event.ID,
			Method:    model.DeliveryMethodEmail,
			Recipient: "guest@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, StatusSent, result.Status)
	}
}

func TestCreateInvitationSendFailure(t *testing.T) {
	env := newTestEnv(t, newFakeSettingsRepo(mailOnSettings()))
	env.sender.err = errSMTPDown

	_, err := env.svc.CreateInvitation(context.Background(), &Request{
		EventID:   env.event.ID,
		Method:    model.DeliveryMethodEmail,
		Recipient: "guest@example.com",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrDispatchFailed, apperrors.Code(err))

	// The token stays usable; only the delivery attempt failed.
	assert.Len(t, env.invitations.invitations, 1)

	failed := env.records.byOutcome(model.DispatchOutcomeFailed)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].ErrorMessage, "connection refused")
	require.NotNil(t, failed[0].InvitationID)
}

func TestCreateInvitationSendFailureTruncatesReason(t *testing.T) {
	env := newTestEnv(t, newFakeSettingsRepo(mailOnSettings()))
	env.sender.err = errors.New(strings.Repeat("x", 500))

	_, err := env.svc.CreateInvitation(context.Background(), &Request{
		EventID:   env.event.ID,
		Method:    model.DeliveryMethodEmail,
		Recipient: "guest@example.com",
	})
	require.Error(t, err)

	failed := env.records.byOutcome(model.DispatchOutcomeFailed)
	require.Len(t, failed, 1)
	assert.Len(t, failed[0].ErrorMessage, 200)
}

func TestResolveJoin(t *testing.T) {
	env := newTestEnv(t, newFakeSettingsRepo(model.DispatchSettings{}))

	result, err := env.svc.CreateInvitation(context.Background(), &Request{
		EventID: env.event.ID,
		Method:  model.DeliveryMethodLink,
	})
	require.NoError(t, err)

	view, err := env.svc.ResolveJoin(context.Background(), result.Invitation.Token)
	require.NoError(t, err)

	assert.Equal(t, env.event.ID, view.Event.ID)
	assert.Equal(t, env.event.Name, view.Event.Name)
	assert.Equal(t, model.DeliveryMethodLink, view.Invitation.Method)
	// The public view must not leak the token or recipient.
	assert.Nil(t, view.Invitation.UsedAt)
}

func TestResolveJoinUnknownToken(t *testing.T) {
	env := newTestEnv(t, newFakeSettingsRepo(model.DispatchSettings{}))

	_, err := env.svc.ResolveJoin(context.Background(), "does-not-exist")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestResolveJoinDeactivatedAndExpiredLookAlike(t *testing.T) {
	env := newTestEnv(t, newFakeSettingsRepo(model.DispatchSettings{}))

	deactivated, err := env.svc.CreateInvitation(context.Background(), &Request{
		EventID: env.event.ID,
		Method:  model.DeliveryMethodLink,
	})
	require.NoError(t, err)
	now := time.Now()
	env.invitations.SetActive(context.Background(), deactivated.Invitation.ID, false, &now)

	_, errInactive := env.svc.ResolveJoin(context.Background(), deactivated.Invitation.Token)
	require.Error(t, errInactive)

	// Fresh env with an event that has already ended.
	endedEnv := newTestEnv(t, newFakeSettingsRepo(model.DispatchSettings{}))
	endedEnv.event.StartsAt = now.Add(-2 * time.Hour)
	endedEnv.event.EndsAt = now.Add(-time.Hour)

	expired, err := endedEnv.svc.CreateInvitation(context.Background(), &Request{
		EventID: endedEnv.event.ID,
		Method:  model.DeliveryMethodLink,
	})
	require.NoError(t, err)

	_, errExpired := endedEnv.svc.ResolveJoin(context.Background(), expired.Invitation.Token)
	require.Error(t, errExpired)

	// A caller probing tokens cannot tell the two cases apart.
	var a, b *apperrors.AppError
	require.True(t, errors.As(errInactive, &a))
	require.True(t, errors.As(errExpired, &b))
	assert.Equal(t, apperrors.ErrGone, a.Code)
	assert.Equal(t, apperrors.ErrGone, b.Code)
	assert.Equal(t, a.Message, b.Message)
}

func TestListRecordsFilter(t *testing.T) {
	env := newTestEnv(t, newFakeSettingsRepo(mailOnSettings()))

	_, err := env.svc.CreateInvitation(context.Background(), &Request{
		EventID:   env.event.ID,
		Method:    model.DeliveryMethodEmail,
		Recipient: "a@example.com",
	})
	require.NoError(t, err)

	env.sender.err = errSMTPDown
	_, err = env.svc.CreateInvitation(context.Background(), &Request{
		EventID:   env.event.ID,
		Method:    model.DeliveryMethodEmail,
		Recipient: "b@example.com",
	})
	require.Error(t, err)

	all, err := env.svc.ListRecords(context.Background(), env.event.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	sent, err := env.svc.ListRecords(context.Background(), env.event.ID, "SENT")
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, "a@example.com", sent[0].Recipient)
}

func TestListRecordsRejectsUnknownFilter(t *testing.T) {
	env := newTestEnv(t, newFakeSettingsRepo(mailOnSettings()))

	_, err := env.svc.ListRecords(context.Background(), env.event.ID, "BOUNCED")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.Code(err))
}

func TestStats(t *testing.T) {
	env := newTestEnv(t, newFakeSettingsRepo(mailOnSettings()))

	_, err := env.svc.CreateInvitation(context.Background(), &Request{
		EventID:   env.event.ID,
		Method:    model.DeliveryMethodEmail,
		Recipient: "a@example.com",
	})
	require.NoError(t, err)

	env.sender.err = errSMTPDown
	_, err = env.svc.CreateInvitation(context.Background(), &Request{
		EventID:   env.event.ID,
		Method:    model.DeliveryMethodEmail,
		Recipient: "b@example.com",
	})
	require.Error(t, err)

	stats, err := env.svc.Stats(context.Background(), env.event.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Sent)
	assert.Equal(t, int64(1), stats.Failed)
}

func TestJoinLinkTrailingSlash(t *testing.T) {
	svc := NewService(nil, nil, nil, nil, nil, nil, nil, nil, nil, Config{JoinBaseURL: "https://x.example/"})
	assert.Equal(t, "https://x.example/join/abc", svc.JoinLink("abc"))
}
