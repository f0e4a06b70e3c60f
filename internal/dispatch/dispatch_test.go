// internal/dispatch/dispatch_test.go
package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textpulse/sms-backend/internal/dispatch"
	"github.com/textpulse/sms-backend/internal/model"
	"github.com/textpulse/sms-backend/internal/repository"
)

// fakeMessageStore keeps the whole message table in memory and applies
// the same status transitions the SQL layer would.
type fakeMessageStore struct {
	candidates []repository.DispatchCandidate
	statuses   map[int]string
	failures   map[int]string
	skips      map[int]string
	sentAt     map[int]time.Time
	providerID map[int]string

	// sentBase seeds CountSentBetween per contact, on top of sends
	// committed during the test itself.
	sentBase  map[int]int
	sentToday map[int]int
	active    map[int]int

	countErr error
	resetN   int
	resetErr error

	lastFrom time.Time
	lastTo   time.Time
}

func newFakeMessageStore(cands ...repository.DispatchCandidate) *fakeMessageStore {
	return &fakeMessageStore{
		candidates: cands,
		statuses:   map[int]string{},
		failures:   map[int]string{},
		skips:      map[int]string{},
		sentAt:     map[int]time.Time{},
		providerID: map[int]string{},
		sentBase:   map[int]int{},
		sentToday:  map[int]int{},
		active:     map[int]int{},
	}
}

func (f *fakeMessageStore) SelectQueuedBatch(limit int) ([]repository.DispatchCandidate, error) {
	if limit > len(f.candidates) {
		limit = len(f.candidates)
	}
	return f.candidates[:limit], nil
}

func (f *fakeMessageStore) MarkSending(id int) error {
	f.statuses[id] = model.StatusSending
	return nil
}

func (f *fakeMessageStore) MarkSent(id int, providerID string, sentAt time.Time) error {
	f.statuses[id] = model.StatusSent
	f.providerID[id] = providerID
	f.sentAt[id] = sentAt
	for _, c := range f.candidates {
		if c.Message.ID == id {
			f.sentToday[c.Message.ContactID]++
		}
	}
	return nil
}

func (f *fakeMessageStore) MarkFailed(id int, errText string) error {
	f.statuses[id] = model.StatusFailed
	f.failures[id] = errText
	return nil
}

func (f *fakeMessageStore) MarkSkipped(id int, reason string) error {
	f.statuses[id] = model.StatusSkipped
	f.skips[id] = reason
	return nil
}

func (f *fakeMessageStore) ResetSending() (int, error) {
	return f.resetN, f.resetErr
}

func (f *fakeMessageStore) CountSentBetween(contactID int, from, to time.Time) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	f.lastFrom, f.lastTo = from, to
	return f.sentBase[contactID] + f.sentToday[contactID], nil
}

func (f *fakeMessageStore) CountActiveByCampaign(campaignID int) (int, error) {
	return f.active[campaignID], nil
}

type fakeCampaignStore struct {
	open      []model.Campaign
	completed map[int]time.Time
}

func (f *fakeCampaignStore) ListStartedIncomplete() ([]model.Campaign, error) {
	return f.open, nil
}

func (f *fakeCampaignStore) Complete(id int, at time.Time) error {
	if f.completed == nil {
		f.completed = map[int]time.Time{}
	}
	f.completed[id] = at
	return nil
}

type fakeAuditor struct {
	actions []string
}

func (f *fakeAuditor) Record(action, meta string) {
	f.actions = append(f.actions, action+":"+meta)
}

// fakeGateway records every call and can fail specific phone numbers.
type fakeGateway struct {
	calls   []string
	failFor map[string]error
}

func (f *fakeGateway) Send(ctx context.Context, to, body string) (string, error) {
	f.calls = append(f.calls, to)
	if err, ok := f.failFor[to]; ok {
		return "", err
	}
	return fmt.Sprintf("ATXid_%d", len(f.calls)), nil
}

func candidate(id, campaignID, contactID int, phone string) repository.DispatchCandidate {
	return repository.DispatchCandidate{
		Message: model.Message{
			ID:         id,
			CampaignID: campaignID,
			ContactID:  contactID,
			ToPhone:    phone,
			Body:       "hello",
			Status:     model.StatusQueued,
		},
		Consented: true,
	}
}

func newDispatcher(msgs *fakeMessageStore, camps *fakeCampaignStore, gw *fakeGateway, audit *fakeAuditor) *dispatch.Dispatcher {
	return &dispatch.Dispatcher{
		Messages:  msgs,
		Campaigns: camps,
		Gateway:   gw,
		Audit:     audit,
		Cfg: dispatch.Config{
			RatePerTick: 2,
			DailyCap:    3,
		},
		Log: zerolog.Nop(),
		Now: func() time.Time { return time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func TestRunTickRespectsBatchLimit(t *testing.T) {
	msgs := newFakeMessageStore(
		candidate(1, 1, 10, "+254700000001"),
		candidate(2, 1, 11, "+254700000002"),
		candidate(3, 1, 12, "+254700000003"),
		candidate(4, 1, 13, "+254700000004"),
		candidate(5, 1, 14, "+254700000005"),
	)
	gw := &fakeGateway{}
	audit := &fakeAuditor{}
	d := newDispatcher(msgs, &fakeCampaignStore{}, gw, audit)

	res, err := d.RunTick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Selected)
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, []string{"+254700000001", "+254700000002"}, gw.calls)
	assert.Equal(t, model.StatusSent, msgs.statuses[1])
	assert.Equal(t, model.StatusSent, msgs.statuses[2])
	_, touched := msgs.statuses[3]
	assert.False(t, touched, "message beyond the batch limit must stay queued")
}

func TestRunTickSkipsIneligibleContact(t *testing.T) {
	optedOut := candidate(1, 1, 10, "+254700000001")
	optedOut.OptedOut = true
	noConsent := candidate(2, 1, 11, "+254700000002")
	noConsent.Consented = false

	msgs := newFakeMessageStore(optedOut, noConsent)
	gw := &fakeGateway{}
	d := newDispatcher(msgs, &fakeCampaignStore{}, gw, &fakeAuditor{})

	res, err := d.RunTick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 0, res.Sent)
	assert.Empty(t, gw.calls, "ineligible contacts must never reach the provider")
	assert.Equal(t, "no consent or opted out", msgs.skips[1])
	assert.Equal(t, "no consent or opted out", msgs.skips[2])
}

func TestRunTickSkipsAtDailyCap(t *testing.T) {
	msgs := newFakeMessageStore(candidate(1, 1, 10, "+254700000001"))
	msgs.sentBase[10] = 3
	gw := &fakeGateway{}
	d := newDispatcher(msgs, &fakeCampaignStore{}, gw, &fakeAuditor{})

	res, err := d.RunTick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Skipped)
	assert.Empty(t, gw.calls)
	assert.Equal(t, "daily cap reached", msgs.skips[1])
}

func TestRunTickCapCountsSendsWithinSameTick(t *testing.T) {
	msgs := newFakeMessageStore(
		candidate(1, 1, 10, "+254700000001"),
		candidate(2, 2, 10, "+254700000001"),
	)
	gw := &fakeGateway{}
	d := newDispatcher(msgs, &fakeCampaignStore{}, gw, &fakeAuditor{})
	d.Cfg.DailyCap = 1

	res, err := d.RunTick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, model.StatusSent, msgs.statuses[1])
	assert.Equal(t, model.StatusSkipped, msgs.statuses[2])
	assert.Equal(t, "daily cap reached", msgs.skips[2])
}

func TestRunTickProviderFailureIsIsolated(t *testing.T) {
	msgs := newFakeMessageStore(
		candidate(1, 1, 10, "+254700000001"),
		candidate(2, 1, 11, "+254700000002"),
	)
	gw := &fakeGateway{failFor: map[string]error{
		"+254700000001": errors.New("InvalidSenderId"),
	}}
	audit := &fakeAuditor{}
	d := newDispatcher(msgs, &fakeCampaignStore{}, gw, audit)

	res, err := d.RunTick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, model.StatusFailed, msgs.statuses[1])
	assert.Equal(t, "InvalidSenderId", msgs.failures[1])
	assert.Equal(t, model.StatusSent, msgs.statuses[2])
	assert.Contains(t, audit.actions, "message_failed:id=1")
}

func TestRunTickLeavesMessageQueuedWhenCapCountFails(t *testing.T) {
	msgs := newFakeMessageStore(candidate(1, 1, 10, "+254700000001"))
	msgs.countErr = errors.New("connection reset")
	gw := &fakeGateway{}
	d := newDispatcher(msgs, &fakeCampaignStore{}, gw, &fakeAuditor{})

	res, err := d.RunTick(context.Background())
	require.NoError(t, err)

	assert.Zero(t, res.Sent+res.Failed+res.Skipped)
	_, touched := msgs.statuses[1]
	assert.False(t, touched, "message must stay queued for the next tick")
	assert.Empty(t, gw.calls)
}

func TestRunTickStopsOnCancelledContext(t *testing.T) {
	msgs := newFakeMessageStore(candidate(1, 1, 10, "+254700000001"))
	d := newDispatcher(msgs, &fakeCampaignStore{}, &fakeGateway{}, &fakeAuditor{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.RunTick(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, msgs.statuses)
}

func TestCloseFinishedCampaigns(t *testing.T) {
	started := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	camps := &fakeCampaignStore{open: []model.Campaign{
		{ID: 1, Name: "done", StartedAt: &started},
		{ID: 2, Name: "in flight", StartedAt: &started},
	}}
	msgs := newFakeMessageStore()
	msgs.active[2] = 4
	audit := &fakeAuditor{}
	d := newDispatcher(msgs, camps, &fakeGateway{}, audit)

	require.NoError(t, d.CloseFinishedCampaigns(context.Background()))

	assert.Contains(t, camps.completed, 1)
	assert.NotContains(t, camps.completed, 2)
	assert.Contains(t, audit.actions, "campaign_completed:id=1")
}

func TestCloseFinishedCampaignsHandlesZeroRecipientActivation(t *testing.T) {
	started := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	camps := &fakeCampaignStore{open: []model.Campaign{
		{ID: 7, Name: "nobody matched", StartedAt: &started},
	}}
	d := newDispatcher(newFakeMessageStore(), camps, &fakeGateway{}, &fakeAuditor{})

	require.NoError(t, d.CloseFinishedCampaigns(context.Background()))
	assert.Contains(t, camps.completed, 7)
}

func TestRecoverRequeuesInFlightMessages(t *testing.T) {
	msgs := newFakeMessageStore()
	msgs.resetN = 3
	audit := &fakeAuditor{}
	d := newDispatcher(msgs, &fakeCampaignStore{}, &fakeGateway{}, audit)

	require.NoError(t, d.Recover())
	assert.Contains(t, audit.actions, "dispatch_recovered:requeued=3")
}

func TestRecoverIsQuietWhenNothingWasInFlight(t *testing.T) {
	audit := &fakeAuditor{}
	d := newDispatcher(newFakeMessageStore(), &fakeCampaignStore{}, &fakeGateway{}, audit)

	require.NoError(t, d.Recover())
	assert.Empty(t, audit.actions)
}

func TestDayBoundsFollowConfiguredTimezone(t *testing.T) {
	nairobi, err := time.LoadLocation("Africa/Nairobi")
	require.NoError(t, err)

	msgs := newFakeMessageStore(candidate(1, 1, 10, "+254700000001"))
	d := newDispatcher(msgs, &fakeCampaignStore{}, &fakeGateway{}, &fakeAuditor{})
	d.Cfg.Timezone = nairobi
	// 22:30 UTC on Sep 1 is already 01:30 on Sep 2 in Nairobi (UTC+3).
	d.Now = func() time.Time { return time.Date(2025, 9, 1, 22, 30, 0, 0, time.UTC) }

	_, err = d.RunTick(context.Background())
	require.NoError(t, err)

	wantFrom := time.Date(2025, 9, 2, 0, 0, 0, 0, nairobi)
	assert.True(t, msgs.lastFrom.Equal(wantFrom), "got day start %v", msgs.lastFrom)
	assert.True(t, msgs.lastTo.Equal(wantFrom.Add(24*time.Hour)), "got day end %v", msgs.lastTo)
}
