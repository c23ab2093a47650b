package activity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrolease/agrolease-backend/pkg/enums"
	"github.com/agrolease/agrolease-backend/pkg/logger"
	"github.com/agrolease/agrolease-backend/pkg/outbox"
	"github.com/agrolease/agrolease-backend/pkg/outbox/payloads"
	"github.com/agrolease/agrolease-backend/pkg/outbox/registry"
)

type fakeTracker struct {
	seen     map[string]bool
	err      error
	released []string
}

func (f *fakeTracker) CheckAndMarkProcessed(_ context.Context, _, eventID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	already := f.seen[eventID]
	f.seen[eventID] = true
	return already, nil
}

func (f *fakeTracker) Release(_ context.Context, _, eventID string) error {
	f.released = append(f.released, eventID)
	delete(f.seen, eventID)
	return nil
}

type fakeCounter struct {
	ok, failed []string
}

func (f *fakeCounter) IncSuccess(job string) { f.ok = append(f.ok, job) }
func (f *fakeCounter) IncFailure(job string) { f.failed = append(f.failed, job) }

func newConsumer(t *testing.T, tracker processedTracker) (*Consumer, *fakeCounter, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	counter := &fakeCounter{}
	c := &Consumer{
		seen:     tracker,
		decoders: registry.NewLeaseDecoderRegistry(),
		counter:  counter,
		logg:     logger.New(logger.Options{ServiceName: "worker-test", Output: &buf, Format: logger.FormatJSON}),
	}
	return c, counter, &buf
}

func envelope(t *testing.T, eventID string, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	out, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now(),
		Actor:      &outbox.ActorRef{UserID: "landlord-1", Role: "landlord"},
		Data:       raw,
	})
	require.NoError(t, err)
	return out
}

func attrs(eventType enums.OutboxEventType) map[string]string {
	return map[string]string{"event_type": string(eventType)}
}

func TestProcessDecisionNotifiesTenant(t *testing.T) {
	c, counter, buf := newConsumer(t, &fakeTracker{})
	data := envelope(t, "evt-1", payloads.LeaseDecidedEvent{
		ID: "req-1", LandID: "land-1", LandlordID: "landlord-1", TenantID: "tenant-1",
		Status: enums.LeaseStatusAccepted, DecidedBy: "landlord-1",
	})

	ack := c.process(context.Background(), "m-1", attrs(enums.EventLeaseRequestDecided), data)
	require.True(t, ack)
	assert.Equal(t, []string{"activity_lease_request_decided"}, counter.ok)

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "activity.lease_request_decided", line["message"])
	assert.Equal(t, "tenant-1", line["notify"])
	assert.Equal(t, "accepted", line["status"])
	assert.Equal(t, "landlord-1", line["actor_id"])
}

func TestProcessSkipsDuplicates(t *testing.T) {
	tracker := &fakeTracker{}
	c, counter, _ := newConsumer(t, tracker)
	data := envelope(t, "evt-2", payloads.LeaseCreatedEvent{ID: "inv-1", LandlordID: "landlord-1", TenantID: "tenant-1"})

	require.True(t, c.process(context.Background(), "m-1", attrs(enums.EventInvitationCreated), data))
	require.True(t, c.process(context.Background(), "m-2", attrs(enums.EventInvitationCreated), data))
	assert.Len(t, counter.ok, 1)
}

func TestProcessNacksWhenTrackerFails(t *testing.T) {
	c, _, _ := newConsumer(t, &fakeTracker{err: errors.New("redis down")})
	data := envelope(t, "evt-3", payloads.LeaseCreatedEvent{ID: "req-1"})
	assert.False(t, c.process(context.Background(), "m-1", attrs(enums.EventLeaseRequestCreated), data))
}

func TestProcessAcksMalformedAndUnknown(t *testing.T) {
	c, counter, _ := newConsumer(t, &fakeTracker{})
	assert.True(t, c.process(context.Background(), "m-1", attrs(enums.EventLeaseRequestCreated), []byte("{")))
	assert.True(t, c.process(context.Background(), "m-2", attrs(enums.EventListingCreated), envelope(t, "evt-4", payloads.ListingCreatedEvent{LandID: "land-1"})))
	assert.Equal(t, []string{"activity_lease_request_created"}, counter.failed)
}

func TestDescribe(t *testing.T) {
	created := &payloads.LeaseCreatedEvent{ID: "x", LandlordID: "l", TenantID: "t"}
	decided := &payloads.LeaseDecidedEvent{ID: "x", LandlordID: "l", TenantID: "t", Status: enums.LeaseStatusRejected}

	cases := []struct {
		eventType enums.OutboxEventType
		payload   any
		kind      string
		notify    string
	}{
		{enums.EventLeaseRequestCreated, created, "request", "l"},
		{enums.EventInvitationCreated, created, "invitation", "t"},
		{enums.EventLeaseRequestDecided, decided, "request", "t"},
		{enums.EventInvitationDecided, decided, "invitation", "l"},
	}
	for _, tc := range cases {
		e, err := describe(tc.eventType, tc.payload)
		require.NoError(t, err, tc.eventType)
		assert.Equal(t, tc.kind, e.Kind, tc.eventType)
		assert.Equal(t, tc.notify, e.Notify, tc.eventType)
	}

	_, err := describe(enums.EventLeaseRequestDecided, created)
	assert.Error(t, err)
	_, err = describe(enums.EventLeaseRequestCreated, "nope")
	assert.Error(t, err)
}

func TestNewConsumerValidates(t *testing.T) {
	_, err := NewConsumer(nil, &fakeTracker{}, registry.NewLeaseDecoderRegistry(), nil, logger.Nop())
	assert.Error(t, err)
}
