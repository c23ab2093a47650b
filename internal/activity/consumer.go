// Package activity consumes lease lifecycle events from Pub/Sub and writes
// them to the audit log, once per event id.
package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/agrolease/agrolease-backend/pkg/enums"
	"github.com/agrolease/agrolease-backend/pkg/logger"
	"github.com/agrolease/agrolease-backend/pkg/outbox"
	"github.com/agrolease/agrolease-backend/pkg/outbox/payloads"
)

const consumerName = "lease-activity"

type processedTracker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	Release(ctx context.Context, consumer, eventID string) error
}

type payloadDecoder interface {
	Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error)
}

type eventCounter interface {
	IncSuccess(job string)
	IncFailure(job string)
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// Consumer turns lease events into audit entries.
type Consumer struct {
	sub      receiver
	seen     processedTracker
	decoders payloadDecoder
	counter  eventCounter
	logg     *logger.Logger
}

func NewConsumer(sub receiver, seen processedTracker, decoders payloadDecoder, counter eventCounter, logg *logger.Logger) (*Consumer, error) {
	switch {
	case sub == nil:
		return nil, errors.New("lease subscription required")
	case seen == nil:
		return nil, errors.New("idempotency manager required")
	case decoders == nil:
		return nil, errors.New("decoder registry required")
	case logg == nil:
		return nil, errors.New("logger required")
	}
	return &Consumer{sub: sub, seen: seen, decoders: decoders, counter: counter, logg: logg}, nil
}

// Run receives until ctx ends.
func (c *Consumer) Run(ctx context.Context) error {
	return c.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg.ID, msg.Attributes, msg.Data) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// process reports whether the message should be acked. Malformed messages are
// acked so they do not loop; transient failures release the claim and nack.
func (c *Consumer) process(ctx context.Context, messageID string, attrs map[string]string, data []byte) bool {
	eventType := enums.OutboxEventType(attrs["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	})

	envelope, err := outbox.DecodeEnvelope(data)
	if err != nil {
		c.logg.Error(logCtx, "activity.bad_envelope", err)
		c.count(eventType, false)
		return true
	}
	logCtx = c.logg.WithField(logCtx, "event_id", envelope.EventID)

	payload, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "activity.skipped")
		return true
	}

	already, err := c.seen.CheckAndMarkProcessed(ctx, consumerName, envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "activity.idempotency_failed", err)
		return false
	}
	if already {
		c.logg.Debug(logCtx, "activity.duplicate")
		return true
	}

	entry, err := describe(eventType, payload)
	if err != nil {
		c.logg.Error(logCtx, "activity.describe_failed", err)
		if relErr := c.seen.Release(ctx, consumerName, envelope.EventID); relErr != nil {
			c.logg.Error(logCtx, "activity.release_failed", relErr)
		}
		c.count(eventType, false)
		return false
	}
	fields := entry.fields()
	if envelope.Actor != nil {
		fields["actor_id"] = envelope.Actor.UserID
	}
	c.logg.Info(c.logg.WithFields(logCtx, fields), "activity."+string(eventType))
	c.count(eventType, true)
	return true
}

func (c *Consumer) count(eventType enums.OutboxEventType, ok bool) {
	if c.counter == nil {
		return
	}
	job := "activity_" + string(eventType)
	if ok {
		c.counter.IncSuccess(job)
		return
	}
	c.counter.IncFailure(job)
}

// Entry is one audit record. Notify names the party the event concerns.
type Entry struct {
	Kind       string
	RecordID   string
	LandID     string
	LandlordID string
	TenantID   string
	Notify     string
	Status     enums.LeaseStatus
}

func (e Entry) fields() map[string]any {
	f := map[string]any{
		"kind":        e.Kind,
		"record_id":   e.RecordID,
		"landlord_id": e.LandlordID,
		"tenant_id":   e.TenantID,
		"notify":      e.Notify,
	}
	if e.LandID != "" {
		f["land_id"] = e.LandID
	}
	if e.Status != "" {
		f["status"] = e.Status
	}
	return f
}

// describe maps a decoded payload to the party that should hear about it:
// new requests concern the landlord, new invitations the tenant, and each
// decision the side that did not make it.
func describe(eventType enums.OutboxEventType, payload any) (Entry, error) {
	switch p := payload.(type) {
	case *payloads.LeaseCreatedEvent:
		e := Entry{RecordID: p.ID, LandID: p.LandID, LandlordID: p.LandlordID, TenantID: p.TenantID, Status: enums.LeaseStatusPending}
		switch eventType {
		case enums.EventLeaseRequestCreated:
			e.Kind, e.Notify = "request", p.LandlordID
		case enums.EventInvitationCreated:
			e.Kind, e.Notify = "invitation", p.TenantID
		default:
			return Entry{}, fmt.Errorf("unexpected %s payload", eventType)
		}
		return e, nil
	case *payloads.LeaseDecidedEvent:
		e := Entry{RecordID: p.ID, LandID: p.LandID, LandlordID: p.LandlordID, TenantID: p.TenantID, Status: p.Status}
		switch eventType {
		case enums.EventLeaseRequestDecided:
			e.Kind, e.Notify = "request", p.TenantID
		case enums.EventInvitationDecided:
			e.Kind, e.Notify = "invitation", p.LandlordID
		default:
			return Entry{}, fmt.Errorf("unexpected %s payload", eventType)
		}
		return e, nil
	default:
		return Entry{}, fmt.Errorf("unsupported payload %T", payload)
	}
}
