// Package registry knows every outbox event type: which aggregate emits it,
// which topic carries it and how its payload decodes.
package registry

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/agrolease/agrolease-backend/pkg/config"
	"github.com/agrolease/agrolease-backend/pkg/db/models"
	"github.com/agrolease/agrolease-backend/pkg/enums"
	"github.com/agrolease/agrolease-backend/pkg/outbox"
)

// EventDescriptor routes one event type.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
}

// ResolvedEvent is an outbox row that passed validation, with its typed payload.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventRegistry is read-only after construction.
type EventRegistry struct {
	routes   map[enums.OutboxEventType]EventDescriptor
	decoders *DecoderRegistry
}

// NonRetryableError marks a row that will fail the same way on every attempt.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError { return NonRetryableError{Err: err} }

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func nonRetryable(format string, args ...any) error {
	return NonRetryableError{Err: fmt.Errorf(format, args...)}
}

// NewEventRegistry sends lease request and invitation events to the lease
// topic, and account and listing events to the listing topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	switch {
	case cfg.LeaseTopic == "":
		return nil, errors.New("lease topic is required")
	case cfg.ListingTopic == "":
		return nil, errors.New("listing topic is required")
	}

	routes := map[enums.OutboxEventType]EventDescriptor{}
	route := func(topic string, aggregate enums.OutboxAggregateType, types ...enums.OutboxEventType) {
		for _, t := range types {
			routes[t] = EventDescriptor{EventType: t, AggregateType: aggregate, Topic: topic}
		}
	}
	route(cfg.ListingTopic, enums.AggregateUser, enums.EventUserRegistered)
	route(cfg.ListingTopic, enums.AggregateListing, enums.EventListingCreated)
	route(cfg.LeaseTopic, enums.AggregateLeaseRequest, enums.EventLeaseRequestCreated, enums.EventLeaseRequestDecided)
	route(cfg.LeaseTopic, enums.AggregateInvitation, enums.EventInvitationCreated, enums.EventInvitationDecided)

	return &EventRegistry{routes: routes, decoders: NewOutboxDecoderRegistry()}, nil
}

func (r *EventRegistry) Descriptor(eventType enums.OutboxEventType) (EventDescriptor, bool) {
	desc, ok := r.routes[eventType]
	return desc, ok
}

// Resolve checks the row against its registration and decodes the payload.
// Every failure is non-retryable: the row itself is wrong.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.routes[event.EventType]
	switch {
	case !ok:
		return nil, nonRetryable("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, nonRetryable("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	case event.AggregateID == "":
		return nil, nonRetryable("missing aggregate_id")
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, nonRetryable("decode envelope: %w", err)
	}
	if data := bytes.TrimSpace(envelope.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nonRetryable("payload missing for %s", event.EventType)
	}
	payload, err := r.decoders.Decode(event.EventType, envelope.Version, envelope.Data)
	if err != nil {
		return nil, nonRetryable("decode %s payload: %w", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
