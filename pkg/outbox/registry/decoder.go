package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/agrolease/agrolease-backend/pkg/enums"
	"github.com/agrolease/agrolease-backend/pkg/outbox/payloads"
)

type decoderFunc func(payload json.RawMessage) (any, error)

type registryKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry stores versioned payload decoders for subscribers.
type DecoderRegistry struct {
	mtx      sync.RWMutex
	registry map[registryKey]decoderFunc
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{registry: make(map[registryKey]decoderFunc)}
}

// NewLeaseDecoderRegistry registers v1 decoders for every lease topic event.
func NewLeaseDecoderRegistry() *DecoderRegistry {
	reg := NewDecoderRegistry()
	created := jsonDecoder(func() any { return &payloads.LeaseCreatedEvent{} })
	decided := jsonDecoder(func() any { return &payloads.LeaseDecidedEvent{} })
	reg.Register(enums.EventLeaseRequestCreated, 1, created)
	reg.Register(enums.EventInvitationCreated, 1, created)
	reg.Register(enums.EventLeaseRequestDecided, 1, decided)
	reg.Register(enums.EventInvitationDecided, 1, decided)
	return reg
}

// NewOutboxDecoderRegistry covers every event the API writes to the outbox.
func NewOutboxDecoderRegistry() *DecoderRegistry {
	reg := NewLeaseDecoderRegistry()
	reg.Register(enums.EventUserRegistered, 1, jsonDecoder(func() any { return &payloads.UserRegisteredEvent{} }))
	reg.Register(enums.EventListingCreated, 1, jsonDecoder(func() any { return &payloads.ListingCreatedEvent{} }))
	return reg
}

func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder decoderFunc) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.registry[registryKey{eventType: eventType, version: version}] = decoder
}

func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error) {
	r.mtx.RLock()
	decoder, ok := r.registry[registryKey{eventType: eventType, version: version}]
	r.mtx.RUnlock()
	if !ok {
		return nil, fmt.Errorf("decoder not registered for %s@v%d", eventType, version)
	}
	return decoder(payload)
}

func jsonDecoder(factory func() any) decoderFunc {
	return func(payload json.RawMessage) (any, error) {
		out := factory()
		if err := json.Unmarshal(payload, out); err != nil {
			return nil, err
		}
		return out, nil
	}
}
