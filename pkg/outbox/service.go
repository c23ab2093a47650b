package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/agrolease/agrolease-backend/pkg/db/models"
	"github.com/agrolease/agrolease-backend/pkg/enums"
	"github.com/agrolease/agrolease-backend/pkg/logger"
)

// DomainEvent is what services hand to an Emitter after a write succeeds.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

// Emitter records domain events. Callers treat failures as non-fatal.
type Emitter interface {
	Emit(ctx context.Context, event DomainEvent) error
}

type inserter interface {
	Insert(ctx context.Context, event models.OutboxEvent) error
}

// Service persists events into outbox_events for the publisher to drain.
type Service struct {
	repo inserter
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo inserter, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, now: time.Now}
}

func (s *Service) Emit(ctx context.Context, event DomainEvent) error {
	if s.repo == nil {
		return errors.New("outbox repository required")
	}
	row, envelope, err := s.build(event)
	if err != nil {
		return err
	}
	if err := s.repo.Insert(ctx, row); err != nil {
		return err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, eventFields(event, envelope.EventID)), "outbox.event_queued")
	}
	return nil
}

func (s *Service) build(event DomainEvent) (models.OutboxEvent, PayloadEnvelope, error) {
	if !event.EventType.IsValid() {
		return models.OutboxEvent{}, PayloadEnvelope{}, errors.New("invalid event type")
	}
	if event.AggregateID == "" {
		return models.OutboxEvent{}, PayloadEnvelope{}, errors.New("aggregate id required")
	}
	data, err := json.Marshal(event.Data)
	if err != nil {
		return models.OutboxEvent{}, PayloadEnvelope{}, err
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}
	if event.Version == 0 {
		event.Version = 1
	}
	envelope := PayloadEnvelope{
		Version:    event.Version,
		EventID:    uuid.NewString(),
		OccurredAt: event.OccurredAt,
		Actor:      event.Actor,
		Data:       data,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return models.OutboxEvent{}, PayloadEnvelope{}, err
	}
	return models.OutboxEvent{
		ID:            uuid.MustParse(envelope.EventID),
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payload,
		CreatedAt:     event.OccurredAt,
	}, envelope, nil
}

// LogEmitter only logs events. Used when the document store has no outbox table.
type LogEmitter struct {
	logg *logger.Logger
}

func NewLogEmitter(logg *logger.Logger) *LogEmitter {
	return &LogEmitter{logg: logg}
}

func (e *LogEmitter) Emit(ctx context.Context, event DomainEvent) error {
	if e.logg != nil {
		e.logg.Info(e.logg.WithFields(ctx, eventFields(event, "")), "outbox.event_logged")
	}
	return nil
}

func eventFields(event DomainEvent, eventID string) map[string]any {
	fields := map[string]any{
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID,
	}
	if eventID != "" {
		fields["event_id"] = eventID
	}
	if event.Actor != nil {
		fields["actor_id"] = event.Actor.UserID
	}
	return fields
}
