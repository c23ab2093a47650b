package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrolease/agrolease-backend/pkg/db/models"
	"github.com/agrolease/agrolease-backend/pkg/enums"
	"github.com/agrolease/agrolease-backend/pkg/logger"
)

type captureRepo struct {
	rows []models.OutboxEvent
	err  error
}

func (c *captureRepo) Insert(_ context.Context, event models.OutboxEvent) error {
	if c.err != nil {
		return c.err
	}
	c.rows = append(c.rows, event)
	return nil
}

func TestServiceEmitWrapsEnvelope(t *testing.T) {
	repo := &captureRepo{}
	svc := NewService(repo, logger.Nop())
	fixed := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	err := svc.Emit(context.Background(), DomainEvent{
		EventType:     enums.EventLeaseRequestCreated,
		AggregateType: enums.AggregateLeaseRequest,
		AggregateID:   "req-1",
		Actor:         &ActorRef{UserID: "tenant-1", Role: "tenant"},
		Data:          map[string]string{"landId": "land-1"},
	})
	require.NoError(t, err)
	require.Len(t, repo.rows, 1)

	row := repo.rows[0]
	assert.Equal(t, "req-1", row.AggregateID)
	assert.Equal(t, fixed, row.CreatedAt)

	var env PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &env))
	assert.Equal(t, 1, env.Version)
	assert.Equal(t, row.ID.String(), env.EventID)
	assert.Equal(t, "tenant-1", env.Actor.UserID)
	assert.JSONEq(t, `{"landId":"land-1"}`, string(env.Data))
}

func TestServiceEmitRejectsBadEvents(t *testing.T) {
	svc := NewService(&captureRepo{}, logger.Nop())

	err := svc.Emit(context.Background(), DomainEvent{EventType: "nope", AggregateID: "x"})
	assert.Error(t, err)

	err = svc.Emit(context.Background(), DomainEvent{EventType: enums.EventListingCreated})
	assert.Error(t, err)
}

func TestServiceEmitPropagatesInsertError(t *testing.T) {
	svc := NewService(&captureRepo{err: errors.New("disk full")}, logger.Nop())
	err := svc.Emit(context.Background(), DomainEvent{
		EventType:     enums.EventListingCreated,
		AggregateType: enums.AggregateListing,
		AggregateID:   "land-1",
		Data:          struct{}{},
	})
	assert.EqualError(t, err, "disk full")
}

func TestLogEmitterNeverFails(t *testing.T) {
	assert.NoError(t, NewLogEmitter(logger.Nop()).Emit(context.Background(), DomainEvent{EventType: enums.EventUserRegistered}))
}
