package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	claims  map[string]any
	ttls    map[string]time.Duration
	failSet error
}

func newFakeStore() *fakeStore {
	return &fakeStore{claims: map[string]any{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) Get(context.Context, string) (string, error) { return "", nil }

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.failSet != nil {
		return false, f.failSet
	}
	if _, held := f.claims[key]; held {
		return false, nil
	}
	f.claims[key], f.ttls[key] = value, ttl
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "agl:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.claims, k)
	}
	return nil
}

const claimKey = "agl:idempotency:evt:processed:lease-activity:evt-1"

func TestClaimThenDuplicate(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, 24*time.Hour)
	require.NoError(t, err)
	manager.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }

	already, err := manager.CheckAndMarkProcessed(context.Background(), "lease-activity", "evt-1")
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, "2026-03-01T09:30:00Z", store.claims[claimKey])
	assert.Equal(t, 24*time.Hour, store.ttls[claimKey])

	already, err = manager.CheckAndMarkProcessed(context.Background(), "lease-activity", "evt-1")
	require.NoError(t, err)
	assert.True(t, already)
}

func TestReleaseAllowsRetry(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	_, err = manager.CheckAndMarkProcessed(context.Background(), "lease-activity", "evt-1")
	require.NoError(t, err)
	require.NoError(t, manager.Release(context.Background(), "lease-activity", "evt-1"))
	assert.NotContains(t, store.claims, claimKey)

	already, err := manager.CheckAndMarkProcessed(context.Background(), "lease-activity", "evt-1")
	require.NoError(t, err)
	assert.False(t, already)
}

func TestStoreErrorIsWrapped(t *testing.T) {
	store := newFakeStore()
	store.failSet = errors.New("redis down")
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	_, err = manager.CheckAndMarkProcessed(context.Background(), "c", "evt-1")
	assert.ErrorIs(t, err, store.failSet)
}

func TestValidation(t *testing.T) {
	_, err := NewManager(nil, time.Hour)
	assert.Error(t, err)
	_, err = NewManager(newFakeStore(), -time.Second)
	assert.Error(t, err)

	manager, err := NewManager(newFakeStore(), 0)
	require.NoError(t, err)
	for _, ids := range [][2]string{{"", "evt"}, {"c", " "}} {
		_, err := manager.CheckAndMarkProcessed(context.Background(), ids[0], ids[1])
		assert.ErrorIs(t, err, ErrInvalidClaim, ids)
		assert.ErrorIs(t, manager.Release(context.Background(), ids[0], ids[1]), ErrInvalidClaim, ids)
	}
}
