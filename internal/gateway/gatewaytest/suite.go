// Package gatewaytest holds the behaviour every gateway adapter must share.
package gatewaytest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrolease/agrolease-backend/internal/gateway"
)

// Factory returns a fresh, empty document store.
type Factory func(t *testing.T) gateway.Documents

// RunDocuments exercises the Documents contract against the adapter.
func RunDocuments(t *testing.T, newStore Factory) {
	t.Run("create then get round trips fields", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

		id, err := store.Create(ctx, gateway.CollectionLands, gateway.Document{
			"ownerId":   "landlord-1",
			"title":     "North Field",
			"location":  "North Valley",
			"size":      12.5,
			"price":     "1500.00",
			"soilType":  "Loamy",
			"imageUrl":  "https://example.com/a.jpg",
			"createdAt": created,
		})
		require.NoError(t, err)
		require.NotEmpty(t, id)

		got, err := store.Get(ctx, gateway.CollectionLands, id)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID())
		assert.Equal(t, "North Field", got.String("title"))
		assert.Equal(t, "landlord-1", got.String("ownerId"))
		assert.InDelta(t, 12.5, got.Float("size"), 0.0001)
		assert.Equal(t, "1500", got.Decimal("price").String())
		assert.True(t, created.Equal(got.Time("createdAt")), "createdAt %v", got.Time("createdAt"))
	})

	t.Run("create honours preset id", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		id, err := store.Create(ctx, gateway.CollectionUsers, gateway.Document{
			gateway.FieldID: "user-42",
			"name":          "Ravi",
			"role":          "tenant",
			"createdAt":     time.Now().UTC(),
		})
		require.NoError(t, err)
		assert.Equal(t, "user-42", id)

		_, err = store.Create(ctx, gateway.CollectionUsers, gateway.Document{gateway.FieldID: "user-42", "name": "dup", "createdAt": time.Now().UTC()})
		assert.True(t, errors.Is(err, gateway.ErrConflict), "expected conflict, got %v", err)
	})

	t.Run("get missing returns not found", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(context.Background(), gateway.CollectionLands, "missing")
		assert.True(t, errors.Is(err, gateway.ErrNotFound), "expected not found, got %v", err)
	})

	t.Run("query filters and orders", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		for i, owner := range []string{"a", "b", "a", "a"} {
			_, err := store.Create(ctx, gateway.CollectionLands, gateway.Document{
				"ownerId":   owner,
				"title":     string(rune('A' + i)),
				"createdAt": base.Add(time.Duration(i) * time.Hour),
			})
			require.NoError(t, err)
		}

		owned, err := store.Query(ctx, gateway.CollectionLands, gateway.Where("ownerId", "a").Newest())
		require.NoError(t, err)
		require.Len(t, owned, 3)
		assert.Equal(t, "D", owned[0].String("title"))
		assert.Equal(t, "C", owned[1].String("title"))
		assert.Equal(t, "A", owned[2].String("title"))

		all, err := store.Query(ctx, gateway.CollectionLands, gateway.Query{})
		require.NoError(t, err)
		assert.Len(t, all, 4)

		limited, err := store.Query(ctx, gateway.CollectionLands, gateway.Query{Limit: 2}.OrderedBy("createdAt", false))
		require.NoError(t, err)
		require.Len(t, limited, 2)
		assert.Equal(t, "A", limited[0].String("title"))

		none, err := store.Query(ctx, gateway.CollectionLands, gateway.Where("ownerId", "a").And("title", "B"))
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("request pair is unique", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		doc := gateway.Document{"landId": "land-1", "tenantId": "tenant-1", "landlordId": "landlord-1", "status": "pending", "createdAt": time.Now().UTC()}
		_, err := store.Create(ctx, gateway.CollectionRequests, doc)
		require.NoError(t, err)
		_, err = store.Create(ctx, gateway.CollectionRequests, doc.Clone())
		assert.True(t, errors.Is(err, gateway.ErrConflict), "expected conflict, got %v", err)

		other := doc.Clone()
		other["tenantId"] = "tenant-2"
		_, err = store.Create(ctx, gateway.CollectionRequests, other)
		assert.NoError(t, err)
	})

	t.Run("update and compare and swap", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		id, err := store.Create(ctx, gateway.CollectionInvitations, gateway.Document{
			"landlordId": "landlord-1",
			"tenantId":   "tenant-1",
			"status":     "pending",
			"createdAt":  time.Now().UTC(),
		})
		require.NoError(t, err)

		err = store.UpdateIf(ctx, gateway.CollectionInvitations, id,
			gateway.Document{"status": "pending"},
			gateway.Document{"status": "accepted"})
		require.NoError(t, err)

		err = store.UpdateIf(ctx, gateway.CollectionInvitations, id,
			gateway.Document{"status": "pending"},
			gateway.Document{"status": "rejected"})
		assert.True(t, errors.Is(err, gateway.ErrPreconditionFailed), "expected precondition failure, got %v", err)

		got, err := store.Get(ctx, gateway.CollectionInvitations, id)
		require.NoError(t, err)
		assert.Equal(t, "accepted", got.String("status"))

		err = store.UpdateIf(ctx, gateway.CollectionInvitations, "missing", gateway.Document{"status": "pending"}, gateway.Document{"status": "accepted"})
		assert.True(t, errors.Is(err, gateway.ErrNotFound), "expected not found, got %v", err)

		err = store.Update(ctx, gateway.CollectionInvitations, "missing", gateway.Document{"status": "accepted"})
		assert.True(t, errors.Is(err, gateway.ErrNotFound), "expected not found, got %v", err)
	})

	t.Run("concurrent swaps persist exactly one transition", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		id, err := store.Create(ctx, gateway.CollectionRequests, gateway.Document{
			"landId": "land-9", "tenantId": "tenant-9", "landlordId": "landlord-9",
			"status": "pending", "createdAt": time.Now().UTC(),
		})
		require.NoError(t, err)

		var wg sync.WaitGroup
		results := make([]error, 2)
		for i, target := range []string{"accepted", "rejected"} {
			wg.Add(1)
			go func(i int, target string) {
				defer wg.Done()
				results[i] = store.UpdateIf(ctx, gateway.CollectionRequests, id,
					gateway.Document{"status": "pending"},
					gateway.Document{"status": target})
			}(i, target)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range results {
			if err == nil {
				succeeded++
				continue
			}
			assert.True(t, errors.Is(err, gateway.ErrPreconditionFailed), "unexpected error %v", err)
		}
		assert.Equal(t, 1, succeeded)
	})
}

// RunBlobs exercises upload and delete.
func RunBlobs(t *testing.T, blobs gateway.Blobs) {
	ctx := context.Background()
	url, err := blobs.Upload(ctx, "lands/1700000000000_field.jpg", "image/jpeg", []byte("jpeg-bytes"))
	require.NoError(t, err)
	assert.NotEmpty(t, url)

	if reader, ok := blobs.(gateway.BlobReader); ok {
		data, contentType, err := reader.Open(ctx, "lands/1700000000000_field.jpg")
		require.NoError(t, err)
		assert.Equal(t, []byte("jpeg-bytes"), data)
		assert.Equal(t, "image/jpeg", contentType)
	}

	require.NoError(t, blobs.Delete(ctx, "lands/1700000000000_field.jpg"))
	err = blobs.Delete(ctx, "lands/1700000000000_field.jpg")
	assert.True(t, errors.Is(err, gateway.ErrNotFound), "expected not found, got %v", err)
}
