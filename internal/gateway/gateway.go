// Package gateway defines the persistence port the marketplace services talk
// to: a document store with equality queries and a blob store for images.
// Adapters live in the sqlstore, mongostore and memstore subpackages and in
// pkg/storage/gcs.
package gateway

import (
	"context"
	"errors"
)

// Collection names.
const (
	CollectionUsers       = "users"
	CollectionLands       = "lands"
	CollectionRequests    = "requests"
	CollectionInvitations = "invitations"
	CollectionCredentials = "credentials"
)

// FieldID is the key under which every stored document exposes its id.
const FieldID = "id"

var (
	ErrNotFound           = errors.New("document not found")
	ErrConflict           = errors.New("document conflicts with an existing one")
	ErrPreconditionFailed = errors.New("document no longer matches the expected state")
	ErrUnknownCollection  = errors.New("unknown collection")
)

// Documents is the document side of the gateway. Create generates an id unless
// the document already carries one under FieldID.
type Documents interface {
	Create(ctx context.Context, collection string, doc Document) (string, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
	Update(ctx context.Context, collection, id string, fields Document) error
	// UpdateIf applies fields only while every key in expect still holds its
	// value, returning ErrPreconditionFailed otherwise.
	UpdateIf(ctx context.Context, collection, id string, expect, fields Document) error
}

// Blobs stores binary objects and returns a URL that can render them.
type Blobs interface {
	Upload(ctx context.Context, path, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, path string) error
}

// BlobReader is implemented by blob stores whose objects are served through
// this API rather than a public bucket.
type BlobReader interface {
	Open(ctx context.Context, path string) ([]byte, string, error)
}

// Pinger is implemented by adapters that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Filter is a single equality predicate.
type Filter struct {
	Field string
	Value any
}

// Order sorts query results by one field.
type Order struct {
	Field string
	Desc  bool
}

// Query selects documents matching every filter. Results are unordered
// unless OrderBy is set.
type Query struct {
	Filters []Filter
	OrderBy *Order
	Limit   int
}

// Where starts a query with one equality filter.
func Where(field string, value any) Query {
	return Query{Filters: []Filter{{Field: field, Value: value}}}
}

// And adds another equality filter.
func (q Query) And(field string, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Value: value})
	return q
}

// OrderedBy sets the sort order.
func (q Query) OrderedBy(field string, desc bool) Query {
	q.OrderBy = &Order{Field: field, Desc: desc}
	return q
}

// Newest orders by createdAt descending.
func (q Query) Newest() Query {
	return q.OrderedBy("createdAt", true)
}

// KnownCollection reports whether name is one of the gateway collections.
func KnownCollection(name string) bool {
	switch name {
	case CollectionUsers, CollectionLands, CollectionRequests, CollectionInvitations, CollectionCredentials:
		return true
	}
	return false
}
