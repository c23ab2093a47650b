// Package memstore is an in-process gateway adapter used by tests and the
// memory driver in local development.
package memstore

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/agrolease/agrolease-backend/internal/gateway"
)

// UniqueKey declares fields whose combined values must be unique in a collection.
type UniqueKey struct {
	Collection string
	Fields     []string
}

// DefaultUniqueKeys mirrors the unique indexes of the SQL and Mongo adapters.
var DefaultUniqueKeys = []UniqueKey{
	{Collection: gateway.CollectionRequests, Fields: []string{"landId", "tenantId"}},
	{Collection: gateway.CollectionCredentials, Fields: []string{"email"}},
}

// Store keeps documents and blobs in maps guarded by one mutex, so UpdateIf
// is atomic with respect to every other call.
type Store struct {
	mu         sync.RWMutex
	docs       map[string]map[string]gateway.Document
	blobs      map[string]blob
	uniques    []UniqueKey
	blobPrefix string
}

type blob struct {
	contentType string
	data        []byte
}

type Option func(*Store)

// WithBlobURLPrefix sets the URL prefix returned for uploaded blobs.
func WithBlobURLPrefix(prefix string) Option {
	return func(s *Store) { s.blobPrefix = prefix }
}

// WithUniqueKeys replaces the default unique constraints.
func WithUniqueKeys(keys ...UniqueKey) Option {
	return func(s *Store) { s.uniques = keys }
}

func New(opts ...Option) *Store {
	s := &Store{
		docs:       map[string]map[string]gateway.Document{},
		blobs:      map[string]blob{},
		uniques:    DefaultUniqueKeys,
		blobPrefix: "/api/v1/blobs/",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Create(ctx context.Context, collection string, doc gateway.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !gateway.KnownCollection(collection) {
		return "", fmt.Errorf("%w: %s", gateway.ErrUnknownCollection, collection)
	}
	stored := doc.Clone()
	if stored == nil {
		stored = gateway.Document{}
	}
	id := stored.ID()
	if id == "" {
		id = uuid.NewString()
	}
	stored[gateway.FieldID] = id

	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.docs[collection]
	if coll == nil {
		coll = map[string]gateway.Document{}
		s.docs[collection] = coll
	}
	if _, exists := coll[id]; exists {
		return "", gateway.ErrConflict
	}
	if s.violatesUnique(collection, stored) {
		return "", gateway.ErrConflict
	}
	coll[id] = stored
	return id, nil
}

func (s *Store) violatesUnique(collection string, candidate gateway.Document) bool {
	for _, key := range s.uniques {
		if key.Collection != collection {
			continue
		}
		for _, existing := range s.docs[collection] {
			same := true
			for _, field := range key.Fields {
				if !gateway.Equal(existing[field], candidate[field]) {
					same = false
					break
				}
			}
			if same {
				return true
			}
		}
	}
	return false
}

func (s *Store) Get(ctx context.Context, collection, id string) (gateway.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[collection][id]
	if !ok {
		return nil, gateway.ErrNotFound
	}
	return doc.Clone(), nil
}

func (s *Store) Query(ctx context.Context, collection string, q gateway.Query) ([]gateway.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]gateway.Document, 0)
	for _, doc := range s.docs[collection] {
		if matches(doc, q.Filters) {
			out = append(out, doc.Clone())
		}
	}
	s.mu.RUnlock()

	if q.OrderBy != nil {
		field, desc := q.OrderBy.Field, q.OrderBy.Desc
		sort.SliceStable(out, func(i, j int) bool {
			cmp := gateway.Compare(out[i][field], out[j][field])
			if desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func matches(doc gateway.Document, filters []gateway.Filter) bool {
	for _, f := range filters {
		if !gateway.Equal(doc[f.Field], f.Value) {
			return false
		}
	}
	return true
}

func (s *Store) Update(ctx context.Context, collection, id string, fields gateway.Document) error {
	return s.UpdateIf(ctx, collection, id, nil, fields)
}

func (s *Store) UpdateIf(ctx context.Context, collection, id string, expect, fields gateway.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[collection][id]
	if !ok {
		return gateway.ErrNotFound
	}
	for k, v := range expect {
		if !gateway.Equal(doc[k], v) {
			return gateway.ErrPreconditionFailed
		}
	}
	for k, v := range fields {
		if k == gateway.FieldID {
			continue
		}
		doc[k] = v
	}
	return nil
}

func (s *Store) Upload(ctx context.Context, path, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if path == "" {
		return "", fmt.Errorf("blob path is required")
	}
	s.mu.Lock()
	s.blobs[path] = blob{contentType: contentType, data: append([]byte(nil), data...)}
	s.mu.Unlock()
	return s.blobPrefix + (&url.URL{Path: path}).EscapedPath(), nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[path]; !ok {
		return gateway.ErrNotFound
	}
	delete(s.blobs, path)
	return nil
}

func (s *Store) Open(ctx context.Context, path string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[path]
	if !ok {
		return nil, "", gateway.ErrNotFound
	}
	return append([]byte(nil), b.data...), b.contentType, nil
}

// BlobCount reports how many blobs are stored.
func (s *Store) BlobCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
