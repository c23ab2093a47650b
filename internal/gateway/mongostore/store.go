// Package mongostore implements the gateway on MongoDB collections, with
// GridFS holding uploaded blobs.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/agrolease/agrolease-backend/internal/gateway"
)

const mongoID = "_id"

type Store struct {
	db *mongo.Database
}

func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// EnsureIndexes creates the unique and lookup indexes the services rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		gateway.CollectionRequests: {
			{Keys: bson.D{{Key: "landId", Value: 1}, {Key: "tenantId", Value: 1}}, Options: options.Index().SetUnique(true).SetName("ux_requests_land_tenant")},
			{Keys: bson.D{{Key: "landlordId", Value: 1}}},
		},
		gateway.CollectionCredentials: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("ux_credentials_email")},
		},
		gateway.CollectionLands: {
			{Keys: bson.D{{Key: "ownerId", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		gateway.CollectionInvitations: {
			{Keys: bson.D{{Key: "tenantId", Value: 1}}},
			{Keys: bson.D{{Key: "landlordId", Value: 1}}},
		},
	}
	for collection, models := range indexes {
		if _, err := s.db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("creating %s indexes: %w", collection, err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

func (s *Store) collection(name string) (*mongo.Collection, error) {
	if !gateway.KnownCollection(name) {
		return nil, fmt.Errorf("%w: %s", gateway.ErrUnknownCollection, name)
	}
	return s.db.Collection(name), nil
}

func (s *Store) Create(ctx context.Context, collection string, doc gateway.Document) (string, error) {
	coll, err := s.collection(collection)
	if err != nil {
		return "", err
	}
	id := doc.ID()
	if id == "" {
		id = uuid.NewString()
	}
	record := toBSON(doc)
	record[mongoID] = id
	if _, err := coll.InsertOne(ctx, record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%w: %v", gateway.ErrConflict, err)
		}
		return "", fmt.Errorf("insert %s: %w", collection, err)
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (gateway.Document, error) {
	coll, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	var raw bson.M
	if err := coll.FindOne(ctx, bson.M{mongoID: id}).Decode(&raw); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, gateway.ErrNotFound
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return fromBSON(raw), nil
}

func (s *Store) Query(ctx context.Context, collection string, q gateway.Query) ([]gateway.Document, error) {
	coll, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	opts := options.Find()
	if q.OrderBy != nil {
		dir := 1
		if q.OrderBy.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: fieldKey(q.OrderBy.Field), Value: dir}})
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	cursor, err := coll.Find(ctx, filterFor(q.Filters), opts)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	var raws []bson.M
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}
	out := make([]gateway.Document, 0, len(raws))
	for _, raw := range raws {
		out = append(out, fromBSON(raw))
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, fields gateway.Document) error {
	return s.UpdateIf(ctx, collection, id, nil, fields)
}

// UpdateIf folds the expected values into the update filter, which MongoDB
// evaluates atomically per document.
func (s *Store) UpdateIf(ctx context.Context, collection, id string, expect, fields gateway.Document) error {
	coll, err := s.collection(collection)
	if err != nil {
		return err
	}
	filter := bson.M{mongoID: id}
	for k, v := range expect {
		filter[fieldKey(k)] = v
	}
	set := toBSON(fields)
	delete(set, mongoID)
	res, err := coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	count, err := coll.CountDocuments(ctx, bson.M{mongoID: id})
	if err != nil {
		return fmt.Errorf("count %s/%s: %w", collection, id, err)
	}
	if count == 0 {
		return gateway.ErrNotFound
	}
	return gateway.ErrPreconditionFailed
}

func filterFor(filters []gateway.Filter) bson.M {
	out := bson.M{}
	for _, f := range filters {
		out[fieldKey(f.Field)] = f.Value
	}
	return out
}

func fieldKey(field string) string {
	if field == gateway.FieldID {
		return mongoID
	}
	return field
}

func toBSON(doc gateway.Document) bson.M {
	out := bson.M{}
	for k, v := range doc {
		if k == gateway.FieldID {
			continue
		}
		if t, ok := v.(time.Time); ok {
			v = t.UTC()
		}
		out[k] = v
	}
	return out
}

func fromBSON(raw bson.M) gateway.Document {
	doc := make(gateway.Document, len(raw))
	for k, v := range raw {
		if k == mongoID {
			k = gateway.FieldID
		}
		doc[k] = normalize(v)
	}
	return doc
}

func normalize(v any) any {
	switch val := v.(type) {
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.ObjectID:
		return val.Hex()
	case primitive.Decimal128:
		return val.String()
	case int32:
		return int64(val)
	default:
		return v
	}
}
