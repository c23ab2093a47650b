// Package sqlstore implements the gateway over relational tables with GORM.
// Document keys are camelCase and map onto snake_case columns.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agrolease/agrolease-backend/internal/gateway"
	dbpkg "github.com/agrolease/agrolease-backend/pkg/db"
	"github.com/agrolease/agrolease-backend/pkg/db/models"
)

var tables = map[string]string{
	gateway.CollectionUsers:       models.User{}.TableName(),
	gateway.CollectionCredentials: models.Credential{}.TableName(),
	gateway.CollectionLands:       models.Land{}.TableName(),
	gateway.CollectionRequests:    models.LeaseRequest{}.TableName(),
	gateway.CollectionInvitations: models.Invitation{}.TableName(),
}

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates the tables from the GORM models. Postgres deployments
// use the goose migrations instead; this path serves SQLite and tests.
func (s *Store) AutoMigrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(models.All()...)
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) table(ctx context.Context, collection string) (*gorm.DB, error) {
	name, ok := tables[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", gateway.ErrUnknownCollection, collection)
	}
	return s.db.WithContext(ctx).Table(name), nil
}

func (s *Store) Create(ctx context.Context, collection string, doc gateway.Document) (string, error) {
	tx, err := s.table(ctx, collection)
	if err != nil {
		return "", err
	}
	row := toRow(doc)
	id, _ := row["id"].(string)
	if id == "" {
		id = uuid.NewString()
		row["id"] = id
	}
	if err := tx.Create(row).Error; err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return "", fmt.Errorf("%w: %v", gateway.ErrConflict, err)
		}
		return "", fmt.Errorf("insert %s: %w", collection, err)
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (gateway.Document, error) {
	rows, err := s.find(ctx, collection, gateway.Query{Filters: []gateway.Filter{{Field: gateway.FieldID, Value: id}}, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gateway.ErrNotFound
	}
	return rows[0], nil
}

func (s *Store) Query(ctx context.Context, collection string, q gateway.Query) ([]gateway.Document, error) {
	return s.find(ctx, collection, q)
}

func (s *Store) find(ctx context.Context, collection string, q gateway.Query) ([]gateway.Document, error) {
	tx, err := s.table(ctx, collection)
	if err != nil {
		return nil, err
	}
	for _, f := range q.Filters {
		tx = tx.Where(clause.Eq{Column: clause.Column{Name: columnName(f.Field)}, Value: f.Value})
	}
	if q.OrderBy != nil {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: columnName(q.OrderBy.Field)}, Desc: q.OrderBy.Desc})
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	var rows []map[string]any
	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	out := make([]gateway.Document, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row))
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, fields gateway.Document) error {
	return s.UpdateIf(ctx, collection, id, nil, fields)
}

// UpdateIf issues a single conditional UPDATE so two racing writers cannot
// both see the expected state.
func (s *Store) UpdateIf(ctx context.Context, collection, id string, expect, fields gateway.Document) error {
	tx, err := s.table(ctx, collection)
	if err != nil {
		return err
	}
	tx = tx.Where(clause.Eq{Column: clause.Column{Name: "id"}, Value: id})
	for k, v := range expect {
		tx = tx.Where(clause.Eq{Column: clause.Column{Name: columnName(k)}, Value: v})
	}
	updates := toRow(fields)
	delete(updates, "id")
	if len(updates) == 0 {
		return errors.New("no fields to update")
	}
	res := tx.Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update %s: %w", collection, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	if _, err := s.Get(ctx, collection, id); err != nil {
		return err
	}
	if len(expect) > 0 {
		return gateway.ErrPreconditionFailed
	}
	return nil
}

func toRow(doc gateway.Document) map[string]any {
	row := make(map[string]any, len(doc))
	for k, v := range doc {
		row[columnName(k)] = v
	}
	return row
}

func fromRow(row map[string]any) gateway.Document {
	doc := make(gateway.Document, len(row))
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		doc[fieldName(k)] = v
	}
	return doc
}

// columnName converts landId to land_id.
func columnName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// fieldName converts land_id to landId.
func fieldName(column string) string {
	parts := strings.Split(column, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] == "" {
			continue
		}
		parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
	}
	return strings.Join(parts, "")
}
