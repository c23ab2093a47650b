package users

import (
	"context"
	"time"

	"github.com/agrolease/agrolease-backend/internal/gateway"
	"github.com/agrolease/agrolease-backend/pkg/enums"
)

// Repository reads and writes profiles through the document gateway.
type Repository struct {
	docs gateway.Documents
	now  func() time.Time
}

// NewRepository constructs a users repo bound to the provided gateway.
func NewRepository(docs gateway.Documents) *Repository {
	return &Repository{docs: docs, now: time.Now}
}

// Create inserts a new profile and returns it as stored.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*User, error) {
	doc := dto.ToDocument(r.now())
	id, err := r.docs.Create(ctx, gateway.CollectionUsers, doc)
	if err != nil {
		return nil, err
	}
	doc[gateway.FieldID] = id
	return FromDocument(doc), nil
}

// FindByID loads a profile; gateway.ErrNotFound when absent.
func (r *Repository) FindByID(ctx context.Context, id string) (*User, error) {
	doc, err := r.docs.Get(ctx, gateway.CollectionUsers, id)
	if err != nil {
		return nil, err
	}
	return FromDocument(doc), nil
}

// ListByRole returns every profile with the role, newest first.
func (r *Repository) ListByRole(ctx context.Context, role enums.UserRole) ([]*User, error) {
	docs, err := r.docs.Query(ctx, gateway.CollectionUsers, gateway.Where("role", string(role)).Newest())
	if err != nil {
		return nil, err
	}
	out := make([]*User, 0, len(docs))
	for _, doc := range docs {
		out = append(out, FromDocument(doc))
	}
	return out, nil
}
