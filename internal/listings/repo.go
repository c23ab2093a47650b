package listings

import (
	"context"

	"github.com/agrolease/agrolease-backend/internal/gateway"
)

// Repository stores listings in the lands collection.
type Repository struct {
	docs gateway.Documents
}

func NewRepository(docs gateway.Documents) *Repository {
	return &Repository{docs: docs}
}

func (r *Repository) Create(ctx context.Context, l *Listing) (string, error) {
	return r.docs.Create(ctx, gateway.CollectionLands, l.toDocument())
}

func (r *Repository) FindByID(ctx context.Context, id string) (*Listing, error) {
	doc, err := r.docs.Get(ctx, gateway.CollectionLands, id)
	if err != nil {
		return nil, err
	}
	return FromDocument(doc), nil
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]*Listing, error) {
	return r.query(ctx, gateway.Where("ownerId", ownerID).Newest())
}

func (r *Repository) ListAll(ctx context.Context) ([]*Listing, error) {
	return r.query(ctx, gateway.Query{}.Newest())
}

func (r *Repository) query(ctx context.Context, q gateway.Query) ([]*Listing, error) {
	docs, err := r.docs.Query(ctx, gateway.CollectionLands, q)
	if err != nil {
		return nil, err
	}
	out := make([]*Listing, 0, len(docs))
	for _, doc := range docs {
		out = append(out, FromDocument(doc))
	}
	return out, nil
}
