package leases

import (
	"context"
	"time"

	"github.com/agrolease/agrolease-backend/internal/gateway"
	"github.com/agrolease/agrolease-backend/pkg/enums"
)

// Repository persists requests and invitations through the document gateway.
type Repository struct {
	docs gateway.Documents
}

func NewRepository(docs gateway.Documents) *Repository {
	return &Repository{docs: docs}
}

func (r *Repository) CreateRequest(ctx context.Context, req *Request) (string, error) {
	return r.docs.Create(ctx, gateway.CollectionRequests, req.toDocument())
}

func (r *Repository) FindRequest(ctx context.Context, id string) (*Request, error) {
	doc, err := r.docs.Get(ctx, gateway.CollectionRequests, id)
	if err != nil {
		return nil, err
	}
	return requestFromDocument(doc), nil
}

// HasRequested reports whether tenantID has any request for landID,
// whatever its status.
func (r *Repository) HasRequested(ctx context.Context, landID, tenantID string) (bool, error) {
	docs, err := r.docs.Query(ctx, gateway.CollectionRequests, gateway.Query{
		Filters: []gateway.Filter{{Field: "landId", Value: landID}, {Field: "tenantId", Value: tenantID}},
		Limit:   1,
	})
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

// ListRequests returns requests whose field equals id. field is landlordId or tenantId.
func (r *Repository) ListRequests(ctx context.Context, field, id string) ([]*Request, error) {
	docs, err := r.docs.Query(ctx, gateway.CollectionRequests, gateway.Where(field, id))
	if err != nil {
		return nil, err
	}
	out := make([]*Request, 0, len(docs))
	for _, doc := range docs {
		out = append(out, requestFromDocument(doc))
	}
	return out, nil
}

func (r *Repository) CreateInvitation(ctx context.Context, inv *Invitation) (string, error) {
	return r.docs.Create(ctx, gateway.CollectionInvitations, inv.toDocument())
}

func (r *Repository) FindInvitation(ctx context.Context, id string) (*Invitation, error) {
	doc, err := r.docs.Get(ctx, gateway.CollectionInvitations, id)
	if err != nil {
		return nil, err
	}
	return invitationFromDocument(doc), nil
}

func (r *Repository) ListInvitations(ctx context.Context, field, id string) ([]*Invitation, error) {
	docs, err := r.docs.Query(ctx, gateway.CollectionInvitations, gateway.Where(field, id))
	if err != nil {
		return nil, err
	}
	out := make([]*Invitation, 0, len(docs))
	for _, doc := range docs {
		out = append(out, invitationFromDocument(doc))
	}
	return out, nil
}

// Decide moves a pending record to status. gateway.ErrPreconditionFailed
// means another writer resolved it first.
func (r *Repository) Decide(ctx context.Context, kind Kind, id string, status enums.LeaseStatus, decidedBy string, at time.Time) error {
	collection := gateway.CollectionRequests
	if kind == KindInvitation {
		collection = gateway.CollectionInvitations
	}
	return r.docs.UpdateIf(ctx, collection, id,
		gateway.Document{"status": string(enums.LeaseStatusPending)},
		gateway.Document{
			"status":    string(status),
			"decidedBy": decidedBy,
			"decidedAt": at,
			"updatedAt": at,
		},
	)
}
