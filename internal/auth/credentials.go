package auth

import (
	"context"
	"strings"
	"time"

	"github.com/agrolease/agrolease-backend/internal/gateway"
)

// Credential is the stored password login for a user.
type Credential struct {
	ID           string
	UserID       string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// CredentialRepository persists credentials in the gateway's credentials collection.
type CredentialRepository struct {
	docs gateway.Documents
	now  func() time.Time
}

func NewCredentialRepository(docs gateway.Documents) *CredentialRepository {
	return &CredentialRepository{docs: docs, now: time.Now}
}

// Create stores a credential; a taken email surfaces as gateway.ErrConflict.
func (r *CredentialRepository) Create(ctx context.Context, userID, email, passwordHash string) (*Credential, error) {
	cred := &Credential{
		UserID:       userID,
		Email:        normalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    r.now().UTC(),
	}
	id, err := r.docs.Create(ctx, gateway.CollectionCredentials, gateway.Document{
		"userId":       cred.UserID,
		"email":        cred.Email,
		"passwordHash": cred.PasswordHash,
		"createdAt":    cred.CreatedAt,
	})
	if err != nil {
		return nil, err
	}
	cred.ID = id
	return cred, nil
}

// FindByEmail returns gateway.ErrNotFound when no credential uses email.
func (r *CredentialRepository) FindByEmail(ctx context.Context, email string) (*Credential, error) {
	q := gateway.Where("email", normalizeEmail(email))
	q.Limit = 1
	docs, err := r.docs.Query(ctx, gateway.CollectionCredentials, q)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, gateway.ErrNotFound
	}
	doc := docs[0]
	return &Credential{
		ID:           doc.ID(),
		UserID:       doc.String("userId"),
		Email:        doc.String("email"),
		PasswordHash: doc.String("passwordHash"),
		CreatedAt:    doc.Time("createdAt"),
	}, nil
}

// UpdateHash replaces the stored hash, used when hashing parameters are raised.
func (r *CredentialRepository) UpdateHash(ctx context.Context, id, passwordHash string) error {
	return r.docs.Update(ctx, gateway.CollectionCredentials, id, gateway.Document{"passwordHash": passwordHash})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
