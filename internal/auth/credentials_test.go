package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/agrolease/agrolease-backend/internal/gateway"
	"github.com/agrolease/agrolease-backend/internal/gateway/memstore"
)

func TestCredentialRepositoryNormalizesEmail(t *testing.T) {
	repo := NewCredentialRepository(memstore.New())
	ctx := context.Background()

	created, err := repo.Create(ctx, "user-1", "  Mixed@Case.COM ", "hash")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Email != "mixed@case.com" {
		t.Fatalf("expected normalized email, got %q", created.Email)
	}

	found, err := repo.FindByEmail(ctx, "MIXED@case.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.UserID != "user-1" || found.PasswordHash != "hash" {
		t.Fatalf("unexpected credential %+v", found)
	}

	if _, err := repo.Create(ctx, "user-2", "mixed@case.com", "other"); !errors.Is(err, gateway.ErrConflict) {
		t.Fatalf("expected conflict for reused email, got %v", err)
	}
	if _, err := repo.FindByEmail(ctx, "missing@case.com"); !errors.Is(err, gateway.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := repo.UpdateHash(ctx, found.ID, "rehashed"); err != nil {
		t.Fatalf("update hash: %v", err)
	}
	again, _ := repo.FindByEmail(ctx, "mixed@case.com")
	if again.PasswordHash != "rehashed" {
		t.Fatalf("expected updated hash, got %q", again.PasswordHash)
	}
}
