package users

import (
	"context"
	"errors"

	"github.com/agrolease/agrolease-backend/internal/gateway"
	pkgerrors "github.com/agrolease/agrolease-backend/pkg/errors"
	"github.com/agrolease/agrolease-backend/pkg/enums"
)

type repository interface {
	FindByID(ctx context.Context, id string) (*User, error)
	ListByRole(ctx context.Context, role enums.UserRole) ([]*User, error)
}

// Service serves the tenant directory landlords invite from.
type Service struct {
	repo repository
}

func NewService(repo repository) (*Service, error) {
	if repo == nil {
		return nil, errors.New("users repository required")
	}
	return &Service{repo: repo}, nil
}

// Get returns one profile.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load user")
	}
	return user, nil
}

// ListTenants returns all tenant profiles, newest first.
func (s *Service) ListTenants(ctx context.Context) ([]*User, error) {
	tenants, err := s.repo.ListByRole(ctx, enums.UserRoleTenant)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list tenants")
	}
	return tenants, nil
}
