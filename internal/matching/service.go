package matching

import (
	"context"
	"errors"

	"github.com/agrolease/agrolease-backend/internal/listings"
	"github.com/agrolease/agrolease-backend/internal/users"
)

const defaultLimit = 5

type listingLister interface {
	ListOwned(ctx context.Context, ownerID string) ([]*listings.Listing, error)
}

type tenantLister interface {
	ListTenants(ctx context.Context) ([]*users.User, error)
}

type Service struct {
	listings listingLister
	tenants  tenantLister
}

func NewService(lands listingLister, tenants tenantLister) (*Service, error) {
	if lands == nil || tenants == nil {
		return nil, errors.New("listings and tenants are required")
	}
	return &Service{listings: lands, tenants: tenants}, nil
}

// ForLandlord recommends tenants for the landlord's own listings.
func (s *Service) ForLandlord(ctx context.Context, landlordID string, limit int) ([]Recommendation, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	lands, err := s.listings.ListOwned(ctx, landlordID)
	if err != nil {
		return nil, err
	}
	tenants, err := s.tenants.ListTenants(ctx)
	if err != nil {
		return nil, err
	}
	return Recommend(lands, tenants, limit), nil
}
