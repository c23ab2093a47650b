package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrolease/agrolease-backend/internal/listings"
	"github.com/agrolease/agrolease-backend/internal/users"
)

func TestScorePerfectMatch(t *testing.T) {
	land := &listings.Listing{ID: "l1", Title: "North Field", SoilType: "Loam", Size: 10}
	tenant := &users.User{PreferredSoilType: "loam", DesiredSize: 10, Rating: "5", Experience: "12 years"}

	m := Score(land, tenant)
	assert.Equal(t, 100, m.Percent)
	assert.Equal(t, "l1", m.LandID)
	assert.Len(t, m.Reasons, 4)
}

func TestScoreNewTenantIsNeutral(t *testing.T) {
	land := &listings.Listing{SoilType: "Clay", Size: 10}
	tenant := &users.User{Rating: users.DefaultRating, Experience: "3 years"}

	// soil 0.5*0.35 + size 0.5*0.25 + rating 0.5*0.25 + experience 0.3*0.15
	m := Score(land, tenant)
	assert.Equal(t, 47, m.Percent)
	assert.Equal(t, []string{"3 years of farming experience"}, m.Reasons)

	assert.Less(t, Score(land, &users.User{Experience: users.DefaultExperience, PreferredSoilType: "Sandy", DesiredSize: 500, Rating: "0.1"}).Percent, 5)
}

func TestScoreSoilMismatchAndSizeDelta(t *testing.T) {
	land := &listings.Listing{SoilType: "Clay", Size: 20}
	tenant := &users.User{PreferredSoilType: "Sandy", DesiredSize: 10, Rating: "4", Experience: "5 years"}

	// soil 0 + size 0.5*0.25 + rating 0.8*0.25 + experience 0.5*0.15
	assert.Equal(t, 40, Score(land, tenant).Percent)
}

func TestRecommendRanksByBestListing(t *testing.T) {
	lands := []*listings.Listing{
		{ID: "clay", SoilType: "Clay", Size: 50},
		{ID: "loam", SoilType: "Loam", Size: 10},
	}
	tenants := []*users.User{
		{ID: "novice", Rating: "New", Experience: "< 1 year"},
		{ID: "expert", PreferredSoilType: "Loam", DesiredSize: 10, Rating: "4.8", Experience: "15 years"},
		{ID: "clay-fan", PreferredSoilType: "clay", DesiredSize: 45, Rating: "4", Experience: "3 years"},
	}

	recs := Recommend(lands, tenants, 2)
	require.Len(t, recs, 2)
	assert.Equal(t, "expert", recs[0].Tenant.ID)
	assert.Equal(t, "loam", recs[0].Match.LandID)
	assert.Equal(t, "clay-fan", recs[1].Tenant.ID)
	assert.Equal(t, "clay", recs[1].Match.LandID)

	assert.Len(t, Recommend(lands, tenants, 0), 3)
	assert.Empty(t, Recommend(nil, tenants, 3))
}

type fakeLands []*listings.Listing

func (f fakeLands) ListOwned(context.Context, string) ([]*listings.Listing, error) { return f, nil }

type fakeTenants struct {
	tenants []*users.User
	err     error
}

func (f fakeTenants) ListTenants(context.Context) ([]*users.User, error) { return f.tenants, f.err }

func TestServiceForLandlord(t *testing.T) {
	lands := fakeLands{{ID: "l1", SoilType: "Loam", Size: 10}}
	tenants := make([]*users.User, 0, 8)
	for i := 0; i < 8; i++ {
		tenants = append(tenants, &users.User{ID: string(rune('a' + i))})
	}

	svc, err := NewService(lands, fakeTenants{tenants: tenants})
	require.NoError(t, err)
	recs, err := svc.ForLandlord(context.Background(), "landlord-1", 0)
	require.NoError(t, err)
	assert.Len(t, recs, defaultLimit)

	svc, err = NewService(lands, fakeTenants{err: errors.New("down")})
	require.NoError(t, err)
	_, err = svc.ForLandlord(context.Background(), "landlord-1", 3)
	assert.Error(t, err)
}
