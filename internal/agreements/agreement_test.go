package agreements

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrolease/agrolease-backend/internal/gateway"
	"github.com/agrolease/agrolease-backend/internal/leases"
	"github.com/agrolease/agrolease-backend/internal/listings"
	"github.com/agrolease/agrolease-backend/internal/users"
	"github.com/agrolease/agrolease-backend/pkg/enums"
	pkgerrors "github.com/agrolease/agrolease-backend/pkg/errors"
	"github.com/agrolease/agrolease-backend/pkg/logger"
)

var signedAt = time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)

func acceptedRequest() *leases.Request {
	return &leases.Request{
		ID:          "req-1",
		LandID:      "land-1",
		LandlordID:  "landlord-1",
		TenantID:    "tenant-1",
		TenantName:  "Sam Reed",
		TenantEmail: "sam@example.com",
		Status:      enums.LeaseStatusAccepted,
	}
}

func northField() *listings.Listing {
	return &listings.Listing{
		ID:                 "land-1",
		OwnerID:            "landlord-1",
		Title:              "North Field",
		Location:           "Fresno, CA",
		Size:               12.5,
		Price:              decimal.RequireFromString("1500"),
		SoilType:           "Loam",
		ProfitShareOffered: true,
	}
}

func TestGenerateRendersParties(t *testing.T) {
	landlord := &users.User{Name: "Maria Lopez", Email: "maria@example.com"}
	doc, err := Generate(acceptedRequest(), northField(), landlord, signedAt)
	require.NoError(t, err)

	assert.Equal(t, "lease-agreement-req-1.txt", doc.Filename)
	for _, want := range []string{
		"Reference: req-1",
		"Date: June 3, 2025",
		"Landlord: Maria Lopez <maria@example.com>",
		"Tenant:   Sam Reed <sam@example.com>",
		"Area:     12.5 acres",
		"Rent:     1500.00 per season",
		"Profit sharing: offered",
	} {
		assert.Contains(t, doc.Text, want)
	}
}

func TestGenerateFallsBackWithoutLandlord(t *testing.T) {
	land := northField()
	land.ProfitShareOffered = false
	land.SoilType = ""

	doc, err := Generate(acceptedRequest(), land, nil, signedAt)
	require.NoError(t, err)
	assert.Contains(t, doc.Text, "Landlord: Landowner\n")
	assert.Contains(t, doc.Text, "Soil:     -")
	assert.False(t, strings.Contains(doc.Text, "Profit sharing"))
}

func TestGenerateRequiresAccepted(t *testing.T) {
	for _, status := range []enums.LeaseStatus{enums.LeaseStatusPending, enums.LeaseStatusRejected} {
		req := acceptedRequest()
		req.Status = status
		_, err := Generate(req, northField(), nil, signedAt)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "status %s", status)
	}
}

type stubRequests map[string]*leases.Request

func (s stubRequests) GetRequest(_ context.Context, viewerID, id string) (*leases.RequestItem, error) {
	req, ok := s[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
	}
	if leases.SideOf(viewerID, req.LandlordID, req.TenantID) == leases.SideNone {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a party")
	}
	return &leases.RequestItem{Request: req}, nil
}

type stubListings map[string]*listings.Listing

func (s stubListings) Get(_ context.Context, id string) (*listings.Listing, error) {
	if l, ok := s[id]; ok {
		return l, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
}

type stubProfiles struct{ err error }

func (s stubProfiles) FindByID(context.Context, string) (*users.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return nil, gateway.ErrNotFound
}

func TestServiceForRequest(t *testing.T) {
	svc, err := NewService(
		stubRequests{"req-1": acceptedRequest()},
		stubListings{"land-1": northField()},
		stubProfiles{},
		logger.Nop(),
	)
	require.NoError(t, err)
	svc.now = func() time.Time { return signedAt }

	doc, err := svc.ForRequest(context.Background(), "landlord-1", "req-1")
	require.NoError(t, err)
	assert.Contains(t, doc.Text, "Landlord: Landowner")

	_, err = svc.ForRequest(context.Background(), "tenant-1", "req-1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.ForRequest(context.Background(), "landlord-1", "req-404")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestServiceLogsLandlordLookupFailure(t *testing.T) {
	var buf bytes.Buffer
	svc, err := NewService(
		stubRequests{"req-1": acceptedRequest()},
		stubListings{"land-1": northField()},
		stubProfiles{err: errors.New("connection reset")},
		logger.New(logger.Options{ServiceName: "agreements-test", Output: &buf, Format: logger.FormatJSON}),
	)
	require.NoError(t, err)
	svc.now = func() time.Time { return signedAt }

	doc, err := svc.ForRequest(context.Background(), "landlord-1", "req-1")
	require.NoError(t, err)
	assert.Contains(t, doc.Text, "Landlord: Landowner")
	assert.Contains(t, buf.String(), "agreements.landlord_lookup_failed")
	assert.Contains(t, buf.String(), "connection reset")
}

func TestServiceQuietWhenLandlordMissing(t *testing.T) {
	var buf bytes.Buffer
	svc, err := NewService(
		stubRequests{"req-1": acceptedRequest()},
		stubListings{"land-1": northField()},
		stubProfiles{},
		logger.New(logger.Options{ServiceName: "agreements-test", Output: &buf, Format: logger.FormatJSON}),
	)
	require.NoError(t, err)

	_, err = svc.ForRequest(context.Background(), "landlord-1", "req-1")
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "landlord_lookup_failed")
}
