package controllers

import (
	"context"
	"net/http"

	"github.com/agrolease/agrolease-backend/api/responses"
	"github.com/agrolease/agrolease-backend/api/validators"
	"github.com/agrolease/agrolease-backend/internal/matching"
	"github.com/agrolease/agrolease-backend/internal/users"
	"github.com/agrolease/agrolease-backend/pkg/logger"
)

const maxRecommendations = 50

type TenantDirectory interface {
	ListTenants(ctx context.Context) ([]*users.User, error)
}

type Recommender interface {
	ForLandlord(ctx context.Context, landlordID string, limit int) ([]matching.Recommendation, error)
}

// LandlordTenants lists every tenant a landlord may invite.
func LandlordTenants(svc TenantDirectory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("tenant directory"))
			return
		}
		tenants, err := svc.ListTenants(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tenants)
	}
}

// LandlordRecommendations ranks tenants against the caller's listings.
func LandlordRecommendations(svc Recommender, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("recommendations"))
			return
		}
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.QueryInt(r, "limit", validators.IntRange{Max: maxRecommendations})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		recs, err := svc.ForLandlord(r.Context(), userID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, recs)
	}
}
