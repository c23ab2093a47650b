package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agrolease/agrolease-backend/api/middleware"
	"github.com/agrolease/agrolease-backend/api/responses"
	"github.com/agrolease/agrolease-backend/api/validators"
	"github.com/agrolease/agrolease-backend/internal/leases"
	"github.com/agrolease/agrolease-backend/internal/session"
	"github.com/agrolease/agrolease-backend/pkg/logger"
)

type LeaseService interface {
	CreateRequest(ctx context.Context, actor *session.Session, landID string) (*leases.Request, error)
	CreateInvitation(ctx context.Context, actor *session.Session, in leases.CreateInvitationInput) (*leases.Invitation, error)
	DecideRequest(ctx context.Context, in leases.DecisionInput) (*leases.Request, error)
	DecideInvitation(ctx context.Context, in leases.DecisionInput) (*leases.Invitation, error)
	ListRequestsForTenant(ctx context.Context, tenantID string) ([]leases.RequestItem, error)
	ListRequestsForLandlord(ctx context.Context, landlordID string) ([]leases.RequestItem, error)
	ListInvitationsForTenant(ctx context.Context, tenantID string) ([]leases.InvitationItem, error)
	ListInvitationsForLandlord(ctx context.Context, landlordID string) ([]leases.InvitationItem, error)
}

// TenantCreateRequest files a lease request for the listing in the path.
func TenantCreateRequest(svc LeaseService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("lease service"))
			return
		}
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req, err := svc.CreateRequest(r.Context(), actor, chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, req)
	}
}

func LandlordCreateInvitation(svc LeaseService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("lease service"))
			return
		}
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body leases.CreateInvitationInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		inv, err := svc.CreateInvitation(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, inv)
	}
}

// LandlordDecideRequest applies {"action","confirm"} to the request in the path.
func LandlordDecideRequest(svc LeaseService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("lease service"))
			return
		}
		in, err := decodeDecision(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req, err := svc.DecideRequest(r.Context(), in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, req)
	}
}

func TenantDecideInvitation(svc LeaseService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("lease service"))
			return
		}
		in, err := decodeDecision(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		inv, err := svc.DecideInvitation(r.Context(), in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, inv)
	}
}

func decodeDecision(r *http.Request) (leases.DecisionInput, error) {
	var in leases.DecisionInput
	if err := validators.DecodeJSONBody(r, &in); err != nil {
		return in, err
	}
	in.ID = chi.URLParam(r, "id")
	in.ActorID = middleware.UserIDFromContext(r.Context())
	return in, nil
}

func TenantRequests(svc LeaseService, logg *logger.Logger) http.HandlerFunc {
	return listFor(logg, svc == nil, func(ctx context.Context, userID string) (any, error) {
		return svc.ListRequestsForTenant(ctx, userID)
	})
}

func LandlordRequests(svc LeaseService, logg *logger.Logger) http.HandlerFunc {
	return listFor(logg, svc == nil, func(ctx context.Context, userID string) (any, error) {
		return svc.ListRequestsForLandlord(ctx, userID)
	})
}

func TenantInvitations(svc LeaseService, logg *logger.Logger) http.HandlerFunc {
	return listFor(logg, svc == nil, func(ctx context.Context, userID string) (any, error) {
		return svc.ListInvitationsForTenant(ctx, userID)
	})
}

func LandlordInvitations(svc LeaseService, logg *logger.Logger) http.HandlerFunc {
	return listFor(logg, svc == nil, func(ctx context.Context, userID string) (any, error) {
		return svc.ListInvitationsForLandlord(ctx, userID)
	})
}

func listFor(logg *logger.Logger, missing bool, list func(ctx context.Context, userID string) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if missing {
			responses.WriteError(r.Context(), logg, w, unavailable("lease service"))
			return
		}
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := list(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}
