package controllers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agrolease/agrolease-backend/api/responses"
	"github.com/agrolease/agrolease-backend/internal/agreements"
	"github.com/agrolease/agrolease-backend/pkg/logger"
)

type AgreementService interface {
	ForRequest(ctx context.Context, viewerID, requestID string) (*agreements.Agreement, error)
}

// LandlordAgreement downloads the plain-text agreement for an accepted request.
// ?format=json returns it in the usual envelope instead.
func LandlordAgreement(svc AgreementService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("agreement service"))
			return
		}
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		doc, err := svc.ForRequest(r.Context(), userID, chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if r.URL.Query().Get("format") == "json" {
			responses.WriteSuccess(w, doc)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(doc.Text))
	}
}
