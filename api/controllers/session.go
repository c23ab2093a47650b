package controllers

import (
	"net/http"

	"github.com/agrolease/agrolease-backend/api/responses"
	"github.com/agrolease/agrolease-backend/pkg/logger"
)

// SessionCurrent returns the caller's resolved session and landing page.
func SessionCurrent(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sess)
	}
}
