package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/agrolease/agrolease-backend/api/responses"
	"github.com/agrolease/agrolease-backend/internal/gateway"
	pkgerrors "github.com/agrolease/agrolease-backend/pkg/errors"
	"github.com/agrolease/agrolease-backend/pkg/logger"
)

// BlobDownload serves objects from blob adapters that have no public URL of
// their own (GridFS and memory).
func BlobDownload(reader gateway.BlobReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reader == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "blob not found"))
			return
		}
		path := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		if path == "" || strings.Contains(path, "..") {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "blob not found"))
			return
		}

		data, contentType, err := reader.Open(r.Context(), path)
		if err != nil {
			if errors.Is(err, gateway.ErrNotFound) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "blob not found"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open blob"))
			return
		}
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
