package controllers

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/agrolease/agrolease-backend/api/responses"
	"github.com/agrolease/agrolease-backend/api/validators"
	"github.com/agrolease/agrolease-backend/internal/listings"
	"github.com/agrolease/agrolease-backend/internal/session"
	"github.com/agrolease/agrolease-backend/pkg/config"
	pkgerrors "github.com/agrolease/agrolease-backend/pkg/errors"
	"github.com/agrolease/agrolease-backend/pkg/logger"
)

const (
	maxSearchLength = 120
	// multipartOverhead leaves room for the text fields next to the image.
	multipartOverhead = 1 << 20
)

type ListingService interface {
	Create(ctx context.Context, actor *session.Session, in listings.CreateListingInput, img *listings.Image) (*listings.Listing, error)
	ListOwned(ctx context.Context, ownerID string) ([]*listings.Listing, error)
	Browse(ctx context.Context, term string) ([]*listings.Listing, error)
	Detail(ctx context.Context, viewer *session.Session, id string) (*listings.Detail, error)
}

// ListingsBrowse returns the catalog, optionally filtered by ?q= on title and
// location.
func ListingsBrowse(svc ListingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("listing service"))
			return
		}
		term := validators.SanitizeSearch(r.URL.Query().Get("q"), maxSearchLength)
		items, err := svc.Browse(r.Context(), term)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func ListingDetail(svc ListingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("listing service"))
			return
		}
		viewer, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.Detail(r.Context(), viewer, chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

func LandlordListings(svc ListingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("listing service"))
			return
		}
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.ListOwned(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// LandlordCreateListing accepts either multipart/form-data with an optional
// "image" file or a JSON body without one.
func LandlordCreateListing(svc ListingService, cfg config.ListingsConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("listing service"))
			return
		}
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var (
			in  listings.CreateListingInput
			img *listings.Image
		)
		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if mediaType == "multipart/form-data" {
			in, img, err = readListingForm(w, r, cfg.MaxImageBytes())
		} else {
			err = validators.DecodeJSONBody(r, &in)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.Create(r.Context(), actor, in, img)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, listing)
	}
}

func readListingForm(w http.ResponseWriter, r *http.Request, maxImage int64) (listings.CreateListingInput, *listings.Image, error) {
	var in listings.CreateListingInput
	r.Body = http.MaxBytesReader(w, r.Body, maxImage+multipartOverhead)
	if err := r.ParseMultipartForm(maxImage + multipartOverhead); err != nil {
		return in, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form").
			WithDetails(map[string]string{"image": "must be at most " + strconv.FormatInt(maxImage>>20, 10) + " MB"})
	}

	in = listings.CreateListingInput{
		Title:              strings.TrimSpace(r.FormValue("title")),
		Location:           strings.TrimSpace(r.FormValue("location")),
		Size:               strings.TrimSpace(r.FormValue("size")),
		Price:              strings.TrimSpace(r.FormValue("price")),
		SoilType:           strings.TrimSpace(r.FormValue("soilType")),
		ProfitShareOffered: formBool(r.FormValue("profitShareOffered")),
		Description:        strings.TrimSpace(r.FormValue("description")),
	}

	file, header, err := r.FormFile("image")
	if err == http.ErrMissingFile {
		return in, nil, nil
	}
	if err != nil {
		return in, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid image")
	}
	defer file.Close()

	// Read one byte past the ceiling so the service can reject oversize files.
	data, err := io.ReadAll(io.LimitReader(file, maxImage+1))
	if err != nil {
		return in, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read image")
	}
	if len(data) == 0 {
		return in, nil, nil
	}
	return in, &listings.Image{Filename: header.Filename, Data: data}, nil
}

func formBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "on", "1", "yes":
		return true
	}
	return false
}
