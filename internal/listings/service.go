package listings

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/shopspring/decimal"

	"github.com/agrolease/agrolease-backend/internal/gateway"
	"github.com/agrolease/agrolease-backend/internal/session"
	"github.com/agrolease/agrolease-backend/internal/users"
	"github.com/agrolease/agrolease-backend/pkg/config"
	"github.com/agrolease/agrolease-backend/pkg/enums"
	pkgerrors "github.com/agrolease/agrolease-backend/pkg/errors"
	"github.com/agrolease/agrolease-backend/pkg/logger"
	"github.com/agrolease/agrolease-backend/pkg/outbox"
	"github.com/agrolease/agrolease-backend/pkg/outbox/payloads"
)

const (
	imagePathPrefix = "lands/"
	// priceScale matches the numeric(14,2) price column.
	priceScale = 2
)

var maxPrice = decimal.New(1, 14-priceScale)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type listingStore interface {
	Create(ctx context.Context, l *Listing) (string, error)
	FindByID(ctx context.Context, id string) (*Listing, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Listing, error)
	ListAll(ctx context.Context) ([]*Listing, error)
}

type profileReader interface {
	FindByID(ctx context.Context, id string) (*users.User, error)
}

// RequestChecker reports whether a tenant already asked for a land.
type RequestChecker interface {
	HasRequested(ctx context.Context, landID, tenantID string) (bool, error)
}

type ServiceParams struct {
	Store    listingStore
	Blobs    gateway.Blobs
	Profiles profileReader
	Requests RequestChecker
	Events   outbox.Emitter
	Config   config.ListingsConfig
	Logger   *logger.Logger
}

type Service struct {
	store    listingStore
	blobs    gateway.Blobs
	profiles profileReader
	requests RequestChecker
	events   outbox.Emitter
	cfg      config.ListingsConfig
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Store == nil:
		return nil, errors.New("listing store is required")
	case params.Blobs == nil:
		return nil, errors.New("blob store is required")
	case params.Profiles == nil:
		return nil, errors.New("profile reader is required")
	case params.Requests == nil:
		return nil, errors.New("request checker is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	}
	events := params.Events
	if events == nil {
		events = outbox.NewLogEmitter(params.Logger)
	}
	return &Service{
		store:    params.Store,
		blobs:    params.Blobs,
		profiles: params.Profiles,
		requests: params.Requests,
		events:   events,
		cfg:      params.Config,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

// Create validates the form, uploads the image if any, then stores the
// listing. A blob uploaded for a listing that failed to save is deleted.
func (s *Service) Create(ctx context.Context, actor *session.Session, in CreateListingInput, img *Image) (*Listing, error) {
	if err := requireRole(actor, enums.UserRoleLandlord); err != nil {
		return nil, err
	}
	listing, err := s.parse(in)
	if err != nil {
		return nil, err
	}
	listing.OwnerID = actor.UserID
	now := s.now().UTC()
	listing.CreatedAt = now

	var contentType string
	if img != nil && len(img.Data) > 0 {
		contentType, err = s.checkImage(img)
		if err != nil {
			return nil, err
		}
	}

	ctx = s.logg.WithUserID(ctx, actor.UserID)
	if contentType != "" {
		path := imagePath(now, img.Filename)
		url, err := s.blobs.Upload(ctx, path, contentType, img.Data)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload image")
		}
		listing.ImageURL = url
		listing.ImagePath = path
	} else {
		listing.ImageURL = s.cfg.PlaceholderImage
	}

	id, err := s.store.Create(ctx, listing)
	if err != nil {
		s.discardBlob(ctx, listing.ImagePath)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create listing")
	}
	listing.ID = id

	s.emit(ctx, outbox.DomainEvent{
		EventType:     enums.EventListingCreated,
		AggregateType: enums.AggregateListing,
		AggregateID:   id,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
		Data: payloads.ListingCreatedEvent{
			LandID:     id,
			LandlordID: listing.OwnerID,
			Title:      listing.Title,
			Location:   listing.Location,
			SoilType:   listing.SoilType,
			Size:       listing.Size,
		},
	})
	s.logg.Info(s.logg.WithField(ctx, "land_id", id), "listings.created")
	return listing, nil
}

// ListOwned returns the owner's listings, newest first.
func (s *Service) ListOwned(ctx context.Context, ownerID string) ([]*Listing, error) {
	out, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list owned listings")
	}
	return out, nil
}

// ListAll returns the whole catalog, newest first.
func (s *Service) ListAll(ctx context.Context) ([]*Listing, error) {
	out, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list listings")
	}
	return out, nil
}

// Browse fetches the catalog once and filters it in-process.
func (s *Service) Browse(ctx context.Context, term string) ([]*Listing, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(all, term), nil
}

func (s *Service) Get(ctx context.Context, id string) (*Listing, error) {
	listing, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	return listing, nil
}

// Detail builds the land-details view for viewer.
func (s *Service) Detail(ctx context.Context, viewer *session.Session, id string) (*Detail, error) {
	listing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &Detail{Listing: listing, OwnerName: defaultOwnerName, RequestState: RequestStateAvailable}

	if owner, err := s.profiles.FindByID(ctx, listing.OwnerID); err == nil {
		detail.OwnerName = displayName(owner)
	} else if !errors.Is(err, gateway.ErrNotFound) {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"land_id": id, "error": err.Error()}), "listings.owner_lookup_failed")
	}

	if viewer == nil || !viewer.SignedIn {
		return detail, nil
	}
	if viewer.UserID == listing.OwnerID {
		detail.RequestState = RequestStateOwn
		return detail, nil
	}
	if viewer.Role != enums.UserRoleTenant {
		return detail, nil
	}
	requested, err := s.requests.HasRequested(ctx, listing.ID, viewer.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing request")
	}
	if requested {
		detail.RequestState = RequestStateAlreadyRequested
		return detail, nil
	}
	detail.CanRequest = true
	return detail, nil
}

func (s *Service) parse(in CreateListingInput) (*Listing, error) {
	fields := map[string]string{}
	title := strings.TrimSpace(in.Title)
	location := strings.TrimSpace(in.Location)
	if title == "" {
		fields["title"] = "is required"
	}
	if location == "" {
		fields["location"] = "is required"
	}
	// ParseFloat accepts NaN and Inf, which JSON cannot encode.
	size, err := strconv.ParseFloat(strings.TrimSpace(in.Size), 64)
	if err != nil || math.IsNaN(size) || math.IsInf(size, 0) || size <= 0 {
		fields["size"] = "must be a positive number"
	}
	price, err := decimal.NewFromString(strings.TrimSpace(in.Price))
	switch {
	case err != nil || !price.IsPositive():
		fields["price"] = "must be a positive number"
	case !price.Equal(price.Round(priceScale)):
		fields["price"] = "must have at most 2 decimal places"
	case price.GreaterThanOrEqual(maxPrice):
		fields["price"] = "is too large"
	}
	if len(fields) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid listing").WithDetails(fields)
	}
	return &Listing{
		Title:              title,
		Location:           location,
		Size:               size,
		Price:              price.Round(priceScale),
		SoilType:           strings.TrimSpace(in.SoilType),
		ProfitShareOffered: in.ProfitShareOffered,
		Description:        strings.TrimSpace(in.Description),
	}, nil
}

func (s *Service) checkImage(img *Image) (string, error) {
	if max := s.cfg.MaxImageBytes(); max > 0 && int64(len(img.Data)) > max {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "image too large").
			WithDetails(map[string]string{"image": fmt.Sprintf("must be at most %d bytes", max)})
	}
	mt := mimetype.Detect(img.Data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unsupported image").
			WithDetails(map[string]string{"image": "must be an image, got " + mt.String()})
	}
	return mt.String(), nil
}

func (s *Service) discardBlob(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := s.blobs.Delete(ctx, path); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "blob_path", path), "listings.orphan_blob_delete_failed", err)
	}
}

func (s *Service) emit(ctx context.Context, event outbox.DomainEvent) {
	if err := s.events.Emit(ctx, event); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "event_type", event.EventType), "outbox.emit_failed", err)
	}
}

func imagePath(now time.Time, filename string) string {
	name := unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(filename), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "image"
	}
	return fmt.Sprintf("%s%d_%s", imagePathPrefix, now.UnixMilli(), name)
}

func displayName(u *users.User) string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	if email := strings.TrimSpace(u.Email); email != "" {
		return email
	}
	return defaultOwnerName
}

func requireRole(actor *session.Session, role enums.UserRole) error {
	if actor == nil || !actor.SignedIn {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	if actor.Role != role {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only "+string(role)+"s may do this")
	}
	return nil
}
