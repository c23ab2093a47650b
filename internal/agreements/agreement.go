// Package agreements renders the plain-text lease agreement for an accepted
// request.
package agreements

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/agrolease/agrolease-backend/internal/gateway"
	"github.com/agrolease/agrolease-backend/internal/leases"
	"github.com/agrolease/agrolease-backend/internal/listings"
	"github.com/agrolease/agrolease-backend/internal/users"
	"github.com/agrolease/agrolease-backend/pkg/enums"
	pkgerrors "github.com/agrolease/agrolease-backend/pkg/errors"
	"github.com/agrolease/agrolease-backend/pkg/logger"
)

var agreementTmpl = template.Must(template.New("agreement").Parse(`LAND LEASE AGREEMENT
Reference: {{.RequestID}}
Date: {{.Date}}

Landlord: {{.LandlordName}}{{with .LandlordEmail}} <{{.}}>{{end}}
Tenant:   {{.TenantName}}{{with .TenantEmail}} <{{.}}>{{end}}

Property: {{.Title}}
Location: {{.Location}}
Area:     {{.Size}} acres
Soil:     {{.SoilType}}
Rent:     {{.Price}} per season
{{- if .ProfitShare}}
Profit sharing: offered by the landlord, terms to be agreed in writing.
{{- end}}

1. The landlord leases the property above to the tenant for agricultural use.
2. The tenant will farm the land with reasonable care and return it in good condition.
3. Rent is payable as stated above unless both parties agree otherwise in writing.
4. Either party may end this agreement with written notice at the end of a season.

Landlord signature: ______________________

Tenant signature:   ______________________
`))

// Agreement is a rendered document.
type Agreement struct {
	RequestID string `json:"requestId"`
	Filename  string `json:"filename"`
	Text      string `json:"text"`
}

type agreementData struct {
	RequestID     string
	Date          string
	LandlordName  string
	LandlordEmail string
	TenantName    string
	TenantEmail   string
	Title         string
	Location      string
	Size          string
	SoilType      string
	Price         string
	ProfitShare   bool
}

// Generate renders the agreement for an accepted request. landlord may be nil.
func Generate(req *leases.Request, land *listings.Listing, landlord *users.User, at time.Time) (*Agreement, error) {
	if req == nil || land == nil {
		return nil, errors.New("request and listing are required")
	}
	if req.Status != enums.LeaseStatusAccepted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "agreement needs an accepted request").Refresh()
	}
	data := agreementData{
		RequestID:    req.ID,
		Date:         at.UTC().Format("January 2, 2006"),
		LandlordName: "Landowner",
		TenantName:   req.TenantName,
		TenantEmail:  req.TenantEmail,
		Title:        land.Title,
		Location:     land.Location,
		Size:         strconv.FormatFloat(land.Size, 'f', -1, 64),
		SoilType:     orDash(land.SoilType),
		Price:        land.Price.StringFixed(2),
		ProfitShare:  land.ProfitShareOffered,
	}
	if landlord != nil {
		data.LandlordEmail = landlord.Email
		switch {
		case strings.TrimSpace(landlord.Name) != "":
			data.LandlordName = landlord.Name
		case landlord.Email != "":
			data.LandlordName = landlord.Email
		}
	}

	var buf bytes.Buffer
	if err := agreementTmpl.Execute(&buf, data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render agreement")
	}
	return &Agreement{
		RequestID: req.ID,
		Filename:  "lease-agreement-" + req.ID + ".txt",
		Text:      buf.String(),
	}, nil
}

type requestReader interface {
	GetRequest(ctx context.Context, viewerID, id string) (*leases.RequestItem, error)
}

type listingReader interface {
	Get(ctx context.Context, id string) (*listings.Listing, error)
}

type profileReader interface {
	FindByID(ctx context.Context, id string) (*users.User, error)
}

// Service loads the parties and renders agreements for the request recipient.
type Service struct {
	requests requestReader
	listings listingReader
	profiles profileReader
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(requests requestReader, lands listingReader, profiles profileReader, logg *logger.Logger) (*Service, error) {
	if requests == nil || lands == nil || profiles == nil || logg == nil {
		return nil, errors.New("agreement dependencies are required")
	}
	return &Service{requests: requests, listings: lands, profiles: profiles, logg: logg, now: time.Now}, nil
}

// ForRequest renders the agreement for requestID as seen by viewerID, who
// must be the landlord that accepted it.
func (s *Service) ForRequest(ctx context.Context, viewerID, requestID string) (*Agreement, error) {
	item, err := s.requests.GetRequest(ctx, viewerID, requestID)
	if err != nil {
		return nil, err
	}
	if item.LandlordID != viewerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the landlord may generate the agreement")
	}
	land, err := s.listings.Get(ctx, item.LandID)
	if err != nil {
		return nil, err
	}
	// Without a landlord profile the agreement names the generic party.
	landlord, err := s.profiles.FindByID(ctx, item.LandlordID)
	if err != nil {
		landlord = nil
		if !errors.Is(err, gateway.ErrNotFound) {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"request_id":  requestID,
				"landlord_id": item.LandlordID,
				"error":       err.Error(),
			}), "agreements.landlord_lookup_failed")
		}
	}
	return Generate(item.Request, land, landlord, s.now())
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}
