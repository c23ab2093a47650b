package listings

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrolease/agrolease-backend/internal/gateway"
)

// RequestState tells a viewer what the detail page can offer.
type RequestState string

const (
	RequestStateOwn              RequestState = "own"
	RequestStateAlreadyRequested RequestState = "already_requested"
	RequestStateAvailable        RequestState = "available"
)

const defaultOwnerName = "Landowner"

// Listing is a land parcel offered for lease. Listings are never edited.
type Listing struct {
	ID                 string          `json:"id"`
	OwnerID            string          `json:"ownerId"`
	Title              string          `json:"title"`
	Location           string          `json:"location"`
	Size               float64         `json:"size"`
	Price              decimal.Decimal `json:"price"`
	SoilType           string          `json:"soilType"`
	ProfitShareOffered bool            `json:"profitShareOffered"`
	Description        string          `json:"description"`
	ImageURL           string          `json:"imageUrl"`
	ImagePath          string          `json:"-"`
	CreatedAt          time.Time       `json:"createdAt"`
}

// CreateListingInput is the raw form. Size and price arrive as text and are
// parsed by the service.
type CreateListingInput struct {
	Title              string `json:"title" validate:"required"`
	Location           string `json:"location" validate:"required"`
	Size               string `json:"size" validate:"required"`
	Price              string `json:"price" validate:"required"`
	SoilType           string `json:"soilType"`
	ProfitShareOffered bool   `json:"profitShareOffered"`
	Description        string `json:"description"`
}

// Image is an optional upload attached to a new listing.
type Image struct {
	Filename string
	Data     []byte
}

// Detail is the land-details view.
type Detail struct {
	Listing      *Listing     `json:"listing"`
	OwnerName    string       `json:"ownerName"`
	RequestState RequestState `json:"requestState"`
	CanRequest   bool         `json:"canRequest"`
}

func (l *Listing) toDocument() gateway.Document {
	doc := gateway.Document{
		"ownerId":            l.OwnerID,
		"title":              l.Title,
		"location":           l.Location,
		"size":               l.Size,
		"price":              l.Price.StringFixed(2),
		"soilType":           l.SoilType,
		"profitShareOffered": l.ProfitShareOffered,
		"description":        l.Description,
		"imageUrl":           l.ImageURL,
		"createdAt":          l.CreatedAt,
	}
	if l.ImagePath != "" {
		doc["imagePath"] = l.ImagePath
	}
	return doc
}

// FromDocument maps a stored listing.
func FromDocument(doc gateway.Document) *Listing {
	if doc == nil {
		return nil
	}
	return &Listing{
		ID:                 doc.ID(),
		OwnerID:            doc.String("ownerId"),
		Title:              doc.String("title"),
		Location:           doc.String("location"),
		Size:               doc.Float("size"),
		Price:              doc.Decimal("price"),
		SoilType:           doc.String("soilType"),
		ProfitShareOffered: doc.Bool("profitShareOffered"),
		Description:        doc.String("description"),
		ImageURL:           doc.String("imageUrl"),
		ImagePath:          doc.String("imagePath"),
		CreatedAt:          doc.Time("createdAt"),
	}
}

// Filter keeps listings whose location or title contains term, ignoring case.
// An empty term keeps everything. Order is preserved.
func Filter(listings []*Listing, term string) []*Listing {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return listings
	}
	out := make([]*Listing, 0, len(listings))
	for _, l := range listings {
		if strings.Contains(strings.ToLower(l.Location), needle) || strings.Contains(strings.ToLower(l.Title), needle) {
			out = append(out, l)
		}
	}
	return out
}
