package leases

import (
	"time"

	"github.com/agrolease/agrolease-backend/internal/gateway"
	"github.com/agrolease/agrolease-backend/pkg/enums"
)

// Snapshot defaults used when the tenant profile lacks a value.
const (
	defaultTenantName       = "Tenant"
	defaultTenantRating     = "New"
	defaultTenantExperience = "< 1 year"
	defaultLandlordName     = "Landowner"
)

// Request is a tenant's proposal to lease one listing. Land and tenant fields
// are copied at creation and never re-synced.
type Request struct {
	ID               string            `json:"id"`
	LandID           string            `json:"landId"`
	LandTitle        string            `json:"landTitle"`
	LandlordID       string            `json:"landlordId"`
	TenantID         string            `json:"tenantId"`
	TenantName       string            `json:"tenantName"`
	TenantEmail      string            `json:"tenantEmail"`
	TenantRating     string            `json:"tenantRating"`
	TenantExperience string            `json:"tenantExperience"`
	Status           enums.LeaseStatus `json:"status"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        *time.Time        `json:"updatedAt,omitempty"`
	DecidedAt        *time.Time        `json:"decidedAt,omitempty"`
	DecidedBy        string            `json:"decidedBy,omitempty"`
}

// Invitation is a landlord's proposal to a tenant.
type Invitation struct {
	ID           string            `json:"id"`
	LandlordID   string            `json:"landlordId"`
	LandlordName string            `json:"landlordName"`
	TenantID     string            `json:"tenantId"`
	TenantName   string            `json:"tenantName"`
	Status       enums.LeaseStatus `json:"status"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    *time.Time        `json:"updatedAt,omitempty"`
	DecidedAt    *time.Time        `json:"decidedAt,omitempty"`
	DecidedBy    string            `json:"decidedBy,omitempty"`
}

// RequestItem pairs a request with the actions open to the viewer.
type RequestItem struct {
	*Request
	Actions []Affordance `json:"actions"`
}

// InvitationItem pairs an invitation with the actions open to the viewer.
type InvitationItem struct {
	*Invitation
	Actions []Affordance `json:"actions"`
}

// DecisionInput carries a recipient's decision. Confirmed must be set by the
// caller after an explicit confirmation step.
type DecisionInput struct {
	ID        string            `json:"-"`
	ActorID   string            `json:"-"`
	Action    enums.LeaseAction `json:"action" validate:"required,oneof=accept reject"`
	Confirmed bool              `json:"confirm"`
}

// CreateInvitationInput names the tenant being invited.
type CreateInvitationInput struct {
	TenantID string `json:"tenantId" validate:"required"`
}

func (r *Request) toDocument() gateway.Document {
	return gateway.Document{
		"landId":           r.LandID,
		"landTitle":        r.LandTitle,
		"landlordId":       r.LandlordID,
		"tenantId":         r.TenantID,
		"tenantName":       r.TenantName,
		"tenantEmail":      r.TenantEmail,
		"tenantRating":     r.TenantRating,
		"tenantExperience": r.TenantExperience,
		"status":           string(r.Status),
		"createdAt":        r.CreatedAt,
	}
}

func requestFromDocument(doc gateway.Document) *Request {
	return &Request{
		ID:               doc.ID(),
		LandID:           doc.String("landId"),
		LandTitle:        doc.String("landTitle"),
		LandlordID:       doc.String("landlordId"),
		TenantID:         doc.String("tenantId"),
		TenantName:       doc.String("tenantName"),
		TenantEmail:      doc.String("tenantEmail"),
		TenantRating:     doc.String("tenantRating"),
		TenantExperience: doc.String("tenantExperience"),
		Status:           enums.LeaseStatus(doc.String("status")),
		CreatedAt:        doc.Time("createdAt"),
		UpdatedAt:        doc.OptionalTime("updatedAt"),
		DecidedAt:        doc.OptionalTime("decidedAt"),
		DecidedBy:        doc.String("decidedBy"),
	}
}

func (i *Invitation) toDocument() gateway.Document {
	return gateway.Document{
		"landlordId":   i.LandlordID,
		"landlordName": i.LandlordName,
		"tenantId":     i.TenantID,
		"tenantName":   i.TenantName,
		"status":       string(i.Status),
		"createdAt":    i.CreatedAt,
	}
}

func invitationFromDocument(doc gateway.Document) *Invitation {
	return &Invitation{
		ID:           doc.ID(),
		LandlordID:   doc.String("landlordId"),
		LandlordName: doc.String("landlordName"),
		TenantID:     doc.String("tenantId"),
		TenantName:   doc.String("tenantName"),
		Status:       enums.LeaseStatus(doc.String("status")),
		CreatedAt:    doc.Time("createdAt"),
		UpdatedAt:    doc.OptionalTime("updatedAt"),
		DecidedAt:    doc.OptionalTime("decidedAt"),
		DecidedBy:    doc.String("decidedBy"),
	}
}
