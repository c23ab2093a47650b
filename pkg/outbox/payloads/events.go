package payloads

import (
	"time"

	"github.com/agrolease/agrolease-backend/pkg/enums"
)

// UserRegisteredEvent is emitted once a profile and credential exist.
type UserRegisteredEvent struct {
	UserID string         `json:"userId"`
	Role   enums.UserRole `json:"role"`
}

// ListingCreatedEvent announces a new land on the market.
type ListingCreatedEvent struct {
	LandID     string  `json:"landId"`
	LandlordID string  `json:"landlordId"`
	Title      string  `json:"title"`
	Location   string  `json:"location"`
	SoilType   string  `json:"soilType"`
	Size       float64 `json:"size"`
}

// LeaseCreatedEvent covers both tenant requests and landlord invitations.
type LeaseCreatedEvent struct {
	ID         string `json:"id"`
	LandID     string `json:"landId"`
	LandlordID string `json:"landlordId"`
	TenantID   string `json:"tenantId"`
	LandTitle  string `json:"landTitle"`
}

// LeaseDecidedEvent is emitted after a pending record reaches a terminal status.
type LeaseDecidedEvent struct {
	ID         string            `json:"id"`
	LandID     string            `json:"landId"`
	LandlordID string            `json:"landlordId"`
	TenantID   string            `json:"tenantId"`
	Status     enums.LeaseStatus `json:"status"`
	DecidedBy  string            `json:"decidedBy"`
	DecidedAt  time.Time         `json:"decidedAt"`
}
