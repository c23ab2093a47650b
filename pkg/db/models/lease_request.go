package models

import "time"

// LeaseRequest is a tenant's request for a listing. Snapshot columns copy the
// land title and tenant profile at creation and are never refreshed.
type LeaseRequest struct {
	ID               string     `gorm:"column:id;type:text;primaryKey"`
	LandID           string     `gorm:"column:land_id;type:text;not null;uniqueIndex:ux_lease_requests_land_tenant"`
	TenantID         string     `gorm:"column:tenant_id;type:text;not null;uniqueIndex:ux_lease_requests_land_tenant;index"`
	LandlordID       string     `gorm:"column:landlord_id;type:text;not null;index"`
	LandTitle        string     `gorm:"column:land_title"`
	TenantName       string     `gorm:"column:tenant_name"`
	TenantEmail      string     `gorm:"column:tenant_email"`
	TenantRating     string     `gorm:"column:tenant_rating"`
	TenantExperience string     `gorm:"column:tenant_experience"`
	Status           string     `gorm:"column:status;not null"`
	CreatedAt        time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt        *time.Time `gorm:"column:updated_at"`
	DecidedAt        *time.Time `gorm:"column:decided_at"`
	DecidedBy        string     `gorm:"column:decided_by"`
}

func (LeaseRequest) TableName() string { return "lease_requests" }
