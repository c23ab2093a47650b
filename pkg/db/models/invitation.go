package models

import "time"

// Invitation is a landlord's invitation to a tenant.
type Invitation struct {
	ID           string     `gorm:"column:id;type:text;primaryKey"`
	LandlordID   string     `gorm:"column:landlord_id;type:text;not null;index"`
	LandlordName string     `gorm:"column:landlord_name"`
	TenantID     string     `gorm:"column:tenant_id;type:text;not null;index"`
	TenantName   string     `gorm:"column:tenant_name"`
	Status       string     `gorm:"column:status;not null"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt    *time.Time `gorm:"column:updated_at"`
	DecidedAt    *time.Time `gorm:"column:decided_at"`
	DecidedBy    string     `gorm:"column:decided_by"`
}

func (Invitation) TableName() string { return "invitations" }
