package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Land is a parcel offered for lease. Listings are immutable once created.
type Land struct {
	ID          string          `gorm:"column:id;type:text;primaryKey"`
	OwnerID     string          `gorm:"column:owner_id;type:text;not null;index"`
	Title       string          `gorm:"column:title;not null"`
	Location    string          `gorm:"column:location;not null"`
	Size        float64         `gorm:"column:size;not null"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(14,2);not null"`
	SoilType    string          `gorm:"column:soil_type"`
	ProfitShare bool            `gorm:"column:profit_share_offered;not null;default:false"`
	Description string          `gorm:"column:description"`
	ImageURL    string          `gorm:"column:image_url;not null"`
	ImagePath   string          `gorm:"column:image_path"`
	CreatedAt   time.Time       `gorm:"column:created_at;not null;index"`
}

func (Land) TableName() string { return "lands" }
