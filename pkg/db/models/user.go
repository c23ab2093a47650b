package models

import "time"

// User is the public marketplace profile. It is written once at sign-up.
type User struct {
	ID                string    `gorm:"column:id;type:text;primaryKey"`
	Name              string    `gorm:"column:name;not null"`
	Email             string    `gorm:"column:email;not null;index"`
	Role              string    `gorm:"column:role;not null;index"`
	Experience        string    `gorm:"column:experience"`
	Rating            string    `gorm:"column:rating"`
	PreferredSoilType string    `gorm:"column:preferred_soil_type"`
	DesiredSize       float64   `gorm:"column:desired_size"`
	CreatedAt         time.Time `gorm:"column:created_at;not null"`
}

func (User) TableName() string { return "users" }
