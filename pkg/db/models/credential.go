package models

import "time"

// Credential holds the password login for a user and is never served by the API.
type Credential struct {
	ID           string    `gorm:"column:id;type:text;primaryKey"`
	UserID       string    `gorm:"column:user_id;type:text;not null;index"`
	Email        string    `gorm:"column:email;not null;uniqueIndex:ux_credentials_email"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
}

func (Credential) TableName() string { return "credentials" }
