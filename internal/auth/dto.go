package auth

import (
	"github.com/agrolease/agrolease-backend/internal/session"
	"github.com/agrolease/agrolease-backend/pkg/enums"
)

const minPasswordLength = 6

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the sign-up form. Tenant-only fields are ignored for landlords.
type RegisterRequest struct {
	Name              string         `json:"name" validate:"required"`
	Email             string         `json:"email" validate:"required,email"`
	Password          string         `json:"password" validate:"required,min=6"`
	Role              enums.UserRole `json:"role" validate:"required,oneof=landlord tenant"`
	Experience        *int           `json:"experience,omitempty" validate:"omitempty,min=0,max=80"`
	PreferredSoilType string         `json:"preferredSoilType,omitempty"`
	DesiredSize       float64        `json:"desiredSize,omitempty" validate:"omitempty,gte=0"`
}

// RefreshRequest carries the (possibly expired) access token and its refresh token.
type RefreshRequest struct {
	AccessToken  string `json:"accessToken" validate:"required"`
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// LoginResponse contains the tokens and resolved session after sign-in.
type LoginResponse struct {
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken"`
	Session      *session.Session `json:"session"`
}

// TokenPair is returned by refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
