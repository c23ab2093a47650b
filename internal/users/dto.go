package users

import (
	"strconv"
	"strings"
	"time"

	"github.com/agrolease/agrolease-backend/internal/gateway"
	"github.com/agrolease/agrolease-backend/pkg/enums"
)

const (
	DefaultRating     = "New"
	DefaultExperience = "< 1 year"
)

// User is the public profile stored at users/{id}.
type User struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Email             string         `json:"email"`
	Role              enums.UserRole `json:"role"`
	Experience        string         `json:"experience,omitempty"`
	Rating            string         `json:"rating,omitempty"`
	PreferredSoilType string         `json:"preferredSoilType,omitempty"`
	DesiredSize       float64        `json:"desiredSize,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
}

// IsTenant reports whether the profile belongs to a tenant.
func (u *User) IsTenant() bool {
	return u != nil && u.Role == enums.UserRoleTenant
}

// IsLandlord reports whether the profile belongs to a landlord.
func (u *User) IsLandlord() bool {
	return u != nil && u.Role == enums.UserRoleLandlord
}

// CreateUserDTO holds what sign-up collects for a new profile.
type CreateUserDTO struct {
	ID                string
	Name              string
	Email             string
	Role              enums.UserRole
	ExperienceYears   *int
	PreferredSoilType string
	DesiredSize       float64
}

// ToDocument builds the stored profile. Tenants get an experience label and
// the starting rating; landlords carry neither.
func (c CreateUserDTO) ToDocument(now time.Time) gateway.Document {
	doc := gateway.Document{
		gateway.FieldID: c.ID,
		"name":          strings.TrimSpace(c.Name),
		"email":         strings.ToLower(strings.TrimSpace(c.Email)),
		"role":          string(c.Role),
		"createdAt":     now.UTC(),
	}
	if c.Role == enums.UserRoleTenant {
		doc["experience"] = ExperienceLabel(c.ExperienceYears)
		doc["rating"] = DefaultRating
		if soil := strings.TrimSpace(c.PreferredSoilType); soil != "" {
			doc["preferredSoilType"] = soil
		}
		if c.DesiredSize > 0 {
			doc["desiredSize"] = c.DesiredSize
		}
	}
	return doc
}

// ExperienceLabel renders years of farming experience the way profiles show it.
func ExperienceLabel(years *int) string {
	if years == nil || *years <= 0 {
		return DefaultExperience
	}
	return strconv.Itoa(*years) + " years"
}

// ExperienceYears parses a stored label back into whole years.
func ExperienceYears(label string) int {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// FromDocument maps a stored profile back to a User.
func FromDocument(doc gateway.Document) *User {
	if doc == nil {
		return nil
	}
	return &User{
		ID:                doc.ID(),
		Name:              doc.String("name"),
		Email:             doc.String("email"),
		Role:              enums.UserRole(doc.String("role")),
		Experience:        doc.String("experience"),
		Rating:            doc.String("rating"),
		PreferredSoilType: doc.String("preferredSoilType"),
		DesiredSize:       doc.Float("desiredSize"),
		CreatedAt:         doc.Time("createdAt"),
	}
}
