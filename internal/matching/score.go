// Package matching ranks tenants against a landlord's listings from explicit
// profile features.
package matching

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/agrolease/agrolease-backend/internal/listings"
	"github.com/agrolease/agrolease-backend/internal/users"
)

const (
	weightSoil       = 0.35
	weightSize       = 0.25
	weightRating     = 0.25
	weightExperience = 0.15

	neutral         = 0.5
	maxRating       = 5.0
	experienceYears = 10.0
)

// Match is how well one tenant fits one listing.
type Match struct {
	LandID    string   `json:"landId"`
	LandTitle string   `json:"landTitle"`
	Percent   int      `json:"percent"`
	Reasons   []string `json:"reasons"`
}

// Recommendation is a tenant with their best match across the listings.
type Recommendation struct {
	Tenant *users.User `json:"tenant"`
	Match  Match       `json:"match"`
}

// Score combines soil, size, rating and experience into a 0..100 match.
func Score(land *listings.Listing, tenant *users.User) Match {
	soil, soilReason := soilScore(land.SoilType, tenant.PreferredSoilType)
	size, sizeReason := sizeScore(land.Size, tenant.DesiredSize)
	rating, ratingReason := ratingScore(tenant.Rating)
	exp, expReason := experienceScore(tenant.Experience)

	total := weightSoil*soil + weightSize*size + weightRating*rating + weightExperience*exp
	reasons := make([]string, 0, 4)
	for _, r := range []string{soilReason, sizeReason, ratingReason, expReason} {
		if r != "" {
			reasons = append(reasons, r)
		}
	}
	return Match{
		LandID:    land.ID,
		LandTitle: land.Title,
		Percent:   int(math.Round(total * 100)),
		Reasons:   reasons,
	}
}

// Recommend ranks tenants by their best score over lands, highest first.
// A non-positive limit returns every tenant.
func Recommend(lands []*listings.Listing, tenants []*users.User, limit int) []Recommendation {
	if len(lands) == 0 || len(tenants) == 0 {
		return []Recommendation{}
	}
	out := make([]Recommendation, 0, len(tenants))
	for _, tenant := range tenants {
		var best Match
		for i, land := range lands {
			m := Score(land, tenant)
			if i == 0 || m.Percent > best.Percent {
				best = m
			}
		}
		out = append(out, Recommendation{Tenant: tenant, Match: best})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Match.Percent > out[j].Match.Percent
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func soilScore(landSoil, preferred string) (float64, string) {
	landSoil, preferred = strings.TrimSpace(landSoil), strings.TrimSpace(preferred)
	switch {
	case landSoil == "" || preferred == "":
		return neutral, ""
	case strings.EqualFold(landSoil, preferred):
		return 1, "Prefers " + landSoil + " soil"
	default:
		return 0, ""
	}
}

func sizeScore(landSize, desired float64) (float64, string) {
	if landSize <= 0 || desired <= 0 {
		return neutral, ""
	}
	delta := math.Abs(landSize-desired) / math.Max(landSize, desired)
	score := clamp(1 - delta)
	if score >= 0.8 {
		return score, fmt.Sprintf("Looking for about %s acres", strconv.FormatFloat(desired, 'f', -1, 64))
	}
	return score, ""
}

func ratingScore(rating string) (float64, string) {
	value, err := strconv.ParseFloat(strings.TrimSpace(rating), 64)
	if err != nil || value <= 0 {
		return neutral, ""
	}
	score := clamp(value / maxRating)
	if score >= 0.9 {
		return score, "Highly rated member"
	}
	return score, ""
}

func experienceScore(label string) (float64, string) {
	years := users.ExperienceYears(label)
	if years <= 0 {
		return 0, ""
	}
	return clamp(float64(years) / experienceYears), fmt.Sprintf("%d years of farming experience", years)
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
