package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/agrolease/agrolease-backend/pkg/errors"
)

// IntRange bounds an optional integer query parameter.
type IntRange struct {
	Default, Min, Max int
}

// QueryInt reads key from the query string. A missing value yields the
// default; anything non-numeric or out of range is a validation error.
func QueryInt(r *http.Request, key string, bounds IntRange) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return bounds.Default, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < bounds.Min || n > bounds.Max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, key+" must be a whole number in range").
			WithDetails(map[string]any{"field": key, "min": bounds.Min, "max": bounds.Max})
	}
	return n, nil
}
