package request

import (
	"fmt"
	"net/http"
)

// OfferQuery holds the parsed marketplace search parameters.
type OfferQuery struct {
	Origin        string `validate:"required,min=2,max=64"`
	Destination   string `validate:"required,min=2,max=64"`
	DepartureDate string `validate:"required,dateonly"`
	Category      string `validate:"omitempty,oneof=flights hotels activities transfers insurance"`
}

// ParseOfferQuery extracts and validates marketplace search parameters
// from the query string.
func ParseOfferQuery(r *http.Request) (OfferQuery, error) {
	q := OfferQuery{
		Origin:        r.URL.Query().Get("origin"),
		Destination:   r.URL.Query().Get("destination"),
		DepartureDate: r.URL.Query().Get("departure_date"),
		Category:      r.URL.Query().Get("category"),
	}
	if err := validate.Struct(q); err != nil {
		return OfferQuery{}, fmt.Errorf("validation error: %w", err)
	}
	return q, nil
}
