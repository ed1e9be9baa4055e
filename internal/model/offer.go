package model

import "time"

// Offer is a live marketplace result from one provider. Offers are never
// persisted; every search queries the providers directly.
type Offer struct {
	Provider    string     `json:"provider"`
	Category    string     `json:"category"`
	Origin      string     `json:"origin,omitempty"`
	Destination string     `json:"destination"`
	Description string     `json:"description,omitempty"`
	Price       float64    `json:"price"`
	Currency    string     `json:"currency"`
	DepartureAt *time.Time `json:"departure_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}
