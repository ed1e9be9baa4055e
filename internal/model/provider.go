package model

import "time"

// Provider categories.
const (
	CategoryFlights    = "flights"
	CategoryHotels     = "hotels"
	CategoryActivities = "activities"
	CategoryTransfers  = "transfers"
	CategoryInsurance  = "insurance"
)

// ValidCategory reports whether c is a recognized provider category.
func ValidCategory(c string) bool {
	switch c {
	case CategoryFlights, CategoryHotels, CategoryActivities, CategoryTransfers, CategoryInsurance:
		return true
	}
	return false
}

// Provider is a bookable travel supplier integration in the directory.
// Name is the unique handle probes report under; DisplayName is what
// partner dashboards render.
type Provider struct {
	ID          string  `json:"id" db:"id"`
	PartnerID   *string `json:"partner_id,omitempty" db:"partner_id"`
	Name        string  `json:"name" db:"name"`
	DisplayName string  `json:"display_name" db:"display_name"`
	Category    string  `json:"category" db:"category"`
	HealthURL   *string `json:"health_url,omitempty" db:"health_url"`
	APIURL      *string `json:"api_url,omitempty" db:"api_url"`
	LogoURL     *string `json:"logo_url,omitempty" db:"logo_url"`
	Status      string  `json:"status" db:"status"`

	// Live check snapshot, maintained by the health monitor.
	LastStatus    string     `json:"last_status" db:"last_status"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty" db:"last_checked_at"`
	LastLatencyMS *int64     `json:"last_latency_ms,omitempty" db:"last_latency_ms"`

	// Trailing-24h aggregates, overwritten by each metrics rollup.
	SuccessRate      float64    `json:"success_rate" db:"success_rate"`
	AvgLatencyMS     float64    `json:"avg_latency_ms" db:"avg_latency_ms"`
	ErrorRate        float64    `json:"error_rate" db:"error_rate"`
	MetricsUpdatedAt *time.Time `json:"metrics_updated_at,omitempty" db:"metrics_updated_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ProviderRef is the (id, name) pair the health monitor resolves probe
// results against.
type ProviderRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProviderMetrics is one trailing-window aggregate for a provider.
type ProviderMetrics struct {
	SuccessRate  float64 `json:"success_rate"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
	ErrorRate    float64 `json:"error_rate"`
}
