package core

import (
	"context"
	"fmt"
)

// DashboardStats holds aggregate counts for the partner dashboard.
type DashboardStats struct {
	Partners          int `json:"partners"`
	PartnersActive    int `json:"partners_active"`
	PartnersSuspended int `json:"partners_suspended"`
	Providers         int `json:"providers"`
	ProvidersActive   int `json:"providers_active"`
	APIKeysActive     int `json:"api_keys_active"`

	EmailsQueued    int `json:"emails_queued"`
	EmailsSent24h   int `json:"emails_sent_24h"`
	EmailsFailed    int `json:"emails_failed"`
	HealthChecks24h int `json:"health_checks_24h"`
	MediaAssets     int `json:"media_assets"`

	AvgLatencyMS24h *float64 `json:"avg_latency_ms_24h"`

	ProvidersByCategory []CategoryCount `json:"providers_by_category"`
	ProvidersByHealth   []StatusCount   `json:"providers_by_health"`
	ChecksByStatus24h   []StatusCount   `json:"checks_by_status_24h"`
}

// CategoryCount holds a provider count grouped by category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// StatusCount holds a count grouped by status.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// DashboardService queries aggregate stats from the platform DB.
type DashboardService struct {
	db DB
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(db DB) *DashboardService {
	return &DashboardService{db: db}
}

// Stats returns aggregate counts using a single query with CTEs for
// efficiency, plus three grouped breakdowns.
func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	const countsQuery = `
		WITH partner_count AS (
			SELECT count(*) AS c FROM partners
		), partner_active AS (
			SELECT count(*) AS c FROM partners WHERE status = 'active'
		), partner_suspended AS (
			SELECT count(*) AS c FROM partners WHERE status = 'suspended'
		), provider_count AS (
			SELECT count(*) AS c FROM providers
		), provider_active AS (
			SELECT count(*) AS c FROM providers WHERE status = 'active'
		), api_key_active AS (
			SELECT count(*) AS c FROM api_keys WHERE revoked_at IS NULL
		), email_queued AS (
			SELECT count(*) AS c FROM email_queue WHERE status = 'queued'
		), email_sent_24h AS (
			SELECT count(*) AS c FROM email_queue WHERE status = 'sent' AND sent_at > now() - interval '24 hours'
		), email_failed AS (
			SELECT count(*) AS c FROM email_queue WHERE status = 'failed'
		), checks_24h AS (
			SELECT count(*) AS c FROM provider_health_logs WHERE checked_at > now() - interval '24 hours'
		), media_count AS (
			SELECT count(*) AS c FROM media_assets
		), avg_latency_24h AS (
			SELECT avg(latency_ms) AS a FROM provider_health_logs WHERE checked_at > now() - interval '24 hours'
		)
		SELECT
			(SELECT c FROM partner_count),
			(SELECT c FROM partner_active),
			(SELECT c FROM partner_suspended),
			(SELECT c FROM provider_count),
			(SELECT c FROM provider_active),
			(SELECT c FROM api_key_active),
			(SELECT c FROM email_queued),
			(SELECT c FROM email_sent_24h),
			(SELECT c FROM email_failed),
			(SELECT c FROM checks_24h),
			(SELECT c FROM media_count),
			(SELECT a FROM avg_latency_24h)`

	stats := &DashboardStats{}
	err := s.db.QueryRow(ctx, countsQuery).Scan(
		&stats.Partners,
		&stats.PartnersActive,
		&stats.PartnersSuspended,
		&stats.Providers,
		&stats.ProvidersActive,
		&stats.APIKeysActive,
		&stats.EmailsQueued,
		&stats.EmailsSent24h,
		&stats.EmailsFailed,
		&stats.HealthChecks24h,
		&stats.MediaAssets,
		&stats.AvgLatencyMS24h,
	)
	if err != nil {
		return nil, fmt.Errorf("dashboard counts: %w", err)
	}

	// Providers per category
	pbcRows, err := s.db.Query(ctx,
		`SELECT category, count(*) FROM providers GROUP BY category ORDER BY count(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("dashboard providers by category: %w", err)
	}
	defer pbcRows.Close()

	for pbcRows.Next() {
		var cc CategoryCount
		if err := pbcRows.Scan(&cc.Category, &cc.Count); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		stats.ProvidersByCategory = append(stats.ProvidersByCategory, cc)
	}
	if err := pbcRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category counts: %w", err)
	}

	// Providers by last observed health
	pbhRows, err := s.db.Query(ctx,
		`SELECT last_status, count(*) FROM providers WHERE status = 'active' GROUP BY last_status ORDER BY count(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("dashboard providers by health: %w", err)
	}
	defer pbhRows.Close()

	for pbhRows.Next() {
		var sc StatusCount
		if err := pbhRows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan health count: %w", err)
		}
		stats.ProvidersByHealth = append(stats.ProvidersByHealth, sc)
	}
	if err := pbhRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate health counts: %w", err)
	}

	// Check outcomes over the trailing day
	cbsRows, err := s.db.Query(ctx,
		`SELECT status, count(*) FROM provider_health_logs
		 WHERE checked_at > now() - interval '24 hours'
		 GROUP BY status ORDER BY count(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("dashboard checks by status: %w", err)
	}
	defer cbsRows.Close()

	for cbsRows.Next() {
		var sc StatusCount
		if err := cbsRows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan check status count: %w", err)
		}
		stats.ChecksByStatus24h = append(stats.ChecksByStatus24h, sc)
	}
	if err := cbsRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate check status counts: %w", err)
	}

	return stats, nil
}
