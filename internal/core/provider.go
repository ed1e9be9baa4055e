package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/voyara/platform/internal/api/request"
	"github.com/voyara/platform/internal/model"
)

const providerColumns = `id, partner_id, name, display_name, category, health_url, api_url, logo_url, status,
	last_status, last_checked_at, last_latency_ms,
	success_rate, avg_latency_ms, error_rate, metrics_updated_at,
	created_at, updated_at`

// ProviderService manages the travel provider directory.
type ProviderService struct {
	db DB
}

// NewProviderService creates a new ProviderService.
func NewProviderService(db DB) *ProviderService {
	return &ProviderService{db: db}
}

func (s *ProviderService) Create(ctx context.Context, p *model.Provider) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO providers (id, partner_id, name, display_name, category, health_url, api_url, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.PartnerID, p.Name, p.DisplayName, p.Category, p.HealthURL, p.APIURL, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert provider: %w", err)
	}
	return nil
}

func (s *ProviderService) GetByID(ctx context.Context, id string) (*model.Provider, error) {
	return s.getWhere(ctx, "id = $1", id)
}

// GetByName looks a provider up by its unique probe handle.
func (s *ProviderService) GetByName(ctx context.Context, name string) (*model.Provider, error) {
	return s.getWhere(ctx, "name = $1", name)
}

func (s *ProviderService) getWhere(ctx context.Context, where string, arg any) (*model.Provider, error) {
	var p model.Provider
	err := s.db.QueryRow(ctx,
		`SELECT `+providerColumns+` FROM providers WHERE `+where, arg,
	).Scan(&p.ID, &p.PartnerID, &p.Name, &p.DisplayName, &p.Category, &p.HealthURL, &p.APIURL, &p.LogoURL, &p.Status,
		&p.LastStatus, &p.LastCheckedAt, &p.LastLatencyMS,
		&p.SuccessRate, &p.AvgLatencyMS, &p.ErrorRate, &p.MetricsUpdatedAt,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrProviderNotFound
		}
		return nil, fmt.Errorf("get provider: %w", err)
	}
	return &p, nil
}

// IDByName resolves a probe handle to a provider ID. Unknown names return
// an error matching model.ErrProviderNotFound.
func (s *ProviderService) IDByName(ctx context.Context, name string) (string, error) {
	var id string
	err := s.db.QueryRow(ctx, `SELECT id FROM providers WHERE name = $1`, name).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("provider %q: %w", name, model.ErrProviderNotFound)
		}
		return "", fmt.Errorf("resolve provider %q: %w", name, err)
	}
	return id, nil
}

// List retrieves providers with cursor-based pagination and optional
// search, status, and category filters.
func (s *ProviderService) List(ctx context.Context, params request.ListParams) ([]model.Provider, bool, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE 1=1`
	args := []any{}
	argIdx := 1

	if params.Search != "" {
		query += fmt.Sprintf(` AND (name ILIKE $%d OR display_name ILIKE $%d)`, argIdx, argIdx)
		args = append(args, "%"+params.Search+"%")
		argIdx++
	}
	if params.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, params.Status)
		argIdx++
	}
	if params.Category != "" {
		query += fmt.Sprintf(` AND category = $%d`, argIdx)
		args = append(args, params.Category)
		argIdx++
	}
	if params.Cursor != "" {
		// Keyset on the sort key. The cursor is the last row's id; its
		// (name, id) pair anchors the next page so name-ordered paging
		// never skips or repeats rows.
		query += fmt.Sprintf(` AND (name, id) > (SELECT name, id FROM providers WHERE id = $%d)`, argIdx)
		args = append(args, params.Cursor)
		argIdx++
	}

	query += ` ORDER BY name ASC, id ASC`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, params.Limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()

	var providers []model.Provider
	for rows.Next() {
		var p model.Provider
		if err := rows.Scan(&p.ID, &p.PartnerID, &p.Name, &p.DisplayName, &p.Category, &p.HealthURL, &p.APIURL, &p.LogoURL, &p.Status,
			&p.LastStatus, &p.LastCheckedAt, &p.LastLatencyMS,
			&p.SuccessRate, &p.AvgLatencyMS, &p.ErrorRate, &p.MetricsUpdatedAt,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan provider: %w", err)
		}
		providers = append(providers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate providers: %w", err)
	}

	hasMore := len(providers) > params.Limit
	if hasMore {
		providers = providers[:params.Limit]
	}
	return providers, hasMore, nil
}

// ListActive returns every active provider, ordered by name. The health
// monitor derives both its probe targets and its registry view from this.
func (s *ProviderService) ListActive(ctx context.Context) ([]model.Provider, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+providerColumns+` FROM providers WHERE status = $1 ORDER BY name ASC`,
		model.StatusActive,
	)
	if err != nil {
		return nil, fmt.Errorf("list active providers: %w", err)
	}
	defer rows.Close()

	var providers []model.Provider
	for rows.Next() {
		var p model.Provider
		if err := rows.Scan(&p.ID, &p.PartnerID, &p.Name, &p.DisplayName, &p.Category, &p.HealthURL, &p.APIURL, &p.LogoURL, &p.Status,
			&p.LastStatus, &p.LastCheckedAt, &p.LastLatencyMS,
			&p.SuccessRate, &p.AvgLatencyMS, &p.ErrorRate, &p.MetricsUpdatedAt,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		providers = append(providers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate providers: %w", err)
	}
	return providers, nil
}

// Update modifies the mutable directory fields of a provider.
func (s *ProviderService) Update(ctx context.Context, id string, displayName, category string, healthURL, apiURL *string) (*model.Provider, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE providers SET display_name = $1, category = $2, health_url = $3, api_url = $4, updated_at = now()
		 WHERE id = $5`,
		displayName, category, healthURL, apiURL, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update provider %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, model.ErrProviderNotFound
	}
	return s.GetByID(ctx, id)
}

// SetStatus flips a provider between active and inactive. Inactive
// providers are not probed and never appear in marketplace fan-outs.
func (s *ProviderService) SetStatus(ctx context.Context, id, status string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE providers SET status = $1, updated_at = now() WHERE id = $2`, status, id,
	)
	if err != nil {
		return fmt.Errorf("set provider %s status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrProviderNotFound
	}
	return nil
}

// SetLogo stores the public logo URL after a successful media upload.
func (s *ProviderService) SetLogo(ctx context.Context, id, logoURL string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE providers SET logo_url = $1, updated_at = now() WHERE id = $2`, logoURL, id,
	)
	if err != nil {
		return fmt.Errorf("set provider %s logo: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrProviderNotFound
	}
	return nil
}

// Delete removes a provider from the directory. Providers with recorded
// health history are deactivated instead so the history keeps a parent;
// the returned flag reports whether the row was archived rather than
// deleted.
func (s *ProviderService) Delete(ctx context.Context, id string) (archived bool, err error) {
	var hasLogs bool
	err = s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM provider_health_logs WHERE provider_id = $1)`, id,
	).Scan(&hasLogs)
	if err != nil {
		return false, fmt.Errorf("check provider %s health logs: %w", id, err)
	}

	if hasLogs {
		if err := s.SetStatus(ctx, id, model.StatusInactive); err != nil {
			return false, err
		}
		return true, nil
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM providers WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete provider %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return false, model.ErrProviderNotFound
	}
	return false, nil
}

// UpdateCheckSnapshot records the outcome of the latest probe on the
// provider row.
func (s *ProviderService) UpdateCheckSnapshot(ctx context.Context, id, status string, checkedAt time.Time, latencyMS int64) error {
	_, err := s.db.Exec(ctx,
		`UPDATE providers SET last_status = $1, last_checked_at = $2, last_latency_ms = $3 WHERE id = $4`,
		status, checkedAt, latencyMS, id,
	)
	if err != nil {
		return fmt.Errorf("update provider %s snapshot: %w", id, err)
	}
	return nil
}

// UpdateMetricsSnapshot overwrites the trailing-window aggregates on the
// provider row.
func (s *ProviderService) UpdateMetricsSnapshot(ctx context.Context, id string, m model.ProviderMetrics) error {
	_, err := s.db.Exec(ctx,
		`UPDATE providers SET success_rate = $1, avg_latency_ms = $2, error_rate = $3, metrics_updated_at = now() WHERE id = $4`,
		m.SuccessRate, m.AvgLatencyMS, m.ErrorRate, id,
	)
	if err != nil {
		return fmt.Errorf("update provider %s metrics: %w", id, err)
	}
	return nil
}
