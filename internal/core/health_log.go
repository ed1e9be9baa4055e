package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/voyara/platform/internal/model"
)

const healthLogColumns = `id, provider_id, status, latency_ms, detail, metadata, checked_at`

// HealthLogService manages the append-only provider health history.
type HealthLogService struct {
	db DB
}

// NewHealthLogService creates a new HealthLogService.
func NewHealthLogService(db DB) *HealthLogService {
	return &HealthLogService{db: db}
}

// Append inserts one probe result. Rows are never updated afterwards.
func (s *HealthLogService) Append(ctx context.Context, entry *model.ProviderHealthLog) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO provider_health_logs (id, provider_id, status, latency_ms, detail, metadata, checked_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.ProviderID, entry.Status, entry.LatencyMS, entry.Detail, entry.Metadata, entry.CheckedAt,
	)
	if err != nil {
		return fmt.Errorf("insert health log for %s: %w", entry.ProviderID, err)
	}
	return nil
}

// QueryWindow returns every log row for a provider since the given time,
// oldest first.
func (s *HealthLogService) QueryWindow(ctx context.Context, providerID string, since time.Time) ([]model.ProviderHealthLog, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+healthLogColumns+` FROM provider_health_logs
		 WHERE provider_id = $1 AND checked_at >= $2
		 ORDER BY checked_at ASC`,
		providerID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("query health logs for %s: %w", providerID, err)
	}
	return scanHealthLogs(rows)
}

// ListRecent returns the newest log rows for a provider, newest first.
func (s *HealthLogService) ListRecent(ctx context.Context, providerID string, limit int) ([]model.ProviderHealthLog, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+healthLogColumns+` FROM provider_health_logs
		 WHERE provider_id = $1
		 ORDER BY checked_at DESC LIMIT $2`,
		providerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list health logs for %s: %w", providerID, err)
	}
	return scanHealthLogs(rows)
}

// PurgeOlderThan deletes log rows checked before the cutoff and reports
// how many went away.
func (s *HealthLogService) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM provider_health_logs WHERE checked_at < $1`, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("purge health logs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanHealthLogs(rows pgx.Rows) ([]model.ProviderHealthLog, error) {
	defer rows.Close()

	var logs []model.ProviderHealthLog
	for rows.Next() {
		var l model.ProviderHealthLog
		if err := rows.Scan(&l.ID, &l.ProviderID, &l.Status, &l.LatencyMS, &l.Detail, &l.Metadata, &l.CheckedAt); err != nil {
			return nil, fmt.Errorf("scan health log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate health logs: %w", err)
	}
	return logs, nil
}
