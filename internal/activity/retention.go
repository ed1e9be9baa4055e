package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/voyara/platform/internal/core"
)

// DB defines the database operations used by activity structs.
// *pgxpool.Pool satisfies this interface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Retention contains activities that trim unbounded history tables.
type Retention struct {
	db         DB
	healthLogs *core.HealthLogService
}

// NewRetention creates a new Retention activity struct.
func NewRetention(db DB, healthLogs *core.HealthLogService) *Retention {
	return &Retention{db: db, healthLogs: healthLogs}
}

// DeleteOldAuditLogs deletes audit log entries older than the specified
// number of days and returns the count of deleted rows.
func (a *Retention) DeleteOldAuditLogs(ctx context.Context, retentionDays int) (int64, error) {
	tag, err := a.db.Exec(ctx,
		"DELETE FROM audit_logs WHERE created_at < now() - make_interval(days => $1)", retentionDays)
	if err != nil {
		return 0, fmt.Errorf("delete old audit logs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteOldHealthLogs deletes provider health check rows older than the
// specified number of days. The metrics rollup only reads a trailing day,
// so anything beyond the retention window is dead weight.
func (a *Retention) DeleteOldHealthLogs(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return a.healthLogs.PurgeOlderThan(ctx, cutoff)
}
