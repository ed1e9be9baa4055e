package core

import (
	"context"
	"fmt"

	"github.com/voyara/platform/internal/api/request"
	"github.com/voyara/platform/internal/model"
)

const auditColumns = `id, api_key_id, method, path, resource_type, resource_id, status_code, request_body, created_at`

// AuditFilter narrows an audit trail listing.
type AuditFilter struct {
	ResourceType string
	Action       string // HTTP method
	DateFrom     string
	DateTo       string
}

// AuditService reads the audit trail. The API middleware writes entries;
// the worker's retention job prunes them.
type AuditService struct {
	db DB
}

// NewAuditService creates a new AuditService.
func NewAuditService(db DB) *AuditService {
	return &AuditService{db: db}
}

// List retrieves audit entries with cursor-based pagination, newest
// first by default. Sorting is restricted to known columns.
func (s *AuditService) List(ctx context.Context, params request.ListParams, f AuditFilter) ([]model.AuditLog, bool, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_logs WHERE 1=1`
	args := []any{}
	argIdx := 1

	if params.Search != "" {
		query += fmt.Sprintf(` AND (resource_type ILIKE $%d OR method ILIKE $%d)`, argIdx, argIdx)
		args = append(args, "%"+params.Search+"%")
		argIdx++
	}
	if f.ResourceType != "" {
		query += fmt.Sprintf(` AND resource_type = $%d`, argIdx)
		args = append(args, f.ResourceType)
		argIdx++
	}
	if f.Action != "" {
		query += fmt.Sprintf(` AND method = $%d`, argIdx)
		args = append(args, f.Action)
		argIdx++
	}
	if f.DateFrom != "" {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, f.DateFrom)
		argIdx++
	}
	if f.DateTo != "" {
		query += fmt.Sprintf(` AND created_at <= $%d`, argIdx)
		args = append(args, f.DateTo)
		argIdx++
	}
	sortCol := "created_at"
	switch params.Sort {
	case "method", "resource_type":
		sortCol = params.Sort
	}
	order, cmp := "DESC", "<"
	if params.Order == "asc" {
		order, cmp = "ASC", ">"
	}

	if params.Cursor != "" {
		// Keyset on the active sort key, anchored by the cursor row.
		// sortCol is restricted to the whitelist above, never caller input.
		query += fmt.Sprintf(` AND (%s, id) %s (SELECT %s, id FROM audit_logs WHERE id = $%d)`, sortCol, cmp, sortCol, argIdx)
		args = append(args, params.Cursor)
		argIdx++
	}

	query += fmt.Sprintf(` ORDER BY %s %s, id %s LIMIT $%d`, sortCol, order, order, argIdx)
	args = append(args, params.Limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []model.AuditLog
	for rows.Next() {
		var l model.AuditLog
		if err := rows.Scan(&l.ID, &l.APIKeyID, &l.Method, &l.Path, &l.ResourceType, &l.ResourceID, &l.StatusCode, &l.RequestBody, &l.CreatedAt); err != nil {
			return nil, false, fmt.Errorf("scan audit log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate audit logs: %w", err)
	}

	hasMore := len(logs) > params.Limit
	if hasMore {
		logs = logs[:params.Limit]
	}
	return logs, hasMore, nil
}
