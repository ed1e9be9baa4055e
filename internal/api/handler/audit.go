package handler

import (
	"net/http"

	"github.com/voyara/platform/internal/api/request"
	"github.com/voyara/platform/internal/api/response"
	"github.com/voyara/platform/internal/core"
)

// Audit serves the trail recorded by the audit middleware.
type Audit struct {
	svc *core.AuditService
}

func NewAudit(svc *core.AuditService) *Audit {
	return &Audit{svc: svc}
}

// List godoc
//
//	@Summary		List audit logs
//	@Description	Returns audit entries newest first. Filterable by resource_type, HTTP method (action), and created_at range (date_from/date_to).
//	@Tags			Audit Logs
//	@Security		ApiKeyAuth
//	@Param			cursor			query		string	false	"Pagination cursor"
//	@Param			limit			query		int		false	"Page size (default 50)"
//	@Param			sort			query		string	false	"Sort field (method, resource_type, created_at)"
//	@Param			order			query		string	false	"Sort order (asc, desc)"
//	@Param			search			query		string	false	"Search in resource_type or method"
//	@Param			resource_type	query		string	false	"Filter by resource type"
//	@Param			action			query		string	false	"Filter by HTTP method"
//	@Param			date_from		query		string	false	"Filter by start date"
//	@Param			date_to			query		string	false	"Filter by end date"
//	@Success		200				{object}	response.PaginatedResponse{items=[]model.AuditLog}
//	@Failure		500				{object}	response.ErrorResponse
//	@Router			/audit-logs [get]
func (h *Audit) List(w http.ResponseWriter, r *http.Request) {
	params := request.ParseListParams(r, "created_at")
	q := r.URL.Query()
	filter := core.AuditFilter{
		ResourceType: q.Get("resource_type"),
		Action:       q.Get("action"),
		DateFrom:     q.Get("date_from"),
		DateTo:       q.Get("date_to"),
	}

	logs, hasMore, err := h.svc.List(r.Context(), params, filter)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(logs) > 0 {
		nextCursor = logs[len(logs)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, logs, nextCursor, hasMore)
}
