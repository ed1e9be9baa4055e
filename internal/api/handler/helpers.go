package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/voyara/platform/internal/api/response"
	"github.com/voyara/platform/internal/model"
)

// writeServiceError maps the core lookup sentinels to 404 and everything
// else to 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrProviderNotFound),
		errors.Is(err, model.ErrPartnerNotFound),
		errors.Is(err, model.ErrAPIKeyNotFound),
		errors.Is(err, model.ErrEmailNotFound),
		errors.Is(err, model.ErrAssetNotFound):
		response.WriteError(w, http.StatusNotFound, err.Error())
	default:
		response.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

// parseLimit reads a bounded integer limit from the query string.
func parseLimit(r *http.Request, def, max int) int {
	limit := def
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > max {
		limit = max
	}
	return limit
}
