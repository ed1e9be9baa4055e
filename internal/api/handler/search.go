package handler

import (
	"net/http"

	"github.com/voyara/platform/internal/api/response"
	"github.com/voyara/platform/internal/core"
)

// Search serves the admin UI's cross-entity quick search.
type Search struct {
	svc *core.SearchService
}

func NewSearch(svc *core.SearchService) *Search {
	return &Search{svc: svc}
}

type searchResponse struct {
	Results []core.SearchResult `json:"results"`
}

// Search godoc
//
//	@Summary		Search across providers, partners, and emails
//	@Description	Substring search over the main directories. An empty query returns an empty result set, not an error.
//	@Tags			Search
//	@Security		ApiKeyAuth
//	@Param			q query string true "Search term"
//	@Param			limit query int false "Max results per entity type" default(5)
//	@Success		200 {object} handler.searchResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/search [get]
func (h *Search) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		response.WriteJSON(w, http.StatusOK, searchResponse{Results: []core.SearchResult{}})
		return
	}

	limit := parseLimit(r, 5, 20)

	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if results == nil {
		results = []core.SearchResult{}
	}

	response.WriteJSON(w, http.StatusOK, searchResponse{Results: results})
}
