package handler

import (
	"net/http"

	"github.com/voyara/platform/internal/api/request"
	"github.com/voyara/platform/internal/api/response"
	"github.com/voyara/platform/internal/marketplace"
	"github.com/voyara/platform/internal/model"
)

// Marketplace handles live offer search endpoints.
type Marketplace struct {
	searcher *marketplace.Searcher
}

func NewMarketplace(searcher *marketplace.Searcher) *Marketplace {
	return &Marketplace{searcher: searcher}
}

// Offers godoc
//
//	@Summary		Search marketplace offers
//	@Description	Fans the query out to every active provider and merges the answers sorted by price. Providers that fail are listed in providers_failed; a partial answer is still a 200.
//	@Tags			Marketplace
//	@Security		ApiKeyAuth
//	@Param			origin query string true "Origin location"
//	@Param			destination query string true "Destination location"
//	@Param			departure_date query string true "Departure date (YYYY-MM-DD)"
//	@Param			category query string false "Restrict to one provider category"
//	@Success		200 {object} marketplace.Result
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/marketplace/offers [get]
func (h *Marketplace) Offers(w http.ResponseWriter, r *http.Request) {
	q, err := request.ParseOfferQuery(r)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.searcher.Search(r.Context(), marketplace.Query{
		Origin:        q.Origin,
		Destination:   q.Destination,
		DepartureDate: q.DepartureDate,
		Category:      q.Category,
	})
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if result.Offers == nil {
		result.Offers = []model.Offer{}
	}

	response.WriteJSON(w, http.StatusOK, result)
}
