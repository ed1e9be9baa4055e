package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/voyara/platform/internal/api/request"
	"github.com/voyara/platform/internal/api/response"
	"github.com/voyara/platform/internal/core"
	"github.com/voyara/platform/internal/media"
	"github.com/voyara/platform/internal/model"
	"github.com/voyara/platform/internal/platform"
)

// Provider handles the travel provider directory endpoints.
type Provider struct {
	svc       *core.ProviderService
	healthLog *core.HealthLogService
	media     *media.Service
}

func NewProvider(svc *core.ProviderService, healthLog *core.HealthLogService, mediaSvc *media.Service) *Provider {
	return &Provider{svc: svc, healthLog: healthLog, media: mediaSvc}
}

// List godoc
//
//	@Summary		List providers
//	@Tags			Providers
//	@Security		ApiKeyAuth
//	@Param			search query string false "Search query"
//	@Param			status query string false "Filter by status"
//	@Param			category query string false "Filter by category"
//	@Param			sort query string false "Sort field" default(created_at)
//	@Param			order query string false "Sort order (asc/desc)" default(desc)
//	@Param			limit query int false "Page size" default(50)
//	@Param			cursor query string false "Pagination cursor"
//	@Success		200 {object} response.PaginatedResponse{items=[]model.Provider}
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/providers [get]
func (h *Provider) List(w http.ResponseWriter, r *http.Request) {
	params := request.ParseListParams(r, "created_at")

	providers, hasMore, err := h.svc.List(r.Context(), params)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(providers) > 0 {
		nextCursor = providers[len(providers)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, providers, nextCursor, hasMore)
}

// Create godoc
//
//	@Summary		Register a provider
//	@Tags			Providers
//	@Security		ApiKeyAuth
//	@Param			body body request.CreateProvider true "Provider details"
//	@Success		201 {object} model.Provider
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/providers [post]
func (h *Provider) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateProvider
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := req.Name
	if name == "" {
		name = platform.Slugify(req.DisplayName)
	}
	if name == "" {
		// Display name had no usable characters. The column is unique, so
		// fall back to a generated handle rather than failing the insert.
		name = platform.NewName("prv_")
	}

	now := time.Now()
	provider := &model.Provider{
		ID:          platform.NewID(),
		PartnerID:   req.PartnerID,
		Name:        name,
		DisplayName: req.DisplayName,
		Category:    req.Category,
		HealthURL:   req.HealthURL,
		APIURL:      req.APIURL,
		Status:      model.StatusActive,
		LastStatus:  model.HealthUnknown,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.svc.Create(r.Context(), provider); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, provider)
}

// Get godoc
//
//	@Summary		Get a provider
//	@Tags			Providers
//	@Security		ApiKeyAuth
//	@Param			id path string true "Provider ID"
//	@Success		200 {object} model.Provider
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/providers/{id} [get]
func (h *Provider) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	provider, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, provider)
}

// Update godoc
//
//	@Summary		Update a provider
//	@Tags			Providers
//	@Security		ApiKeyAuth
//	@Param			id path string true "Provider ID"
//	@Param			body body request.UpdateProvider true "Provider details"
//	@Success		200 {object} model.Provider
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/providers/{id} [put]
func (h *Provider) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateProvider
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	provider, err := h.svc.Update(r.Context(), id, req.DisplayName, req.Category, req.HealthURL, req.APIURL)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, provider)
}

// SetStatus godoc
//
//	@Summary		Activate or deactivate a provider
//	@Description	Inactive providers are not probed and never appear in marketplace searches.
//	@Tags			Providers
//	@Security		ApiKeyAuth
//	@Param			id path string true "Provider ID"
//	@Param			body body request.SetProviderStatus true "Target status"
//	@Success		200 {object} model.Provider
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/providers/{id}/status [put]
func (h *Provider) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.SetProviderStatus
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.SetStatus(r.Context(), id, req.Status); err != nil {
		writeServiceError(w, err)
		return
	}

	provider, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, provider)
}

// Delete godoc
//
//	@Summary		Delete a provider
//	@Description	Providers with recorded health history are archived (deactivated) instead of removed; the response body reports which happened.
//	@Tags			Providers
//	@Security		ApiKeyAuth
//	@Param			id path string true "Provider ID"
//	@Success		200 {object} map[string]bool
//	@Success		204
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/providers/{id} [delete]
func (h *Provider) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	archived, err := h.svc.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if archived {
		response.WriteJSON(w, http.StatusOK, map[string]bool{"archived": true})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthLogs godoc
//
//	@Summary		List a provider's recent health checks
//	@Tags			Providers
//	@Security		ApiKeyAuth
//	@Param			id path string true "Provider ID"
//	@Param			limit query int false "Max rows" default(50)
//	@Success		200 {array} model.ProviderHealthLog
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/providers/{id}/health-logs [get]
func (h *Provider) HealthLogs(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Resolve first so unknown providers 404 instead of answering [].
	if _, err := h.svc.GetByID(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	limit := parseLimit(r, 50, 500)
	logs, err := h.healthLog.ListRecent(r.Context(), id, limit)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if logs == nil {
		logs = []model.ProviderHealthLog{}
	}

	response.WriteJSON(w, http.StatusOK, logs)
}

// UploadLogo godoc
//
//	@Summary		Upload a provider logo
//	@Description	Accepts the raw image in the request body. The previous logo object, if any, is removed.
//	@Tags			Providers
//	@Security		ApiKeyAuth
//	@Param			id path string true "Provider ID"
//	@Success		200 {object} model.MediaAsset
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		413 {object} response.ErrorResponse
//	@Failure		415 {object} response.ErrorResponse
//	@Router			/providers/{id}/logo [put]
func (h *Provider) UploadLogo(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.svc.GetByID(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, media.MaxLogoBytes+1))
	if err != nil {
		response.WriteError(w, http.StatusRequestEntityTooLarge, "logo exceeds size limit")
		return
	}

	asset, err := h.media.UploadLogo(r.Context(), model.MediaOwnerProvider, id, r.Header.Get("Content-Type"), data)
	if err != nil {
		switch {
		case errors.Is(err, media.ErrUnsupportedType):
			response.WriteError(w, http.StatusUnsupportedMediaType, err.Error())
		case errors.Is(err, media.ErrTooLarge):
			response.WriteError(w, http.StatusRequestEntityTooLarge, err.Error())
		default:
			response.WriteError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if err := h.svc.SetLogo(r.Context(), id, asset.URL); err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, asset)
}
