package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/voyara/platform/internal/api/request"
	"github.com/voyara/platform/internal/api/response"
	"github.com/voyara/platform/internal/core"
	"github.com/voyara/platform/internal/model"
	"github.com/voyara/platform/internal/platform"
)

// Partner handles partner organization endpoints.
type Partner struct {
	svc *core.PartnerService
}

func NewPartner(svc *core.PartnerService) *Partner {
	return &Partner{svc: svc}
}

// List godoc
//
//	@Summary		List partners
//	@Tags			Partners
//	@Security		ApiKeyAuth
//	@Param			search query string false "Search query"
//	@Param			status query string false "Filter by status"
//	@Param			sort query string false "Sort field" default(created_at)
//	@Param			order query string false "Sort order (asc/desc)" default(desc)
//	@Param			limit query int false "Page size" default(50)
//	@Param			cursor query string false "Pagination cursor"
//	@Success		200 {object} response.PaginatedResponse{items=[]model.Partner}
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/partners [get]
func (h *Partner) List(w http.ResponseWriter, r *http.Request) {
	params := request.ParseListParams(r, "created_at")

	partners, hasMore, err := h.svc.List(r.Context(), params)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(partners) > 0 {
		nextCursor = partners[len(partners)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, partners, nextCursor, hasMore)
}

// Create godoc
//
//	@Summary		Onboard a partner
//	@Description	Registers a partner organization. Password is optional; without one the partner has no portal login until a password is set.
//	@Tags			Partners
//	@Security		ApiKeyAuth
//	@Param			body body request.CreatePartner true "Partner details"
//	@Success		201 {object} model.Partner
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/partners [post]
func (h *Partner) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreatePartner
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	slug := req.Slug
	if slug == "" {
		slug = platform.Slugify(req.Name)
	}
	if slug == "" {
		slug = platform.NewName("pt_")
	}

	now := time.Now()
	partner := &model.Partner{
		ID:           platform.NewID(),
		Name:         req.Name,
		Slug:         slug,
		ContactEmail: req.ContactEmail,
		Status:       model.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.svc.Create(r.Context(), partner, req.Password); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, partner)
}

// Get godoc
//
//	@Summary		Get a partner
//	@Tags			Partners
//	@Security		ApiKeyAuth
//	@Param			id path string true "Partner ID"
//	@Success		200 {object} model.Partner
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/partners/{id} [get]
func (h *Partner) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	partner, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, partner)
}

// Update godoc
//
//	@Summary		Update a partner
//	@Tags			Partners
//	@Security		ApiKeyAuth
//	@Param			id path string true "Partner ID"
//	@Param			body body request.UpdatePartner true "Partner details"
//	@Success		200 {object} model.Partner
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/partners/{id} [put]
func (h *Partner) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdatePartner
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	partner, err := h.svc.Update(r.Context(), id, req.Name, req.ContactEmail)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, partner)
}

// SetStatus godoc
//
//	@Summary		Suspend or reactivate a partner
//	@Tags			Partners
//	@Security		ApiKeyAuth
//	@Param			id path string true "Partner ID"
//	@Param			body body request.SetPartnerStatus true "Target status"
//	@Success		204
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/partners/{id}/status [put]
func (h *Partner) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.SetPartnerStatus
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.SetStatus(r.Context(), id, req.Status); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetPassword godoc
//
//	@Summary		Replace a partner's portal password
//	@Tags			Partners
//	@Security		ApiKeyAuth
//	@Param			id path string true "Partner ID"
//	@Param			body body request.SetPartnerPassword true "New password"
//	@Success		204
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/partners/{id}/password [put]
func (h *Partner) SetPassword(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.SetPartnerPassword
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.SetPassword(r.Context(), id, req.Password); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete godoc
//
//	@Summary		Delete a partner
//	@Tags			Partners
//	@Security		ApiKeyAuth
//	@Param			id path string true "Partner ID"
//	@Success		204
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/partners/{id} [delete]
func (h *Partner) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Login godoc
//
//	@Summary		Verify partner portal credentials
//	@Description	Checks an email and password pair. Unknown accounts and wrong passwords are indistinguishable.
//	@Tags			Partners
//	@Param			body body request.PartnerLogin true "Credentials"
//	@Success		200 {object} model.Partner
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		401 {object} response.ErrorResponse
//	@Router			/partners/login [post]
func (h *Partner) Login(w http.ResponseWriter, r *http.Request) {
	var req request.PartnerLogin
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	partner, err := h.svc.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			response.WriteError(w, http.StatusUnauthorized, err.Error())
			return
		}
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, partner)
}
