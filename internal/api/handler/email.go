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

// Email handles the transactional email queue endpoints. Delivery itself
// runs on the worker; the API only queues and inspects.
type Email struct {
	svc *core.EmailService
}

func NewEmail(svc *core.EmailService) *Email {
	return &Email{svc: svc}
}

// Enqueue godoc
//
//	@Summary		Queue a transactional email
//	@Description	Accepts a pre-rendered message and queues it for delivery. The response reports the queued message, not the delivery outcome.
//	@Tags			Emails
//	@Security		ApiKeyAuth
//	@Param			body body request.EnqueueEmail true "Message"
//	@Success		202 {object} model.EmailMessage
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/emails [post]
func (h *Email) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req request.EnqueueEmail
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg := &model.EmailMessage{
		ID:        platform.NewID(),
		ToAddress: req.To,
		Subject:   req.Subject,
		BodyText:  req.BodyText,
		BodyHTML:  req.BodyHTML,
		Status:    model.EmailQueued,
		QueuedAt:  time.Now(),
	}

	if err := h.svc.Enqueue(r.Context(), msg); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusAccepted, msg)
}

// List godoc
//
//	@Summary		List queued emails
//	@Tags			Emails
//	@Security		ApiKeyAuth
//	@Param			status query string false "Filter by status"
//	@Param			search query string false "Search in recipient or subject"
//	@Param			limit query int false "Page size" default(50)
//	@Param			cursor query string false "Pagination cursor"
//	@Success		200 {object} response.PaginatedResponse{items=[]model.EmailMessage}
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/emails [get]
func (h *Email) List(w http.ResponseWriter, r *http.Request) {
	params := request.ParseListParams(r, "queued_at")

	msgs, hasMore, err := h.svc.List(r.Context(), params)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(msgs) > 0 {
		nextCursor = msgs[len(msgs)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, msgs, nextCursor, hasMore)
}

// Get godoc
//
//	@Summary		Get a queued email
//	@Tags			Emails
//	@Security		ApiKeyAuth
//	@Param			id path string true "Message ID"
//	@Success		200 {object} model.EmailMessage
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/emails/{id} [get]
func (h *Email) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, msg)
}

// Cancel godoc
//
//	@Summary		Cancel a queued email
//	@Description	Withdraws a message that has not been claimed for delivery yet. Messages past queued state cannot be cancelled.
//	@Tags			Emails
//	@Security		ApiKeyAuth
//	@Param			id path string true "Message ID"
//	@Success		204
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Router			/emails/{id}/cancel [post]
func (h *Email) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Cancel(r.Context(), id); err != nil {
		if errors.Is(err, model.ErrEmailNotCancellable) {
			response.WriteError(w, http.StatusConflict, err.Error())
			return
		}
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
