package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voyara/platform/internal/api/request"
	"github.com/voyara/platform/internal/api/response"
	"github.com/voyara/platform/internal/entitlement"
	"github.com/voyara/platform/internal/llm"
	"github.com/voyara/platform/internal/rollout"
)

// Assistant handles the gated trip-planning assistant endpoints. Every
// exchange resolves the user's entitlement, passes the rollout gate, and
// only then reaches the language model.
type Assistant struct {
	gate         *rollout.Gate
	entitlements *entitlement.Client
	assistant    *llm.Assistant
}

func NewAssistant(gate *rollout.Gate, entitlements *entitlement.Client, assistant *llm.Assistant) *Assistant {
	return &Assistant{gate: gate, entitlements: entitlements, assistant: assistant}
}

// chatResponse is one assistant exchange.
type chatResponse struct {
	Message   string   `json:"message"`
	Model     string   `json:"model"`
	Phase     string   `json:"phase"`
	ToolsUsed []string `json:"tools_used,omitempty"`
	Turns     int      `json:"turns"`
}

// Chat godoc
//
//	@Summary		Send a message to the trip assistant
//	@Description	Resolves the user's role and tier, evaluates the rollout gate, and serves the exchange with the phase's model. Callers outside the current phase get a 403 with the gate's reason.
//	@Tags			Assistant
//	@Security		ApiKeyAuth
//	@Param			body body request.AssistantChat true "User message"
//	@Success		200 {object} handler.chatResponse
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		403 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		502 {object} response.ErrorResponse
//	@Router			/assistant/chat [post]
func (h *Assistant) Chat(w http.ResponseWriter, r *http.Request) {
	var req request.AssistantChat
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ent, err := h.entitlements.Lookup(r.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, entitlement.ErrUserNotFound) {
			response.WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		response.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	decision := h.gate.CheckAccess(ent.Role, ent.Tier)
	if !decision.Allowed {
		response.WriteError(w, http.StatusForbidden, decision.Reason)
		return
	}

	model := h.gate.SelectModel(ent.Role, ent.Tier)
	reply, err := h.assistant.Respond(r.Context(), model, req.Message)
	if err != nil {
		response.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, chatResponse{
		Message:   reply.Message,
		Model:     reply.Model,
		Phase:     decision.Phase,
		ToolsUsed: reply.ToolsUsed,
		Turns:     reply.Turns,
	})
}

// CheckUser godoc
//
//	@Summary		Check a user's assistant access
//	@Description	Resolves the user's entitlement and reports the gate decision and model without invoking the assistant.
//	@Tags			Assistant
//	@Security		ApiKeyAuth
//	@Param			userID path string true "User ID"
//	@Success		200 {object} map[string]any
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		502 {object} response.ErrorResponse
//	@Router			/assistant/access/{userID} [get]
func (h *Assistant) CheckUser(w http.ResponseWriter, r *http.Request) {
	userID, err := request.RequireID(chi.URLParam(r, "userID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ent, err := h.entitlements.Lookup(r.Context(), userID)
	if err != nil {
		if errors.Is(err, entitlement.ErrUserNotFound) {
			response.WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		response.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	decision := h.gate.CheckAccess(ent.Role, ent.Tier)
	model := ""
	if decision.Allowed {
		model = h.gate.SelectModel(ent.Role, ent.Tier)
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"user_id": ent.UserID,
		"role":    ent.Role,
		"tier":    ent.Tier,
		"allowed": decision.Allowed,
		"reason":  decision.Reason,
		"phase":   decision.Phase,
		"model":   model,
	})
}
