package handler

import (
	"errors"
	"net/http"

	"github.com/voyara/platform/internal/api/request"
	"github.com/voyara/platform/internal/api/response"
	"github.com/voyara/platform/internal/rollout"
)

// Rollout exposes the assistant rollout gate over HTTP.
type Rollout struct {
	gate *rollout.Gate
}

func NewRollout(gate *rollout.Gate) *Rollout {
	return &Rollout{gate: gate}
}

// Status godoc
//
//	@Summary		Get rollout status
//	@Description	Returns the current phase's full configuration plus the most recent transitions.
//	@Tags			Rollout
//	@Security		ApiKeyAuth
//	@Success		200 {object} rollout.Status
//	@Router			/rollout [get]
func (h *Rollout) Status(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, h.gate.Status())
}

// ListPhases godoc
//
//	@Summary		List rollout phases
//	@Tags			Rollout
//	@Security		ApiKeyAuth
//	@Success		200 {array} rollout.Summary
//	@Router			/rollout/phases [get]
func (h *Rollout) ListPhases(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, h.gate.ListPhases())
}

// SetPhase godoc
//
//	@Summary		Switch the rollout phase
//	@Description	Makes the named phase current. Omitting enabled keeps the phase's registered flag; model overrides merge into the phase's model map.
//	@Tags			Rollout
//	@Security		ApiKeyAuth
//	@Param			body body request.SetPhase true "Target phase"
//	@Success		200 {object} rollout.Transition
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/rollout/phase [put]
func (h *Rollout) SetPhase(w http.ResponseWriter, r *http.Request) {
	var req request.SetPhase
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	enabled, ok := h.resolveEnabled(req)
	if !ok {
		response.WriteError(w, http.StatusNotFound, rollout.ErrPhaseNotFound.Error())
		return
	}

	transition, err := h.gate.SetPhase(r.Context(), req.Phase, enabled, req.Models)
	if err != nil {
		if errors.Is(err, rollout.ErrPhaseNotFound) {
			response.WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, transition)
}

// resolveEnabled picks the enabled flag for a transition. When the request
// leaves it out, the target phase keeps its registered value.
func (h *Rollout) resolveEnabled(req request.SetPhase) (bool, bool) {
	if req.Enabled != nil {
		return *req.Enabled, true
	}
	for _, p := range h.gate.ListPhases() {
		if p.Name == req.Phase {
			return p.Enabled, true
		}
	}
	return false, false
}

// CheckAccess godoc
//
//	@Summary		Evaluate rollout access
//	@Description	Decides whether a caller with the given role and tier may use the assistant under the current phase, without invoking it.
//	@Tags			Rollout
//	@Security		ApiKeyAuth
//	@Param			body body request.CheckAccess true "Role and tier"
//	@Success		200 {object} rollout.Decision
//	@Failure		400 {object} response.ErrorResponse
//	@Router			/rollout/check-access [post]
func (h *Rollout) CheckAccess(w http.ResponseWriter, r *http.Request) {
	var req request.CheckAccess
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	decision := h.gate.CheckAccess(req.Role, req.Tier)
	model := ""
	if decision.Allowed {
		model = h.gate.SelectModel(req.Role, req.Tier)
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"allowed": decision.Allowed,
		"reason":  decision.Reason,
		"phase":   decision.Phase,
		"model":   model,
	})
}
