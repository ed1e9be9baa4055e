package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyara/platform/internal/entitlement"
	"github.com/voyara/platform/internal/llm"
	"github.com/voyara/platform/internal/rollout"
)

// entitlementServer answers lookups from a fixed user table.
func entitlementServer(t *testing.T, users map[string]entitlement.Entitlement) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/users/"), "/entitlement")
		ent, ok := users[userID]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ent)
	}))
}

// directAnswerLLM always replies without tool calls.
func directAnswerLLM(t *testing.T, answer string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req llm.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"model": req.Model,
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": answer}},
			},
		})
	}))
}

func newAssistantHandler(t *testing.T, users map[string]entitlement.Entitlement, answer string) (*Assistant, *rollout.Gate, func()) {
	t.Helper()
	entSrv := entitlementServer(t, users)
	llmSrv := directAnswerLLM(t, answer)

	gate := rollout.NewGate(nil, zerolog.Nop())
	client := llm.NewClient(llmSrv.URL, "", "")
	assistant := llm.NewAssistant(client, llm.NewRegistry("http://localhost:0", ""), 4)
	h := NewAssistant(gate, entitlement.NewClient(entSrv.URL, ""), assistant)

	return h, gate, func() {
		entSrv.Close()
		llmSrv.Close()
	}
}

func TestAssistantChat_InvalidJSON(t *testing.T) {
	h := NewAssistant(nil, nil, nil)
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPost, "/assistant/chat", "{bad")

	h.Chat(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "invalid JSON")
}

func TestAssistantChat_MissingMessage(t *testing.T) {
	h := NewAssistant(nil, nil, nil)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/assistant/chat", map[string]any{"user_id": "usr_1"})

	h.Chat(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssistantChat_UnknownUser(t *testing.T) {
	h, _, done := newAssistantHandler(t, map[string]entitlement.Entitlement{}, "hello")
	defer done()

	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/assistant/chat", map[string]any{
		"user_id": "ghost",
		"message": "Plan me a weekend in Lisbon",
	})

	h.Chat(rec, r)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "user not found")
}

func TestAssistantChat_DeniedInDisabledPhase(t *testing.T) {
	users := map[string]entitlement.Entitlement{
		"usr_1": {UserID: "usr_1", Role: "admin", Tier: "Platinum"},
	}
	h, _, done := newAssistantHandler(t, users, "hello")
	defer done()

	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/assistant/chat", map[string]any{
		"user_id": "usr_1",
		"message": "Plan me a weekend in Lisbon",
	})

	h.Chat(rec, r)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Equal(t, "disabled", body["error"])
}

func TestAssistantChat_AdminServedAdminModel(t *testing.T) {
	users := map[string]entitlement.Entitlement{
		"usr_1": {UserID: "usr_1", Role: "admin", Tier: "Bronze"},
	}
	h, gate, done := newAssistantHandler(t, users, "Here is your Lisbon weekend.")
	defer done()

	_, err := gate.SetPhase(context.Background(), rollout.PhaseAdminOnly, true, nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/assistant/chat", map[string]any{
		"user_id": "usr_1",
		"message": "Plan me a weekend in Lisbon",
	})

	h.Chat(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Here is your Lisbon weekend.", resp.Message)
	assert.Equal(t, "gpt-4o", resp.Model)
	assert.Equal(t, rollout.PhaseAdminOnly, resp.Phase)
	assert.Equal(t, 1, resp.Turns)
}

func TestAssistantChat_TierOutsidePhaseIs403(t *testing.T) {
	users := map[string]entitlement.Entitlement{
		"usr_2": {UserID: "usr_2", Role: "traveler", Tier: "Gold"},
	}
	h, gate, done := newAssistantHandler(t, users, "hello")
	defer done()

	_, err := gate.SetPhase(context.Background(), rollout.PhaseAdminOnly, true, nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/assistant/chat", map[string]any{
		"user_id": "usr_2",
		"message": "Plan me a weekend in Lisbon",
	})

	h.Chat(rec, r)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "not eligible")
}

// --- CheckUser ---

func TestAssistantCheckUser_EmptyID(t *testing.T) {
	h := NewAssistant(nil, nil, nil)
	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodGet, "/assistant/access/", nil), "userID", "")

	h.CheckUser(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssistantCheckUser_ReportsDecisionWithoutInvoking(t *testing.T) {
	users := map[string]entitlement.Entitlement{
		"usr_3": {UserID: "usr_3", Role: "traveler", Tier: "Platinum"},
	}
	h, gate, done := newAssistantHandler(t, users, "should never be called")
	defer done()

	_, err := gate.SetPhase(context.Background(), rollout.PhaseNFTHolders, true, nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodGet, "/assistant/access/usr_3", nil), "userID", "usr_3")

	h.CheckUser(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["allowed"])
	assert.Equal(t, "o1", body["model"])
	assert.Equal(t, "Platinum", body["tier"])
}
