package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/voyara/platform/internal/core"
)

func newEmailHandler() *Email {
	return NewEmail(nil)
}

// --- Enqueue ---

func TestEmailEnqueue_InvalidJSON(t *testing.T) {
	h := newEmailHandler()
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPost, "/emails", "{bad json")

	h.Enqueue(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "invalid JSON")
}

func TestEmailEnqueue_BadRecipient(t *testing.T) {
	h := newEmailHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/emails", map[string]any{
		"to":        "not-an-address",
		"subject":   "Booking confirmed",
		"body_text": "Your trip is booked.",
	})

	h.Enqueue(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "validation error")
}

func TestEmailEnqueue_Accepted(t *testing.T) {
	mockDB := &handlerMockDB{}
	var insertArgs []any
	mockDB.On("Exec", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "INSERT INTO email_queue")
	}), mock.Anything).Run(func(args mock.Arguments) {
		insertArgs = args.Get(2).([]any)
	}).Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	h := NewEmail(core.NewEmailService(mockDB))
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/emails", map[string]any{
		"to":        "traveler@example.com",
		"subject":   "Booking confirmed",
		"body_text": "Your trip is booked.",
	})

	h.Enqueue(rec, r)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.NotEmpty(t, insertArgs)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, "queued", msg["status"])
	assert.Equal(t, "traveler@example.com", msg["to_address"])
	assert.NotEmpty(t, msg["id"])
}

// --- Get / Cancel ---

func TestEmailGet_EmptyID(t *testing.T) {
	h := newEmailHandler()
	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodGet, "/emails/", nil), "id", "")

	h.Get(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "missing required ID")
}

func TestEmailCancel_EmptyID(t *testing.T) {
	h := newEmailHandler()
	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodPost, "/emails//cancel", nil), "id", "")

	h.Cancel(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEmailCancel_AlreadySentIsConflict(t *testing.T) {
	mockDB := &handlerMockDB{}
	mockDB.On("Exec", mock.Anything, mock.Anything, mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	h := NewEmail(core.NewEmailService(mockDB))
	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodPost, "/emails/"+validID+"/cancel", nil), "id", validID)

	h.Cancel(rec, r)

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "not found or not queued")
}

func TestEmailCancel_Success(t *testing.T) {
	mockDB := &handlerMockDB{}
	mockDB.On("Exec", mock.Anything, mock.Anything, mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	h := NewEmail(core.NewEmailService(mockDB))
	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodPost, "/emails/"+validID+"/cancel", nil), "id", validID)

	h.Cancel(rec, r)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}
