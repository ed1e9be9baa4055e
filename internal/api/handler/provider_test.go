package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/voyara/platform/internal/core"
)

func newProviderHandler() *Provider {
	return NewProvider(nil, nil, nil)
}

// --- Create ---

func TestProviderCreate_InvalidJSON(t *testing.T) {
	h := newProviderHandler()
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPost, "/providers", "{bad json")

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "invalid JSON")
}

func TestProviderCreate_MissingDisplayName(t *testing.T) {
	h := newProviderHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/providers", map[string]any{
		"category": "flights",
	})

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "validation error")
}

func TestProviderCreate_UnknownCategory(t *testing.T) {
	h := newProviderHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/providers", map[string]any{
		"display_name": "SkyFare Connect",
		"category":     "cruises",
	})

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "validation error")
}

func TestProviderCreate_BadHealthURL(t *testing.T) {
	h := newProviderHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/providers", map[string]any{
		"display_name": "SkyFare Connect",
		"category":     "flights",
		"health_url":   "not-a-url",
	})

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProviderCreate_DerivesNameFromDisplayName(t *testing.T) {
	mockDB := &handlerMockDB{}
	var insertArgs []any
	mockDB.On("Exec", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "INSERT INTO providers")
	}), mock.Anything).Run(func(args mock.Arguments) {
		insertArgs = args.Get(2).([]any)
	}).Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	h := NewProvider(core.NewProviderService(mockDB), nil, nil)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/providers", map[string]any{
		"display_name": "SkyFare Connect",
		"category":     "flights",
	})

	h.Create(rec, r)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, insertArgs, 10)
	assert.Equal(t, "skyfare-connect", insertArgs[2]) // derived name
	assert.Equal(t, "SkyFare Connect", insertArgs[3])
	assert.Equal(t, "active", insertArgs[7])

	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "skyfare-connect", created["name"])
	assert.Equal(t, "unknown", created["last_status"])
}

func TestProviderCreate_FallsBackToGeneratedName(t *testing.T) {
	mockDB := &handlerMockDB{}
	var insertArgs []any
	mockDB.On("Exec", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "INSERT INTO providers")
	}), mock.Anything).Run(func(args mock.Arguments) {
		insertArgs = args.Get(2).([]any)
	}).Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	h := NewProvider(core.NewProviderService(mockDB), nil, nil)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/providers", map[string]any{
		"display_name": "!!!",
		"category":     "flights",
	})

	h.Create(rec, r)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, insertArgs, 10)
	assert.Regexp(t, `^prv_[a-z0-9]{10}$`, insertArgs[2])
}

// --- Get / Update / SetStatus ---

func TestProviderGet_EmptyID(t *testing.T) {
	h := newProviderHandler()
	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodGet, "/providers/", nil), "id", "")

	h.Get(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "missing required ID")
}

func TestProviderUpdate_EmptyID(t *testing.T) {
	h := newProviderHandler()
	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodPut, "/providers/", nil), "id", "")

	h.Update(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProviderSetStatus_RejectsUnknownStatus(t *testing.T) {
	h := newProviderHandler()
	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodPut, "/providers/"+validID+"/status", map[string]any{
		"status": "archived",
	}), "id", validID)

	h.SetStatus(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "validation error")
}

// --- Delete ---

func TestProviderDelete_ArchivesWhenHistoryExists(t *testing.T) {
	mockDB := &handlerMockDB{}
	existsRow := &handlerMockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*bool)) = true
		return nil
	}}
	mockDB.On("QueryRow", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "SELECT EXISTS")
	}), mock.Anything).Return(existsRow)
	mockDB.On("Exec", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "UPDATE providers SET status")
	}), mock.Anything).Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	h := NewProvider(core.NewProviderService(mockDB), nil, nil)
	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodDelete, "/providers/"+validID, nil), "id", validID)

	h.Delete(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body["archived"])
	mockDB.AssertExpectations(t)
}

func TestProviderDelete_RemovesWhenNoHistory(t *testing.T) {
	mockDB := &handlerMockDB{}
	existsRow := &handlerMockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*bool)) = false
		return nil
	}}
	mockDB.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(existsRow)
	mockDB.On("Exec", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "DELETE FROM providers")
	}), mock.Anything).Return(pgconn.NewCommandTag("DELETE 1"), nil)

	h := NewProvider(core.NewProviderService(mockDB), nil, nil)
	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodDelete, "/providers/"+validID, nil), "id", validID)

	h.Delete(rec, r)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
}

// --- HealthLogs ---

func TestProviderHealthLogs_EmptyID(t *testing.T) {
	h := newProviderHandler()
	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodGet, "/providers//health-logs", nil), "id", "")

	h.HealthLogs(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProviderHealthLogs_UnknownProvider(t *testing.T) {
	mockDB := &handlerMockDB{}
	missingRow := &handlerMockRow{scanFunc: func(dest ...any) error {
		return pgx.ErrNoRows
	}}
	mockDB.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(missingRow)

	h := NewProvider(core.NewProviderService(mockDB), nil, nil)
	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodGet, "/providers/"+validID+"/health-logs", nil), "id", validID)

	h.HealthLogs(rec, r)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "provider not found")
}

// --- UploadLogo ---

func TestProviderUploadLogo_EmptyID(t *testing.T) {
	h := newProviderHandler()
	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequestRaw(http.MethodPut, "/providers//logo", "png-bytes"), "id", "")

	h.UploadLogo(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
