package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// auditBuffer bounds the in-flight queue. When it fills, entries are
// dropped rather than stalling request handling.
const auditBuffer = 1024

// AuditLogger records mutating API requests to the audit_logs table.
// Writes happen on a background goroutine so the request path never
// waits on the database.
type AuditLogger struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
	ch     chan auditEntry
}

type auditEntry struct {
	APIKeyID     *string
	Method       string
	Path         string
	ResourceType *string
	ResourceID   *string
	StatusCode   int
	RequestBody  json.RawMessage
}

func NewAuditLogger(pool *pgxpool.Pool, logger zerolog.Logger) *AuditLogger {
	al := &AuditLogger{
		pool:   pool,
		logger: logger.With().Str("component", "audit").Logger(),
		ch:     make(chan auditEntry, auditBuffer),
	}
	go al.drain()
	return al
}

func (al *AuditLogger) drain() {
	// Requests are long gone when entries land here, so writes carry
	// their own context.
	for e := range al.ch {
		_, err := al.pool.Exec(context.Background(),
			`INSERT INTO audit_logs (api_key_id, method, path, resource_type, resource_id, status_code, request_body, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, now())`,
			e.APIKeyID, e.Method, e.Path, e.ResourceType, e.ResourceID, e.StatusCode, e.RequestBody,
		)
		if err != nil {
			al.logger.Error().Err(err).Msg("failed to write audit log")
		}
	}
}

// Close stops accepting entries. Buffered entries still get written.
func (al *AuditLogger) Close() {
	close(al.ch)
}

// Middleware audits POST, PUT, and DELETE requests. Reads pass through
// untouched.
func (al *AuditLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
		default:
			next.ServeHTTP(w, r)
			return
		}

		// The handler needs the body too, so buffer and replace it.
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(body))
		}

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		al.record(r, sw.status, body)
	})
}

// record queues one entry, dropping it if the writer is backed up.
func (al *AuditLogger) record(r *http.Request, status int, body []byte) {
	resourceType, resourceID := extractResource(r.URL.Path)

	var apiKeyID *string
	if id, ok := r.Context().Value(APIKeyIDKey).(string); ok {
		apiKeyID = &id
	}

	var sanitized json.RawMessage
	if len(body) > 0 && json.Valid(body) {
		sanitized = sanitizeBody(body)
	}

	select {
	case al.ch <- auditEntry{
		APIKeyID:     apiKeyID,
		Method:       r.Method,
		Path:         r.URL.Path,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		StatusCode:   status,
		RequestBody:  sanitized,
	}:
	default:
		al.logger.Warn().Msg("audit log buffer full, dropping entry")
	}
}

// extractResource pulls the innermost collection name and optional ID out
// of an API path. Segments alternate collection/ID after the version
// prefix:
//
//	/api/v1/providers                          -> providers, nil
//	/api/v1/providers/abc                      -> providers, abc
//	/api/v1/providers/abc/logo                 -> logo, nil
//	/api/v1/providers/abc/health-logs/def      -> health-logs, def
func extractResource(path string) (*string, *string) {
	trimmed := strings.TrimPrefix(path, "/api/v1/")

	var resourceType, resourceID *string
	depth := 0
	for _, seg := range strings.Split(trimmed, "/") {
		if seg == "" {
			continue
		}
		s := seg
		if depth%2 == 0 {
			resourceType = &s
			resourceID = nil
		} else {
			resourceID = &s
		}
		depth++
	}
	return resourceType, resourceID
}

// redactedKeys never make it into audit rows in the clear.
var redactedKeys = map[string]bool{
	"password": true, "api_key": true, "secret": true, "token": true, "raw_key": true,
}

func sanitizeBody(body []byte) json.RawMessage {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return body
	}
	for k := range data {
		if redactedKeys[k] {
			data[k] = "[REDACTED]"
		}
	}
	sanitized, _ := json.Marshal(data)
	return sanitized
}
