package model

import (
	"encoding/json"
	"time"
)

// ProviderHealthLog is one immutable probe result for a provider.
// Rows are append-only; nothing updates them after insert.
type ProviderHealthLog struct {
	ID         string          `json:"id" db:"id"`
	ProviderID string          `json:"provider_id" db:"provider_id"`
	Status     string          `json:"status" db:"status"`
	LatencyMS  int64           `json:"latency_ms" db:"latency_ms"`
	Detail     string          `json:"detail,omitempty" db:"detail"`
	Metadata   json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	CheckedAt  time.Time       `json:"checked_at" db:"checked_at"`
}
