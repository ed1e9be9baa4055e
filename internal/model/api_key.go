package model

import "time"

// APIKey authenticates a caller of the platform API. Only the SHA-256
// hash is stored; keys owned by a partner are scoped to that partner's
// resources.
type APIKey struct {
	ID        string     `json:"id"`
	PartnerID *string    `json:"partner_id,omitempty"`
	Name      string     `json:"name"`
	KeyHash   string     `json:"-"`
	KeyPrefix string     `json:"key_prefix,omitempty"`
	Scopes    []string   `json:"scopes"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}
