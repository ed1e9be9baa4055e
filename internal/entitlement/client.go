// Package entitlement resolves users against the identity service. The
// rollout gate consumes its (role, tier) pairs; nothing here caches, so
// revocations take effect on the next request.
package entitlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrUserNotFound is returned when the identity service has no record of
// the user ID.
var ErrUserNotFound = errors.New("user not found")

// Entitlement is one user's access classification.
type Entitlement struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Tier   string `json:"tier"`
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates an entitlement client for the identity service.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// Lookup fetches the role and tier for a user ID.
func (c *Client) Lookup(ctx context.Context, userID string) (*Entitlement, error) {
	url := fmt.Sprintf("%s/users/%s/entitlement", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("entitlement request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup entitlement for %s: %w", userID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("lookup entitlement for %s: %w", userID, ErrUserNotFound)
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("lookup entitlement for %s: status %d: %s", userID, resp.StatusCode, string(body))
	}

	var ent Entitlement
	if err := json.NewDecoder(resp.Body).Decode(&ent); err != nil {
		return nil, fmt.Errorf("decode entitlement: %w", err)
	}
	if ent.UserID == "" {
		ent.UserID = userID
	}
	return &ent, nil
}
