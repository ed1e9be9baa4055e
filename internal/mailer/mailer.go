// Package mailer delivers queued transactional email through the hosted
// mail relay's HTTP API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/voyara/platform/internal/model"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	from       string
}

// NewClient creates a mailer client. from is the envelope sender applied
// to every message; the queue rows do not carry one.
func NewClient(baseURL, apiKey, from string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		from:       from,
	}
}

type sendPayload struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Subject  string  `json:"subject"`
	BodyText string  `json:"body_text"`
	BodyHTML *string `json:"body_html,omitempty"`
}

// Send delivers one queued message. A non-2xx relay response is an error;
// the queue's retry budget decides what happens next.
func (c *Client) Send(ctx context.Context, msg *model.EmailMessage) error {
	payload := sendPayload{
		From:     c.from,
		To:       msg.ToAddress,
		Subject:  msg.Subject,
		BodyText: msg.BodyText,
		BodyHTML: msg.BodyHTML,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal send payload: %w", err)
	}

	url := fmt.Sprintf("%s/send", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email to %s: %w", msg.ToAddress, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("send email to %s: status %d: %s", msg.ToAddress, resp.StatusCode, string(respBody))
	}
	return nil
}
