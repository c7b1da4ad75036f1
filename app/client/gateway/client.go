package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/HeyGuihi/CrioloWhatsApp/app/config"
	"github.com/samber/do"
	"github.com/samber/oops"
)

// Sender is the narrow outbound seam to the messaging transport. The core
// knows nothing about sessions, pairing or delivery retries.
type Sender interface {
	Send(ctx context.Context, contactID, text string) error
}

// Client delivers outbound messages through the WhatsApp HTTP gateway.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ Sender = (*Client)(nil)

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Client{
		baseURL: cfg.Gateway.BaseURL,
		token:   cfg.Gateway.Token,
		httpClient: &http.Client{
			Timeout: cfg.Gateway.Timeout,
		},
	}, nil
}

type sendRequest struct {
	ContactID string `json:"contact_id"`
	Text      string `json:"text"`
}

func (c *Client) Send(ctx context.Context, contactID, text string) error {
	body, err := json.Marshal(sendRequest{
		ContactID: contactID,
		Text:      text,
	})
	if err != nil {
		return oops.Errorf("failed to marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/messages", bytes.NewReader(body))
	if err != nil {
		return oops.Errorf("failed to create send request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return oops.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

		return oops.
			With("status", resp.StatusCode).
			With("body", string(payload)).
			Errorf("gateway rejected message")
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}
