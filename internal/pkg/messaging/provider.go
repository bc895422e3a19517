package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Provider delivers one outbound message to a recipient. Implementations
// must return a non-nil error whenever delivery is not confirmed; callers
// charge credits only after a nil return.
type Provider interface {
	Send(ctx context.Context, phone, content string) error
}

// Config holds message gateway configuration
type Config struct {
	BaseURL string
	APIKey  string
	Sender  string
	Timeout time.Duration
}

// Client is the HTTP implementation of Provider.
type Client struct {
	httpClient *http.Client
	config     Config
}

type sendRequest struct {
	Phone   string `json:"phone"`
	Sender  string `json:"sender,omitempty"`
	Content string `json:"content"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// NewClient creates a new message gateway client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		config:     cfg,
	}
}

// Send posts the message to the gateway and treats anything other than an
// accepted/delivered response as a failure.
func (c *Client) Send(ctx context.Context, phone, content string) error {
	if strings.TrimSpace(phone) == "" {
		return fmt.Errorf("validation error: phone must be non-empty")
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("validation error: content must be non-empty")
	}
	if c == nil || c.httpClient == nil {
		return fmt.Errorf("messaging client is not initialized")
	}
	if strings.TrimSpace(c.config.BaseURL) == "" {
		return fmt.Errorf("messaging config error: base_url is empty")
	}

	jsonData, err := json.Marshal(sendRequest{
		Phone:   phone,
		Sender:  c.config.Sender,
		Content: content,
	})
	if err != nil {
		return fmt.Errorf("failed to encode message request: %w", err)
	}

	base := strings.TrimRight(c.config.BaseURL, "/")
	url := base + "/api/v1/messages/send"

	timeout := c.config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to build message request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("message gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read gateway response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("message gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	var out sendResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}
	if out.Status != "accepted" && out.Status != "delivered" {
		return fmt.Errorf("message not delivered: status=%s error=%s", out.Status, out.Error)
	}
	return nil
}
