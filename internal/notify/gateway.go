package notify

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

// Sender delivers a single text message.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// GatewayConfig configures the HTTP SMS gateway client.
type GatewayConfig struct {
	URL      string
	Token    string
	SenderID string
	Timeout  time.Duration
}

// Gateway posts messages to an HTTP SMS provider.
type Gateway struct {
	url      string
	token    string
	senderID string
	client   *http.Client
}

// NewGateway builds a gateway client.
func NewGateway(cfg GatewayConfig) (*Gateway, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("notify: gateway url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Gateway{
		url:      cfg.URL,
		token:    cfg.Token,
		senderID: cfg.SenderID,
		client:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type gatewayMessage struct {
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
	Message string `json:"message"`
}

// Send posts one message. Non-2xx responses are returned as errors.
func (g *Gateway) Send(ctx context.Context, to, body string) error {
	payload, err := json.Marshal(gatewayMessage{To: to, From: g.senderID, Message: body})
	if err != nil {
		return fmt.Errorf("notify: encode message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notify: gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
