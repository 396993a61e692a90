// Package notifysms delivers SMS through an HTTP gateway that
// accepts a JSON payload and an authkey header, the shape most Indian
// bulk-SMS gateways expose.
package notifysms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 10 * time.Second

// Config locates the gateway.
type Config struct {
	// Endpoint is the full send-SMS URL.
	Endpoint string
	// AuthKey is sent as the authkey header.
	AuthKey string
	// SenderID is the registered alphanumeric sender identity.
	SenderID string
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Provider implements notify.Sender over the gateway.
type Provider struct {
	cfg    Config
	client *http.Client
}

// New creates a Provider.
func New(cfg Config) *Provider {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Provider{cfg: cfg, client: client}
}

type payload struct {
	Sender  string `json:"sender"`
	To      string `json:"to"`
	Message string `json:"message"`
}

// Send posts one message to the gateway. The subject is ignored; SMS
// has no subject line.
func (p *Provider) Send(ctx context.Context, to, _ string, body string) error {
	buf, err := json.Marshal(payload{
		Sender:  p.cfg.SenderID,
		To:      to,
		Message: body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("authkey", p.cfg.AuthKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sms gateway: status %d", resp.StatusCode)
	}
	return nil
}
