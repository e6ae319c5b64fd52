// Package notify turns alert decisions into persisted notifications and
// routes them through the user's delivery channels.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Mailer delivers a composed email through an external transport.
type Mailer interface {
	// Name returns the mailer identifier.
	Name() string

	// Send delivers one email. Implementations must be safe for concurrent
	// use and must fail within a bounded time.
	Send(ctx context.Context, to, subject, body string) error
}

// GatewayMailer posts emails to an HTTP mail gateway (the actual SMTP relay
// lives behind it). If secret is non-empty, requests are signed with
// HMAC-SHA256.
type GatewayMailer struct {
	url    string
	from   string
	secret string
	client *http.Client
}

// NewGatewayMailer creates a mail gateway client.
func NewGatewayMailer(url, from, secret string) *GatewayMailer {
	return &GatewayMailer{
		url:    url,
		from:   from,
		secret: secret,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (g *GatewayMailer) Name() string { return "mail-gateway" }

func (g *GatewayMailer) Send(ctx context.Context, to, subject, body string) error {
	payload := mailPayload{
		From:      g.from,
		To:        to,
		Subject:   subject,
		Body:      body,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "FinMate/1.0")

	if g.secret != "" {
		sig := computeHMAC(data, []byte(g.secret))
		req.Header.Set("X-Signature-256", "sha256="+sig)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mail gateway returned status %d", resp.StatusCode)
	}
	return nil
}

type mailPayload struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Timestamp string `json:"timestamp"`
}

func computeHMAC(message, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}
