package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"achievekit/core"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body when a
// secret is configured.
const SignatureHeader = "X-Achievekit-Signature"

// DefaultTypes are the events forwarded when no explicit filter is given.
var DefaultTypes = []core.EventType{core.EventAchievementUnlocked, core.EventTamperDetected}

// Sink posts achievement events to configured HTTP endpoints.
// Delivery is synchronous; run it behind an async event bus to keep the engine fast.
type Sink struct {
	client    *http.Client
	endpoints []string
	types     map[core.EventType]struct{}
	secret    []byte
	logger    *slog.Logger
}

// Option configures a Sink.
type Option func(*Sink)

// WithClient overrides the HTTP client (defaults to 2s timeout).
func WithClient(c *http.Client) Option {
	return func(s *Sink) {
		if c != nil {
			s.client = c
		}
	}
}

// WithTypes replaces the set of forwarded event types.
func WithTypes(types ...core.EventType) Option {
	return func(s *Sink) {
		s.types = make(map[core.EventType]struct{}, len(types))
		for _, t := range types {
			s.types[t] = struct{}{}
		}
	}
}

// WithSecret signs each body with HMAC-SHA256.
func WithSecret(secret string) Option {
	return func(s *Sink) {
		if secret != "" {
			s.secret = []byte(secret)
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a webhook sink.
func New(endpoints []string, opts ...Option) *Sink {
	s := &Sink{
		client: &http.Client{Timeout: 2 * time.Second},
		logger: slog.Default(),
	}
	WithTypes(DefaultTypes...)(s)
	for _, opt := range opts {
		opt(s)
	}
	s.endpoints = append([]string{}, endpoints...)
	return s
}

// Types returns the forwarded event types.
func (s *Sink) Types() []core.EventType {
	out := make([]core.EventType, 0, len(s.types))
	for t := range s.types {
		out = append(out, t)
	}
	return out
}

// OnEvent posts the event JSON to all endpoints. Failures are logged per
// endpoint and never stop delivery to the rest.
func (s *Sink) OnEvent(ctx context.Context, e core.Event) {
	if len(s.endpoints) == 0 {
		return
	}
	if _, ok := s.types[e.Type]; !ok {
		return
	}
	body, err := json.Marshal(e)
	if err != nil {
		s.logger.Error("webhook encode failed", "type", e.Type, "error", err)
		return
	}
	for _, ep := range s.endpoints {
		if err := s.post(ctx, ep, body); err != nil {
			s.logger.Warn("webhook delivery failed", "endpoint", ep, "type", e.Type, "error", err)
		}
	}
}

func (s *Sink) post(ctx context.Context, endpoint string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if len(s.secret) > 0 {
		req.Header.Set(SignatureHeader, Sign(s.secret, body))
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
