package sdk

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"achievekit/core"
)

// Option configures the Client.
type Option func(*Client)

// Client provides typed access to the achievekit HTTP + WebSocket API.
type Client struct {
	baseURL    string
	wsURL      string
	httpClient *http.Client
	headers    http.Header
}

// NewClient constructs a new SDK client targeting the given baseURL (e.g., http://localhost:8080/api).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("baseURL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	c := &Client{
		baseURL:    baseURL,
		wsURL:      deriveWSURL(baseURL),
		httpClient: http.DefaultClient,
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithAuthToken adds an Authorization: Bearer token header to all requests (HTTP + WS).
func WithAuthToken(token string) Option {
	return func(c *Client) {
		if strings.TrimSpace(token) != "" {
			c.headers.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithAPIKey adds an X-API-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if strings.TrimSpace(key) != "" {
			c.headers.Set("X-API-Key", key)
		}
	}
}

// WithHeader sets an arbitrary header applied to HTTP and WS calls.
func WithHeader(k, v string) Option {
	return func(c *Client) {
		if k != "" {
			c.headers.Set(k, v)
		}
	}
}

// State fetches the raw achievement state.
func (c *Client) State(ctx context.Context) (State, error) {
	var st State
	err := c.do(ctx, http.MethodGet, "/state", nil, &st)
	return st, err
}

// Achievements lists the catalogue with per-entry status.
func (c *Client) Achievements(ctx context.Context) ([]Achievement, error) {
	var out []Achievement
	err := c.do(ctx, http.MethodGet, "/achievements", nil, &out)
	return out, err
}

// Achievement fetches one entry. Unknown ids satisfy IsNotFound.
func (c *Client) Achievement(ctx context.Context, id string) (Achievement, error) {
	return c.achievementCall(ctx, http.MethodGet, id, "", nil)
}

// Unlock unlocks id and returns its updated entry.
func (c *Client) Unlock(ctx context.Context, id string) (Achievement, error) {
	return c.achievementCall(ctx, http.MethodPost, id, "/unlock", nil)
}

// SetProgress stores value, clamped by the server to the achievement's max.
func (c *Client) SetProgress(ctx context.Context, id string, value int) (Achievement, error) {
	return c.achievementCall(ctx, http.MethodPost, id, "/progress", url.Values{"value": {strconv.Itoa(value)}})
}

// Increment adds one to the progress of id.
func (c *Client) Increment(ctx context.Context, id string) (Achievement, error) {
	return c.achievementCall(ctx, http.MethodPost, id, "/increment", nil)
}

// CollectItem records item against id.
func (c *Client) CollectItem(ctx context.Context, id, item string) (Achievement, error) {
	return c.achievementCall(ctx, http.MethodPost, id, "/items", url.Values{"item": {item}})
}

// SetMaxProgress installs a runtime maximum for id.
func (c *Client) SetMaxProgress(ctx context.Context, id string, max int) (Achievement, error) {
	return c.achievementCall(ctx, http.MethodPost, id, "/max", url.Values{"value": {strconv.Itoa(max)}})
}

// DismissToast acknowledges the unlock notification for id and returns the remaining queue.
func (c *Client) DismissToast(ctx context.Context, id string) ([]string, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrEmptyID
	}
	var body struct {
		ToastQueue []string `json:"toast_queue"`
	}
	err := c.do(ctx, http.MethodPost, "/toasts/"+url.PathEscape(id)+"/dismiss", nil, &body)
	return body.ToastQueue, err
}

// Reset wipes all achievement state.
func (c *Client) Reset(ctx context.Context) error {
	var body struct {
		OK bool `json:"ok"`
	}
	if err := c.do(ctx, http.MethodPost, "/reset", nil, &body); err != nil {
		return err
	}
	if !body.OK {
		return errors.New("reset not acknowledged")
	}
	return nil
}

// Stats fetches completion figures.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := c.do(ctx, http.MethodGet, "/stats", nil, &st)
	return st, err
}

func (c *Client) achievementCall(ctx context.Context, method, id, action string, q url.Values) (Achievement, error) {
	if strings.TrimSpace(id) == "" {
		return Achievement{}, ErrEmptyID
	}
	var a Achievement
	err := c.do(ctx, method, "/achievements/"+url.PathEscape(id)+action, q, &a)
	return a, err
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, target any) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return err
	}
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return err
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeJSON(resp, target)
}

// Health probes /healthz and returns status + storage check. An unhealthy
// server answers 503, reported as an *APIError.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var hs HealthStatus
	err := c.do(ctx, http.MethodGet, "/healthz", nil, &hs)
	return hs, err
}

// SubscribeEvents connects to the WebSocket stream and emits core.Event values,
// optionally restricted to the given types. The returned channel closes when
// ctx is done or the connection drops.
func (c *Client) SubscribeEvents(ctx context.Context, types ...core.EventType) (<-chan core.Event, error) {
	if c.wsURL == "" {
		return nil, errors.New("wsURL is not set; ensure baseURL is http/https")
	}
	target := c.wsURL
	if len(types) > 0 {
		q := url.Values{}
		for _, t := range types {
			q.Add("types", string(t))
		}
		target += "?" + q.Encode()
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, target, c.headers)
	if err != nil {
		return nil, err
	}

	// unblock ReadJSON when the caller gives up
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	out := make(chan core.Event, 32)
	go func() {
		defer close(out)
		defer stop()
		defer conn.Close()
		for {
			var evt core.Event
			if err := conn.ReadJSON(&evt); err != nil {
				return
			}
			select {
			case out <- evt:
			default:
				// drop if consumer is slow
			}
		}
	}()
	return out, nil
}

func (c *Client) applyHeaders(r *http.Request) {
	for k, vals := range c.headers {
		for _, v := range vals {
			r.Header.Add(k, v)
		}
	}
}

func deriveWSURL(httpBase string) string {
	u, err := url.Parse(httpBase)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		// leave as-is for custom schemes
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}
