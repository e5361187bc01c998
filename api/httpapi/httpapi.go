package httpapi

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	wsadapter "achievekit/adapters/websocket"
	"achievekit/analytics"
	"achievekit/core"
	"achievekit/engine"
	"achievekit/realtime"
)

// Options configures the HTTP API surface.
type Options struct {
	// PathPrefix, if set, is prepended to all routes (e.g., "/api").
	PathPrefix string
	// AllowCORSOrigin, if non-empty, enables basic CORS with the given origin (use "*" for any).
	AllowCORSOrigin string
	// APIKeys, if non-empty, enables static API key auth via Authorization: Bearer or X-API-Key.
	APIKeys []string
	// RateLimitEnabled toggles rate limiting.
	RateLimitEnabled bool
	// RateLimitRPM is the allowed requests per minute per client key.
	RateLimitRPM int
	// RateLimitBurst defines burst capacity.
	RateLimitBurst int
	// RateLimitIdle evicts limiter state for clients idle this long.
	RateLimitIdle time.Duration
	// Stats, if set, adds event counters to the stats route.
	Stats *analytics.Counter
	// HealthCheck, if set, probes the storage backend.
	HealthCheck func(ctx context.Context) error
}

// AchievementView is one catalogue entry as shown to a player.
type AchievementView struct {
	ID          core.ID  `json:"id"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Hidden      bool     `json:"hidden,omitempty"`
	Hint        bool     `json:"hint,omitempty"`
	Unlocked    bool     `json:"unlocked"`
	Progress    int      `json:"progress,omitempty"`
	MaxProgress int      `json:"max_progress,omitempty"`
	Items       []string `json:"items,omitempty"`
}

// Stats summarises completion.
type Stats struct {
	Total         int              `json:"total"`
	Unlocked      int              `json:"unlocked"`
	Percent       float64          `json:"percent"`
	PendingToasts int              `json:"pending_toasts"`
	Events        *analytics.Stats `json:"events,omitempty"`
}

// server serializes every engine call; the engine itself is single-threaded.
type server struct {
	mu     sync.Mutex
	eng    *engine.Engine
	opts   Options
	limits *rateLimiter
}

// NewMux builds an http.Handler exposing the achievement REST API and WebSocket stream.
// Routes:
//   - GET  {prefix}/healthz
//   - GET  {prefix}/state
//   - GET  {prefix}/achievements
//   - GET  {prefix}/achievements/{id}
//   - POST {prefix}/achievements/{id}/unlock
//   - POST {prefix}/achievements/{id}/progress?value=3
//   - POST {prefix}/achievements/{id}/increment
//   - POST {prefix}/achievements/{id}/items?item=docs
//   - POST {prefix}/achievements/{id}/max?value=12
//   - POST {prefix}/toasts/{id}/dismiss
//   - POST {prefix}/reset
//   - GET  {prefix}/stats
//   - WS   {prefix}/ws
func NewMux(eng *engine.Engine, hub *realtime.Hub, opts Options) http.Handler {
	s := &server{eng: eng, opts: opts}
	p := func(method, path string) string { return method + " " + withPrefix(opts.PathPrefix, path) }

	mux := http.NewServeMux()
	mux.HandleFunc(p(http.MethodGet, "/healthz"), s.health)
	mux.HandleFunc(p(http.MethodGet, "/state"), s.state)
	mux.HandleFunc(p(http.MethodGet, "/achievements"), s.list)
	mux.HandleFunc(p(http.MethodGet, "/achievements/{id}"), s.detail)
	mux.HandleFunc(p(http.MethodPost, "/achievements/{id}/unlock"), s.mutate(func(e *engine.Engine, id core.ID, _ *http.Request) error {
		e.Unlock(id)
		return nil
	}))
	mux.HandleFunc(p(http.MethodPost, "/achievements/{id}/progress"), s.mutate(func(e *engine.Engine, id core.ID, r *http.Request) error {
		v, err := intParam(r, "value")
		if err != nil {
			return err
		}
		if _, ok := e.MaxProgress(id); !ok {
			return errNotTracked
		}
		e.SetProgress(id, v)
		return nil
	}))
	mux.HandleFunc(p(http.MethodPost, "/achievements/{id}/increment"), s.mutate(func(e *engine.Engine, id core.ID, _ *http.Request) error {
		if _, ok := e.MaxProgress(id); !ok {
			return errNotTracked
		}
		e.IncrementProgress(id)
		return nil
	}))
	mux.HandleFunc(p(http.MethodPost, "/achievements/{id}/items"), s.mutate(func(e *engine.Engine, id core.ID, r *http.Request) error {
		item := r.URL.Query().Get("item")
		if item == "" {
			return paramError{name: "item", msg: "item is required"}
		}
		e.CollectItem(id, item)
		return nil
	}))
	mux.HandleFunc(p(http.MethodPost, "/achievements/{id}/max"), s.mutate(func(e *engine.Engine, id core.ID, r *http.Request) error {
		v, err := intParam(r, "value")
		if err != nil {
			return err
		}
		if v <= 0 {
			return paramError{name: "value", msg: "value must be positive"}
		}
		e.SetMaxProgress(id, v)
		return nil
	}))
	mux.HandleFunc(p(http.MethodPost, "/toasts/{id}/dismiss"), s.dismiss)
	mux.HandleFunc(p(http.MethodPost, "/reset"), s.reset)
	mux.HandleFunc(p(http.MethodGet, "/stats"), s.stats)

	// WebSocket events
	if hub != nil {
		mux.Handle(p(http.MethodGet, "/ws"), wsadapter.Handler(hub))
	}

	var handler http.Handler = mux
	if len(opts.APIKeys) > 0 {
		handler = withAPIKeyAuth(handler, opts.APIKeys, withPrefix(opts.PathPrefix, "/healthz"))
	}
	if opts.RateLimitEnabled && opts.RateLimitRPM > 0 && opts.RateLimitBurst > 0 {
		s.limits = newRateLimiter(opts.RateLimitRPM, opts.RateLimitBurst, opts.RateLimitIdle)
		handler = withRateLimit(handler, s.limits)
	}
	if opts.AllowCORSOrigin != "" {
		handler = withCORS(handler, opts.AllowCORSOrigin)
	}
	return handler
}

type paramError struct{ name, msg string }

func (e paramError) Error() string { return e.msg }

type conflictError string

func (e conflictError) Error() string { return string(e) }

const errNotTracked = conflictError("achievement has no progress maximum")

func intParam(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0, paramError{name: name, msg: name + " must be an integer"}
	}
	return v, nil
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status": "healthy",
		"checks": map[string]any{
			"storage": "ok",
		},
	}
	if s.opts.HealthCheck != nil {
		if err := s.opts.HealthCheck(r.Context()); err != nil {
			status["status"] = "unhealthy"
			status["checks"] = map[string]any{"storage": "failed"}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}
	writeJSON(w, status)
}

func (s *server) state(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	st := s.eng.State()
	s.mu.Unlock()
	writeJSON(w, st)
}

func (s *server) list(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defs := s.eng.Catalogue().Definitions()
	out := make([]AchievementView, 0, len(defs))
	for _, d := range defs {
		out = append(out, s.view(d))
	}
	s.mu.Unlock()
	writeJSON(w, out)
}

func (s *server) detail(w http.ResponseWriter, r *http.Request) {
	id := core.ID(r.PathValue("id"))
	s.mu.Lock()
	d, ok := s.eng.Definition(id)
	var v AchievementView
	if ok {
		v = s.view(d)
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "unknown achievement", map[string]any{"id": id})
		return
	}
	writeJSON(w, v)
}

// mutate resolves {id}, runs fn under the engine lock and answers with the
// updated view.
func (s *server) mutate(fn func(*engine.Engine, core.ID, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := core.ID(r.PathValue("id"))
		s.mu.Lock()
		d, ok := s.eng.Definition(id)
		var err error
		var v AchievementView
		if ok {
			if err = fn(s.eng, id, r); err == nil {
				v = s.view(d)
			}
		}
		s.mu.Unlock()

		switch e := err.(type) {
		case nil:
		case paramError:
			writeError(w, http.StatusBadRequest, "invalid_"+e.name, e.msg, nil)
			return
		case conflictError:
			writeError(w, http.StatusConflict, "not_tracked", e.Error(), map[string]any{"id": id})
			return
		default:
			writeError(w, http.StatusInternalServerError, "internal", err.Error(), nil)
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "not_found", "unknown achievement", map[string]any{"id": id})
			return
		}
		writeJSON(w, v)
	}
}

func (s *server) dismiss(w http.ResponseWriter, r *http.Request) {
	id := core.ID(r.PathValue("id"))
	s.mu.Lock()
	s.eng.DismissToast(id)
	queue := s.eng.State().ToastQueue
	s.mu.Unlock()
	writeJSON(w, map[string]any{"toast_queue": queue})
}

func (s *server) reset(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.eng.Reset()
	s.mu.Unlock()
	writeJSON(w, map[string]any{"ok": true})
}

func (s *server) stats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := Stats{
		Total:         s.eng.Catalogue().Len(),
		Unlocked:      s.eng.UnlockedCount(),
		PendingToasts: len(s.eng.State().ToastQueue),
	}
	s.mu.Unlock()
	if out.Total > 0 {
		out.Percent = float64(out.Unlocked) * 100 / float64(out.Total)
	}
	if s.opts.Stats != nil {
		snap := s.opts.Stats.Snapshot()
		out.Events = &snap
	}
	writeJSON(w, out)
}

// view masks locked hidden achievements; their progress is not disclosed.
// Callers hold s.mu.
func (s *server) view(d core.Definition) AchievementView {
	unlocked := s.eng.IsUnlocked(d.ID)
	shown := d.Visible(unlocked)
	v := AchievementView{
		ID:          shown.ID,
		Label:       shown.Label,
		Description: shown.Description,
		Hidden:      d.Hidden,
		Hint:        d.Hint,
		Unlocked:    unlocked,
	}
	if d.Hidden && !unlocked {
		return v
	}
	if max, ok := s.eng.MaxProgress(d.ID); ok {
		v.Progress = s.eng.Progress(d.ID)
		v.MaxProgress = max
	}
	for item := range s.eng.Items(d.ID) {
		v.Items = append(v.Items, item)
	}
	sort.Strings(v.Items)
	return v
}

func withPrefix(prefix, path string) string {
	if prefix == "" || prefix == "/" {
		return path
	}
	if prefix[len(prefix)-1] == '/' {
		return prefix[:len(prefix)-1] + path
	}
	return prefix + path
}
