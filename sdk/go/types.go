package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Achievement mirrors one entry of the achievements listing. Locked hidden
// achievements arrive masked.
type Achievement struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Hidden      bool     `json:"hidden,omitempty"`
	Hint        bool     `json:"hint,omitempty"`
	Unlocked    bool     `json:"unlocked"`
	Progress    int      `json:"progress,omitempty"`
	MaxProgress int      `json:"max_progress,omitempty"`
	Items       []string `json:"items,omitempty"`
}

// State mirrors core.State on the wire.
type State struct {
	Unlocked   map[string]struct{} `json:"unlocked"`
	Progress   map[string]int      `json:"progress"`
	Items      map[string][]string `json:"items"`
	ToastQueue []string            `json:"toast_queue"`
}

// IsUnlocked reports whether id is in the unlocked set.
func (s State) IsUnlocked(id string) bool {
	_, ok := s.Unlocked[id]
	return ok
}

// Stats describes the /stats response.
type Stats struct {
	Total         int     `json:"total"`
	Unlocked      int     `json:"unlocked"`
	Percent       float64 `json:"percent"`
	PendingToasts int     `json:"pending_toasts"`
	Events        *struct {
		Events         map[string]int64 `json:"events"`
		Unlocks        map[string]int64 `json:"unlocks"`
		TamperByKey    map[string]int64 `json:"tamper_by_key"`
		LastUnlock     string           `json:"last_unlock,omitempty"`
		LastUnlockTime time.Time        `json:"last_unlock_time,omitempty"`
	} `json:"events,omitempty"`
}

// HealthStatus describes the /healthz response.
type HealthStatus struct {
	Status string         `json:"status"`
	Checks map[string]any `json:"checks"`
}

// APIError is the error envelope returned by the server.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("achievekit: %s (%d): %s", e.Code, e.Status, e.Message)
}

// IsNotFound reports whether err is an unknown-achievement response.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

func decodeJSON(resp *http.Response, target any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Code == "" {
			apiErr.Code = "http_error"
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

// ErrEmptyID is returned when an achievement id is empty.
var ErrEmptyID = errors.New("achievement id is required")
