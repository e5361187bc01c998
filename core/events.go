package core

import "time"

// EventType enumerates domain events.
type EventType string

const (
	EventAchievementUnlocked EventType = "achievement_unlocked"
	EventProgressUpdated     EventType = "progress_updated"
	EventItemCollected       EventType = "item_collected"
	EventToastDismissed      EventType = "toast_dismissed"
	EventStateReset          EventType = "state_reset"
	EventTamperDetected      EventType = "tamper_detected"
	EventStateChanged        EventType = "state_changed"
)

// Event represents an immutable domain event.
type Event struct {
	Type     EventType      `json:"type"`
	Time     time.Time      `json:"time"`
	ID       ID             `json:"id,omitempty"`
	Key      string         `json:"key,omitempty"`
	Progress int            `json:"progress,omitempty"`
	Max      int            `json:"max,omitempty"`
	Item     string         `json:"item,omitempty"`
	State    *State         `json:"state,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func NewUnlocked(id ID) Event {
	return Event{Type: EventAchievementUnlocked, Time: time.Now().UTC(), ID: id}
}

func NewProgressUpdated(id ID, progress, max int) Event {
	return Event{Type: EventProgressUpdated, Time: time.Now().UTC(), ID: id, Progress: progress, Max: max}
}

func NewItemCollected(id ID, item string, size int) Event {
	return Event{Type: EventItemCollected, Time: time.Now().UTC(), ID: id, Item: item, Progress: size}
}

func NewToastDismissed(id ID) Event {
	return Event{Type: EventToastDismissed, Time: time.Now().UTC(), ID: id}
}

func NewStateReset() Event {
	return Event{Type: EventStateReset, Time: time.Now().UTC()}
}

// NewTamperDetected reports an integrity mismatch on the persisted field key.
func NewTamperDetected(key string) Event {
	return Event{Type: EventTamperDetected, Time: time.Now().UTC(), Key: key}
}

// NewStateChanged wraps a snapshot; the snapshot is cloned so the event stays immutable.
func NewStateChanged(st State) Event {
	cp := st.Clone()
	return Event{Type: EventStateChanged, Time: time.Now().UTC(), State: &cp}
}
