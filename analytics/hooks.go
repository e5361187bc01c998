package analytics

import (
	"sort"
	"sync"
	"time"

	"achievekit/core"
)

// Hook receives domain events for KPI aggregation.
type Hook interface {
	OnEvent(e core.Event)
}

// Stats is a point-in-time copy of a Counter.
type Stats struct {
	Events         map[core.EventType]int64 `json:"events"`
	Unlocks        map[core.ID]int64        `json:"unlocks"`
	UnlocksByDay   map[string]int64         `json:"unlocks_by_day"`
	Collected      map[core.ID]int64        `json:"items_collected"`
	TamperByKey    map[string]int64         `json:"tamper_by_key"`
	LastUnlock     core.ID                  `json:"last_unlock,omitempty"`
	LastUnlockTime time.Time                `json:"last_unlock_time,omitempty"`
}

// TopUnlocks returns up to n ids ordered by unlock count, ties by id.
func (s Stats) TopUnlocks(n int) []core.ID {
	ids := make([]core.ID, 0, len(s.Unlocks))
	for id := range s.Unlocks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if s.Unlocks[ids[i]] != s.Unlocks[ids[j]] {
			return s.Unlocks[ids[i]] > s.Unlocks[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if n >= 0 && len(ids) > n {
		ids = ids[:n]
	}
	return ids
}

// Counter tracks event volume, unlocks and tamper detections.
type Counter struct {
	mu           sync.Mutex
	events       map[core.EventType]int64
	unlocks      map[core.ID]int64
	unlocksByDay map[string]int64
	collected    map[core.ID]int64
	tamper       map[string]int64
	lastUnlock   core.ID
	lastUnlockAt time.Time
}

func NewCounter() *Counter {
	return &Counter{
		events:       map[core.EventType]int64{},
		unlocks:      map[core.ID]int64{},
		unlocksByDay: map[string]int64{},
		collected:    map[core.ID]int64{},
		tamper:       map[string]int64{},
	}
}

func (c *Counter) OnEvent(e core.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events[e.Type]++
	switch e.Type {
	case core.EventAchievementUnlocked:
		c.unlocks[e.ID]++
		c.unlocksByDay[e.Time.UTC().Format("2006-01-02")]++
		c.lastUnlock = e.ID
		c.lastUnlockAt = e.Time
	case core.EventItemCollected:
		c.collected[e.ID]++
	case core.EventTamperDetected:
		c.tamper[e.Key]++
	}
}

// Count returns how many events of the given type were seen.
func (c *Counter) Count(t core.EventType) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[t]
}

func (c *Counter) Snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Events:         copyMap(c.events),
		Unlocks:        copyMap(c.unlocks),
		UnlocksByDay:   copyMap(c.unlocksByDay),
		Collected:      copyMap(c.collected),
		TamperByKey:    copyMap(c.tamper),
		LastUnlock:     c.lastUnlock,
		LastUnlockTime: c.lastUnlockAt,
	}
}

// Reset clears every counter.
func (c *Counter) Reset() {
	fresh := NewCounter()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events, c.unlocks, c.unlocksByDay = fresh.events, fresh.unlocks, fresh.unlocksByDay
	c.collected, c.tamper = fresh.collected, fresh.tamper
	c.lastUnlock, c.lastUnlockAt = "", time.Time{}
}

func copyMap[K comparable](m map[K]int64) map[K]int64 {
	out := make(map[K]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
