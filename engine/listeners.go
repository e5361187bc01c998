package engine

import "achievekit/core"

// Listener receives a fresh snapshot after every mutating operation.
type Listener func(core.State)

type listenerEntry struct {
	id int64
	fn Listener
}

// listeners is an ordered registry. Removal is immediate: an entry removed
// while a snapshot is being delivered does not receive it.
type listeners struct {
	entries []listenerEntry
	live    map[int64]struct{}
	nextID  int64
}

func newListeners() *listeners {
	return &listeners{live: make(map[int64]struct{})}
}

func (l *listeners) add(fn Listener) func() {
	l.nextID++
	id := l.nextID
	l.entries = append(l.entries, listenerEntry{id: id, fn: fn})
	l.live[id] = struct{}{}
	return func() { l.remove(id) }
}

func (l *listeners) remove(id int64) {
	if _, ok := l.live[id]; !ok {
		return
	}
	delete(l.live, id)
	for i, e := range l.entries {
		if e.id == id {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return
		}
	}
}

func (l *listeners) len() int { return len(l.entries) }

// deliver calls every registered listener in registration order, each with
// its own copy of st. The entry list is copied so listeners may subscribe or
// unsubscribe during delivery.
func (l *listeners) deliver(st core.State) {
	if len(l.entries) == 0 {
		return
	}
	pending := append([]listenerEntry(nil), l.entries...)
	for _, e := range pending {
		if _, ok := l.live[e.id]; !ok {
			continue
		}
		e.fn(st.Clone())
	}
}
