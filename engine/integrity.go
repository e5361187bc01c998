package engine

import (
	"encoding/json"
	"sort"

	"achievekit/adapters/digest"
	"achievekit/core"
)

// Base keys of the persisted fields. Each has a companion key with HashSuffix
// holding the digest of the serialized value.
const (
	KeyUnlocked = "unlocked"
	KeyProgress = "progress"
	KeyItems    = "items"

	HashSuffix = ":hash"
)

// PersistedKeys lists every base key the engine owns.
var PersistedKeys = []string{KeyUnlocked, KeyProgress, KeyItems}

func (e *Engine) storageKey(base string) string {
	return namespacedKey(e.namespace, base)
}

func namespacedKey(namespace, base string) string {
	if namespace == "" {
		return base
	}
	return namespace + ":" + base
}

// verify reads a field and checks it against its companion digest.
func (e *Engine) verify(base string) (raw string, present bool, intact bool) {
	r := checkField(e.store, e.hasher, e.namespace, base)
	return r.raw, r.Present, r.Intact
}

// FieldReport describes one persisted field as found in storage.
type FieldReport struct {
	Key     string `json:"key"`
	Present bool   `json:"present"`
	Hashed  bool   `json:"hashed"`
	Intact  bool   `json:"intact"`
	raw     string
}

// checkField compares a field with its companion digest.
// A missing digest means the data predates integrity tagging and is trusted.
// A digest without data counts as tampering.
func checkField(store Storage, hasher Hasher, namespace, base string) FieldReport {
	key := namespacedKey(namespace, base)
	raw, present := store.Get(key)
	stored, hashed := store.Get(key + HashSuffix)
	r := FieldReport{Key: base, Present: present, Hashed: hashed, Intact: true, raw: raw}
	switch {
	case !hashed:
	case !present:
		r.Intact = false
	default:
		r.Intact = stored == hasher.Hash(raw)
	}
	return r
}

// Inspect reports the integrity of every persisted field without modifying
// storage or firing tamper callbacks. A nil hasher selects FNV-1a.
func Inspect(store Storage, hasher Hasher, namespace string) []FieldReport {
	if hasher == nil {
		hasher = digest.FNV1a{}
	}
	out := make([]FieldReport, 0, len(PersistedKeys))
	for _, base := range PersistedKeys {
		out = append(out, checkField(store, hasher, namespace, base))
	}
	return out
}

// hydrateField loads one field at construction. parse must leave engine state
// untouched when it returns an error.
func (e *Engine) hydrateField(base string, parse func(raw string) error) {
	raw, present, intact := e.verify(base)
	if !intact {
		e.tamper(base)
		e.removeField(base)
		return
	}
	if !present {
		return
	}
	if err := parse(raw); err != nil {
		// corruption rather than tampering: start the field empty
		e.logger.Debug("discarding malformed persisted field", "key", base, "error", err)
	}
}

// persist re-checks the stored field and then writes data and digest together.
// Tampered storage is overwritten with the in-memory value.
func (e *Engine) persist(base string, value any) {
	b, err := json.Marshal(value)
	if err != nil {
		e.logger.Error("failed to serialize field", "key", base, "error", err)
		return
	}
	if _, _, intact := e.verify(base); !intact {
		e.tamper(base)
	}
	data := string(b)
	e.store.Set(e.storageKey(base), data)
	e.store.Set(e.storageKey(base)+HashSuffix, e.hasher.Hash(data))
}

func (e *Engine) removeField(base string) {
	e.store.Remove(e.storageKey(base))
	e.store.Remove(e.storageKey(base) + HashSuffix)
}

func (e *Engine) tamper(base string) {
	e.logger.Warn("persisted achievement data failed integrity check", "key", base)
	if e.onTamper != nil {
		e.onTamper(base)
	}
	e.publish(core.NewTamperDetected(base))
}

func (e *Engine) hydrate() {
	e.hydrateField(KeyUnlocked, func(raw string) error {
		var ids []core.ID
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			return err
		}
		for _, id := range ids {
			if e.catalogue.Contains(id) {
				e.unlocked[id] = struct{}{}
			}
		}
		return nil
	})
	e.hydrateField(KeyProgress, func(raw string) error {
		var progress map[core.ID]int
		if err := json.Unmarshal([]byte(raw), &progress); err != nil {
			return err
		}
		for id, v := range progress {
			if !e.catalogue.Contains(id) {
				continue
			}
			if max, ok := e.MaxProgress(id); ok {
				v = core.Clamp(v, max)
			} else if v < 0 {
				v = 0
			}
			e.progress[id] = v
		}
		return nil
	})
	e.hydrateField(KeyItems, func(raw string) error {
		var items map[core.ID][]string
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return err
		}
		for id, list := range items {
			if !e.catalogue.Contains(id) {
				continue
			}
			set := make(map[string]struct{}, len(list))
			for _, item := range list {
				set[item] = struct{}{}
			}
			e.items[id] = set
		}
		return nil
	})
	e.reconcileUnlocked()
}

// reconcileUnlocked marks ids whose hydrated progress already reached the max
// as unlocked. No toast, callback or event: the unlock happened in an earlier
// session whose unlocked field was lost or never written.
func (e *Engine) reconcileUnlocked() {
	changed := false
	for id, p := range e.progress {
		max, ok := e.MaxProgress(id)
		if _, done := e.unlocked[id]; !ok || done || p < max {
			continue
		}
		e.unlocked[id] = struct{}{}
		changed = true
	}
	if changed {
		e.persistUnlocked()
	}
}

func (e *Engine) persistUnlocked() {
	ids := make([]core.ID, 0, len(e.unlocked))
	for _, d := range e.catalogue.Definitions() {
		if _, ok := e.unlocked[d.ID]; ok {
			ids = append(ids, d.ID)
		}
	}
	e.persist(KeyUnlocked, ids)
}

func (e *Engine) persistProgress() {
	e.persist(KeyProgress, e.progress)
}

func (e *Engine) persistItems() {
	out := make(map[core.ID][]string, len(e.items))
	for id, set := range e.items {
		out[id] = sortedItems(set)
	}
	e.persist(KeyItems, out)
}

func sortedItems(set map[string]struct{}) []string {
	list := make([]string, 0, len(set))
	for item := range set {
		list = append(list, item)
	}
	sort.Strings(list)
	return list
}
