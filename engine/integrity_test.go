package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"achievekit/adapters/digest"
	mem "achievekit/adapters/memory"
	"achievekit/core"
)

type tamperRecorder struct{ keys []string }

func (r *tamperRecorder) record(key string) { r.keys = append(r.keys, key) }

func TestHashWrittenAlongsideData(t *testing.T) {
	store := mem.New()
	e := newTestEngine(t, store)
	e.Unlock("basic")
	e.SetProgress("progress-many", 5)
	e.CollectItem("collectible", "item-a")

	for _, key := range PersistedKeys {
		data, ok := store.Get(key)
		require.True(t, ok, key)
		hash, ok := store.Get(key + HashSuffix)
		require.True(t, ok, key)
		assert.Equal(t, digest.FNV1a{}.Hash(data), hash, key)
	}
}

func TestHydrationDiscardsTamperedFields(t *testing.T) {
	tests := []struct {
		key   string
		value string
		check func(t *testing.T, e *Engine)
	}{
		{KeyUnlocked, `["basic","progress-many"]`, func(t *testing.T, e *Engine) {
			assert.False(t, e.IsUnlocked("basic"))
			assert.Zero(t, e.UnlockedCount())
		}},
		{KeyProgress, `{"progress-many":9}`, func(t *testing.T, e *Engine) {
			assert.Zero(t, e.Progress("progress-many"))
		}},
		{KeyItems, `{"collectible":["a","b","c"]}`, func(t *testing.T, e *Engine) {
			assert.Empty(t, e.Items("collectible"))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			store := mem.NewWith(map[string]string{
				tt.key:              tt.value,
				tt.key + HashSuffix: "deadbeef",
			})
			rec := &tamperRecorder{}
			e := newTestEngine(t, store, OnTamperDetected(rec.record))

			tt.check(t, e)
			assert.Equal(t, []string{tt.key}, rec.keys)
			_, ok := store.Get(tt.key)
			assert.False(t, ok)
			_, ok = store.Get(tt.key + HashSuffix)
			assert.False(t, ok)
		})
	}
}

func TestHydrationTamperLeavesOtherFieldsIntact(t *testing.T) {
	store := mem.New()
	first := newTestEngine(t, store)
	first.Unlock("basic")
	first.SetProgress("progress-many", 4)

	store.Set(KeyProgress, `{"progress-many":9}`)

	rec := &tamperRecorder{}
	second := newTestEngine(t, store, OnTamperDetected(rec.record))
	assert.True(t, second.IsUnlocked("basic"))
	assert.Zero(t, second.Progress("progress-many"))
	assert.Equal(t, []string{KeyProgress}, rec.keys)
}

func TestHydrationHashWithoutDataIsTamper(t *testing.T) {
	store := mem.NewWith(map[string]string{KeyUnlocked + HashSuffix: "811c9dc5"})
	rec := &tamperRecorder{}
	newTestEngine(t, store, OnTamperDetected(rec.record))

	assert.Equal(t, []string{KeyUnlocked}, rec.keys)
	assert.Empty(t, store.Keys())
}

func TestHydrationTrustsDataWithoutHash(t *testing.T) {
	store := mem.NewWith(map[string]string{KeyUnlocked: `["basic"]`})
	rec := &tamperRecorder{}
	e := newTestEngine(t, store, OnTamperDetected(rec.record))

	assert.True(t, e.IsUnlocked("basic"))
	assert.Empty(t, rec.keys)
}

func TestHydrationMalformedPayloadIsNotTamper(t *testing.T) {
	store := mem.NewWith(map[string]string{
		KeyUnlocked: `not json`,
		KeyProgress: `{"progress-many":`,
	})
	// a correct hash over garbage is still just corruption
	store.Set(KeyItems, `[1,2`)
	store.Set(KeyItems+HashSuffix, digest.FNV1a{}.Hash(`[1,2`))

	rec := &tamperRecorder{}
	e := newTestEngine(t, store, OnTamperDetected(rec.record))

	assert.Empty(t, rec.keys)
	assert.Zero(t, e.UnlockedCount())
	assert.Empty(t, e.State().Progress)
	assert.Empty(t, e.State().Items)
}

func TestPostUnlockTamperRecovery(t *testing.T) {
	store := mem.New()
	rec := &tamperRecorder{}
	e := newTestEngine(t, store, OnTamperDetected(rec.record))

	e.Unlock("basic")
	store.Set(KeyUnlocked, `["basic","progress-many"]`)
	e.Unlock("collectible")

	assert.Equal(t, []string{KeyUnlocked}, rec.keys)
	assert.True(t, e.IsUnlocked("basic"))
	assert.True(t, e.IsUnlocked("collectible"))
	assert.False(t, e.IsUnlocked("progress-many"))

	raw, ok := store.Get(KeyUnlocked)
	require.True(t, ok)
	var stored []string
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.ElementsMatch(t, []string{"basic", "collectible"}, stored)

	// storage is consistent again, so a fresh engine trusts it
	rec2 := &tamperRecorder{}
	again := newTestEngine(t, store, OnTamperDetected(rec2.record))
	assert.Empty(t, rec2.keys)
	assert.Equal(t, 2, again.UnlockedCount())
}

func TestWriteTimeCheckCoversEveryField(t *testing.T) {
	store := mem.New()
	rec := &tamperRecorder{}
	e := newTestEngine(t, store, OnTamperDetected(rec.record))

	e.SetProgress("progress-many", 2)
	e.CollectItem("collectible", "a")
	store.Set(KeyProgress, `{"progress-many":9}`)
	store.Set(KeyItems, `{"collectible":["a","b","c"]}`)

	e.CollectItem("collectible", "b")

	assert.Equal(t, []string{KeyItems, KeyProgress}, rec.keys)
	raw, _ := store.Get(KeyProgress)
	assert.JSONEq(t, `{"progress-many":2,"collectible":2}`, raw)
}

func TestTamperPublishesEvent(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	var keys []string
	bus.Subscribe(core.EventTamperDetected, func(_ context.Context, ev core.Event) { keys = append(keys, ev.Key) })

	store := mem.NewWith(map[string]string{KeyItems: `{}`, KeyItems + HashSuffix: "bad"})
	newTestEngine(t, store, WithEventBus(bus))

	assert.Equal(t, []string{KeyItems}, keys)
}

func TestCustomHasher(t *testing.T) {
	calls := 0
	custom := HasherFunc(func(data string) string {
		calls++
		return fmt.Sprintf("custom:%d", len(data))
	})
	store := mem.New()
	e := newTestEngine(t, store, WithHasher(custom))
	e.Unlock("basic")

	assert.Positive(t, calls)
	hash, _ := store.Get(KeyUnlocked + HashSuffix)
	assert.Regexp(t, `^custom:`, hash)

	rec := &tamperRecorder{}
	again := newTestEngine(t, store, WithHasher(custom), OnTamperDetected(rec.record))
	assert.True(t, again.IsUnlocked("basic"))
	assert.Empty(t, rec.keys)

	// switching algorithms invalidates the stored digest
	rec = &tamperRecorder{}
	newTestEngine(t, store, OnTamperDetected(rec.record))
	assert.Equal(t, []string{KeyUnlocked}, rec.keys)
}

func TestInspectIsReadOnly(t *testing.T) {
	store := mem.New()
	e := New(testCatalogue, WithStorage(store), WithNamespace("p1"))
	e.Unlock("basic")
	e.SetProgress("progress-many", 3)
	store.Set("p1:"+KeyProgress, `{"progress-many":10}`)
	store.Set("p1:"+KeyItems+HashSuffix, "00000000")
	before := store.Snapshot()

	reports := Inspect(store, nil, "p1")
	require.Len(t, reports, 3)
	assert.Equal(t, FieldReport{Key: KeyUnlocked, Present: true, Hashed: true, Intact: true, raw: `["basic"]`}, reports[0])
	assert.False(t, reports[1].Intact)
	assert.True(t, reports[1].Present)
	assert.Equal(t, KeyItems, reports[2].Key)
	assert.False(t, reports[2].Present)
	assert.False(t, reports[2].Intact)

	assert.Equal(t, before, store.Snapshot())

	// without the namespace nothing is stored, which is trusted
	for _, r := range Inspect(store, digest.FNV1a{}, "") {
		assert.True(t, r.Intact, r.Key)
		assert.False(t, r.Present, r.Key)
	}
}
