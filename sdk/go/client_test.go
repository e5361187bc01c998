package sdk

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mem "achievekit/adapters/memory"
	"achievekit/achieve"
	"achievekit/api/httpapi"
	"achievekit/core"
	"achievekit/engine"
	"achievekit/realtime"
)

func newTestServer(t *testing.T, opts httpapi.Options) (*httptest.Server, *realtime.Hub) {
	t.Helper()
	cat := core.MustCatalogue(
		core.Definition{ID: "first-visit", Label: "First Contact"},
		core.Definition{ID: "night-owl", Label: "Night Protocol", Hidden: true},
		core.Definition{ID: "explorer", Label: "Full Traversal", MaxProgress: 3},
		core.Definition{ID: "full-coverage", Label: "Full Coverage"},
	)
	hub := realtime.NewHub()
	eng := achieve.New(cat,
		achieve.WithStorage(mem.New()),
		achieve.WithRealtime(hub),
		achieve.WithDispatchMode(engine.DispatchSync),
	)
	srv := httptest.NewServer(httpapi.NewMux(eng, hub, opts))
	t.Cleanup(srv.Close)
	return srv, hub
}

func TestClient_RoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, httpapi.Options{PathPrefix: "/api", APIKeys: []string{"k1"}})

	client, err := NewClient(srv.URL+"/api", WithAPIKey("k1"))
	require.NoError(t, err)
	ctx := context.Background()

	list, err := client.Achievements(ctx)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, "CLASSIFIED", list[1].ID)

	a, err := client.Unlock(ctx, "first-visit")
	require.NoError(t, err)
	assert.True(t, a.Unlocked)

	a, err = client.SetProgress(ctx, "explorer", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, a.Progress)
	a, err = client.Increment(ctx, "explorer")
	require.NoError(t, err)
	assert.True(t, a.Unlocked)

	_, err = client.CollectItem(ctx, "full-coverage", "node-a")
	require.NoError(t, err)
	a, err = client.SetMaxProgress(ctx, "full-coverage", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, a.MaxProgress)

	st, err := client.State(ctx)
	require.NoError(t, err)
	assert.True(t, st.IsUnlocked("explorer"))
	assert.Equal(t, []string{"node-a"}, st.Items["full-coverage"])
	assert.Equal(t, []string{"first-visit", "explorer"}, st.ToastQueue)

	queue, err := client.DismissToast(ctx, "first-visit")
	require.NoError(t, err)
	assert.Equal(t, []string{"explorer"}, queue)

	stats, err := client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Unlocked)

	require.NoError(t, client.Reset(ctx))
	st, err = client.State(ctx)
	require.NoError(t, err)
	assert.Empty(t, st.Unlocked)

	health, err := client.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
}

func TestClient_Errors(t *testing.T) {
	srv, _ := newTestServer(t, httpapi.Options{APIKeys: []string{"k1"}})
	ctx := context.Background()

	_, err := NewClient(" ")
	assert.Error(t, err)

	anon, err := NewClient(srv.URL)
	require.NoError(t, err)
	_, err = anon.State(ctx)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.Status)
	assert.Equal(t, "unauthorized", apiErr.Code)

	client, err := NewClient(srv.URL, WithAuthToken("k1"))
	require.NoError(t, err)
	_, err = client.Achievement(ctx, "missing")
	assert.True(t, IsNotFound(err))

	_, err = client.Unlock(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyID)

	_, err = client.SetProgress(ctx, "first-visit", 1)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "not_tracked", apiErr.Code)
}

func TestClient_SubscribeEvents(t *testing.T) {
	srv, hub := newTestServer(t, httpapi.Options{PathPrefix: "/api"})

	client, err := NewClient(srv.URL + "/api")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	events, err := client.SubscribeEvents(ctx, core.EventAchievementUnlocked)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	_, err = client.Unlock(ctx, "first-visit")
	require.NoError(t, err)

	select {
	case evt := <-events:
		assert.Equal(t, core.EventAchievementUnlocked, evt.Type)
		assert.Equal(t, core.ID("first-visit"), evt.ID)
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}

	cancel()
	for range events {
	}
}

func TestDeriveWSURL(t *testing.T) {
	assert.Equal(t, "wss://example.com/api/ws", deriveWSURL("https://example.com/api"))
	assert.Equal(t, "ws://localhost:8080/ws", deriveWSURL("http://localhost:8080/"))
}
