package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI against a file store at path.
func run(t *testing.T, path string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--file", path}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func stateJSON(t *testing.T, path string) map[string]achievementRow {
	t.Helper()
	out, _, err := run(t, path, "state", "--format", "json")
	require.NoError(t, err)
	var rs []achievementRow
	require.NoError(t, json.Unmarshal([]byte(out), &rs))
	byID := make(map[string]achievementRow, len(rs))
	for _, r := range rs {
		byID[r.ID] = r
	}
	return byID
}

func TestStateOnEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	out, _, err := run(t, path, "state")
	require.NoError(t, err)
	assert.Contains(t, out, "first-visit")
	assert.Contains(t, out, "0/50")
	assert.Contains(t, out, "0/7 unlocked")
}

func TestUnlockPersistsAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	_, _, err := run(t, path, "unlock", "first-visit")
	require.NoError(t, err)

	rows := stateJSON(t, path)
	assert.True(t, rows["first-visit"].Unlocked)
	assert.False(t, rows["returning"].Unlocked)
}

func TestProgressAndIncrement(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	_, _, err := run(t, path, "progress", "explorer", "2")
	require.NoError(t, err)
	rows := stateJSON(t, path)
	assert.Equal(t, 2, rows["explorer"].Progress)
	assert.False(t, rows["explorer"].Unlocked)

	_, _, err = run(t, path, "increment", "explorer")
	require.NoError(t, err)
	rows = stateJSON(t, path)
	assert.Equal(t, 3, rows["explorer"].Progress)
	assert.True(t, rows["explorer"].Unlocked)
}

func TestProgressRejectsBadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	_, _, err := run(t, path, "progress", "explorer", "lots")
	assert.ErrorContains(t, err, "integer")

	_, _, err = run(t, path, "progress", "first-visit", "1")
	assert.ErrorContains(t, err, "no progress maximum")

	_, _, err = run(t, path, "unlock", "nope")
	assert.ErrorContains(t, err, "unknown achievement")
}

func TestCollectDeduplicatesItems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	for _, item := range []string{"node-a", "node-b", "node-a"} {
		_, _, err := run(t, path, "collect", "scanner", item)
		require.NoError(t, err)
	}
	rows := stateJSON(t, path)
	assert.Equal(t, []string{"node-a", "node-b"}, rows["scanner"].Items)
	assert.Equal(t, 2, rows["scanner"].Progress)
	assert.True(t, rows["scanner"].Unlocked)
}

func TestResetRequiresConfirmation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	_, _, err := run(t, path, "unlock", "returning")
	require.NoError(t, err)

	_, _, err = run(t, path, "reset")
	assert.ErrorContains(t, err, "--yes")
	assert.True(t, stateJSON(t, path)["returning"].Unlocked)

	_, _, err = run(t, path, "reset", "--yes")
	require.NoError(t, err)
	assert.False(t, stateJSON(t, path)["returning"].Unlocked)
}

func TestVerifyReportsTamperWithoutRepairing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	_, _, err := run(t, path, "unlock", "first-visit")
	require.NoError(t, err)

	out, _, err := run(t, path, "verify")
	require.NoError(t, err)
	assert.Contains(t, out, "unlocked")
	assert.NotContains(t, out, "TAMPERED")

	// edit the stored list behind the engine's back
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var data map[string]string
	require.NoError(t, json.Unmarshal(raw, &data))
	data["unlocked"] = `["first-visit","returning"]`
	raw, err = json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	out, _, err = run(t, path, "verify", "--format", "json")
	require.ErrorIs(t, err, errTampered)
	assert.Contains(t, out, `"intact": false`)

	// verify never rewrites the file
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, raw, after)
}

func TestLoadingTamperedStateWarnsAndResets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	_, _, err := run(t, path, "unlock", "first-visit")
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var data map[string]string
	require.NoError(t, json.Unmarshal(raw, &data))
	data["unlocked:hash"] = "0"
	raw, err = json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	out, stderr, err := run(t, path, "state")
	require.NoError(t, err)
	assert.Contains(t, stderr, "unlocked failed its integrity check")
	assert.Contains(t, out, "0/7 unlocked")
}

func TestNamespaceIsolatesState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	_, _, err := run(t, path, "--namespace", "p1", "unlock", "first-visit")
	require.NoError(t, err)

	assert.False(t, stateJSON(t, path)["first-visit"].Unlocked)

	out, _, err := run(t, path, "--namespace", "p1", "state", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"unlocked": true`)
}

func TestInvalidFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	_, _, err := run(t, path, "state", "--format", "yaml")
	assert.ErrorContains(t, err, "invalid format")
}
