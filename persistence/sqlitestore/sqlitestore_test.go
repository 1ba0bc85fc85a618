package sqlitestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nayeemcharx/discord-mcp-toolkit/persistence"
)

func TestSQLiteStoreBasics(t *testing.T) {
	store, err := New(":memory:")
	require.NoError(t, err)
	defer store.Close()

	sessionID := "test-session"
	ts := time.Date(2025, 4, 1, 9, 30, 0, 123, time.UTC)

	entry := persistence.Entry{
		Tool:      "send_message",
		Arguments: json.RawMessage(`{"channelId":"123"}`),
		Result:    json.RawMessage(`{"success":false,"error":"message parameter is required"}`),
		Success:   false,
		Error:     "message parameter is required",
		Duration:  1500 * time.Microsecond,
		Timestamp: ts,
	}

	id, err := store.AddEntry(sessionID, entry)
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	got, err := store.GetEntry(sessionID, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "send_message", got.Tool)
	assert.JSONEq(t, `{"channelId":"123"}`, string(got.Arguments))
	assert.False(t, got.Success)
	assert.Equal(t, "message parameter is required", got.Error)
	assert.Equal(t, 1500*time.Microsecond, got.Duration)
	assert.True(t, ts.Equal(got.Timestamp))

	_, err = store.GetEntry(sessionID, 99999)
	assert.ErrorIs(t, err, persistence.ErrEntryNotFound)

	entries, err := store.GetEntries(sessionID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSQLiteStoreNilPayloads(t *testing.T) {
	store, err := New(":memory:")
	require.NoError(t, err)
	defer store.Close()

	id, err := store.AddEntry("s", persistence.Entry{Tool: "get_discord_servers", Success: true, Timestamp: time.Now()})
	require.NoError(t, err)

	got, err := store.GetEntry("s", id)
	require.NoError(t, err)
	assert.Equal(t, "null", string(got.Arguments))
	assert.Equal(t, "null", string(got.Result))
	assert.True(t, got.Success)
}

func TestSQLiteStoreOrdering(t *testing.T) {
	store, err := New(":memory:")
	require.NoError(t, err)
	defer store.Close()

	sessionID := "test-session"
	baseTime := time.Now()
	offsets := []time.Duration{3 * time.Second, 1 * time.Second, 2 * time.Second}

	for i, offset := range offsets {
		_, err := store.AddEntry(sessionID, persistence.Entry{
			Tool:      string(rune('A' + i)),
			Success:   true,
			Timestamp: baseTime.Add(offset),
		})
		require.NoError(t, err)
	}

	entries, err := store.GetEntries(sessionID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "B", entries[0].Tool)
	assert.Equal(t, "C", entries[1].Tool)
	assert.Equal(t, "A", entries[2].Tool)
}

func TestSQLiteStoreSessions(t *testing.T) {
	store, err := New(":memory:")
	require.NoError(t, err)
	defer store.Close()

	base := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	add := func(session string, offset time.Duration, ok bool) {
		_, err := store.AddEntry(session, persistence.Entry{Tool: "t", Success: ok, Timestamp: base.Add(offset)})
		require.NoError(t, err)
	}
	add("session-2", time.Hour, true)
	add("session-1", 0, true)
	add("session-1", time.Minute, false)
	add("session-1", 2*time.Minute, false)

	sessions, err := store.ListSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	assert.Equal(t, "session-1", sessions[0].ID)
	assert.Equal(t, 3, sessions[0].Calls)
	assert.Equal(t, 2, sessions[0].Failures)
	assert.True(t, base.Equal(sessions[0].Started))
	assert.True(t, base.Add(2*time.Minute).Equal(sessions[0].LastCall))

	assert.Equal(t, "session-2", sessions[1].ID)
	assert.Equal(t, 1, sessions[1].Calls)
	assert.Zero(t, sessions[1].Failures)

	require.NoError(t, store.DeleteSession("session-1"))
	sessions, err = store.ListSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "session-2", sessions[0].ID)
}

func TestSQLiteStorePersistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	store1, err := New(dbPath)
	require.NoError(t, err)
	id, err := store1.AddEntry("s", persistence.Entry{Tool: "get_discord_servers", Success: true, Timestamp: time.Now()})
	require.NoError(t, err)
	require.NoError(t, store1.Close())

	store2, err := New(dbPath)
	require.NoError(t, err)
	defer store2.Close()

	entries, err := store2.GetEntries("s")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)
	assert.Equal(t, "get_discord_servers", entries[0].Tool)
}

func TestSQLiteStoreFileCreation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "new.db")

	_, err := os.Stat(dbPath)
	assert.True(t, os.IsNotExist(err))

	store, err := New(dbPath)
	require.NoError(t, err)
	defer store.Close()

	info, err := os.Stat(dbPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
