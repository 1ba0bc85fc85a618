package persistence

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryJournalAddAndGet(t *testing.T) {
	j := NewMemoryJournal()
	defer j.Close()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	id1, err := j.AddEntry("s1", Entry{Tool: "get_discord_servers", Arguments: json.RawMessage(`{}`), Success: true, Timestamp: now})
	require.NoError(t, err)
	id2, err := j.AddEntry("s1", Entry{Tool: "send_message", Success: false, Error: "message parameter is required", Timestamp: now.Add(time.Second)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id1)
	assert.Equal(t, int64(2), id2)

	entries, err := j.GetEntries("s1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "get_discord_servers", entries[0].Tool)
	assert.Equal(t, "send_message", entries[1].Tool)

	e, err := j.GetEntry("s1", id2)
	require.NoError(t, err)
	assert.Equal(t, "message parameter is required", e.Error)

	_, err = j.GetEntry("s1", 99)
	assert.ErrorIs(t, err, ErrEntryNotFound)

	entries[0].Tool = "mutated"
	again, err := j.GetEntries("s1")
	require.NoError(t, err)
	assert.Equal(t, "get_discord_servers", again[0].Tool)
}

func TestMemoryJournalSessions(t *testing.T) {
	j := NewMemoryJournal()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := j.AddEntry("later", Entry{Tool: "a", Success: true, Timestamp: base.Add(time.Hour)})
	require.NoError(t, err)
	_, err = j.AddEntry("earlier", Entry{Tool: "a", Success: true, Timestamp: base})
	require.NoError(t, err)
	_, err = j.AddEntry("earlier", Entry{Tool: "b", Success: false, Timestamp: base.Add(time.Minute)})
	require.NoError(t, err)

	sessions, err := j.ListSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "earlier", sessions[0].ID)
	assert.Equal(t, 2, sessions[0].Calls)
	assert.Equal(t, 1, sessions[0].Failures)
	assert.Equal(t, base, sessions[0].Started)
	assert.Equal(t, base.Add(time.Minute), sessions[0].LastCall)
	assert.Equal(t, "later", sessions[1].ID)

	require.NoError(t, j.DeleteSession("earlier"))
	sessions, err = j.ListSessions()
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	entries, err := j.GetEntries("earlier")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize("none", nil)
	assert.Equal(t, "none", s.ID)
	assert.Zero(t, s.Calls)
	assert.True(t, s.Started.IsZero())
}
