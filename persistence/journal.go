// Package persistence provides storage interfaces for the tool-call journal.
package persistence

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrEntryNotFound is returned when a journal entry does not exist.
var ErrEntryNotFound = errors.New("journal entry not found")

// Entry is one tools/call as seen by the server.
type Entry struct {
	ID        int64           `json:"id"`
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments"`
	Result    json.RawMessage `json:"result"`
	Success   bool            `json:"success"`
	Error     string          `json:"error,omitzero"`
	Duration  time.Duration   `json:"duration"`
	Timestamp time.Time       `json:"timestamp"`
}

// Session summarizes the calls made during one server run.
type Session struct {
	ID       string    `json:"id"`
	Calls    int       `json:"calls"`
	Failures int       `json:"failures"`
	Started  time.Time `json:"started"`
	LastCall time.Time `json:"last_call"`
}

// Journal defines the interface for persisting tool calls.
type Journal interface {
	// AddEntry appends an entry to a session and returns its assigned ID.
	AddEntry(sessionID string, entry Entry) (int64, error)

	// GetEntry retrieves a single entry by ID.
	GetEntry(sessionID string, id int64) (Entry, error)

	// GetEntries retrieves all entries of a session in call order.
	GetEntries(sessionID string) ([]Entry, error)

	// ListSessions summarizes every session, oldest first.
	ListSessions() ([]Session, error)

	// DeleteSession removes all entries for a session.
	DeleteSession(sessionID string) error

	// Close closes the journal and releases resources.
	Close() error
}

// Summarize folds entries of one session into a Session.
func Summarize(sessionID string, entries []Entry) Session {
	s := Session{ID: sessionID, Calls: len(entries)}
	for i, e := range entries {
		if !e.Success {
			s.Failures++
		}
		if i == 0 || e.Timestamp.Before(s.Started) {
			s.Started = e.Timestamp
		}
		if e.Timestamp.After(s.LastCall) {
			s.LastCall = e.Timestamp
		}
	}
	return s
}

type sessionData struct {
	entries []Entry
	nextID  int64
}

// MemoryJournal provides an in-memory implementation of Journal.
type MemoryJournal struct {
	mu       sync.Mutex
	sessions map[string]*sessionData
}

var _ Journal = (*MemoryJournal)(nil)

// NewMemoryJournal creates a new in-memory journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{
		sessions: make(map[string]*sessionData),
	}
}

// AddEntry adds an entry and returns its assigned ID.
func (m *MemoryJournal) AddEntry(sessionID string, entry Entry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		sess = &sessionData{nextID: 1}
		m.sessions[sessionID] = sess
	}
	entry.ID = sess.nextID
	sess.nextID++
	sess.entries = append(sess.entries, entry)
	return entry.ID, nil
}

func (m *MemoryJournal) GetEntry(sessionID string, id int64) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[sessionID]; ok {
		for _, e := range sess.entries {
			if e.ID == id {
				return e, nil
			}
		}
	}
	return Entry{}, ErrEntryNotFound
}

// GetEntries returns a copy of the session's entries.
func (m *MemoryJournal) GetEntries(sessionID string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	result := make([]Entry, len(sess.entries))
	copy(result, sess.entries)
	return result, nil
}

func (m *MemoryJournal) ListSessions() ([]Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions := make([]Session, 0, len(m.sessions))
	for id, sess := range m.sessions {
		sessions = append(sessions, Summarize(id, sess.entries))
	}
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].Started.Equal(sessions[j].Started) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].Started.Before(sessions[j].Started)
	})
	return sessions, nil
}

func (m *MemoryJournal) DeleteSession(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sessionID)
	return nil
}

// Close is a no-op for the in-memory journal.
func (m *MemoryJournal) Close() error {
	return nil
}
