// Package session provides the play-along session manager.
package session

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/hmuro/playalong/internal/app/playalong"
	"github.com/hmuro/playalong/internal/domain/segment"
	"github.com/hmuro/playalong/internal/domain/song"
	"github.com/hmuro/playalong/internal/infra/history"
)

var (
	ErrNoSong        = errors.New("no song loaded")
	ErrStaleFragment = errors.New("fragment addressed to a previous song")
)

// Snapshot is a read-only view of the session for rendering collaborators.
type Snapshot struct {
	SongTitle  string `json:"songTitle"`
	Generation int    `json:"generation"`
	Position   int    `json:"position"`
	Total      int    `json:"total"`
	Done       bool   `json:"done"`
}

// Manager owns the active song, its flattened segments, and the cursor.
// Detection fragments have exactly one writer path and are applied in
// arrival order under the manager's lock.
type Manager struct {
	mu sync.RWMutex

	rec      *song.Record
	segments []segment.Segment
	cursor   *playalong.Cursor

	// generation increments on every Load. Fragments carrying a stale
	// generation are discarded: selecting a new song is a cancellation
	// boundary for anything addressed to the previous segment list.
	generation int

	completed bool

	store   *history.Store
	eventCh chan Event
}

// NewManager creates a session manager. store may be nil when history
// persistence is not wanted (CLI one-shot usage).
func NewManager(store *history.Store) *Manager {
	return &Manager{
		store:   store,
		eventCh: make(chan Event, 16),
	}
}

// Events returns the event channel.
func (m *Manager) Events() <-chan Event {
	return m.eventCh
}

// Load replaces the active song: the record is flattened, a fresh
// cursor is created at position 0, and the generation advances so that
// in-flight fragments for the previous song are discarded. The record
// is also appended to the history store.
func (m *Manager) Load(ctx context.Context, rec *song.Record) (Snapshot, error) {
	m.mu.Lock()
	m.rec = rec
	m.segments = segment.Flatten(rec)
	m.cursor = playalong.New(m.segments)
	m.generation++
	m.completed = false
	snap := m.snapshotLocked()
	total := len(m.segments)
	m.mu.Unlock()

	if m.store != nil {
		if _, err := m.store.Append(ctx, rec); err != nil {
			// History is best-effort; the session itself is already loaded.
			zlog.Warn().Err(err).Str("title", rec.Title).Msg("failed to record song in history")
		}
	}

	zlog.Info().Str("title", rec.Title).Int("segments", total).Msg("song loaded")
	m.sendEvent(Event{Type: EventSongLoaded, Snapshot: snap})
	return snap, nil
}

// HandleFragment applies a detection fragment to the current song.
func (m *Manager) HandleFragment(text string) (Snapshot, error) {
	m.mu.RLock()
	gen := m.generation
	m.mu.RUnlock()
	return m.FeedFragment(gen, text)
}

// FeedFragment applies a detection fragment stamped with the generation
// it was produced against. Stale fragments are rejected without
// touching the cursor.
func (m *Manager) FeedFragment(gen int, text string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cursor == nil {
		return Snapshot{}, ErrNoSong
	}
	if gen != m.generation {
		return m.snapshotLocked(), ErrStaleFragment
	}

	moved := m.cursor.Feed(text)
	snap := m.snapshotLocked()

	if moved > 0 {
		zlog.Debug().Int("moved", moved).Int("position", snap.Position).Msg("cursor advanced")
		m.sendEvent(Event{Type: EventAdvanced, Snapshot: snap})
	}
	if snap.Done && !m.completed {
		m.completed = true
		m.sendEvent(Event{Type: EventCompleted, Snapshot: snap})
	}
	return snap, nil
}

// Snapshot returns the current session view.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// Song returns the active record, or nil when nothing is loaded.
func (m *Manager) Song() *song.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rec
}

// Segments returns a copy of the active segment list.
func (m *Manager) Segments() []segment.Segment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]segment.Segment, len(m.segments))
	copy(out, m.segments)
	return out
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{Generation: m.generation}
	if m.rec != nil {
		snap.SongTitle = m.rec.Title
	}
	if m.cursor != nil {
		snap.Position = m.cursor.Position()
		snap.Total = m.cursor.Len()
		snap.Done = m.cursor.Done()
	}
	return snap
}

// sendEvent delivers an event without blocking the caller; slow
// consumers lose events rather than stalling detection handling.
func (m *Manager) sendEvent(ev Event) {
	select {
	case m.eventCh <- ev:
	default:
		zlog.Warn().Str("type", ev.Type.String()).Msg("event channel full, dropping event")
	}
}
