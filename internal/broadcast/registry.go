/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package broadcast

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_radio/internal/sequence"
)

// SequencerBuilder constructs a fresh sequencer from a fresh library scan.
type SequencerBuilder func(sessionID string) *sequence.Sequencer

// Registry is the single process-wide piece of shared mutable state: the
// mapping from session id to its Session. At most one Session object exists
// per id; operations on different sessions never block on each other.
type Registry struct {
	build  SequencerBuilder
	logger zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates a session registry.
func NewRegistry(build SequencerBuilder, logger zerolog.Logger) *Registry {
	return &Registry{
		build:    build,
		logger:   logger.With().Str("component", "registry").Logger(),
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the session for id, creating it with a freshly built
// sequencer on first use.
func (r *Registry) GetOrCreate(id string) *Session {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s
	}
	s = newSession(id, r.build(id))
	r.sessions[id] = s
	r.logger.Info().Str("session_id", id).Msg("session created")
	return s
}

// Get returns the session for id if it exists.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// RebuildSequencer atomically installs a freshly built sequencer for the
// session, discarding all position state. The swap leaves the connection
// phase and any in-flight playback untouched; the next pull simply reflects
// the new library. No-op when the session does not exist yet, since its first
// start scans fresh anyway.
func (r *Registry) RebuildSequencer(id string) {
	s, ok := r.Get(id)
	if !ok {
		return
	}

	seq := r.build(id)

	s.mu.Lock()
	s.sequencer = seq
	s.mu.Unlock()

	r.logger.Info().Str("session_id", id).Msg("sequencer rebuilt")
}

// SessionIDs returns the ids of all known sessions, sorted.
func (r *Registry) SessionIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
