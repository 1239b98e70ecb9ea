/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package broadcast holds the per-session runtime state machine and the
// controller reacting to command and transport events.
package broadcast

import (
	"sync"

	"github.com/friendsincode/skald_radio/internal/library"
	"github.com/friendsincode/skald_radio/internal/sequence"
)

// Phase is a session's connection phase.
type Phase string

const (
	// PhaseIdle: no transport connection. There is no automatic reconnect;
	// leaving Idle always takes an explicit start request.
	PhaseIdle Phase = "idle"

	// PhaseConnecting: connection requested, not yet confirmed.
	PhaseConnecting Phase = "connecting"

	// PhaseLive: connected and actively instructing playback.
	PhaseLive Phase = "live"

	// PhaseStopping: disconnect in flight after an explicit stop.
	PhaseStopping Phase = "stopping"
)

// Session is one group's broadcast runtime state. The mutex linearizes every
// read-then-write of phase, sequencer, and current asset for this session;
// transport I/O happens outside it. The sequencer field is hot-swapped when
// the library changes, without touching the phase or any in-flight connection.
type Session struct {
	id string

	mu        sync.Mutex
	phase     Phase
	sequencer *sequence.Sequencer
	current   *library.AssetRef
}

func newSession(id string, seq *sequence.Sequencer) *Session {
	return &Session{id: id, phase: PhaseIdle, sequencer: seq}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Phase returns the current connection phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Current returns the asset most recently handed to the transport, if any.
func (s *Session) Current() (library.AssetRef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return library.AssetRef{}, false
	}
	return *s.current, true
}

// pull takes the next asset from the session's current sequencer and records
// it as the in-flight asset. Callers must hold s.mu.
func (s *Session) pull() library.AssetRef {
	next := s.sequencer.Next()
	s.current = &next
	return next
}
