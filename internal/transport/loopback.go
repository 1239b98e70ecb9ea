/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package transport carries development implementations of the voice
// transport boundary. Production deployments plug in a real voice stack.
package transport

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Loopback accepts every instruction and confirms connectivity
// asynchronously through OnConnectivity, so the broadcast state machine can
// be exercised end to end without a real voice layer.
type Loopback struct {
	logger zerolog.Logger

	// OnConnectivity is invoked from a fresh goroutine after the first
	// successful Connect for a session. Wired to the broadcast controller
	// by the caller; nil disables the callback.
	OnConnectivity func(sessionID string, connected bool)

	mu        sync.Mutex
	connected map[string]bool
}

// NewLoopback creates a loopback transport.
func NewLoopback(logger zerolog.Logger) *Loopback {
	return &Loopback{
		logger:    logger.With().Str("component", "loopback_transport").Logger(),
		connected: make(map[string]bool),
	}
}

// Connect accepts the connect instruction and reports connectivity up.
func (l *Loopback) Connect(ctx context.Context, sessionID, assetPath string) error {
	l.mu.Lock()
	already := l.connected[sessionID]
	l.connected[sessionID] = true
	l.mu.Unlock()

	l.logger.Info().
		Str("session_id", sessionID).
		Str("asset", assetPath).
		Msg("loopback connect")

	if !already && l.OnConnectivity != nil {
		go l.OnConnectivity(sessionID, true)
	}
	return nil
}

// Disconnect drops the recorded connection.
func (l *Loopback) Disconnect(ctx context.Context, sessionID string) error {
	l.mu.Lock()
	delete(l.connected, sessionID)
	l.mu.Unlock()

	l.logger.Info().Str("session_id", sessionID).Msg("loopback disconnect")
	return nil
}

// RestartPlayback accepts the restart instruction.
func (l *Loopback) RestartPlayback(ctx context.Context, sessionID, assetPath string) error {
	l.logger.Info().
		Str("session_id", sessionID).
		Str("asset", assetPath).
		Msg("loopback restart playback")
	return nil
}
