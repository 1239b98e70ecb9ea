/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package broadcast

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_radio/internal/events"
	"github.com/friendsincode/skald_radio/internal/telemetry"
)

// Transport is the boundary to the external voice/broadcast layer. Connect
// and RestartPlayback may block on I/O; the controller never calls them while
// holding a session lock.
type Transport interface {
	Connect(ctx context.Context, sessionID, assetPath string) error
	Disconnect(ctx context.Context, sessionID string) error
	RestartPlayback(ctx context.Context, sessionID, assetPath string) error
}

// ErrNoVoiceChannel is returned by Transport.Connect when the group has no
// open voice channel to broadcast into.
var ErrNoVoiceChannel = errors.New("no active voice channel")

// User-visible status messages handed to the messaging layer.
const (
	MsgOnAir          = "We are on the air!"
	MsgEnded          = "Broadcast is over, thank you all."
	MsgNoVoiceChannel = "Start a voice channel to be able to start the radio."
	MsgStartFailed    = "Something went wrong while starting the radio."
)

// Controller reacts to start/stop requests and transport events, driving
// session phase transitions and pulling from the session's sequencer.
type Controller struct {
	registry  *Registry
	transport Transport
	bus       *events.Bus
	debounce  time.Duration
	logger    zerolog.Logger
}

// NewController creates a broadcast controller.
func NewController(registry *Registry, transport Transport, bus *events.Bus, debounce time.Duration, logger zerolog.Logger) *Controller {
	return &Controller{
		registry:  registry,
		transport: transport,
		bus:       bus,
		debounce:  debounce,
		logger:    logger.With().Str("component", "controller").Logger(),
	}
}

// StartBroadcast handles a start request. Idle sessions pull their first
// asset and move to Connecting; Connecting/Live sessions only re-ensure the
// transport connection (idempotent start).
func (c *Controller) StartBroadcast(ctx context.Context, sessionID string) error {
	s := c.registry.GetOrCreate(sessionID)

	s.mu.Lock()
	switch s.phase {
	case PhaseStopping:
		s.mu.Unlock()
		return nil

	case PhaseConnecting, PhaseLive:
		asset := s.current
		s.mu.Unlock()
		if asset == nil {
			return nil
		}
		return c.connect(ctx, s, asset.Path)

	default: // PhaseIdle
		asset := s.pull()
		s.phase = PhaseConnecting
		s.mu.Unlock()

		telemetry.PhaseTransitions.WithLabelValues(string(PhaseConnecting)).Inc()
		c.bus.Publish(events.EventBroadcastStarting, events.Payload{
			"session_id": sessionID,
			"asset":      asset.Path,
		})
		c.logger.Info().Str("session_id", sessionID).Str("asset", asset.Path).Msg("starting broadcast")

		return c.connect(ctx, s, asset.Path)
	}
}

// connect issues the transport connect and reverts the session to Idle on
// failure, with the "no voice channel" condition surfaced as an actionable
// message.
func (c *Controller) connect(ctx context.Context, s *Session, assetPath string) error {
	err := c.transport.Connect(ctx, s.id, assetPath)
	if err == nil {
		return nil
	}

	s.mu.Lock()
	s.phase = PhaseIdle
	s.mu.Unlock()

	c.logger.Error().Err(err).Str("session_id", s.id).Msg("transport connect failed")
	if errors.Is(err, ErrNoVoiceChannel) {
		c.notify(s.id, MsgNoVoiceChannel)
	} else {
		c.notify(s.id, MsgStartFailed)
	}
	return err
}

// StopBroadcast handles an explicit stop request. No "ended" notification is
// sent: the caller asked for this, unlike a connectivity drop. Stop while
// Idle is a no-op.
func (c *Controller) StopBroadcast(ctx context.Context, sessionID string) error {
	s, ok := c.registry.Get(sessionID)
	if !ok {
		return nil
	}

	s.mu.Lock()
	if s.phase == PhaseIdle || s.phase == PhaseStopping {
		s.mu.Unlock()
		return nil
	}
	wasLive := s.phase == PhaseLive
	s.phase = PhaseStopping
	s.mu.Unlock()

	err := c.transport.Disconnect(ctx, sessionID)
	if err != nil {
		c.logger.Error().Err(err).Str("session_id", sessionID).Msg("transport disconnect failed")
	}

	s.mu.Lock()
	s.phase = PhaseIdle
	s.mu.Unlock()

	if wasLive {
		telemetry.SessionsLive.Dec()
	}
	telemetry.PhaseTransitions.WithLabelValues(string(PhaseIdle)).Inc()
	c.bus.Publish(events.EventBroadcastStopped, events.Payload{"session_id": sessionID})
	c.logger.Info().Str("session_id", sessionID).Msg("broadcast stopped")
	return err
}

// PlayoutEnded handles the transport reporting the current asset finished.
// The next asset is pulled from whatever sequencer the session holds right
// now, so a hot-swap between pulls is transparently picked up. Stray events
// after a stop are discarded by the phase check.
func (c *Controller) PlayoutEnded(ctx context.Context, sessionID, finishedPath string) {
	s, ok := c.registry.Get(sessionID)
	if !ok {
		return
	}

	s.mu.Lock()
	if s.phase != PhaseLive {
		s.mu.Unlock()
		c.logger.Debug().
			Str("session_id", sessionID).
			Str("finished", finishedPath).
			Msg("playout ended ignored: session not live")
		return
	}
	next := s.pull()
	s.mu.Unlock()

	c.logger.Info().
		Str("session_id", sessionID).
		Str("next", next.Path).
		Msg("playout ended, advancing")

	if err := c.transport.RestartPlayback(ctx, sessionID, next.Path); err != nil {
		c.logger.Error().Err(err).Str("session_id", sessionID).Msg("restart playback failed")
	}

	telemetry.AssetsEmitted.WithLabelValues(string(next.Kind)).Inc()
	c.bus.Publish(events.EventPlayoutAdvanced, events.Payload{
		"session_id": sessionID,
		"kind":       string(next.Kind),
		"name":       next.Name(),
		"path":       next.Path,
	})

	// Debounce so pathologically short or instantly failing assets cannot
	// turn playout-ended into a tight restart loop.
	if c.debounce > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(c.debounce):
		}
	}
}

// ConnectivityChanged handles the transport's connectivity signal. Gaining
// connectivity while Connecting goes Live; losing it while Connecting/Live
// drops straight to Idle with an "ended" notification, and reconnecting takes
// a new explicit start request.
func (c *Controller) ConnectivityChanged(ctx context.Context, sessionID string, connected bool) {
	s, ok := c.registry.Get(sessionID)
	if !ok {
		return
	}

	if connected {
		s.mu.Lock()
		if s.phase != PhaseConnecting {
			s.mu.Unlock()
			return
		}
		s.phase = PhaseLive
		s.mu.Unlock()

		telemetry.SessionsLive.Inc()
		telemetry.PhaseTransitions.WithLabelValues(string(PhaseLive)).Inc()
		c.bus.Publish(events.EventBroadcastLive, events.Payload{"session_id": sessionID})
		c.notify(sessionID, MsgOnAir)
		c.logger.Info().Str("session_id", sessionID).Msg("broadcast live")
		return
	}

	s.mu.Lock()
	if s.phase != PhaseLive && s.phase != PhaseConnecting {
		s.mu.Unlock()
		return
	}
	wasLive := s.phase == PhaseLive
	s.phase = PhaseIdle
	s.mu.Unlock()

	if err := c.transport.Disconnect(ctx, sessionID); err != nil {
		c.logger.Debug().Err(err).Str("session_id", sessionID).Msg("disconnect after connectivity loss failed")
	}

	if wasLive {
		telemetry.SessionsLive.Dec()
	}
	telemetry.PhaseTransitions.WithLabelValues(string(PhaseIdle)).Inc()
	c.bus.Publish(events.EventBroadcastEnded, events.Payload{"session_id": sessionID})
	c.notify(sessionID, MsgEnded)
	c.logger.Info().Str("session_id", sessionID).Msg("broadcast ended: connectivity lost")
}

func (c *Controller) notify(sessionID, text string) {
	c.bus.Publish(events.EventNotification, events.Payload{
		"session_id": sessionID,
		"text":       text,
	})
}
