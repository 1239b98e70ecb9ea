/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_radio/internal/events"
	"github.com/friendsincode/skald_radio/internal/library"
	"github.com/friendsincode/skald_radio/internal/sequence"
)

type fakeTransport struct {
	mu          sync.Mutex
	connectErr  error
	connects    []string
	disconnects []string
	restarts    []string
}

func (f *fakeTransport) Connect(ctx context.Context, sessionID, assetPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects = append(f.connects, assetPath)
	return f.connectErr
}

func (f *fakeTransport) Disconnect(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects = append(f.disconnects, sessionID)
	return nil
}

func (f *fakeTransport) RestartPlayback(ctx context.Context, sessionID, assetPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restarts = append(f.restarts, assetPath)
	return nil
}

func trackRefs(names ...string) []library.AssetRef {
	out := make([]library.AssetRef, 0, len(names))
	for _, n := range names {
		out = append(out, library.AssetRef{
			SessionID: "42",
			Kind:      library.KindTrack,
			Path:      "/data/42/tracks/" + n + library.CanonicalSuffix,
		})
	}
	return out
}

func trackBuilder(names ...string) SequencerBuilder {
	return func(sessionID string) *sequence.Sequencer {
		// Single-track pools keep shuffle order deterministic.
		return sequence.New(&library.Library{
			SessionID: sessionID,
			Tracks:    trackRefs(names...),
		}, "/data/default.raw")
	}
}

func newTestController(t *testing.T, builder SequencerBuilder) (*Controller, *Registry, *fakeTransport, events.Subscriber) {
	t.Helper()
	bus := events.NewBus()
	registry := NewRegistry(builder, zerolog.Nop())
	transport := &fakeTransport{}
	c := NewController(registry, transport, bus, 0, zerolog.Nop())
	return c, registry, transport, bus.Subscribe(events.EventNotification)
}

func drainNotifications(sub events.Subscriber) []string {
	var texts []string
	for {
		select {
		case p := <-sub:
			texts = append(texts, p["text"].(string))
		default:
			return texts
		}
	}
}

func TestStartBroadcast_IdleToConnecting(t *testing.T) {
	c, registry, transport, _ := newTestController(t, trackBuilder("a"))

	if err := c.StartBroadcast(context.Background(), "42"); err != nil {
		t.Fatalf("StartBroadcast: %v", err)
	}

	s, ok := registry.Get("42")
	if !ok {
		t.Fatal("session not created")
	}
	if got := s.Phase(); got != PhaseConnecting {
		t.Fatalf("phase %q want %q", got, PhaseConnecting)
	}
	if len(transport.connects) != 1 || transport.connects[0] != "/data/42/tracks/a.raw" {
		t.Fatalf("connects: %v", transport.connects)
	}
	if cur, ok := s.Current(); !ok || cur.Name() != "a" {
		t.Fatalf("current: %v %v", cur, ok)
	}
}

func TestStartBroadcast_IdempotentWhileLive(t *testing.T) {
	c, registry, transport, sub := newTestController(t, trackBuilder("a"))
	ctx := context.Background()

	if err := c.StartBroadcast(ctx, "42"); err != nil {
		t.Fatalf("StartBroadcast: %v", err)
	}
	c.ConnectivityChanged(ctx, "42", true)

	s, _ := registry.Get("42")
	if got := s.Phase(); got != PhaseLive {
		t.Fatalf("phase %q want %q", got, PhaseLive)
	}
	if got := drainNotifications(sub); len(got) != 1 || got[0] != MsgOnAir {
		t.Fatalf("notifications: %v", got)
	}

	// A second start must not pull a new asset, only re-ensure the connection.
	if err := c.StartBroadcast(ctx, "42"); err != nil {
		t.Fatalf("second StartBroadcast: %v", err)
	}
	if len(transport.connects) != 2 {
		t.Fatalf("connects: %v", transport.connects)
	}
	if transport.connects[1] != transport.connects[0] {
		t.Fatalf("repeat start changed asset: %v", transport.connects)
	}
	if cur, _ := s.Current(); cur.Name() != "a" {
		t.Fatalf("current advanced on repeat start: %v", cur)
	}
}

func TestStartBroadcast_NoVoiceChannel(t *testing.T) {
	c, registry, transport, sub := newTestController(t, trackBuilder("a"))
	transport.connectErr = ErrNoVoiceChannel

	err := c.StartBroadcast(context.Background(), "42")
	if !errors.Is(err, ErrNoVoiceChannel) {
		t.Fatalf("got %v, want ErrNoVoiceChannel", err)
	}

	s, _ := registry.Get("42")
	if got := s.Phase(); got != PhaseIdle {
		t.Fatalf("phase %q want %q after failed connect", got, PhaseIdle)
	}
	if got := drainNotifications(sub); len(got) != 1 || got[0] != MsgNoVoiceChannel {
		t.Fatalf("notifications: %v", got)
	}
}

func TestStartBroadcast_GenericConnectFailure(t *testing.T) {
	c, _, transport, sub := newTestController(t, trackBuilder("a"))
	transport.connectErr = errors.New("dial tcp: refused")

	if err := c.StartBroadcast(context.Background(), "42"); err == nil {
		t.Fatal("expected error")
	}
	if got := drainNotifications(sub); len(got) != 1 || got[0] != MsgStartFailed {
		t.Fatalf("notifications: %v", got)
	}
}

func TestStopBroadcast_WhileIdleIsNoOp(t *testing.T) {
	c, _, transport, sub := newTestController(t, trackBuilder("a"))

	if err := c.StopBroadcast(context.Background(), "42"); err != nil {
		t.Fatalf("StopBroadcast: %v", err)
	}
	if len(transport.disconnects) != 0 {
		t.Fatalf("disconnects: %v", transport.disconnects)
	}
	if got := drainNotifications(sub); len(got) != 0 {
		t.Fatalf("notifications: %v", got)
	}
}

func TestStopBroadcast_LiveSendsNoEndedMessage(t *testing.T) {
	c, registry, transport, sub := newTestController(t, trackBuilder("a"))
	ctx := context.Background()

	c.StartBroadcast(ctx, "42")
	c.ConnectivityChanged(ctx, "42", true)
	drainNotifications(sub)

	if err := c.StopBroadcast(ctx, "42"); err != nil {
		t.Fatalf("StopBroadcast: %v", err)
	}

	s, _ := registry.Get("42")
	if got := s.Phase(); got != PhaseIdle {
		t.Fatalf("phase %q want %q", got, PhaseIdle)
	}
	if len(transport.disconnects) != 1 {
		t.Fatalf("disconnects: %v", transport.disconnects)
	}
	// Explicit stop is caller-initiated, so no farewell is sent.
	if got := drainNotifications(sub); len(got) != 0 {
		t.Fatalf("notifications: %v", got)
	}
}

func TestPlayoutEnded_AdvancesSequence(t *testing.T) {
	c, _, transport, _ := newTestController(t, trackBuilder("a"))
	ctx := context.Background()

	c.StartBroadcast(ctx, "42")
	c.ConnectivityChanged(ctx, "42", true)

	c.PlayoutEnded(ctx, "42", "/data/42/tracks/a.raw")
	if len(transport.restarts) != 1 || transport.restarts[0] != "/data/42/tracks/a.raw" {
		t.Fatalf("restarts: %v", transport.restarts)
	}
}

func TestPlayoutEnded_IgnoredWhenNotLive(t *testing.T) {
	c, registry, transport, _ := newTestController(t, trackBuilder("a"))
	ctx := context.Background()

	c.StartBroadcast(ctx, "42")
	c.ConnectivityChanged(ctx, "42", true)
	c.StopBroadcast(ctx, "42")

	// A stray completion arriving after the stop must not restart anything.
	c.PlayoutEnded(ctx, "42", "/data/42/tracks/a.raw")
	if len(transport.restarts) != 0 {
		t.Fatalf("restarts: %v", transport.restarts)
	}
	s, _ := registry.Get("42")
	if got := s.Phase(); got != PhaseIdle {
		t.Fatalf("phase %q want %q", got, PhaseIdle)
	}
}

func TestPlayoutEnded_UnknownSession(t *testing.T) {
	c, _, transport, _ := newTestController(t, trackBuilder("a"))

	c.PlayoutEnded(context.Background(), "nope", "/x.raw")
	if len(transport.restarts) != 0 {
		t.Fatalf("restarts: %v", transport.restarts)
	}
}

func TestConnectivityLost_EndsBroadcastOnce(t *testing.T) {
	c, registry, transport, sub := newTestController(t, trackBuilder("a"))
	ctx := context.Background()

	c.StartBroadcast(ctx, "42")
	c.ConnectivityChanged(ctx, "42", true)
	drainNotifications(sub)

	c.ConnectivityChanged(ctx, "42", false)

	s, _ := registry.Get("42")
	if got := s.Phase(); got != PhaseIdle {
		t.Fatalf("phase %q want %q", got, PhaseIdle)
	}
	if len(transport.disconnects) != 1 {
		t.Fatalf("disconnects: %v", transport.disconnects)
	}
	if got := drainNotifications(sub); len(got) != 1 || got[0] != MsgEnded {
		t.Fatalf("notifications: %v", got)
	}

	// A duplicate loss signal while already Idle changes nothing.
	c.ConnectivityChanged(ctx, "42", false)
	if got := drainNotifications(sub); len(got) != 0 {
		t.Fatalf("duplicate loss notified: %v", got)
	}

	// A stray completion for the dropped session issues no instruction.
	c.PlayoutEnded(ctx, "42", "/data/42/tracks/a.raw")
	if len(transport.restarts) != 0 {
		t.Fatalf("restarts after connectivity loss: %v", transport.restarts)
	}
}

func TestConnectivityGained_IgnoredWhileIdle(t *testing.T) {
	c, registry, _, sub := newTestController(t, trackBuilder("a"))

	registry.GetOrCreate("42")
	c.ConnectivityChanged(context.Background(), "42", true)

	s, _ := registry.Get("42")
	if got := s.Phase(); got != PhaseIdle {
		t.Fatalf("phase %q want %q", got, PhaseIdle)
	}
	if got := drainNotifications(sub); len(got) != 0 {
		t.Fatalf("notifications: %v", got)
	}
}

func TestRebuildSequencer_HotSwapPicksUpNewLibrary(t *testing.T) {
	tracks := []string{"old"}
	builder := func(sessionID string) *sequence.Sequencer {
		return sequence.New(&library.Library{
			SessionID: sessionID,
			Tracks:    trackRefs(tracks...),
		}, "/data/default.raw")
	}
	c, registry, transport, _ := newTestController(t, builder)
	ctx := context.Background()

	c.StartBroadcast(ctx, "42")
	c.ConnectivityChanged(ctx, "42", true)

	tracks = []string{"new"}
	registry.RebuildSequencer("42")

	s, _ := registry.Get("42")
	if got := s.Phase(); got != PhaseLive {
		t.Fatalf("rebuild changed phase to %q", got)
	}

	c.PlayoutEnded(ctx, "42", "/data/42/tracks/old.raw")
	if len(transport.restarts) != 1 || transport.restarts[0] != "/data/42/tracks/new.raw" {
		t.Fatalf("restarts: %v", transport.restarts)
	}
}

func TestRebuildSequencer_ConcurrentWithPlayoutAdvance(t *testing.T) {
	c, registry, transport, _ := newTestController(t, trackBuilder("a", "b"))
	ctx := context.Background()

	c.StartBroadcast(ctx, "42")
	c.ConnectivityChanged(ctx, "42", true)

	const advancers = 8
	const rounds = 50

	var wg sync.WaitGroup
	for i := 0; i < advancers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				c.PlayoutEnded(ctx, "42", "/data/42/tracks/a.raw")
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				registry.RebuildSequencer("42")
			}
		}()
	}
	wg.Wait()

	s, _ := registry.Get("42")
	if got := s.Phase(); got != PhaseLive {
		t.Fatalf("phase %q want %q", got, PhaseLive)
	}

	// Every advance must have handed a real library asset to the transport,
	// no matter how the rebuilds interleaved.
	transport.mu.Lock()
	defer transport.mu.Unlock()
	if len(transport.restarts) != advancers*rounds {
		t.Fatalf("restarts %d want %d", len(transport.restarts), advancers*rounds)
	}
	for _, path := range transport.restarts {
		if path != "/data/42/tracks/a.raw" && path != "/data/42/tracks/b.raw" {
			t.Fatalf("unexpected asset %q", path)
		}
	}
}

func TestRebuildSequencer_UnknownSessionIsNoOp(t *testing.T) {
	_, registry, _, _ := newTestController(t, trackBuilder("a"))
	registry.RebuildSequencer("nope")
	if ids := registry.SessionIDs(); len(ids) != 0 {
		t.Fatalf("rebuild created a session: %v", ids)
	}
}
