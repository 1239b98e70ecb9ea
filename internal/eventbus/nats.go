/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus bridges the in-process event bus to external messaging
// consumers over NATS.
package eventbus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_radio/internal/events"
)

// SubjectPrefix is prepended to every event type to form the NATS subject.
const SubjectPrefix = "skald.events."

// bridgedEvents is the set of event types republished to NATS. The
// notification stream is what the external messaging layer (chat bot, etc.)
// consumes to deliver user-visible status messages.
var bridgedEvents = []events.EventType{
	events.EventBroadcastStarting,
	events.EventBroadcastLive,
	events.EventBroadcastEnded,
	events.EventBroadcastStopped,
	events.EventPlayoutAdvanced,
	events.EventLibraryAssetAdded,
	events.EventLibraryAssetRemoved,
	events.EventNotification,
}

// NATSBridge republishes in-process events onto NATS subjects.
type NATSBridge struct {
	conn   *nats.Conn
	bus    *events.Bus
	logger zerolog.Logger
}

// NewNATSBridge connects to NATS and returns a bridge ready to start.
func NewNATSBridge(url string, bus *events.Bus, logger zerolog.Logger) (*NATSBridge, error) {
	conn, err := nats.Connect(url,
		nats.Name("skald-radio"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, err
	}

	return &NATSBridge{
		conn:   conn,
		bus:    bus,
		logger: logger.With().Str("component", "nats_bridge").Logger(),
	}, nil
}

// Start republishes events until context cancellation. Blocks; run in a
// goroutine.
func (b *NATSBridge) Start(ctx context.Context) {
	subs := make(map[events.EventType]events.Subscriber, len(bridgedEvents))
	cases := make([]events.Subscriber, 0, len(bridgedEvents))
	for _, et := range bridgedEvents {
		sub := b.bus.Subscribe(et)
		subs[et] = sub
		cases = append(cases, sub)
	}
	defer func() {
		for et, sub := range subs {
			b.bus.Unsubscribe(et, sub)
		}
	}()

	b.logger.Info().Msg("nats bridge started")

	// One forwarding goroutine per subscription keeps a slow subject from
	// stalling the others.
	done := make(chan struct{})
	for i, et := range bridgedEvents {
		go b.forward(ctx, et, cases[i], done)
	}

	<-ctx.Done()
	close(done)
	b.logger.Info().Msg("nats bridge stopping")
}

func (b *NATSBridge) forward(ctx context.Context, eventType events.EventType, sub events.Subscriber, done chan struct{}) {
	subject := SubjectPrefix + string(eventType)
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case payload, ok := <-sub:
			if !ok {
				return
			}
			data, err := json.Marshal(payload)
			if err != nil {
				continue
			}
			if err := b.conn.Publish(subject, data); err != nil {
				b.logger.Debug().Err(err).Str("subject", subject).Msg("nats publish failed")
			}
		}
	}
}

// Close drains and closes the NATS connection.
func (b *NATSBridge) Close() {
	if b.conn != nil {
		if err := b.conn.Drain(); err != nil {
			b.conn.Close()
		}
	}
}
