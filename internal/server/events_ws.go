/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	ws "nhooyr.io/websocket"

	"github.com/friendsincode/skald_radio/internal/events"
	"github.com/friendsincode/skald_radio/internal/telemetry"
)

// streamedEvents is the set of event types pushed to websocket clients.
var streamedEvents = []events.EventType{
	events.EventBroadcastStarting,
	events.EventBroadcastLive,
	events.EventBroadcastEnded,
	events.EventBroadcastStopped,
	events.EventPlayoutAdvanced,
	events.EventLibraryAssetAdded,
	events.EventLibraryAssetRemoved,
	events.EventNotification,
}

type wsEvent struct {
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   events.Payload `json:"payload"`
}

// handleEventsWS streams bus events to a websocket client until it goes away.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	// Downgraded to a normal closure on the clean exit paths below; the
	// error status only survives a panic or an early return.
	closeStatus, closeReason := ws.StatusInternalError, "server error"
	defer func() { conn.Close(closeStatus, closeReason) }()

	telemetry.APIWebSocketConnections.Inc()
	defer telemetry.APIWebSocketConnections.Dec()

	ctx := r.Context()

	// Fan all subscribed event types into one channel so a single write
	// loop owns the connection.
	feed := make(chan wsEvent, 32)
	subs := make(map[events.EventType]events.Subscriber, len(streamedEvents))
	for _, et := range streamedEvents {
		sub := s.bus.Subscribe(et)
		subs[et] = sub
		go func(et events.EventType, sub events.Subscriber) {
			for {
				select {
				case <-ctx.Done():
					return
				case payload, ok := <-sub:
					if !ok {
						return
					}
					select {
					case feed <- wsEvent{Type: string(et), Timestamp: time.Now().UTC(), Payload: payload}:
					default:
					}
				}
			}
		}(et, sub)
	}
	defer func() {
		for et, sub := range subs {
			s.bus.Unsubscribe(et, sub)
		}
	}()

	s.logger.Debug().Str("remote", r.RemoteAddr).Msg("event stream connected")

	for {
		select {
		case <-ctx.Done():
			closeStatus, closeReason = ws.StatusNormalClosure, ""
			return
		case event := <-feed:
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = conn.Write(writeCtx, ws.MessageText, data)
			cancel()
			if err != nil {
				s.logger.Debug().Err(err).Msg("event stream write failed, closing")
				closeStatus, closeReason = ws.StatusNormalClosure, ""
				return
			}
		}
	}
}
