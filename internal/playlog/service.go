/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playlog journals playout progress and broadcast lifecycle events.
package playlog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/skald_radio/internal/events"
	"github.com/friendsincode/skald_radio/internal/models"
)

// Service subscribes to the event bus and persists play history.
type Service struct {
	db     *gorm.DB
	bus    *events.Bus
	logger zerolog.Logger
}

// NewService creates a play log service.
func NewService(db *gorm.DB, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "playlog").Logger(),
	}
}

// Start runs the journaling loop until context cancellation.
func (s *Service) Start(ctx context.Context) {
	advanced := s.bus.Subscribe(events.EventPlayoutAdvanced)
	starting := s.bus.Subscribe(events.EventBroadcastStarting)
	live := s.bus.Subscribe(events.EventBroadcastLive)
	ended := s.bus.Subscribe(events.EventBroadcastEnded)
	stopped := s.bus.Subscribe(events.EventBroadcastStopped)

	defer func() {
		s.bus.Unsubscribe(events.EventPlayoutAdvanced, advanced)
		s.bus.Unsubscribe(events.EventBroadcastStarting, starting)
		s.bus.Unsubscribe(events.EventBroadcastLive, live)
		s.bus.Unsubscribe(events.EventBroadcastEnded, ended)
		s.bus.Unsubscribe(events.EventBroadcastStopped, stopped)
	}()

	s.logger.Info().Msg("play log service started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("play log service stopping")
			return
		case payload := <-advanced:
			s.recordPlay(payload)
		case payload := <-starting:
			s.recordEvent(events.EventBroadcastStarting, payload)
		case payload := <-live:
			s.recordEvent(events.EventBroadcastLive, payload)
		case payload := <-ended:
			s.recordEvent(events.EventBroadcastEnded, payload)
		case payload := <-stopped:
			s.recordEvent(events.EventBroadcastStopped, payload)
		}
	}
}

func (s *Service) recordPlay(payload events.Payload) {
	sessionID, _ := payload["session_id"].(string)
	if sessionID == "" {
		return
	}
	kind, _ := payload["kind"].(string)
	name, _ := payload["name"].(string)
	path, _ := payload["path"].(string)

	entry := models.PlayLogEntry{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Kind:      kind,
		Name:      name,
		Path:      path,
		PlayedAt:  time.Now().UTC(),
	}

	if err := s.db.Create(&entry).Error; err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to record play")
	}
}

func (s *Service) recordEvent(eventType events.EventType, payload events.Payload) {
	sessionID, _ := payload["session_id"].(string)
	if sessionID == "" {
		return
	}

	record := models.BroadcastEvent{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Event:     string(eventType),
	}

	if err := s.db.Create(&record).Error; err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to record broadcast event")
	}
}

// Recent returns the most recent plays for a session, newest first.
func (s *Service) Recent(ctx context.Context, sessionID string, limit int) ([]models.PlayLogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	var entries []models.PlayLogEntry
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("played_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("query play log: %w", err)
	}
	return entries, nil
}
