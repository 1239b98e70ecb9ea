/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package models defines the persisted record types.
package models

import "time"

// PlayLogEntry records one asset handed to the transport.
type PlayLogEntry struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"index" json:"session_id"`
	Kind      string    `json:"kind"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	PlayedAt  time.Time `gorm:"index" json:"played_at"`
	CreatedAt time.Time `json:"created_at"`
}

// BroadcastEvent records a session lifecycle transition for auditing.
type BroadcastEvent struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"index" json:"session_id"`
	Event     string    `json:"event"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
