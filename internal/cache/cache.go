/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides an optional Redis-backed cache for library listings.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_radio/internal/library"
)

// DefaultListingTTL bounds staleness if an invalidation is ever missed.
const DefaultListingTTL = 5 * time.Minute

const keyListing = "skald:cache:library:" // + session_id

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ListingTTL    time.Duration
}

// Cache wraps a Redis client with graceful fallback: with no Redis configured
// or on any Redis error, callers just take the direct-scan path.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// New creates a listing cache. A nil client (empty RedisAddr) disables it.
func New(cfg Config, logger zerolog.Logger) *Cache {
	ttl := cfg.ListingTTL
	if ttl <= 0 {
		ttl = DefaultListingTTL
	}

	c := &Cache{
		ttl:    ttl,
		logger: logger.With().Str("component", "cache").Logger(),
	}

	if cfg.RedisAddr != "" {
		c.client = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	return c
}

// Enabled reports whether a Redis backend is configured.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// GetListing returns a cached listing for the session, if present.
func (c *Cache) GetListing(ctx context.Context, sessionID string) (library.Listing, bool) {
	if !c.Enabled() {
		return library.Listing{}, false
	}

	data, err := c.client.Get(ctx, keyListing+sessionID).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug().Err(err).Str("session_id", sessionID).Msg("cache get failed")
		}
		return library.Listing{}, false
	}

	var listing library.Listing
	if err := json.Unmarshal(data, &listing); err != nil {
		c.logger.Debug().Err(err).Str("session_id", sessionID).Msg("cache entry corrupt")
		return library.Listing{}, false
	}
	return listing, true
}

// SetListing stores a listing for the session.
func (c *Cache) SetListing(ctx context.Context, sessionID string, listing library.Listing) {
	if !c.Enabled() {
		return
	}

	data, err := json.Marshal(listing)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, keyListing+sessionID, data, c.ttl).Err(); err != nil {
		c.logger.Debug().Err(err).Str("session_id", sessionID).Msg("cache set failed")
	}
}

// Invalidate drops the cached listing for the session.
func (c *Cache) Invalidate(ctx context.Context, sessionID string) {
	if !c.Enabled() {
		return
	}
	if err := c.client.Del(ctx, keyListing+sessionID).Err(); err != nil {
		c.logger.Debug().Err(err).Str("session_id", sessionID).Msg("cache invalidate failed")
	}
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}
