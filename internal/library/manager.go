/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_radio/internal/events"
)

var (
	// ErrAlreadyExists indicates an asset with the target name is present.
	ErrAlreadyExists = errors.New("asset name already exists")

	// ErrNotFound indicates the logical name is not listed for that kind.
	ErrNotFound = errors.New("asset not found")

	// ErrDownloadFailed indicates the raw upload could not be written.
	ErrDownloadFailed = errors.New("asset download failed")

	// ErrConvertFailed indicates transcoding to the canonical format failed.
	ErrConvertFailed = errors.New("asset conversion failed")

	// ErrDeleteFailed indicates one or both asset files could not be removed.
	ErrDeleteFailed = errors.New("asset deletion failed")
)

// Transcoder converts a raw upload into the canonical decoded format.
type Transcoder interface {
	Transcode(ctx context.Context, src, dst string) error
}

// Rebuilder is notified after every successful mutation so the session's
// sequencer can be rebuilt from a fresh scan.
type Rebuilder interface {
	RebuildSequencer(sessionID string)
}

// Manager applies mutations to a session's on-disk library.
type Manager struct {
	dataRoot   string
	transcoder Transcoder
	rebuilder  Rebuilder
	bus        *events.Bus
	logger     zerolog.Logger
}

// NewManager creates a library manager rooted at dataRoot.
func NewManager(dataRoot string, transcoder Transcoder, bus *events.Bus, logger zerolog.Logger) *Manager {
	return &Manager{
		dataRoot:   dataRoot,
		transcoder: transcoder,
		bus:        bus,
		logger:     logger.With().Str("component", "library").Logger(),
	}
}

// SetRebuilder wires the sequencer rebuild hook. Separate from the
// constructor because the session registry is built after the manager.
func (m *Manager) SetRebuilder(r Rebuilder) {
	m.rebuilder = r
}

// Scan builds a fresh library snapshot for the session.
func (m *Manager) Scan(sessionID string) *Library {
	return Scan(m.dataRoot, sessionID)
}

// List returns logical asset names grouped by kind. Order is whatever the
// directory listing produced.
func (m *Manager) List(sessionID string) Listing {
	lib := m.Scan(sessionID)
	return Listing{
		Tracks:    names(lib.Tracks),
		Inserts:   names(lib.Inserts),
		Announces: names(lib.Announces),
	}
}

func names(refs []AssetRef) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		out = append(out, ref.Name())
	}
	return out
}

// Add stores an uploaded file as a new asset: the raw upload is written to
// disk, transcoded into the canonical format, and the session's sequencer is
// rebuilt. The returned string is the logical asset name.
func (m *Manager) Add(ctx context.Context, sessionID string, kind Kind, fileName string, src io.Reader) (string, error) {
	// The upload name comes from the client. A name must resolve to a
	// single file inside the pool directory, never a path.
	name := NormalizeName(fileName)
	if name == "" || name == "." || name == ".." ||
		name != filepath.Base(name) ||
		strings.HasSuffix(name, CanonicalSuffix) {
		return "", fmt.Errorf("%w: invalid asset name %q", ErrDownloadFailed, fileName)
	}

	dir := PoolDir(m.dataRoot, sessionID, kind)
	rawPath := filepath.Join(dir, name)
	canonicalPath := rawPath + CanonicalSuffix

	if fileExists(rawPath) || fileExists(canonicalPath) {
		return "", ErrAlreadyExists
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create pool dir: %v", ErrDownloadFailed, err)
	}

	if err := writeFile(rawPath, src); err != nil {
		m.logger.Error().Err(err).Str("session_id", sessionID).Str("name", name).Msg("download failed")
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	if err := m.transcoder.Transcode(ctx, rawPath, canonicalPath); err != nil {
		// A raw file without a decoded counterpart must not linger as a
		// half-added asset.
		_ = os.Remove(rawPath)
		_ = os.Remove(canonicalPath)
		m.logger.Error().Err(err).Str("session_id", sessionID).Str("name", name).Msg("convert failed")
		return "", fmt.Errorf("%w: %v", ErrConvertFailed, err)
	}

	m.logger.Info().
		Str("session_id", sessionID).
		Str("kind", string(kind)).
		Str("name", name).
		Msg("asset added")

	m.afterMutation(sessionID, events.EventLibraryAssetAdded, kind, name)
	return name, nil
}

// Remove deletes the raw and canonical files for a listed asset and rebuilds
// the session's sequencer. Only names present in the scanned listing are
// deletable, so a name can never address a file outside the pool directory.
// A partial deletion is reported as ErrDeleteFailed and leaves the sequencer
// untouched; subsequent listings remain consistent because they only ever
// reflect what the scan sees.
func (m *Manager) Remove(ctx context.Context, sessionID string, kind Kind, name string) error {
	listed := false
	for _, ref := range scanPool(m.dataRoot, sessionID, kind) {
		if ref.Name() == name {
			listed = true
			break
		}
	}
	if !listed {
		return ErrNotFound
	}

	dir := PoolDir(m.dataRoot, sessionID, kind)
	rawErr := os.Remove(filepath.Join(dir, name))
	canonicalErr := os.Remove(filepath.Join(dir, name) + CanonicalSuffix)
	if rawErr != nil || canonicalErr != nil {
		m.logger.Error().
			AnErr("raw", rawErr).
			AnErr("canonical", canonicalErr).
			Str("session_id", sessionID).
			Str("name", name).
			Msg("delete failed")
		return ErrDeleteFailed
	}

	m.logger.Info().
		Str("session_id", sessionID).
		Str("kind", string(kind)).
		Str("name", name).
		Msg("asset removed")

	m.afterMutation(sessionID, events.EventLibraryAssetRemoved, kind, name)
	return nil
}

func (m *Manager) afterMutation(sessionID string, eventType events.EventType, kind Kind, name string) {
	if m.rebuilder != nil {
		m.rebuilder.RebuildSequencer(sessionID)
	}
	if m.bus != nil {
		m.bus.Publish(eventType, events.Payload{
			"session_id": sessionID,
			"kind":       string(kind),
			"name":       name,
		})
	}
}

func writeFile(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return err
	}
	return dst.Close()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
