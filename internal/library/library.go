/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package library maintains per-session audio asset pools on disk.
//
// Each session owns three directories (tracks, inserts, announces). A logical
// asset is a pair of files: the raw upload at <name> and its decoded
// counterpart at <name>.raw (48kHz stereo s16le PCM). Only the decoded file
// makes an asset visible; a raw file without a decoded counterpart is never
// listed.
package library

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CanonicalSuffix marks decoded, playout-ready files.
const CanonicalSuffix = ".raw"

// Kind enumerates the three asset pools.
type Kind string

const (
	KindTrack    Kind = "track"
	KindInsert   Kind = "insert"
	KindAnnounce Kind = "announce"
)

// Dir returns the per-session subdirectory holding this kind.
func (k Kind) Dir() string {
	switch k {
	case KindTrack:
		return "tracks"
	case KindInsert:
		return "inserts"
	case KindAnnounce:
		return "announces"
	}
	return string(k)
}

// ParseKind maps user input (singular or plural) to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "track", "tracks":
		return KindTrack, nil
	case "insert", "inserts":
		return KindInsert, nil
	case "announce", "announces":
		return KindAnnounce, nil
	}
	return "", fmt.Errorf("unknown asset kind %q", s)
}

// AssetRef identifies one playable asset. Immutable once constructed.
type AssetRef struct {
	SessionID string `json:"session_id"`
	Kind      Kind   `json:"kind"`
	Path      string `json:"path"`
}

// Name returns the logical asset name (file name minus the canonical suffix).
func (a AssetRef) Name() string {
	return strings.TrimSuffix(filepath.Base(a.Path), CanonicalSuffix)
}

// Library is a read-only snapshot of one session's asset pools. It is rebuilt
// wholesale on every library mutation, never patched in place; in-flight
// consumers may keep reading a stale snapshot until they are handed a new one.
type Library struct {
	SessionID string
	Tracks    []AssetRef
	Inserts   []AssetRef
	Announces []AssetRef
}

// Listing groups logical asset names by kind.
type Listing struct {
	Tracks    []string `json:"tracks"`
	Inserts   []string `json:"inserts"`
	Announces []string `json:"announces"`
}

// Scan builds a library snapshot from disk. An unreadable or missing pool
// directory yields an empty pool rather than failing the whole scan.
func Scan(dataRoot, sessionID string) *Library {
	return &Library{
		SessionID: sessionID,
		Tracks:    scanPool(dataRoot, sessionID, KindTrack),
		Inserts:   scanPool(dataRoot, sessionID, KindInsert),
		Announces: scanPool(dataRoot, sessionID, KindAnnounce),
	}
}

func scanPool(dataRoot, sessionID string, kind Kind) []AssetRef {
	dir := PoolDir(dataRoot, sessionID, kind)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var refs []AssetRef
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), CanonicalSuffix) {
			continue
		}
		refs = append(refs, AssetRef{
			SessionID: sessionID,
			Kind:      kind,
			Path:      filepath.Join(dir, entry.Name()),
		})
	}
	return refs
}

// PoolDir returns the directory holding one session's pool of the given kind.
func PoolDir(dataRoot, sessionID string, kind Kind) string {
	return filepath.Join(dataRoot, sessionID, kind.Dir())
}

// NormalizeName sanitizes an uploaded file name into a logical asset name.
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
}
