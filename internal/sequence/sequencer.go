/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package sequence implements the infinite asset-ordering policy for one
// broadcast session.
package sequence

import (
	"math/rand"
	"time"

	"github.com/friendsincode/skald_radio/internal/library"
)

// rotationLength is the track count between insert emissions.
const rotationLength = 3

type mode int

const (
	// modeFallback loops the fallback asset: the library has no tracks.
	// Inserts and announces are never consulted in this mode, even when
	// present.
	modeFallback mode = iota

	// modeShuffle emits full shuffled passes over the track pool: the
	// library has tracks but no inserts. Announces are not interleaved in
	// this mode either; that matches the long-standing on-air behavior and
	// changing it needs a product decision first.
	modeShuffle

	// modeRotation cycles tracks in library order, announces before tracks,
	// and an announce/insert pair every rotationLength tracks.
	modeRotation
)

// Sequencer is a lazy, infinite producer of asset references over one library
// snapshot. It never terminates and cannot be rewound; a library change is
// handled by constructing a new Sequencer, which always starts from its
// initial state. Pulls must be serialized by the owning session.
type Sequencer struct {
	lib      *library.Library
	fallback library.AssetRef
	rng      *rand.Rand

	mode     mode
	order    []library.AssetRef // shuffle working set
	pos      int                // index into order (shuffle) or lib.Tracks (rotation)
	rotation int
	pending  []library.AssetRef
}

// New builds a sequencer over the given snapshot. fallbackPath is emitted
// forever when the snapshot has no tracks.
func New(lib *library.Library, fallbackPath string) *Sequencer {
	return newSequencer(lib, fallbackPath, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewWithRand is New with a caller-supplied random source.
func NewWithRand(lib *library.Library, fallbackPath string, rng *rand.Rand) *Sequencer {
	return newSequencer(lib, fallbackPath, rng)
}

func newSequencer(lib *library.Library, fallbackPath string, rng *rand.Rand) *Sequencer {
	s := &Sequencer{
		lib: lib,
		fallback: library.AssetRef{
			SessionID: lib.SessionID,
			Kind:      library.KindTrack,
			Path:      fallbackPath,
		},
		rng: rng,
	}

	switch {
	case len(lib.Tracks) == 0:
		s.mode = modeFallback
	case len(lib.Inserts) == 0:
		s.mode = modeShuffle
		s.order = append([]library.AssetRef(nil), lib.Tracks...)
		s.shufflePass()
	default:
		s.mode = modeRotation
	}
	return s
}

// Next produces the next asset to play. It is cheap and never blocks.
func (s *Sequencer) Next() library.AssetRef {
	switch s.mode {
	case modeFallback:
		return s.fallback

	case modeShuffle:
		if s.pos >= len(s.order) {
			s.shufflePass()
		}
		ref := s.order[s.pos]
		s.pos++
		return ref

	default:
		if len(s.pending) == 0 {
			s.fillRotation()
		}
		ref := s.pending[0]
		s.pending = s.pending[1:]
		return ref
	}
}

func (s *Sequencer) shufflePass() {
	s.rng.Shuffle(len(s.order), func(i, j int) {
		s.order[i], s.order[j] = s.order[j], s.order[i]
	})
	s.pos = 0
}

// fillRotation queues the emissions surrounding one track slot. On the slot
// where the rotation counter has reached rotationLength the stream carries
// announce?, insert, announce?, track: the insert is wrapped by two
// independent announce emissions, not substituted for one.
func (s *Sequencer) fillRotation() {
	if s.rotation == rotationLength {
		s.rotation = 0
		if a, ok := s.randomAnnounce(); ok {
			s.pending = append(s.pending, a)
		}
		s.pending = append(s.pending, s.lib.Inserts[s.rng.Intn(len(s.lib.Inserts))])
	}

	if a, ok := s.randomAnnounce(); ok {
		s.pending = append(s.pending, a)
	}
	s.pending = append(s.pending, s.lib.Tracks[s.pos])

	s.pos = (s.pos + 1) % len(s.lib.Tracks)
	s.rotation++
}

func (s *Sequencer) randomAnnounce() (library.AssetRef, bool) {
	if len(s.lib.Announces) == 0 {
		return library.AssetRef{}, false
	}
	return s.lib.Announces[s.rng.Intn(len(s.lib.Announces))], true
}
