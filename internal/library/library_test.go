/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package library

import (
	"os"
	"path/filepath"
	"testing"
)

func writeAsset(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("pcm"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestScan_ListsOnlyDecodedFiles(t *testing.T) {
	root := t.TempDir()
	writeAsset(t, filepath.Join(root, "42", "tracks", "song.raw"))
	writeAsset(t, filepath.Join(root, "42", "tracks", "song"))
	writeAsset(t, filepath.Join(root, "42", "tracks", "upload_only"))
	writeAsset(t, filepath.Join(root, "42", "inserts", "jingle.raw"))

	lib := Scan(root, "42")
	if len(lib.Tracks) != 1 {
		t.Fatalf("got %d tracks, want 1", len(lib.Tracks))
	}
	if got := lib.Tracks[0].Name(); got != "song" {
		t.Fatalf("track name %q want %q", got, "song")
	}
	if len(lib.Inserts) != 1 || lib.Inserts[0].Name() != "jingle" {
		t.Fatalf("inserts: %+v", lib.Inserts)
	}
}

func TestScan_MissingPoolDirsYieldEmptyPools(t *testing.T) {
	root := t.TempDir()
	writeAsset(t, filepath.Join(root, "42", "tracks", "song.raw"))

	lib := Scan(root, "42")
	if len(lib.Tracks) != 1 {
		t.Fatalf("got %d tracks, want 1", len(lib.Tracks))
	}
	if lib.Inserts != nil || lib.Announces != nil {
		t.Fatalf("missing dirs should scan empty, got inserts=%v announces=%v", lib.Inserts, lib.Announces)
	}
}

func TestScan_UnknownSessionIsEmpty(t *testing.T) {
	lib := Scan(t.TempDir(), "nope")
	if len(lib.Tracks)+len(lib.Inserts)+len(lib.Announces) != 0 {
		t.Fatalf("expected empty library, got %+v", lib)
	}
}

func TestScan_SkipsSubdirectories(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "42", "tracks", "nested.raw"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	lib := Scan(root, "42")
	if len(lib.Tracks) != 0 {
		t.Fatalf("directory listed as asset: %+v", lib.Tracks)
	}
}

func TestAssetRefName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/data/42/tracks/song.raw", "song"},
		{"/data/42/tracks/song.mp3.raw", "song.mp3"},
		{"/data/42/tracks/noext", "noext"},
	}
	for _, tt := range tests {
		ref := AssetRef{Path: tt.path}
		if got := ref.Name(); got != tt.want {
			t.Errorf("Name(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"track", KindTrack, false},
		{"tracks", KindTrack, false},
		{"Insert", KindInsert, false},
		{" announces ", KindAnnounce, false},
		{"song", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseKind(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseKind(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My Song.mp3", "My_Song.mp3"},
		{"  padded.mp3  ", "padded.mp3"},
		{"already_clean", "already_clean"},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
