/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package transcode turns uploaded audio into the canonical playout format.
package transcode

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// FFmpeg decodes arbitrary audio containers into 48kHz stereo s16le PCM via
// an ffmpeg subprocess.
type FFmpeg struct {
	bin    string
	logger zerolog.Logger
}

// NewFFmpeg creates a transcoder using the given ffmpeg binary.
func NewFFmpeg(bin string, logger zerolog.Logger) *FFmpeg {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpeg{
		bin:    bin,
		logger: logger.With().Str("component", "transcode").Logger(),
	}
}

// Transcode converts src into the canonical decoded format at dst. Cancelling
// the context kills the subprocess.
func (f *FFmpeg) Transcode(ctx context.Context, src, dst string) error {
	args := buildArgs(src, dst)

	f.logger.Debug().Str("bin", f.bin).Strs("args", args).Msg("running ffmpeg")

	cmd := exec.CommandContext(ctx, f.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg %s: %w: %s", src, err, lastLine(stderr.String()))
	}
	return nil
}

// buildArgs produces the ffmpeg argument list for the canonical format:
// signed 16-bit little-endian PCM, two channels, 48kHz.
func buildArgs(src, dst string) []string {
	return []string{
		"-y",
		"-i", src,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", "2",
		"-ar", "48000",
		dst,
	}
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
