// Package audio provides the normalization step that converts arbitrary
// uploaded audio into the canonical PCM format the transcription engine
// expects (fixed sample rate, mono WAV).
package audio

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"

	"github.com/pkg/errors"
)

// Normalizer converts an input audio file into canonical WAV.
type Normalizer interface {
	// Normalize converts inPath into outPath. A failed conversion is fatal
	// for the owning request and is not retried.
	Normalize(ctx context.Context, inPath, outPath string) error
}

// FFmpegNormalizer shells out to ffmpeg for the conversion.
type FFmpegNormalizer struct {
	binary     string
	sampleRate int
	channels   int
}

// NewFFmpegNormalizer creates a normalizer using the given ffmpeg binary.
func NewFFmpegNormalizer(binary string, sampleRate, channels int) *FFmpegNormalizer {
	if binary == "" {
		binary = "ffmpeg"
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	if channels <= 0 {
		channels = 1
	}
	return &FFmpegNormalizer{
		binary:     binary,
		sampleRate: sampleRate,
		channels:   channels,
	}
}

// args builds the ffmpeg argument list for a conversion.
func (n *FFmpegNormalizer) args(inPath, outPath string) []string {
	return []string{
		"-y",
		"-i", inPath,
		"-ar", strconv.Itoa(n.sampleRate),
		"-ac", strconv.Itoa(n.channels),
		outPath,
	}
}

func (n *FFmpegNormalizer) Normalize(ctx context.Context, inPath, outPath string) error {
	cmd := exec.CommandContext(ctx, n.binary, n.args(inPath, outPath)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := stderr.String()
		if len(detail) > 500 {
			detail = detail[len(detail)-500:]
		}
		return errors.Wrapf(err, "audio conversion failed: %s", detail)
	}
	return nil
}
