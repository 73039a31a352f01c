// Package timeout defines centralized timeout constants for pipeline stages.
package timeout

import "time"

const (
	// ReplyTimeout is the hard wall-clock bound on reply generation.
	// On expiry the orchestrator returns its fixed fallback text.
	ReplyTimeout = 10 * time.Second

	// NormalizeTimeout bounds the ffmpeg conversion subprocess.
	NormalizeTimeout = 30 * time.Second

	// TranscribeTimeout bounds the speech-to-text call.
	TranscribeTimeout = 60 * time.Second

	// SynthesisTimeout bounds the text-to-speech call.
	SynthesisTimeout = 30 * time.Second

	// MaxReplyTokens bounds the completion output length.
	MaxReplyTokens = 150

	// MaxTruncateLength is the maximum length for truncating strings in logs.
	MaxTruncateLength = 200
)
