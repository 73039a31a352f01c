// Package speech wraps the external speech engines: speech-to-text for
// transcribing normalized audio, and text-to-speech for voicing replies.
package speech

import "context"

// Segment is one transcribed span of speech, in engine-supplied order.
type Segment struct {
	Text string
}

// Transcriber converts canonical WAV audio into text segments.
type Transcriber interface {
	// Transcribe returns the ordered segments for the audio at wavPath.
	// An empty result means no speech was detected, which is a normal
	// outcome rather than an error.
	Transcribe(ctx context.Context, wavPath string) ([]Segment, error)
}

// Synthesizer converts reply text into audio bytes.
//
// Synthesis is best-effort: a nil byte slice with a nil error means audio
// is absent (backend unavailable, blank text, or backend failure) and the
// caller should fall back to a text-only reply.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Config holds the engine configuration shared by both directions.
type Config struct {
	APIKey          string
	BaseURL         string
	TranscribeModel string
	SpeechModel     string
	Voice           string
	Format          string
	Speed           float64
}
