package speech

import (
	"context"
	"sync"
)

// MockTranscriber is a test double for Transcriber.
type MockTranscriber struct {
	mu       sync.Mutex
	Segments []Segment
	Err      error
	Calls    []string // wav paths seen, in order
}

func (m *MockTranscriber) Transcribe(_ context.Context, wavPath string) ([]Segment, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, wavPath)
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Segments, nil
}

// MockSynthesizer is a test double for Synthesizer.
type MockSynthesizer struct {
	mu    sync.Mutex
	Audio []byte
	Err   error
	Calls []string // texts seen, in order
}

func (m *MockSynthesizer) Synthesize(_ context.Context, text string) ([]byte, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, text)
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Audio, nil
}
