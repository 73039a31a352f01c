package ai

import (
	"context"
	"sync"
	"time"
)

// MockLLM is a test double for LLMService.
type MockLLM struct {
	mu    sync.Mutex
	Reply string
	Err   error
	// Delay makes Chat block before answering, for timeout tests.
	Delay time.Duration
	// LastMessages holds the messages from the most recent call.
	LastMessages []Message
	CallCount    int
}

func (m *MockLLM) Chat(ctx context.Context, messages []Message) (string, error) {
	m.mu.Lock()
	m.LastMessages = append([]Message(nil), messages...)
	m.CallCount++
	delay := m.Delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Reply, nil
}
