// Package reply turns a transcript plus rolling conversation history into
// the assistant's reply text.
package reply

import (
	"context"
	"log/slog"
	"time"

	"github.com/hrygo/lingualive/plugin/ai"
	"github.com/hrygo/lingualive/plugin/ai/timeout"
	"github.com/hrygo/lingualive/store"
)

const systemPrompt = "You are an English-speaking coach helping users improve conversational English.\n" +
	"Be concise and encouraging. Keep responses to 2-3 sentences.\n" +
	"If you notice grammar errors, gently correct them and ask the user to repeat.\n" +
	"Ask follow-up questions to keep the conversation going."

const (
	// TimeoutFallback is returned when the engine misses the deadline.
	TimeoutFallback = "I'm thinking too long. Can you try again?"
	// FailureFallback is returned on any other engine failure.
	FailureFallback = "Sorry, I couldn't generate a response. Please try again."
)

// Generator orchestrates reply generation. Generate is a total function:
// it never returns an error, only reply text, mapping engine timeouts and
// failures to fixed user-safe fallback strings.
type Generator struct {
	llm      ai.LLMService
	deadline time.Duration
	// onFallback is invoked whenever a fallback string is served.
	onFallback func()
}

// NewGenerator creates a generator with the given hard timeout.
func NewGenerator(llm ai.LLMService, deadline time.Duration) *Generator {
	if deadline <= 0 {
		deadline = timeout.ReplyTimeout
	}
	return &Generator{llm: llm, deadline: deadline}
}

// OnFallback registers a callback fired whenever a fallback reply is used.
func (g *Generator) OnFallback(fn func()) {
	g.onFallback = fn
}

// buildMessages assembles the linear prompt: system instruction, the
// history replayed as alternating user/assistant messages, then the
// current utterance.
func buildMessages(transcript string, history []store.Turn) []ai.Message {
	messages := make([]ai.Message, 0, len(history)*2+2)
	messages = append(messages, ai.SystemPrompt(systemPrompt))
	for _, turn := range history {
		messages = append(messages, ai.UserMessage(turn.UserText))
		messages = append(messages, ai.AssistantMessage(turn.AssistantText))
	}
	return append(messages, ai.UserMessage(transcript))
}

type chatResult struct {
	text string
	err  error
}

// Generate produces the reply for transcript given the session history.
//
// The engine call is raced against the deadline: on timer win the call is
// abandoned rather than cancelled, since the underlying engine may not be
// interruptible, and the fixed timeout fallback is returned as a degraded
// success.
func (g *Generator) Generate(ctx context.Context, transcript string, history []store.Turn) string {
	if g.llm == nil {
		slog.Warn("reply generation skipped: no completion engine configured")
		return g.fallback(FailureFallback)
	}

	messages := buildMessages(transcript, history)

	// Detach the engine call from the timer so an expired deadline leaves
	// it running to completion in the background.
	detached := context.WithoutCancel(ctx)
	resultCh := make(chan chatResult, 1)
	go func() {
		text, err := g.llm.Chat(detached, messages)
		resultCh <- chatResult{text: text, err: err}
	}()

	timer := time.NewTimer(g.deadline)
	defer timer.Stop()

	select {
	case result := <-resultCh:
		if result.err != nil {
			slog.Error("reply generation failed", "error", result.err, "history_turns", len(history))
			return g.fallback(FailureFallback)
		}
		return result.text
	case <-timer.C:
		slog.Warn("reply generation timed out", "timeout", g.deadline, "history_turns", len(history))
		return g.fallback(TimeoutFallback)
	case <-ctx.Done():
		slog.Warn("reply generation abandoned: request cancelled", "error", ctx.Err())
		return g.fallback(FailureFallback)
	}
}

func (g *Generator) fallback(text string) string {
	if g.onFallback != nil {
		g.onFallback()
	}
	return text
}
