// Package pipeline sequences one voice request through staging,
// normalization, transcription, reply generation and synthesis.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/hrygo/lingualive/internal/scratch"
	"github.com/hrygo/lingualive/plugin/audio"
	"github.com/hrygo/lingualive/plugin/ai/timeout"
	"github.com/hrygo/lingualive/plugin/speech"
	apierrors "github.com/hrygo/lingualive/server/internal/errors"
	"github.com/hrygo/lingualive/server/internal/observability"
	"github.com/hrygo/lingualive/server/metrics"
	"github.com/hrygo/lingualive/server/reply"
	"github.com/hrygo/lingualive/store"
	"github.com/hrygo/lingualive/store/cache"
)

// Request is the transient, request-scoped input to one pipeline run.
// It is owned exclusively by the handling of one inbound call.
type Request struct {
	Audio    []byte
	Filename string
	// ConversationID selects the session whose history seeds the reply.
	// Empty means no prior context.
	ConversationID string
	// TurnNumber is an advisory caller-supplied ordinal.
	TurnNumber int
	// Persist records the completed turn in the conversation store,
	// allocating a session when ConversationID is empty or unknown.
	Persist bool
	// WantAudio asks for the reply to be synthesized to speech.
	WantAudio bool
	// TranscribeOnly stops the run after transcription.
	TranscribeOnly bool
}

// Result is the outcome of a successful (possibly degraded) run.
type Result struct {
	Transcript     string
	Reply          string
	AudioID        string // reply-audio cache entry, empty when absent
	ConversationID string
	NoSpeech       bool
}

// Options carries the pipeline's collaborators.
type Options struct {
	Scratch       *scratch.Manager
	Normalizer    audio.Normalizer
	Transcriber   speech.Transcriber
	Synthesizer   speech.Synthesizer
	Generator     *reply.Generator
	Conversations *store.ConversationStore
	AudioCache    *cache.AudioCache
	Metrics       *metrics.Metrics
	SessionTTL    time.Duration
	AudioMime     string
	// MaxConcurrentSynthesis bounds simultaneous synthesis calls.
	MaxConcurrentSynthesis int64
	Logger                 *slog.Logger
}

// Pipeline coordinates the request-handling state machine. Shared across
// all concurrent request handlers; each Run is independent.
type Pipeline struct {
	scratch       *scratch.Manager
	normalizer    audio.Normalizer
	transcriber   speech.Transcriber
	synthesizer   speech.Synthesizer
	generator     *reply.Generator
	conversations *store.ConversationStore
	audioCache    *cache.AudioCache
	metrics       *metrics.Metrics
	sessionTTL    time.Duration
	audioMime     string
	synthSem      *semaphore.Weighted
	logger        *slog.Logger
}

// New creates a pipeline from its collaborators.
func New(opts Options) *Pipeline {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = time.Hour
	}
	if opts.MaxConcurrentSynthesis <= 0 {
		opts.MaxConcurrentSynthesis = 4
	}
	if opts.AudioMime == "" {
		opts.AudioMime = "audio/mpeg"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Pipeline{
		scratch:       opts.Scratch,
		normalizer:    opts.Normalizer,
		transcriber:   opts.Transcriber,
		synthesizer:   opts.Synthesizer,
		generator:     opts.Generator,
		conversations: opts.Conversations,
		audioCache:    opts.AudioCache,
		metrics:       opts.Metrics,
		sessionTTL:    opts.SessionTTL,
		audioMime:     opts.AudioMime,
		synthSem:      semaphore.NewWeighted(opts.MaxConcurrentSynthesis),
		logger:        opts.Logger,
	}
}

// Run executes the state machine for one request. The returned error is
// always a *apierrors.PipelineError; reply-generation and synthesis
// problems never surface here, they degrade inside the Result.
func (p *Pipeline) Run(ctx context.Context, req *Request) (*Result, error) {
	logger := observability.NewRequestContext(p.logger, req.ConversationID)

	if len(req.Audio) == 0 || req.Filename == "" {
		return nil, apierrors.InvalidArgument("No audio file provided")
	}

	p.sweep()

	if p.metrics != nil {
		p.metrics.ActiveRequests.Inc()
		defer p.metrics.ActiveRequests.Dec()
	}

	// Staged artifacts are released on every exit path.
	ws := p.scratch.NewWorkspace()
	defer ws.ReleaseAll()

	inPath, err := ws.Stage("in_"+req.Filename, req.Audio)
	if err != nil {
		p.countOutcome("failed")
		return nil, apierrors.Internal("failed to store uploaded audio", err)
	}
	logger.Debug("audio staged",
		slog.String("path", inPath),
		slog.Int("bytes", len(req.Audio)))

	wavPath := ws.Reserve("normalized.wav")
	if err := p.normalize(ctx, inPath, wavPath); err != nil {
		p.countOutcome("failed")
		logger.Error("audio conversion failed", err)
		return nil, apierrors.ConversionFailed("Audio conversion failed", err)
	}

	transcript, err := p.transcribe(ctx, wavPath)
	if err != nil {
		p.countOutcome("failed")
		logger.Error("transcription failed", err)
		return nil, apierrors.TranscriptionFailed("Transcription failed", err)
	}

	if transcript == "" {
		// A normal outcome, not a pipeline failure. No conversation
		// mutation happens on this path.
		if p.metrics != nil {
			p.metrics.EmptyTranscripts.Inc()
		}
		p.countOutcome("no_speech")
		logger.Info("no speech detected",
			slog.Int64(observability.LogFieldDuration, logger.DurationMs()))
		return &Result{NoSpeech: true, ConversationID: req.ConversationID}, nil
	}
	logger.Info("audio transcribed",
		slog.Int(observability.LogFieldTranscriptLen, len(transcript)))

	if req.TranscribeOnly {
		p.countOutcome("transcribed")
		return &Result{Transcript: transcript, ConversationID: req.ConversationID}, nil
	}

	// Load context. The history read happens-before this request's append;
	// concurrent requests on the same session interleave last-append-wins.
	var history []store.Turn
	conversationID := req.ConversationID
	if req.Persist {
		conv := p.conversations.GetOrCreate(req.ConversationID)
		conversationID = conv.ID
		history = conv.Turns
	} else if req.ConversationID != "" {
		if conv, ok := p.conversations.Get(req.ConversationID); ok {
			history = conv.Turns
		}
	}

	replyText := p.generate(ctx, transcript, history)
	logger.Info("reply generated",
		slog.Int(observability.LogFieldReplyLen, len(replyText)))

	if req.Persist {
		p.conversations.Append(conversationID, store.Turn{
			UserText:      transcript,
			AssistantText: replyText,
			Sequence:      req.TurnNumber,
		})
	}

	audioID := ""
	if req.WantAudio {
		audioID = p.synthesize(ctx, replyText, logger)
	}

	if p.metrics != nil {
		p.metrics.ActiveConversations.Set(float64(p.conversations.Count()))
	}
	p.countOutcome("responded")
	logger.Info("pipeline completed",
		slog.Int64(observability.LogFieldDuration, logger.DurationMs()),
		slog.Bool("audio", audioID != ""))

	return &Result{
		Transcript:     transcript,
		Reply:          replyText,
		AudioID:        audioID,
		ConversationID: conversationID,
	}, nil
}

func (p *Pipeline) normalize(ctx context.Context, inPath, wavPath string) error {
	defer p.observeStage("normalize", time.Now())
	ctx, cancel := context.WithTimeout(ctx, timeout.NormalizeTimeout)
	defer cancel()
	return p.normalizer.Normalize(ctx, inPath, wavPath)
}

// transcribe concatenates the engine's segments in order and trims
// surrounding whitespace.
func (p *Pipeline) transcribe(ctx context.Context, wavPath string) (string, error) {
	defer p.observeStage("transcribe", time.Now())
	ctx, cancel := context.WithTimeout(ctx, timeout.TranscribeTimeout)
	defer cancel()

	segments, err := p.transcriber.Transcribe(ctx, wavPath)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, seg := range segments {
		sb.WriteString(seg.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}

func (p *Pipeline) generate(ctx context.Context, transcript string, history []store.Turn) string {
	defer p.observeStage("reply", time.Now())
	return p.generator.Generate(ctx, transcript, history)
}

// synthesize attempts speech synthesis and promotes the result into the
// servable audio cache. Absent audio routes to a text-only reply.
func (p *Pipeline) synthesize(ctx context.Context, text string, logger *observability.RequestContext) string {
	defer p.observeStage("synthesize", time.Now())

	if err := p.synthSem.Acquire(ctx, 1); err != nil {
		logger.Warn("synthesis skipped: request cancelled")
		return ""
	}
	defer p.synthSem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, timeout.SynthesisTimeout)
	defer cancel()

	data, err := p.synthesizer.Synthesize(ctx, text)
	if err != nil || len(data) == 0 {
		if err != nil {
			logger.Warn("speech synthesis failed", slog.String("error", err.Error()))
		}
		if p.metrics != nil {
			p.metrics.SynthesisAbsent.Inc()
		}
		return ""
	}

	id, err := p.audioCache.Put(data, p.audioMime)
	if err != nil {
		logger.Warn("failed to cache reply audio", slog.String("error", err.Error()))
		if p.metrics != nil {
			p.metrics.SynthesisAbsent.Inc()
		}
		return ""
	}
	return id
}

// sweep opportunistically evicts stale sessions and expired reply audio.
func (p *Pipeline) sweep() {
	now := time.Now()
	if swept := p.conversations.Sweep(now, p.sessionTTL); swept > 0 {
		if p.metrics != nil {
			p.metrics.SessionsSwept.Add(float64(swept))
		}
		p.logger.Debug("swept stale conversations", "count", swept)
	}
	if swept := p.audioCache.Sweep(now); swept > 0 {
		if p.metrics != nil {
			p.metrics.CachedAudioSwept.Add(float64(swept))
		}
		p.logger.Debug("swept expired reply audio", "count", swept)
	}
}

func (p *Pipeline) observeStage(stage string, start time.Time) {
	if p.metrics != nil {
		p.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

func (p *Pipeline) countOutcome(outcome string) {
	if p.metrics != nil {
		p.metrics.RequestsTotal.WithLabelValues(outcome).Inc()
	}
}
