package speech

import (
	"context"
	"io"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// SpeechSynthesizer voices reply text through the OpenAI-compatible speech
// endpoint. It never fails the owning request: any problem yields absent
// audio and the pipeline degrades to a text-only reply.
type SpeechSynthesizer struct {
	client *openai.Client
	model  openai.SpeechModel
	voice  openai.SpeechVoice
	format openai.SpeechResponseFormat
	speed  float64
}

// NewSpeechSynthesizer creates a synthesizer from the engine config.
// A missing API key yields a synthesizer with no client, which reports
// absent audio for every request.
func NewSpeechSynthesizer(cfg *Config) *SpeechSynthesizer {
	s := &SpeechSynthesizer{
		model:  openai.TTSModel1,
		voice:  openai.VoiceAlloy,
		format: openai.SpeechResponseFormatMp3,
		speed:  1.0,
	}
	if cfg == nil || cfg.APIKey == "" {
		slog.Warn("speech synthesis disabled: no API key configured")
		return s
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	s.client = openai.NewClientWithConfig(clientConfig)

	if cfg.SpeechModel != "" {
		s.model = openai.SpeechModel(cfg.SpeechModel)
	}
	if cfg.Voice != "" {
		s.voice = openai.SpeechVoice(cfg.Voice)
	}
	if cfg.Format != "" {
		s.format = openai.SpeechResponseFormat(cfg.Format)
	}
	if cfg.Speed > 0 {
		s.speed = cfg.Speed
	}
	return s
}

// MimeType returns the content type of generated audio.
func (s *SpeechSynthesizer) MimeType() string {
	switch s.format {
	case openai.SpeechResponseFormatWav:
		return "audio/wav"
	case openai.SpeechResponseFormatOpus:
		return "audio/opus"
	case openai.SpeechResponseFormatAac:
		return "audio/aac"
	case openai.SpeechResponseFormatFlac:
		return "audio/flac"
	default:
		return "audio/mpeg"
	}
}

func (s *SpeechSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if s.client == nil {
		return nil, nil
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          s.voice,
		ResponseFormat: s.format,
		Speed:          s.speed,
	})
	if err != nil {
		slog.Warn("speech synthesis failed", "error", err, "text_length", len(text))
		return nil, nil
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		slog.Warn("failed to read synthesized audio", "error", err)
		return nil, nil
	}
	return data, nil
}
