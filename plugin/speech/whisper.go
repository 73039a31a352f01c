package speech

import (
	"context"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
)

// WhisperTranscriber transcribes audio through the OpenAI-compatible
// transcription endpoint.
type WhisperTranscriber struct {
	client *openai.Client
	model  string
}

// NewWhisperTranscriber creates a transcriber from the engine config.
func NewWhisperTranscriber(cfg *Config) (*WhisperTranscriber, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("transcription engine requires an API key")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.TranscribeModel
	if model == "" {
		model = openai.Whisper1
	}

	return &WhisperTranscriber{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

func (t *WhisperTranscriber) Transcribe(ctx context.Context, wavPath string) ([]Segment, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: wavPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, errors.Wrap(err, "transcription request failed")
	}

	if len(resp.Segments) == 0 {
		// Some backends return only the flat text field.
		if resp.Text == "" {
			return nil, nil
		}
		return []Segment{{Text: resp.Text}}, nil
	}

	segments := make([]Segment, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		segments = append(segments, Segment{Text: seg.Text})
	}
	return segments, nil
}
