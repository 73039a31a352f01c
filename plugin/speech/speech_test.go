package speech

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpeechSynthesizer(t *testing.T) {
	t.Run("NoAPIKeyMeansAbsentAudio", func(t *testing.T) {
		s := NewSpeechSynthesizer(&Config{})
		data, err := s.Synthesize(context.Background(), "hello")
		require.NoError(t, err)
		assert.Nil(t, data)
	})

	t.Run("NilConfigMeansAbsentAudio", func(t *testing.T) {
		s := NewSpeechSynthesizer(nil)
		data, err := s.Synthesize(context.Background(), "hello")
		require.NoError(t, err)
		assert.Nil(t, data)
	})

	t.Run("BlankTextMeansAbsentAudio", func(t *testing.T) {
		s := NewSpeechSynthesizer(&Config{APIKey: "test-key"})
		data, err := s.Synthesize(context.Background(), "   \n\t ")
		require.NoError(t, err)
		assert.Nil(t, data)
	})

	t.Run("DefaultMimeType", func(t *testing.T) {
		s := NewSpeechSynthesizer(&Config{})
		assert.Equal(t, "audio/mpeg", s.MimeType())
	})

	t.Run("MimeTypeFollowsFormat", func(t *testing.T) {
		for format, mime := range map[string]string{
			"wav":  "audio/wav",
			"opus": "audio/opus",
			"aac":  "audio/aac",
			"flac": "audio/flac",
			"mp3":  "audio/mpeg",
		} {
			s := NewSpeechSynthesizer(&Config{APIKey: "test-key", Format: format})
			assert.Equal(t, mime, s.MimeType(), format)
		}
	})
}

func TestNewWhisperTranscriber(t *testing.T) {
	t.Run("RequiresAPIKey", func(t *testing.T) {
		_, err := NewWhisperTranscriber(&Config{})
		require.Error(t, err)
	})

	t.Run("ConfiguredEngine", func(t *testing.T) {
		tr, err := NewWhisperTranscriber(&Config{APIKey: "test-key"})
		require.NoError(t, err)
		assert.NotNil(t, tr)
	})
}
