package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/lingualive/internal/profile"
	"github.com/hrygo/lingualive/internal/scratch"
	"github.com/hrygo/lingualive/plugin/ai"
	"github.com/hrygo/lingualive/plugin/speech"
	"github.com/hrygo/lingualive/server/pipeline"
	"github.com/hrygo/lingualive/server/reply"
	"github.com/hrygo/lingualive/store"
	"github.com/hrygo/lingualive/store/cache"
)

type passthroughNormalizer struct{}

func (passthroughNormalizer) Normalize(_ context.Context, inPath, outPath string) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, data, 0o600)
}

type testEnv struct {
	echo        *echo.Echo
	service     *APIV1Service
	store       *store.ConversationStore
	audioCache  *cache.AudioCache
	transcriber *speech.MockTranscriber
	synthesizer *speech.MockSynthesizer
	llm         *ai.MockLLM
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	manager, err := scratch.NewManager(t.TempDir())
	require.NoError(t, err)
	audioCache, err := cache.NewAudioCache(t.TempDir(), time.Minute)
	require.NoError(t, err)

	env := &testEnv{
		store:       store.NewConversationStore(10),
		audioCache:  audioCache,
		transcriber: &speech.MockTranscriber{Segments: []speech.Segment{{Text: "How are you?"}}},
		synthesizer: &speech.MockSynthesizer{Audio: []byte("mp3 bytes")},
		llm:         &ai.MockLLM{Reply: "I'm doing great, thanks for asking!"},
	}
	p := pipeline.New(pipeline.Options{
		Scratch:       manager,
		Normalizer:    passthroughNormalizer{},
		Transcriber:   env.transcriber,
		Synthesizer:   env.synthesizer,
		Generator:     reply.NewGenerator(env.llm, time.Second),
		Conversations: env.store,
		AudioCache:    audioCache,
		SessionTTL:    time.Hour,
	})

	env.service = NewAPIV1Service(profile.Default(), p, env.store, audioCache)
	env.echo = echo.New()
	env.service.RegisterRoutes(env.echo)
	return env
}

// multipartAudio builds a multipart body with an audio file part plus
// optional form fields.
func multipartAudio(t *testing.T, filename string, audio []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := w.CreateFormFile("audio", filename)
		require.NoError(t, err)
		_, err = part.Write(audio)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func (env *testEnv) do(method, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, body)
		req.Header.Set(echo.HeaderContentType, contentType)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	return rec
}

func TestConverse(t *testing.T) {
	t.Run("HappyPath", func(t *testing.T) {
		env := newTestEnv(t)

		body, ct := multipartAudio(t, "clip.webm", []byte("audio"), nil)
		rec := env.do(http.MethodPost, "/api/v1/voice/converse", body, ct)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ConverseResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "How are you?", resp.Transcript)
		assert.Equal(t, "I'm doing great, thanks for asking!", resp.Reply)
		assert.NotEmpty(t, resp.ConversationID)
		assert.Contains(t, resp.AudioURL, "/api/v1/audio/")

		// The advertised URL actually serves the synthesized audio.
		audioRec := env.do(http.MethodGet, resp.AudioURL, nil, "")
		require.Equal(t, http.StatusOK, audioRec.Code)
		assert.Equal(t, []byte("mp3 bytes"), audioRec.Body.Bytes())
	})

	t.Run("MissingAudioPart", func(t *testing.T) {
		env := newTestEnv(t)

		body, ct := multipartAudio(t, "", nil, map[string]string{"persist": "true"})
		rec := env.do(http.MethodPost, "/api/v1/voice/converse", body, ct)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ConverseResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, "No audio file provided", resp.Error)
	})

	t.Run("NoSpeech", func(t *testing.T) {
		env := newTestEnv(t)
		env.transcriber.Segments = nil

		body, ct := multipartAudio(t, "clip.webm", []byte("silence"), nil)
		rec := env.do(http.MethodPost, "/api/v1/voice/converse", body, ct)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ConverseResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, "No speech detected", resp.Error)
		assert.Empty(t, resp.Reply)
		assert.Equal(t, 0, env.store.Count())
	})

	t.Run("TranscriptionFailure", func(t *testing.T) {
		env := newTestEnv(t)
		env.transcriber.Err = assert.AnError

		body, ct := multipartAudio(t, "clip.webm", []byte("audio"), nil)
		rec := env.do(http.MethodPost, "/api/v1/voice/converse", body, ct)
		require.Equal(t, http.StatusInternalServerError, rec.Code)

		var resp ConverseResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, "Transcription failed", resp.Error)
		// Engine failure detail never leaks to the caller.
		assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
	})

	t.Run("TTSOptOut", func(t *testing.T) {
		env := newTestEnv(t)

		body, ct := multipartAudio(t, "clip.webm", []byte("audio"), map[string]string{"tts": "false"})
		rec := env.do(http.MethodPost, "/api/v1/voice/converse", body, ct)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ConverseResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Empty(t, resp.AudioURL)
		assert.Empty(t, env.synthesizer.Calls)
	})

	t.Run("ContinuesExistingConversation", func(t *testing.T) {
		env := newTestEnv(t)
		conv := env.store.Create()

		body, ct := multipartAudio(t, "clip.webm", []byte("audio"), map[string]string{
			"conversation_id": conv.ID,
			"turn_number":     "7",
		})
		rec := env.do(http.MethodPost, "/api/v1/voice/converse", body, ct)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ConverseResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, conv.ID, resp.ConversationID)

		stored, ok := env.store.Get(conv.ID)
		require.True(t, ok)
		require.Len(t, stored.Turns, 1)
		assert.Equal(t, 7, stored.Turns[0].Sequence)
	})
}

func TestTranscribe(t *testing.T) {
	t.Run("ReturnsTranscriptOnly", func(t *testing.T) {
		env := newTestEnv(t)

		body, ct := multipartAudio(t, "clip.webm", []byte("audio"), nil)
		rec := env.do(http.MethodPost, "/api/v1/voice/transcribe", body, ct)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp TranscriptionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "How are you?", resp.Transcript)
		assert.Equal(t, 0, env.llm.CallCount)
		assert.Equal(t, 0, env.store.Count())
	})

	t.Run("NoSpeech", func(t *testing.T) {
		env := newTestEnv(t)
		env.transcriber.Segments = []speech.Segment{{Text: "  \n "}}

		body, ct := multipartAudio(t, "clip.webm", []byte("audio"), nil)
		rec := env.do(http.MethodPost, "/api/v1/voice/transcribe", body, ct)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp TranscriptionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, "No speech detected", resp.Error)
	})
}

func TestConversationEndpoints(t *testing.T) {
	t.Run("CreateGetDelete", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(http.MethodPost, "/api/v1/conversations", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var created ConversationCreateResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		assert.True(t, created.Success)
		require.NotEmpty(t, created.ConversationID)

		env.store.Append(created.ConversationID, store.Turn{UserText: "hi", AssistantText: "hello"})

		rec = env.do(http.MethodGet, "/api/v1/conversations/"+created.ConversationID, nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var got ConversationGetResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, created.ConversationID, got.ConversationID)
		require.Len(t, got.History, 1)
		assert.Equal(t, "hi", got.History[0].UserText)

		rec = env.do(http.MethodDelete, "/api/v1/conversations/"+created.ConversationID, nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var deleted ConversationDeleteResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deleted))
		assert.True(t, deleted.Success)
		assert.Equal(t, "Conversation deleted", deleted.Message)

		rec = env.do(http.MethodGet, "/api/v1/conversations/"+created.ConversationID, nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("GetUnknownReturns404", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(http.MethodGet, "/api/v1/conversations/nope", nil, "")
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Conversation not found")
	})

	t.Run("DeleteUnknownReturns404", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(http.MethodDelete, "/api/v1/conversations/nope", nil, "")
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Conversation not found")
	})
}

func TestServeAudio(t *testing.T) {
	t.Run("ServesCachedAudio", func(t *testing.T) {
		env := newTestEnv(t)
		id, err := env.audioCache.Put([]byte("cached mp3"), "audio/mpeg")
		require.NoError(t, err)

		rec := env.do(http.MethodGet, "/api/v1/audio/"+id, nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []byte("cached mp3"), rec.Body.Bytes())
		assert.Equal(t, "audio/mpeg", rec.Header().Get(echo.HeaderContentType))
	})

	t.Run("UnknownIDReturns404", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(http.MethodGet, "/api/v1/audio/missing", nil, "")
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Audio not found or expired")
	})
}
