package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory (scratch files, cached reply audio)
	Data string
	// Version is the current version of server
	Version string
	// Origins are the allowed CORS origins for the web client
	Origins []string

	// Engine configuration
	OpenAIAPIKey    string // LINGUALIVE_OPENAI_API_KEY
	OpenAIBaseURL   string // LINGUALIVE_OPENAI_BASE_URL (default: https://api.openai.com/v1)
	TranscribeModel string // LINGUALIVE_TRANSCRIBE_MODEL (default: whisper-1)
	ChatModel       string // LINGUALIVE_CHAT_MODEL (default: gpt-4o-mini)
	SpeechModel     string // LINGUALIVE_SPEECH_MODEL (default: tts-1)
	SpeechVoice     string // LINGUALIVE_SPEECH_VOICE (default: alloy)
	SpeechFormat    string // LINGUALIVE_SPEECH_FORMAT (default: mp3)
	SpeechSpeed     float64

	// Audio normalization
	FFmpegPath string // LINGUALIVE_FFMPEG_PATH (default: ffmpeg)
	SampleRate int    // LINGUALIVE_SAMPLE_RATE (default: 16000)
	Channels   int    // LINGUALIVE_CHANNELS (default: 1)

	// Conversation store
	RetentionTurns int           // LINGUALIVE_RETENTION_TURNS (default: 10)
	SessionTTL     time.Duration // LINGUALIVE_SESSION_TTL (default: 1h)

	// Reply generation
	ReplyTimeout   time.Duration // LINGUALIVE_REPLY_TIMEOUT (default: 10s)
	MaxReplyTokens int           // LINGUALIVE_MAX_REPLY_TOKENS (default: 150)
	Temperature    float32       // LINGUALIVE_TEMPERATURE (default: 0.7)

	// Reply audio cache
	AudioCacheTTL time.Duration // LINGUALIVE_AUDIO_CACHE_TTL (default: 5m)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// Default returns a profile populated with default values.
func Default() *Profile {
	return &Profile{
		Mode:            "dev",
		Port:            8000,
		Origins:         []string{"http://localhost:3000", "http://localhost:3002"},
		OpenAIBaseURL:   "https://api.openai.com/v1",
		TranscribeModel: "whisper-1",
		ChatModel:       "gpt-4o-mini",
		SpeechModel:     "tts-1",
		SpeechVoice:     "alloy",
		SpeechFormat:    "mp3",
		SpeechSpeed:     1.0,
		FFmpegPath:      "ffmpeg",
		SampleRate:      16000,
		Channels:        1,
		RetentionTurns:  10,
		SessionTTL:      time.Hour,
		ReplyTimeout:    10 * time.Second,
		MaxReplyTokens:  150,
		Temperature:     0.7,
		AudioCacheTTL:   5 * time.Minute,
	}
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		slog.Warn("invalid integer in environment, using default", "key", key, "value", value)
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		slog.Warn("invalid duration in environment, using default", "key", key, "value", value)
	}
	return defaultValue
}

// FromEnv loads configuration from LINGUALIVE_* environment variables.
// Values already set on the profile act as defaults.
func (p *Profile) FromEnv() {
	p.OpenAIAPIKey = getEnvOrDefault("LINGUALIVE_OPENAI_API_KEY", p.OpenAIAPIKey)
	p.OpenAIBaseURL = getEnvOrDefault("LINGUALIVE_OPENAI_BASE_URL", p.OpenAIBaseURL)
	p.TranscribeModel = getEnvOrDefault("LINGUALIVE_TRANSCRIBE_MODEL", p.TranscribeModel)
	p.ChatModel = getEnvOrDefault("LINGUALIVE_CHAT_MODEL", p.ChatModel)
	p.SpeechModel = getEnvOrDefault("LINGUALIVE_SPEECH_MODEL", p.SpeechModel)
	p.SpeechVoice = getEnvOrDefault("LINGUALIVE_SPEECH_VOICE", p.SpeechVoice)
	p.SpeechFormat = getEnvOrDefault("LINGUALIVE_SPEECH_FORMAT", p.SpeechFormat)
	p.FFmpegPath = getEnvOrDefault("LINGUALIVE_FFMPEG_PATH", p.FFmpegPath)

	p.SampleRate = getIntEnv("LINGUALIVE_SAMPLE_RATE", p.SampleRate)
	p.Channels = getIntEnv("LINGUALIVE_CHANNELS", p.Channels)
	p.RetentionTurns = getIntEnv("LINGUALIVE_RETENTION_TURNS", p.RetentionTurns)
	p.MaxReplyTokens = getIntEnv("LINGUALIVE_MAX_REPLY_TOKENS", p.MaxReplyTokens)

	p.SessionTTL = getDurationEnv("LINGUALIVE_SESSION_TTL", p.SessionTTL)
	p.ReplyTimeout = getDurationEnv("LINGUALIVE_REPLY_TIMEOUT", p.ReplyTimeout)
	p.AudioCacheTTL = getDurationEnv("LINGUALIVE_AUDIO_CACHE_TTL", p.AudioCacheTTL)

	if origins := os.Getenv("LINGUALIVE_ORIGINS"); origins != "" {
		p.Origins = nil
		for _, part := range strings.Split(origins, ",") {
			if origin := strings.TrimSpace(part); origin != "" {
				p.Origins = append(p.Origins, origin)
			}
		}
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if err := os.MkdirAll(dataDir, 0o770); err != nil {
		return "", errors.Wrapf(err, "unable to create data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.Data == "" {
		p.Data = filepath.Join(os.TempDir(), "lingualive")
	}
	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if p.Port <= 0 || p.Port > 65535 {
		return fmt.Errorf("invalid port %d", p.Port)
	}
	if p.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", p.SampleRate)
	}
	if p.Channels <= 0 {
		return fmt.Errorf("invalid channel count %d", p.Channels)
	}
	if p.RetentionTurns <= 0 {
		p.RetentionTurns = 10
	}
	if p.SessionTTL <= 0 {
		p.SessionTTL = time.Hour
	}
	if p.ReplyTimeout <= 0 {
		p.ReplyTimeout = 10 * time.Second
	}
	if p.AudioCacheTTL <= 0 {
		p.AudioCacheTTL = 5 * time.Minute
	}

	if p.OpenAIAPIKey == "" {
		slog.Warn("LINGUALIVE_OPENAI_API_KEY not set, transcription and replies will not work")
	}

	return nil
}
