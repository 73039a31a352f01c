package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/lingualive/internal/profile"
	"github.com/hrygo/lingualive/internal/scratch"
	"github.com/hrygo/lingualive/plugin/ai"
	"github.com/hrygo/lingualive/plugin/audio"
	"github.com/hrygo/lingualive/plugin/speech"
	"github.com/hrygo/lingualive/server"
	"github.com/hrygo/lingualive/server/metrics"
	"github.com/hrygo/lingualive/server/pipeline"
	"github.com/hrygo/lingualive/server/reply"
	apiv1 "github.com/hrygo/lingualive/server/router/api/v1"
	"github.com/hrygo/lingualive/store"
	"github.com/hrygo/lingualive/store/cache"
)

const version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "lingualive",
	Short: "Voice-conversation backend: transcribe, reply, speak",
	RunE: func(_ *cobra.Command, _ []string) error {
		return run()
	},
}

func init() {
	rootCmd.Flags().String("mode", "dev", `mode of server, can be "prod" or "dev"`)
	rootCmd.Flags().String("addr", "", "address of server")
	rootCmd.Flags().Int("port", 8000, "port of server")
	rootCmd.Flags().String("data", "", "data directory")

	for _, flag := range []string{"mode", "addr", "port", "data"} {
		if err := viper.BindPFlag(flag, rootCmd.Flags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
	viper.SetEnvPrefix("lingualive")
	viper.AutomaticEnv()
}

func run() error {
	p := profile.Default()
	p.Mode = viper.GetString("mode")
	p.Addr = viper.GetString("addr")
	p.Port = viper.GetInt("port")
	p.Data = viper.GetString("data")
	p.Version = version
	p.FromEnv()
	if err := p.Validate(); err != nil {
		return err
	}

	setupLogger(p)

	scratchManager, err := scratch.NewManager(filepath.Join(p.Data, "scratch"))
	if err != nil {
		return err
	}
	audioCache, err := cache.NewAudioCache(filepath.Join(p.Data, "audio-cache"), p.AudioCacheTTL)
	if err != nil {
		return err
	}
	conversations := store.NewConversationStore(p.RetentionTurns)

	speechConfig := &speech.Config{
		APIKey:          p.OpenAIAPIKey,
		BaseURL:         p.OpenAIBaseURL,
		TranscribeModel: p.TranscribeModel,
		SpeechModel:     p.SpeechModel,
		Voice:           p.SpeechVoice,
		Format:          p.SpeechFormat,
		Speed:           p.SpeechSpeed,
	}
	transcriber, err := speech.NewWhisperTranscriber(speechConfig)
	if err != nil {
		return fmt.Errorf("transcription engine unavailable: %w", err)
	}
	synthesizer := speech.NewSpeechSynthesizer(speechConfig)

	// A missing completion engine degrades to fallback replies instead of
	// failing startup.
	llm, err := ai.NewLLMService(&ai.Config{
		APIKey:      p.OpenAIAPIKey,
		BaseURL:     p.OpenAIBaseURL,
		Model:       p.ChatModel,
		MaxTokens:   p.MaxReplyTokens,
		Temperature: p.Temperature,
	})
	if err != nil {
		slog.Warn("completion engine unavailable, replies will use fallback text", "error", err)
		llm = nil
	}
	generator := reply.NewGenerator(llm, p.ReplyTimeout)

	m := metrics.NewMetrics()
	generator.OnFallback(m.ReplyFallbacks.Inc)

	pipe := pipeline.New(pipeline.Options{
		Scratch:       scratchManager,
		Normalizer:    audio.NewFFmpegNormalizer(p.FFmpegPath, p.SampleRate, p.Channels),
		Transcriber:   transcriber,
		Synthesizer:   synthesizer,
		Generator:     generator,
		Conversations: conversations,
		AudioCache:    audioCache,
		Metrics:       m,
		SessionTTL:    p.SessionTTL,
		AudioMime:     synthesizer.MimeType(),
	})

	srv := server.New(p, apiv1.NewAPIV1Service(p, pipe, conversations, audioCache))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("lingualive starting",
		"version", version,
		"data", p.Data,
		"retention_turns", p.RetentionTurns,
		"reply_timeout", p.ReplyTimeout)
	return srv.Start(ctx)
}

func setupLogger(p *profile.Profile) {
	var handler slog.Handler
	if p.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
