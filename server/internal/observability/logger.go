package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// LogFieldRequestID is the field name for request ID.
	LogFieldRequestID = "request_id"
	// LogFieldConversationID is the field name for conversation ID.
	LogFieldConversationID = "conversation_id"
	// LogFieldDuration is the field name for duration in milliseconds.
	LogFieldDuration = "duration_ms"
	// LogFieldTranscriptLen is the field name for transcript length.
	LogFieldTranscriptLen = "transcript_length"
	// LogFieldReplyLen is the field name for reply length.
	LogFieldReplyLen = "reply_length"
	// LogFieldStage is the field name for the pipeline stage.
	LogFieldStage = "stage"
	// LogFieldErrorCode is the field name for error code.
	LogFieldErrorCode = "error_code"
)

// RequestContext carries structured logging state for a single pipeline run.
type RequestContext struct {
	RequestID      string
	ConversationID string
	StartTime      time.Time
	Logger         *slog.Logger
}

// NewRequestContext creates a new request context with a generated request ID.
func NewRequestContext(logger *slog.Logger, conversationID string) *RequestContext {
	return &RequestContext{
		RequestID:      uuid.New().String(),
		ConversationID: conversationID,
		StartTime:      time.Now(),
		Logger:         logger,
	}
}

// Info logs an info message.
func (r *RequestContext) Info(msg string, attrs ...slog.Attr) {
	r.Logger.LogAttrs(context.Background(), slog.LevelInfo, msg, r.withBase(attrs)...)
}

// Debug logs a debug message.
func (r *RequestContext) Debug(msg string, attrs ...slog.Attr) {
	r.Logger.LogAttrs(context.Background(), slog.LevelDebug, msg, r.withBase(attrs)...)
}

// Warn logs a warning message.
func (r *RequestContext) Warn(msg string, attrs ...slog.Attr) {
	r.Logger.LogAttrs(context.Background(), slog.LevelWarn, msg, r.withBase(attrs)...)
}

// Error logs an error message with the error.
func (r *RequestContext) Error(msg string, err error, attrs ...slog.Attr) {
	attrs = append(attrs, slog.String("error", err.Error()))
	r.Logger.LogAttrs(context.Background(), slog.LevelError, msg, r.withBase(attrs)...)
}

// DurationMs returns the elapsed time since the request started, in
// milliseconds.
func (r *RequestContext) DurationMs() int64 {
	return time.Since(r.StartTime).Milliseconds()
}

func (r *RequestContext) withBase(attrs []slog.Attr) []slog.Attr {
	base := []slog.Attr{slog.String(LogFieldRequestID, r.RequestID)}
	if r.ConversationID != "" {
		base = append(base, slog.String(LogFieldConversationID, r.ConversationID))
	}
	return append(base, attrs...)
}
