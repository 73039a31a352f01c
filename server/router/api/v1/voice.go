package v1

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	apierrors "github.com/hrygo/lingualive/server/internal/errors"
	"github.com/hrygo/lingualive/server/pipeline"
)

// TranscriptionResponse is the payload for transcription-only requests.
type TranscriptionResponse struct {
	Transcript string `json:"transcript"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// ConverseResponse is the payload for transcribe-and-reply requests.
type ConverseResponse struct {
	Transcript     string `json:"transcript"`
	Reply          string `json:"reply"`
	AudioURL       string `json:"audio_url,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Success        bool   `json:"success"`
	Error          string `json:"error,omitempty"`
}

const noSpeechMessage = "No speech detected"

// readUpload pulls the multipart audio payload out of the request.
func readUpload(c echo.Context) ([]byte, string, error) {
	fileHeader, err := c.FormFile("audio")
	if err != nil {
		return nil, "", apierrors.InvalidArgument("No audio file provided")
	}
	if fileHeader.Filename == "" {
		return nil, "", apierrors.InvalidArgument("No audio file provided")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, "", apierrors.Internal("failed to open uploaded audio", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", apierrors.Internal("failed to read uploaded audio", err)
	}
	return data, fileHeader.Filename, nil
}

// Transcribe handles transcription-only requests.
// POST /api/v1/voice/transcribe
func (s *APIV1Service) Transcribe(c echo.Context) error {
	data, filename, err := readUpload(c)
	if err != nil {
		return s.voiceError(c, err)
	}

	result, err := s.Pipeline.Run(c.Request().Context(), &pipeline.Request{
		Audio:          data,
		Filename:       filename,
		TranscribeOnly: true,
	})
	if err != nil {
		return s.voiceError(c, err)
	}

	if result.NoSpeech {
		return c.JSON(http.StatusOK, TranscriptionResponse{
			Success: false,
			Error:   noSpeechMessage,
		})
	}
	return c.JSON(http.StatusOK, TranscriptionResponse{
		Transcript: result.Transcript,
		Success:    true,
	})
}

// Converse handles transcribe-and-reply requests.
// POST /api/v1/voice/converse
func (s *APIV1Service) Converse(c echo.Context) error {
	data, filename, err := readUpload(c)
	if err != nil {
		return s.voiceError(c, err)
	}

	turnNumber := 0
	if v := c.FormValue("turn_number"); v != "" {
		if n, parseErr := strconv.Atoi(v); parseErr == nil {
			turnNumber = n
		}
	}

	req := &pipeline.Request{
		Audio:          data,
		Filename:       filename,
		ConversationID: c.FormValue("conversation_id"),
		TurnNumber:     turnNumber,
		Persist:        c.FormValue("persist") != "false",
		WantAudio:      c.FormValue("tts") != "false",
	}

	result, err := s.Pipeline.Run(c.Request().Context(), req)
	if err != nil {
		return s.voiceError(c, err)
	}

	if result.NoSpeech {
		return c.JSON(http.StatusOK, ConverseResponse{
			ConversationID: result.ConversationID,
			Success:        false,
			Error:          noSpeechMessage,
		})
	}

	resp := ConverseResponse{
		Transcript:     result.Transcript,
		Reply:          result.Reply,
		ConversationID: result.ConversationID,
		Success:        true,
	}
	if result.AudioID != "" {
		resp.AudioURL = "/api/v1/audio/" + result.AudioID
	}
	return c.JSON(http.StatusOK, resp)
}

// voiceError shapes pipeline failures for the caller. The original failure
// detail stays in the logs; the response carries only the safe message.
func (s *APIV1Service) voiceError(c echo.Context, err error) error {
	pErr, ok := err.(*apierrors.PipelineError)
	if !ok {
		pErr = apierrors.Internal("internal error", err)
	}

	status := http.StatusInternalServerError
	switch pErr.Code {
	case apierrors.ErrCodeInvalidArgument, apierrors.ErrCodeConversionFailed:
		status = http.StatusBadRequest
	}

	slog.Error("voice request failed",
		"code", pErr.Code,
		"error", pErr.Error(),
		"path", c.Path())

	return c.JSON(status, ConverseResponse{
		Success: false,
		Error:   pErr.Message,
	})
}
