package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/lingualive/store"
)

// ConversationCreateResponse is the payload for new-conversation requests.
type ConversationCreateResponse struct {
	ConversationID string `json:"conversation_id"`
	Success        bool   `json:"success"`
}

// ConversationGetResponse is the payload for conversation lookups.
type ConversationGetResponse struct {
	ConversationID string       `json:"conversation_id"`
	History        []store.Turn `json:"history"`
	LastUpdated    time.Time    `json:"last_updated"`
	Success        bool         `json:"success"`
}

// ConversationDeleteResponse is the payload for conversation deletions.
type ConversationDeleteResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// CreateConversation allocates a new empty conversation session.
// POST /api/v1/conversations
func (s *APIV1Service) CreateConversation(c echo.Context) error {
	conv := s.Store.Create()
	return c.JSON(http.StatusOK, ConversationCreateResponse{
		ConversationID: conv.ID,
		Success:        true,
	})
}

// GetConversation returns a conversation's history.
// GET /api/v1/conversations/:id
func (s *APIV1Service) GetConversation(c echo.Context) error {
	conv, ok := s.Store.Get(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]any{
			"success": false,
			"error":   "Conversation not found",
		})
	}
	return c.JSON(http.StatusOK, ConversationGetResponse{
		ConversationID: conv.ID,
		History:        conv.Turns,
		LastUpdated:    conv.UpdatedAt,
		Success:        true,
	})
}

// DeleteConversation removes a conversation session.
// DELETE /api/v1/conversations/:id
func (s *APIV1Service) DeleteConversation(c echo.Context) error {
	if !s.Store.Delete(c.Param("id")) {
		return c.JSON(http.StatusNotFound, map[string]any{
			"success": false,
			"error":   "Conversation not found",
		})
	}
	return c.JSON(http.StatusOK, ConversationDeleteResponse{
		Message: "Conversation deleted",
		Success: true,
	})
}
