// Package v1 exposes the HTTP API for the voice-conversation backend.
package v1

import (
	"github.com/labstack/echo/v4"

	"github.com/hrygo/lingualive/internal/profile"
	"github.com/hrygo/lingualive/server/pipeline"
	"github.com/hrygo/lingualive/store"
	"github.com/hrygo/lingualive/store/cache"
)

type APIV1Service struct {
	Profile    *profile.Profile
	Pipeline   *pipeline.Pipeline
	Store      *store.ConversationStore
	AudioCache *cache.AudioCache
}

func NewAPIV1Service(profile *profile.Profile, p *pipeline.Pipeline, s *store.ConversationStore, ac *cache.AudioCache) *APIV1Service {
	return &APIV1Service{
		Profile:    profile,
		Pipeline:   p,
		Store:      s,
		AudioCache: ac,
	}
}

// RegisterRoutes registers all API routes with the given echo instance.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")

	g.POST("/voice/transcribe", s.Transcribe)
	g.POST("/voice/converse", s.Converse)

	g.POST("/conversations", s.CreateConversation)
	g.GET("/conversations/:id", s.GetConversation)
	g.DELETE("/conversations/:id", s.DeleteConversation)

	g.GET("/audio/:id", s.ServeAudio)
}
