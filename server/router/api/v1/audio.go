package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ServeAudio serves a cached synthesized reply.
// GET /api/v1/audio/:id
func (s *APIV1Service) ServeAudio(c echo.Context) error {
	path, mime, ok := s.AudioCache.Open(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]any{
			"success": false,
			"error":   "Audio not found or expired",
		})
	}
	c.Response().Header().Set(echo.HeaderContentType, mime)
	return c.File(path)
}
