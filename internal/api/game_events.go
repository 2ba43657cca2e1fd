package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"jordanella.com/gamebot-go/internal/bot"
)

// gameEvents lists game events newer than the required since timestamp
func (s *Server) gameEvents(c *gin.Context) {
	raw := c.Query("since")
	if raw == "" {
		respondError(c, http.StatusBadRequest, "params must contain 'since'")
		return
	}
	since, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("since '%s' must be an RFC 3339 timestamp", raw))
		return
	}

	items := s.bot.GameEventsSince(since)
	if items == nil {
		items = []bot.GameEvent{}
	}
	respond(c, http.StatusOK, gin.H{"items": items})
}
