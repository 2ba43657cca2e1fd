package api

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"jordanella.com/gamebot-go/internal/events"
)

const (
	streamBuffer = 64
	writeWait    = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// stream pushes every bus event to a websocket client as one JSON message.
// A client that falls behind by more than streamBuffer events loses the
// overflow rather than stalling the bus.
func (s *Server) stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", err)
		return
	}
	defer conn.Close()

	queue := make(chan events.Event, streamBuffer)
	var dropped atomic.Int64
	sub := s.opts.Bus.Subscribe(events.EventTypeAll, func(e events.Event) {
		select {
		case queue <- e:
		default:
			dropped.Add(1)
		}
	})
	defer s.opts.Bus.Unsubscribe(sub)

	// The client never sends anything useful; reading detects when it goes away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	s.logger.InfoWithContext("Event stream opened", map[string]interface{}{"client": c.ClientIP()})
	defer func() {
		s.logger.InfoWithContext("Event stream closed", map[string]interface{}{
			"client":  c.ClientIP(),
			"dropped": dropped.Load(),
		})
	}()

	for {
		select {
		case e := <-queue:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-gone:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
