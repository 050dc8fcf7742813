package server

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

const heartbeatInterval = 25 * time.Second

// handleRealtime streams change notifications as server-sent events.
// Events carry no payload; clients re-fetch from the API on receipt.
func (h *httpHandler) handleRealtime(c *gin.Context) {
	stream, cleanup := h.bus.Subscribe(c.Request.Context())
	defer cleanup()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case name, open := <-stream:
			if !open {
				return false
			}
			c.SSEvent(string(name), "{}")
			return true
		case <-heartbeat.C:
			c.SSEvent("heartbeat", "{}")
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
