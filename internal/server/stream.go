package server

import (
	"net/http"
	"time"

	"github.com/Z3rkRapt0r/gofood-men/backend/internal/realtime"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type heartbeatPayload struct {
	Timestamp time.Time `json:"timestamp"`
}

// handleReservationStream keeps a server-sent event stream open for the dashboard. Each
// reservations-changed event tells the client to refetch its lists and room view.
func (h *httpHandler) handleReservationStream(c *gin.Context) {
	tenantID, ok := h.tenantFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	messages, cleanup := h.realtime.Subscribe(ctx, tenantID.String())
	defer cleanup()

	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	h.logger.Debug("reservation stream opened", zap.String("tenant_id", tenantID.String()))
	defer h.logger.Debug("reservation stream closed", zap.String("tenant_id", tenantID.String()))

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case message, open := <-messages:
			if !open {
				return
			}
			if message.EventType == "" {
				message.EventType = realtime.EventReservationsChanged
			}
			c.SSEvent(message.EventType, message)
			c.Writer.Flush()
		case tick := <-ticker.C:
			c.SSEvent(realtime.EventHeartbeat, heartbeatPayload{Timestamp: tick.UTC()})
			c.Writer.Flush()
		}
	}
}
