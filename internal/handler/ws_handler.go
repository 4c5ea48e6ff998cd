package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"recon-engine/internal/middleware"
	"recon-engine/internal/orchestrator"
	"recon-engine/internal/progressbus"
	"recon-engine/pkg/logger"
)

// WSHandler implements `WS /api/v1/batches/:id/ws`: one goroutine per
// connected client reads off the Progress Bus's per-batch subscriber
// channel and pushes batch_progress/file_progress/batch_complete/
// batch_error frames until batch_complete has been sent or the client
// disconnects.
type WSHandler struct {
	orc *orchestrator.Orchestrator
	bus *progressbus.Bus
	upgrader websocket.Upgrader
}

func NewWSHandler(orc *orchestrator.Orchestrator, bus *progressbus.Bus) *WSHandler {
	return &WSHandler{
		orc: orc,
		bus: bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The WS upgrade accepts any origin. The CORS middleware ahead
			// of this handler only sets response headers and does not
			// reject requests from origins outside corsOrigins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

const wsWriteTimeout = 10 * time.Second

// Stream upgrades the connection and forwards every progress event for
// batchID until it has sent batch_complete, the client disconnects, or the
// subscription is closed.
func (h *WSHandler) Stream(c *gin.Context) {
	user := middleware.CurrentUser(c)
	batchID := c.Param("id")

	if _, err := h.orc.GetBatch(user.ID, batchID); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the batch owner"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.GetLogger().WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	events, unsubscribe := h.bus.Subscribe(batchID)
	defer unsubscribe()

	// A slow client never blocks the Progress Bus producer: the
	// bus itself drops oldest events for a full subscriber buffer; this
	// loop only owns the outbound write side for one client.
	for evt := range events {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(evt); err != nil {
			return
		}
		// batch_complete is the terminal event; batch_error
		// leaves the connection open until the client closes it.
		if evt.Type == progressbus.EventBatchComplete {
			return
		}
	}
}
