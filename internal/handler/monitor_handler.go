package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rauth/examprep-backend/internal/middleware"
	"github.com/rauth/examprep-backend/internal/response"
	"github.com/rauth/examprep-backend/internal/service"
	"github.com/rs/zerolog"
)

const (
	keepAliveInterval = 30 * time.Second
	snapshotTimeout   = 5 * time.Second
)

// MonitorHandler streams recorded progress to the admin dashboard.
type MonitorHandler struct {
	progressService *service.ProgressService
	log             zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(progressService *service.ProgressService, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		progressService: progressService,
		log:             log.With().Str("component", "monitor_handler").Logger(),
	}
}

// ProgressFeed godoc
// GET /api/v1/admin/progress/feed
// SSE stream: one snapshot event with per-content aggregates, then every
// recorded attempt as it is persisted.
func (h *MonitorHandler) ProgressFeed(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	// Subscribe before the snapshot so nothing persisted in between is lost.
	pubsub := h.progressService.SubscribeFeed(reqCtx)
	defer pubsub.Close()
	ch := pubsub.Channel()

	h.sendSnapshot(c, reqCtx)

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	h.log.Info().Int("admin_id", claims.UserID).Msg("Admin attached to progress feed")

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Int("admin_id", claims.UserID).Msg("Admin detached from progress feed")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(c, []byte(msg.Payload))

		case <-keepAliveTicker.C:
			writeSSE(c, pingPayload)
		}
	}
}

func (h *MonitorHandler) sendSnapshot(c *gin.Context, ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()

	summary, err := h.progressService.Summary(fetchCtx, "")
	if err != nil {
		h.log.Warn().Err(err).Msg("Progress feed snapshot failed")
	}
	payload, err := json.Marshal(gin.H{"type": "snapshot", "summary": summary})
	if err != nil {
		return
	}
	writeSSE(c, payload)
}

func writeSSE(c *gin.Context, payload []byte) {
	c.Writer.Write([]byte("data: "))
	c.Writer.Write(payload)
	c.Writer.Write([]byte("\n\n"))
	c.Writer.Flush()
}
