package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rauth/examprep-backend/internal/assessment"
	"github.com/rauth/examprep-backend/internal/middleware"
	"github.com/rauth/examprep-backend/internal/response"
	"github.com/rauth/examprep-backend/internal/service"
	ws "github.com/rauth/examprep-backend/internal/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a hosted session's clock and lifecycle over WebSocket.
type WSHandler struct {
	sessions *service.AssessmentService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessions *service.AssessmentService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/sessions/:id/stream?token=
// Pushes a snapshot on connect, then tick, finished and submission events.
// Accepts select, advance, abandon and ping actions.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	userID := claims.UserID
	sessionID := c.Param("id")

	// Subscribe before upgrading so an unknown session gets a plain 404.
	events, cancel, err := h.sessions.Subscribe(userID, sessionID)
	if err != nil {
		status, code := classifySessionError(err)
		response.Fail(c, status, code)
		return
	}
	defer cancel()

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewSafeConn(raw)
	defer conn.Close()

	wsLog := h.log.With().
		Int("user_id", userID).
		Str("session_id", sessionID).
		Logger()
	wsLog.Info().Msg("Session stream connected")

	view, err := h.sessions.View(userID, sessionID)
	if err != nil {
		_, code := classifySessionError(err)
		_ = conn.WriteError(string(code), err.Error())
		return
	}
	if err := conn.WriteTyped(ws.SnapshotResponse{Event: ws.EventSnapshot, Snapshot: view.Snapshot}); err != nil {
		return
	}

	done := make(chan struct{})
	defer close(done)
	go h.pump(conn, events, done, wsLog)

	for {
		var msg ws.Request
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var snap assessment.Snapshot
		switch msg.Action {
		case ws.ActionPing:
			_ = conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
			continue
		case ws.ActionSelect:
			if msg.OptionIndex == nil {
				_ = conn.WriteError(string(response.ErrValidation), "option_index is required")
				continue
			}
			snap, err = h.sessions.Select(userID, sessionID, *msg.OptionIndex)
		case ws.ActionAdvance:
			snap, err = h.sessions.Advance(userID, sessionID)
		case ws.ActionAbandon:
			snap, err = h.sessions.Abandon(userID, sessionID)
		default:
			_ = conn.WriteError(string(response.ErrInvalidPayload), "unknown action")
			continue
		}

		if err != nil {
			_, code := classifySessionError(err)
			if code == response.ErrInternal {
				wsLog.Error().Err(err).Str("action", string(msg.Action)).Msg("Session action failed")
			}
			_ = conn.WriteError(string(code), err.Error())
			continue
		}
		if err := conn.WriteTyped(ws.SnapshotResponse{Event: ws.EventSnapshot, Snapshot: snap}); err != nil {
			return
		}
	}
}

// pump forwards session events and keeps the connection alive with pings
// until done is closed.
func (h *WSHandler) pump(conn *ws.SafeConn, events <-chan service.SessionEvent, done <-chan struct{}, log zerolog.Logger) {
	pingTicker := time.NewTicker(ws.PingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case <-done:
			return

		case ev := <-events:
			var err error
			switch ev.Type {
			case service.EventTick:
				err = conn.WriteTyped(ws.TickResponse{Event: ws.EventTick, Remaining: ev.Remaining})
			case service.EventFinished:
				if ev.Result != nil {
					err = conn.WriteTyped(ws.FinishedResponse{Event: ws.EventFinished, Result: *ev.Result})
				}
			case service.EventSubmission:
				err = conn.WriteTyped(ws.SubmissionResponse{Event: ws.EventSubmission, Status: ev.Status})
			}
			if err != nil {
				log.Debug().Err(err).Msg("Stream write failed")
				return
			}

		case <-pingTicker.C:
			if err := conn.Ping(); err != nil {
				return
			}
		}
	}
}
