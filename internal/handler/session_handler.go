package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rauth/examprep-backend/internal/assessment"
	"github.com/rauth/examprep-backend/internal/middleware"
	"github.com/rauth/examprep-backend/internal/model"
	"github.com/rauth/examprep-backend/internal/repository"
	"github.com/rauth/examprep-backend/internal/response"
	"github.com/rauth/examprep-backend/internal/service"
	"github.com/rauth/examprep-backend/internal/validator"
	"github.com/rs/zerolog"
)

// SessionHandler exposes server-hosted assessment sessions over REST.
type SessionHandler struct {
	sessions *service.AssessmentService
	log      zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *service.AssessmentService, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		log:      log.With().Str("component", "session_handler").Logger(),
	}
}

// Start godoc
// POST /api/v1/sessions
// Starts a session, or returns the caller's unfinished one over the same content.
func (h *SessionHandler) Start(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view, created, err := h.sessions.Start(c.Request.Context(), claims.UserID, req)
	if err != nil {
		h.fail(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.Success(c, status, view)
}

// Get godoc
// GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	view, err := h.sessions.View(claims.UserID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// Select godoc
// POST /api/v1/sessions/:id/select
func (h *SessionHandler) Select(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SelectAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	snap, err := h.sessions.Select(claims.UserID, c.Param("id"), *req.OptionIndex)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"snapshot": snap})
}

// Advance godoc
// POST /api/v1/sessions/:id/advance
func (h *SessionHandler) Advance(c *gin.Context) {
	h.transition(c, h.sessions.Advance)
}

// Abandon godoc
// POST /api/v1/sessions/:id/abandon
// Ends the session without recording progress.
func (h *SessionHandler) Abandon(c *gin.Context) {
	h.transition(c, h.sessions.Abandon)
}

func (h *SessionHandler) transition(c *gin.Context, op func(userID int, id string) (assessment.Snapshot, error)) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	snap, err := op(claims.UserID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"snapshot": snap})
}

// Result godoc
// GET /api/v1/sessions/:id/result
func (h *SessionHandler) Result(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	res, err := h.sessions.Result(claims.UserID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *SessionHandler) fail(c *gin.Context, err error) {
	status, code := classifySessionError(err)
	switch {
	case status == http.StatusInternalServerError:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("Session request failed")
		response.Fail(c, status, code)
	case code == response.ErrInvalidQuestionSet:
		response.FailWithDetail(c, status, code, err.Error())
	default:
		response.Fail(c, status, code)
	}
}

// classifySessionError maps service and engine errors to an HTTP status and
// error code. The WebSocket stream reuses the code.
func classifySessionError(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound, response.ErrSessionNotFound
	case errors.Is(err, service.ErrPremiumRequired):
		return http.StatusForbidden, response.ErrPremiumRequired
	case errors.Is(err, repository.ErrInvalidContentID):
		return http.StatusBadRequest, response.ErrInvalidID
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, response.ErrNotFound
	case errors.Is(err, assessment.ErrValidation):
		return http.StatusUnprocessableEntity, response.ErrInvalidQuestionSet
	case errors.Is(err, assessment.ErrOptionOutOfRange):
		return http.StatusBadRequest, response.ErrOptionOutOfRange
	case errors.Is(err, assessment.ErrNoPendingAnswer):
		return http.StatusConflict, response.ErrNoPendingAnswer
	case errors.Is(err, assessment.ErrNotFinished):
		return http.StatusConflict, response.ErrSessionNotFinished
	case errors.Is(err, assessment.ErrPrecondition):
		return http.StatusConflict, response.ErrSessionNotActive
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}
