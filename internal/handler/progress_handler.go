package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rauth/examprep-backend/internal/assessment/httpsubmit"
	"github.com/rauth/examprep-backend/internal/middleware"
	"github.com/rauth/examprep-backend/internal/model"
	"github.com/rauth/examprep-backend/internal/response"
	"github.com/rauth/examprep-backend/internal/service"
	"github.com/rauth/examprep-backend/internal/validator"
	"github.com/rs/zerolog"
)

// ProgressHandler records quiz and exam attempts and serves analytics.
type ProgressHandler struct {
	progressService *service.ProgressService
	log             zerolog.Logger
}

// NewProgressHandler creates a new ProgressHandler.
func NewProgressHandler(progressService *service.ProgressService, log zerolog.Logger) *ProgressHandler {
	return &ProgressHandler{
		progressService: progressService,
		log:             log.With().Str("component", "progress_handler").Logger(),
	}
}

// SubmitQuiz godoc
// POST /api/v1/progress/quiz
func (h *ProgressHandler) SubmitQuiz(c *gin.Context) { h.submit(c, "quiz") }

// SubmitExam godoc
// POST /api/v1/progress/exam
func (h *ProgressHandler) SubmitExam(c *gin.Context) { h.submit(c, "exam") }

func (h *ProgressHandler) submit(c *gin.Context, kind string) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SubmitProgressRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	job, ok := progressJob(claims.UserID, kind, c.GetHeader(httpsubmit.IdempotencyHeader), req)
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrMissingContentID)
		return
	}

	res, err := h.progressService.Record(c.Request.Context(), job)
	if err != nil {
		h.log.Error().Err(err).Int("user_id", claims.UserID).Str("kind", kind).Msg("Failed to record progress")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	status := http.StatusAccepted
	if res.Status == model.SubmissionDuplicate {
		status = http.StatusOK
	}
	response.Success(c, status, res)
}

// progressJob builds the queue item for a submission. The submission key is
// the body's sessionId, else the Idempotency-Key header. ok is false when no
// content id was sent.
func progressJob(userID int, kind, idempotencyKey string, req model.SubmitProgressRequest) (model.ProgressJob, bool) {
	contentID := strings.TrimSpace(req.ResolvedContentID(kind))
	if contentID == "" {
		return model.ProgressJob{}, false
	}
	key := strings.TrimSpace(req.SessionID)
	if key == "" {
		key = strings.TrimSpace(idempotencyKey)
	}
	if len(key) > 64 {
		key = key[:64]
	}
	job := model.ProgressJob{
		SubmissionKey:    key,
		UserID:           userID,
		Kind:             kind,
		ContentID:        contentID,
		Score:            *req.Score,
		TimeTakenSeconds: req.ResolvedTimeTaken(),
	}
	if req.TotalQuestions != nil {
		job.TotalQuestions = *req.TotalQuestions
	}
	return job, true
}

// StudyTime godoc
// POST /api/v1/progress/time
// Heartbeat adding active seconds to today's study total.
func (h *ProgressHandler) StudyTime(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StudyTimeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.progressService.RecordStudyTime(c.Request.Context(), claims.UserID, req.Seconds); err != nil {
		h.log.Error().Err(err).Int("user_id", claims.UserID).Msg("Failed to record study time")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusAccepted, gin.H{"status": model.SubmissionAccepted})
}

// Overview godoc
// GET /api/v1/progress/overview
func (h *ProgressHandler) Overview(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	ov, err := h.progressService.Overview(c.Request.Context(), claims.UserID)
	if err != nil {
		h.log.Error().Err(err).Int("user_id", claims.UserID).Msg("Failed to load progress overview")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, ov)
}

// History godoc
// GET /api/v1/progress/history?kind=&page=&per_page=
func (h *ProgressHandler) History(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var q model.ProgressHistoryQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	q = q.Normalized()

	attempts, total, err := h.progressService.History(c.Request.Context(), claims.UserID, q)
	if err != nil {
		h.log.Error().Err(err).Int("user_id", claims.UserID).Msg("Failed to load progress history")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"attempts": attempts},
		response.NewPagination(q.Page, q.PerPage, total))
}

// Summary godoc
// GET /api/v1/admin/progress/summary?kind=
func (h *ProgressHandler) Summary(c *gin.Context) {
	kind := c.Query("kind")
	if kind != "" && kind != "quiz" && kind != "exam" {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"kind": "kind must be one of: quiz exam"})
		return
	}

	summary, err := h.progressService.Summary(c.Request.Context(), kind)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to summarize progress")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"summary": summary})
}
