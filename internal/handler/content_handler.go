package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rauth/examprep-backend/internal/middleware"
	"github.com/rauth/examprep-backend/internal/model"
	"github.com/rauth/examprep-backend/internal/repository"
	"github.com/rauth/examprep-backend/internal/response"
	"github.com/rs/zerolog"
)

// ContentReader is the read side of service.ContentService.
type ContentReader interface {
	ListLessons(ctx context.Context, module string) ([]model.Lesson, error)
	GetLesson(ctx context.Context, id string) (*model.Lesson, error)
	ListQuizzes(ctx context.Context) ([]model.ContentSummary, error)
	GetQuiz(ctx context.Context, id string) (*model.Quiz, error)
	ListMockExams(ctx context.Context) ([]model.ContentSummary, error)
	GetMockExam(ctx context.Context, id string) (*model.MockExam, error)
}

// includeAnswersValue is the ?include= value that asks for answer keys.
const includeAnswersValue = "answers"

// ContentHandler serves lessons, quizzes and mock exams.
type ContentHandler struct {
	contentService ContentReader
	log            zerolog.Logger
}

// NewContentHandler creates a new ContentHandler.
func NewContentHandler(contentService ContentReader, log zerolog.Logger) *ContentHandler {
	return &ContentHandler{
		contentService: contentService,
		log:            log.With().Str("component", "content_handler").Logger(),
	}
}

// ListLessons godoc
// GET /api/v1/lessons?module=
func (h *ContentHandler) ListLessons(c *gin.Context) {
	lessons, err := h.contentService.ListLessons(c.Request.Context(), c.Query("module"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if lessons == nil {
		lessons = []model.Lesson{}
	}
	response.Success(c, http.StatusOK, gin.H{"lessons": lessons})
}

// GetLesson godoc
// GET /api/v1/lessons/:id
func (h *ContentHandler) GetLesson(c *gin.Context) {
	lesson, err := h.contentService.GetLesson(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"lesson": lesson})
}

// ListQuizzes godoc
// GET /api/v1/quizzes
func (h *ContentHandler) ListQuizzes(c *gin.Context) {
	quizzes, err := h.contentService.ListQuizzes(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if quizzes == nil {
		quizzes = []model.ContentSummary{}
	}
	response.Success(c, http.StatusOK, gin.H{"quizzes": quizzes})
}

// GetQuiz godoc
// GET /api/v1/quizzes/:id?include=answers
// Answer keys are only returned to authenticated callers that ask for them,
// and for premium content only to premium plans.
func (h *ContentHandler) GetQuiz(c *gin.Context) {
	withAnswers, ok := h.answersAllowed(c)
	if !ok {
		return
	}
	quiz, err := h.contentService.GetQuiz(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if withAnswers && quiz.Premium && !premiumCaller(c) {
		response.Fail(c, http.StatusForbidden, response.ErrPremiumRequired)
		return
	}
	if !withAnswers {
		public := quiz.WithoutAnswers()
		quiz = &public
	}
	response.Success(c, http.StatusOK, gin.H{"quiz": quiz})
}

// ListMockExams godoc
// GET /api/v1/mockexams
func (h *ContentHandler) ListMockExams(c *gin.Context) {
	exams, err := h.contentService.ListMockExams(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if exams == nil {
		exams = []model.ContentSummary{}
	}
	response.Success(c, http.StatusOK, gin.H{"mock_exams": exams})
}

// GetMockExam godoc
// GET /api/v1/mockexams/:id?include=answers
func (h *ContentHandler) GetMockExam(c *gin.Context) {
	withAnswers, ok := h.answersAllowed(c)
	if !ok {
		return
	}
	exam, err := h.contentService.GetMockExam(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if withAnswers && exam.Premium && !premiumCaller(c) {
		response.Fail(c, http.StatusForbidden, response.ErrPremiumRequired)
		return
	}
	if !withAnswers {
		public := exam.WithoutAnswers()
		exam = &public
	}
	response.Success(c, http.StatusOK, gin.H{"mock_exam": exam})
}

// answersAllowed reports whether the response may carry answer keys. It
// writes a 401 and returns ok=false when answers are requested anonymously.
func (h *ContentHandler) answersAllowed(c *gin.Context) (withAnswers, ok bool) {
	if c.Query("include") != includeAnswersValue {
		return false, true
	}
	if middleware.GetClaims(c) == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return false, false
	}
	c.Header("Cache-Control", "private, no-store")
	return true, true
}

func premiumCaller(c *gin.Context) bool {
	claims := middleware.GetClaims(c)
	return claims != nil && claims.Role.HasPremiumAccess()
}

func (h *ContentHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrInvalidContentID):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
	case errors.Is(err, repository.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("Content lookup failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
