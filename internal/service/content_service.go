package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rauth/examprep-backend/internal/assessment"
	"github.com/rauth/examprep-backend/internal/config"
	"github.com/rauth/examprep-backend/internal/model"
	"github.com/rauth/examprep-backend/internal/repository"
)

// ContentService serves lessons, quizzes and mock exams, caching documents in Redis.
type ContentService struct {
	repo   *repository.ContentRepository
	rdb    *redis.Client
	policy assessment.DurationPolicy
	ttl    time.Duration
	log    zerolog.Logger
}

// NewContentService creates a new ContentService.
func NewContentService(
	repo *repository.ContentRepository,
	rdb *redis.Client,
	policy assessment.DurationPolicy,
	ttl time.Duration,
	log zerolog.Logger,
) *ContentService {
	return &ContentService{
		repo:   repo,
		rdb:    rdb,
		policy: policy,
		ttl:    ttl,
		log:    log.With().Str("component", "content_service").Logger(),
	}
}

// ─── Lessons ────────────────────────────────────────────────────────────────

// ListLessons returns lesson summaries, optionally filtered by module.
func (s *ContentService) ListLessons(ctx context.Context, module string) ([]model.Lesson, error) {
	return s.repo.ListLessons(ctx, module)
}

// GetLesson returns a full lesson.
func (s *ContentService) GetLesson(ctx context.Context, id string) (*model.Lesson, error) {
	return cached(ctx, s, config.CacheKey.ContentKey("lesson", id), func(ctx context.Context) (*model.Lesson, error) {
		return s.repo.GetLesson(ctx, id)
	})
}

// ─── Quizzes ────────────────────────────────────────────────────────────────

// ListQuizzes returns quiz summaries.
func (s *ContentService) ListQuizzes(ctx context.Context) ([]model.ContentSummary, error) {
	return cached(ctx, s, config.CacheKey.ContentListKey(string(assessment.KindQuiz)), func(ctx context.Context) ([]model.ContentSummary, error) {
		quizzes, err := s.repo.ListQuizzes(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]model.ContentSummary, 0, len(quizzes))
		for i := range quizzes {
			q := &quizzes[i]
			out = append(out, model.ContentSummary{
				ID:            q.ID.Hex(),
				Title:         q.Title,
				Module:        q.Module,
				Description:   q.Description,
				QuestionCount: len(q.Questions),
				Minutes:       quizSeconds(q, s.policy) / 60,
				Premium:       q.Premium,
			})
		}
		return out, nil
	})
}

// GetQuiz returns a quiz with its questions.
func (s *ContentService) GetQuiz(ctx context.Context, id string) (*model.Quiz, error) {
	return cached(ctx, s, config.CacheKey.ContentKey(string(assessment.KindQuiz), id), func(ctx context.Context) (*model.Quiz, error) {
		return s.repo.GetQuiz(ctx, id)
	})
}

// ─── Mock exams ─────────────────────────────────────────────────────────────

// ListMockExams returns mock exam summaries.
func (s *ContentService) ListMockExams(ctx context.Context) ([]model.ContentSummary, error) {
	return cached(ctx, s, config.CacheKey.ContentListKey(string(assessment.KindExam)), func(ctx context.Context) ([]model.ContentSummary, error) {
		exams, err := s.repo.ListMockExams(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]model.ContentSummary, 0, len(exams))
		for i := range exams {
			e := &exams[i]
			out = append(out, model.ContentSummary{
				ID:            e.ID.Hex(),
				Title:         e.Title,
				Module:        e.Module,
				Description:   e.Description,
				QuestionCount: len(e.Questions),
				Minutes:       examSeconds(e, s.policy) / 60,
				Premium:       e.Premium,
			})
		}
		return out, nil
	})
}

// GetMockExam returns a mock exam with its questions.
func (s *ContentService) GetMockExam(ctx context.Context, id string) (*model.MockExam, error) {
	return cached(ctx, s, config.CacheKey.ContentKey(string(assessment.KindExam), id), func(ctx context.Context) (*model.MockExam, error) {
		return s.repo.GetMockExam(ctx, id)
	})
}

// ─── Engine input ───────────────────────────────────────────────────────────

// LoadAssessment fetches a quiz or mock exam and resolves it into a
// validated question set with its session duration.
func (s *ContentService) LoadAssessment(ctx context.Context, kind assessment.Kind, id string) (*model.LoadedAssessment, error) {
	switch kind {
	case assessment.KindQuiz:
		q, err := s.GetQuiz(ctx, id)
		if err != nil {
			return nil, err
		}
		return QuizAssessment(q, s.policy)
	case assessment.KindExam:
		e, err := s.GetMockExam(ctx, id)
		if err != nil {
			return nil, err
		}
		return MockExamAssessment(e, s.policy)
	default:
		return nil, fmt.Errorf("unknown content kind %q", kind)
	}
}

// QuizAssessment converts a quiz document into engine input.
func QuizAssessment(q *model.Quiz, policy assessment.DurationPolicy) (*model.LoadedAssessment, error) {
	questions, err := assessment.LoadQuestions(q.Questions)
	if err != nil {
		return nil, err
	}
	return &model.LoadedAssessment{
		Config: assessment.SessionConfig{
			Kind:            assessment.KindQuiz,
			ContentID:       q.ID.Hex(),
			DurationSeconds: quizSeconds(q, policy),
		},
		Title:     q.Title,
		Premium:   q.Premium,
		Questions: questions,
	}, nil
}

// MockExamAssessment converts a mock exam document into engine input.
func MockExamAssessment(e *model.MockExam, policy assessment.DurationPolicy) (*model.LoadedAssessment, error) {
	questions, err := assessment.LoadQuestions(e.Questions)
	if err != nil {
		return nil, err
	}
	return &model.LoadedAssessment{
		Config: assessment.SessionConfig{
			Kind:            assessment.KindExam,
			ContentID:       e.ID.Hex(),
			DurationSeconds: examSeconds(e, policy),
		},
		Title:     e.Title,
		Premium:   e.Premium,
		Questions: questions,
	}, nil
}

func quizSeconds(q *model.Quiz, policy assessment.DurationPolicy) int {
	return policy.Resolve(assessment.KindQuiz, len(q.Questions), q.TimeLimit*60)
}

func examSeconds(e *model.MockExam, policy assessment.DurationPolicy) int {
	return policy.Resolve(assessment.KindExam, len(e.Questions), e.Duration*60)
}

// cached reads key from Redis or calls load and stores the result. Cache
// failures are logged and never fail the request.
func cached[T any](ctx context.Context, s *ContentService, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T
	if s.rdb != nil {
		data, err := s.rdb.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var v T
			if err := json.Unmarshal(data, &v); err == nil {
				return v, nil
			}
			s.log.Warn().Str("key", key).Msg("Discarding undecodable cache entry")
		case !errors.Is(err, redis.Nil):
			s.log.Warn().Err(err).Str("key", key).Msg("Content cache read failed")
		}
	}

	v, err := load(ctx)
	if err != nil {
		return zero, err
	}

	if s.rdb != nil {
		if data, err := json.Marshal(v); err == nil {
			if err := s.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
				s.log.Warn().Err(err).Str("key", key).Msg("Content cache write failed")
			}
		}
	}
	return v, nil
}
