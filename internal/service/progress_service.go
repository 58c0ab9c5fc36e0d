package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rauth/examprep-backend/internal/assessment"
	"github.com/rauth/examprep-backend/internal/config"
	"github.com/rauth/examprep-backend/internal/model"
	"github.com/rauth/examprep-backend/internal/repository"
)

// ProgressService accepts quiz and exam results and study-time heartbeats.
// Writes are queued in Redis and persisted by the progress workers.
type ProgressService struct {
	repo     *repository.ProgressRepository
	rdb      *redis.Client
	dedupTTL time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

// NewProgressService creates a new ProgressService.
func NewProgressService(repo *repository.ProgressRepository, rdb *redis.Client, dedupTTL time.Duration, log zerolog.Logger) *ProgressService {
	return &ProgressService{
		repo:     repo,
		rdb:      rdb,
		dedupTTL: dedupTTL,
		log:      log.With().Str("component", "progress_service").Logger(),
		now:      time.Now,
	}
}

// Record enqueues job unless its submission key was already accepted for the
// same user. A missing key gets a fresh one, so keyless submissions are never
// deduplicated.
func (s *ProgressService) Record(ctx context.Context, job model.ProgressJob) (*model.SubmitProgressResponse, error) {
	if job.SubmissionKey == "" {
		job.SubmissionKey = uuid.New().String()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = s.now().UTC()
	}

	dedupKey := config.CacheKey.SubmissionKey(job.UserID, job.SubmissionKey)
	fresh, err := s.rdb.SetNX(ctx, dedupKey, job.SubmittedAt.Unix(), s.dedupTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("claim submission: %w", err)
	}
	if !fresh {
		s.log.Debug().Str("submission_key", job.SubmissionKey).Int("user_id", job.UserID).Msg("Duplicate submission dropped")
		return &model.SubmitProgressResponse{Status: model.SubmissionDuplicate, SubmissionKey: job.SubmissionKey}, nil
	}

	raw, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistProgressQueue, raw).Err(); err != nil {
		// Release the claim so the client can retry.
		s.rdb.Del(ctx, dedupKey)
		return nil, fmt.Errorf("enqueue progress: %w", err)
	}

	s.log.Info().
		Str("submission_key", job.SubmissionKey).
		Int("user_id", job.UserID).
		Str("kind", job.Kind).
		Str("content_id", job.ContentID).
		Int("score", job.Score).
		Msg("Progress accepted")
	return &model.SubmitProgressResponse{Status: model.SubmissionAccepted, SubmissionKey: job.SubmissionKey}, nil
}

// RecordStudyTime enqueues a heartbeat against today's (UTC) total.
func (s *ProgressService) RecordStudyTime(ctx context.Context, userID, seconds int) error {
	job := model.StudyTimeJob{
		UserID:  userID,
		Day:     s.now().UTC().Format(time.DateOnly),
		Seconds: seconds,
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal study time: %w", err)
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistStudyTimeQueue, raw).Err(); err != nil {
		return fmt.Errorf("enqueue study time: %w", err)
	}
	return nil
}

// Overview returns a user's aggregated progress.
func (s *ProgressService) Overview(ctx context.Context, userID int) (*model.ProgressOverview, error) {
	return s.repo.Overview(ctx, userID, s.now().UTC())
}

// History returns a page of a user's attempts.
func (s *ProgressService) History(ctx context.Context, userID int, q model.ProgressHistoryQuery) ([]model.ProgressAttempt, int64, error) {
	q = q.Normalized()
	return s.repo.ListByUser(ctx, userID, q.Kind, q.PerPage, q.Offset())
}

// Summary aggregates attempts per content item for admins.
func (s *ProgressService) Summary(ctx context.Context, kind string) ([]model.ContentProgressSummary, error) {
	return s.repo.SummaryByContent(ctx, kind)
}

// SubscribeFeed subscribes to recorded-progress events. Callers must close
// the returned PubSub.
func (s *ProgressService) SubscribeFeed(ctx context.Context) *redis.PubSub {
	return s.rdb.Subscribe(ctx, config.CacheKey.ProgressFeedChannel())
}

// Submitter adapts the store to the session engine for sessions hosted by
// this server. The credential is the owning user's id.
func (s *ProgressService) Submitter() assessment.Submitter {
	return assessment.SubmitterFunc(func(ctx context.Context, credential string, p assessment.SubmissionPayload) error {
		job, err := JobFromPayload(credential, p)
		if err != nil {
			return err
		}
		_, err = s.Record(ctx, job)
		return err
	})
}

// JobFromPayload builds the queue item for a finished hosted session.
func JobFromPayload(credential string, p assessment.SubmissionPayload) (model.ProgressJob, error) {
	if credential == "" {
		return model.ProgressJob{}, assessment.ErrNoCredential
	}
	userID, err := strconv.Atoi(credential)
	if err != nil || userID <= 0 {
		return model.ProgressJob{}, fmt.Errorf("invalid user credential %q", credential)
	}
	return model.ProgressJob{
		SubmissionKey:    p.SessionID,
		UserID:           userID,
		Kind:             string(p.Kind),
		ContentID:        p.ContentID,
		Score:            p.Score,
		TotalQuestions:   p.TotalQuestions,
		TimeTakenSeconds: p.TimeTakenSeconds,
	}, nil
}
