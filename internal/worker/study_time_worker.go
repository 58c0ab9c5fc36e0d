package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rauth/examprep-backend/internal/config"
	"github.com/rauth/examprep-backend/internal/model"
)

// StudyTimeStore accumulates daily study seconds.
type StudyTimeStore interface {
	AddStudyTime(ctx context.Context, userID int, day string, seconds int) error
}

// StudyTimeQueue is the subset of *redis.Client the worker pops from and
// pushes back onto.
type StudyTimeQueue interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	LPop(ctx context.Context, key string) *redis.StringCmd
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

const studyTimeRetryDelay = 5 * time.Second

// StudyTimeWorker consumes persist_study_time_queue and upserts daily totals.
type StudyTimeWorker struct {
	store StudyTimeStore
	rdb   StudyTimeQueue
	log   zerolog.Logger
}

// NewStudyTimeWorker creates a new StudyTimeWorker.
func NewStudyTimeWorker(store StudyTimeStore, rdb StudyTimeQueue, log zerolog.Logger) *StudyTimeWorker {
	return &StudyTimeWorker{
		store: store,
		rdb:   rdb,
		log:   log.With().Str("component", "study_time_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *StudyTimeWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *StudyTimeWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.PersistStudyTimeQueue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}
	if len(result) < 2 {
		return
	}

	job, err := decodeStudyTime(result[1])
	if err != nil {
		w.log.Error().Err(err).Msg("Dropping malformed study time job")
		return
	}

	if err := w.store.AddStudyTime(ctx, job.UserID, job.Day, job.Seconds); err != nil {
		if permanent(err) {
			w.log.Error().Err(err).
				Int("user_id", job.UserID).
				Str("day", job.Day).
				Msg("Study time rejected, dropping")
			return
		}
		w.log.Error().Err(err).
			Int("user_id", job.UserID).
			Str("day", job.Day).
			Msg("Persist error, retrying in 5s")
		w.requeue(result[1])
		select {
		case <-ctx.Done():
		case <-time.After(studyTimeRetryDelay):
		}
	}
}

// drain processes all remaining items in the queue before shutdown.
func (w *StudyTimeWorker) drain(ctx context.Context) {
	drained := 0
	for {
		raw, err := w.rdb.LPop(ctx, config.WorkerKey.PersistStudyTimeQueue).Result()
		if err != nil {
			break
		}
		job, err := decodeStudyTime(raw)
		if err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}
		if err := w.store.AddStudyTime(ctx, job.UserID, job.Day, job.Seconds); err != nil {
			if permanent(err) {
				w.log.Error().Err(err).Int("user_id", job.UserID).Msg("Drain dropped rejected study time")
				continue
			}
			w.log.Error().Err(err).Msg("Drain persist error")
			w.requeue(raw)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}

// requeue pushes raw back onto the queue, independent of the worker context.
func (w *StudyTimeWorker) requeue(raw string) {
	if err := w.rdb.RPush(context.Background(), config.WorkerKey.PersistStudyTimeQueue, raw).Err(); err != nil {
		w.log.Error().Err(err).Str("job", raw).Msg("Requeue failed, study time lost")
	}
}

func decodeStudyTime(raw string) (model.StudyTimeJob, error) {
	var job model.StudyTimeJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return job, err
	}
	if job.UserID <= 0 || job.Seconds <= 0 {
		return job, errors.New("study time job missing user or seconds")
	}
	if _, err := time.Parse(time.DateOnly, job.Day); err != nil {
		return job, err
	}
	return job, nil
}
