package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rauth/examprep-backend/internal/config"
	"github.com/rauth/examprep-backend/internal/event"
	"github.com/rauth/examprep-backend/internal/metrics"
	"github.com/rauth/examprep-backend/internal/model"
)

const (
	ProgressBatchSize    = 50
	ProgressBatchTimeout = 2 * time.Second
	ProgressPollTimeout  = 1 * time.Second
)

// ProgressStore persists queued attempts.
type ProgressStore interface {
	InsertBatch(ctx context.Context, jobs []model.ProgressJob) ([]model.ProgressAttempt, error)
	InsertOne(ctx context.Context, job model.ProgressJob) (model.ProgressAttempt, bool, error)
}

// ProgressPublisher announces persisted attempts. event.EventPublisher and
// RedisFeed implement it.
type ProgressPublisher interface {
	PublishProgressRecorded(ctx context.Context, ev model.ProgressEvent) error
}

// RedisFeed publishes recorded attempts on the Redis progress channel read by
// the admin live feed.
type RedisFeed struct {
	rdb *redis.Client
}

// NewRedisFeed creates a new RedisFeed.
func NewRedisFeed(rdb *redis.Client) *RedisFeed { return &RedisFeed{rdb: rdb} }

func (f *RedisFeed) PublishProgressRecorded(ctx context.Context, ev model.ProgressEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return f.rdb.Publish(ctx, config.CacheKey.ProgressFeedChannel(), raw).Err()
}

// ProgressWorker drains persist_progress_queue into PostgreSQL in batches.
type ProgressWorker struct {
	store      ProgressStore
	rdb        *redis.Client
	publishers []ProgressPublisher
	log        zerolog.Logger
}

// NewProgressWorker creates a new ProgressWorker.
func NewProgressWorker(store ProgressStore, rdb *redis.Client, log zerolog.Logger, publishers ...ProgressPublisher) *ProgressWorker {
	return &ProgressWorker{
		store:      store,
		rdb:        rdb,
		publishers: publishers,
		log:        log.With().Str("component", "progress_worker").Logger(),
	}
}

// ─── Worker loop with batching ──────────────────────────────────────────────

// Start runs until ctx is done, then flushes what it holds. Call in a goroutine.
func (w *ProgressWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ProgressWorker started")

	batch := make([]model.ProgressJob, 0, ProgressBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ProgressBatchSize || time.Since(lastFlush) >= ProgressBatchTimeout) {

			w.requeue(ctx, w.flush(ctx, batch))
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.requeue(context.Background(), w.flush(context.Background(), batch))
			return

		default:
			item, err := w.rdb.BLPop(ctx, ProgressPollTimeout, config.WorkerKey.PersistProgressQueue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}
			if len(item) < 2 {
				continue
			}

			var job model.ProgressJob
			if err := json.Unmarshal([]byte(item[1]), &job); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}
			batch = append(batch, job)
		}
	}
}

// ─── Flush ──────────────────────────────────────────────────────────────────

// flush persists batch and returns the jobs that could not be written.
func (w *ProgressWorker) flush(ctx context.Context, batch []model.ProgressJob) []model.ProgressJob {
	if len(batch) == 0 {
		return nil
	}

	inserted, err := w.store.InsertBatch(ctx, batch)
	if err == nil {
		metrics.ProgressFlushed(len(batch), len(inserted))
		w.log.Debug().Int("batch", len(batch)).Int("inserted", len(inserted)).Msg("Progress batch persisted")
		w.announce(ctx, inserted)
		return nil
	}

	w.log.Warn().Err(err).Int("batch", len(batch)).Msg("bulk progress insert failed, using fallback")

	var failed []model.ProgressJob
	for _, job := range batch {
		a, ok, err := w.store.InsertOne(ctx, job)
		switch {
		case permanent(err):
			w.log.Error().Err(err).
				Str("submission_key", job.SubmissionKey).
				Int("user_id", job.UserID).
				Msg("single insert rejected, dropping attempt")
			metrics.ProgressFallback("dropped")
		case err != nil:
			w.log.Error().Err(err).
				Str("submission_key", job.SubmissionKey).
				Int("user_id", job.UserID).
				Msg("single insert failed, requeueing")
			metrics.ProgressFallback("requeued")
			failed = append(failed, job)
		case !ok:
			metrics.ProgressFallback("duplicate")
		default:
			metrics.ProgressFallback("single")
			w.announce(ctx, []model.ProgressAttempt{a})
		}
	}
	return failed
}

// permanent reports whether retrying err can never succeed: integrity
// constraint violations (class 23) and data exceptions (class 22).
func permanent(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return strings.HasPrefix(pgErr.Code, "23") || strings.HasPrefix(pgErr.Code, "22")
}

func (w *ProgressWorker) requeue(ctx context.Context, jobs []model.ProgressJob) {
	for _, job := range jobs {
		raw, _ := json.Marshal(job)
		if err := w.rdb.RPush(ctx, config.WorkerKey.PersistProgressQueue, raw).Err(); err != nil {
			w.log.Error().Err(err).Str("submission_key", job.SubmissionKey).Msg("requeue failed, attempt lost")
		}
	}
}

// announce publishes each newly persisted attempt. Publish failures are
// logged; the attempt is already stored.
func (w *ProgressWorker) announce(ctx context.Context, attempts []model.ProgressAttempt) {
	for _, a := range attempts {
		ev := model.ProgressEvent{
			Type:             event.ProgressRecorded,
			SubmissionKey:    a.SubmissionKey,
			UserID:           a.UserID,
			Kind:             a.Kind,
			ContentID:        a.ContentID,
			Score:            a.Score,
			TimeTakenSeconds: a.TimeTakenSeconds,
			RecordedAt:       a.CreatedAt,
		}
		for _, p := range w.publishers {
			if err := p.PublishProgressRecorded(ctx, ev); err != nil {
				w.log.Warn().Err(err).Str("submission_key", a.SubmissionKey).Msg("publish progress event failed")
			}
		}
	}
}
