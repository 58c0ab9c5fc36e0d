package worker

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type fakeStudyQueue struct {
	items   []string
	pushed  []string
	pushErr error
	ctxErrs []error
}

func (q *fakeStudyQueue) BLPop(_ context.Context, _ time.Duration, keys ...string) *redis.StringSliceCmd {
	if len(q.items) == 0 {
		return redis.NewStringSliceResult(nil, redis.Nil)
	}
	v := q.items[0]
	q.items = q.items[1:]
	return redis.NewStringSliceResult([]string{keys[0], v}, nil)
}

func (q *fakeStudyQueue) LPop(_ context.Context, _ string) *redis.StringCmd {
	if len(q.items) == 0 {
		return redis.NewStringResult("", redis.Nil)
	}
	v := q.items[0]
	q.items = q.items[1:]
	return redis.NewStringResult(v, nil)
}

func (q *fakeStudyQueue) RPush(ctx context.Context, _ string, values ...interface{}) *redis.IntCmd {
	q.ctxErrs = append(q.ctxErrs, ctx.Err())
	for _, v := range values {
		q.pushed = append(q.pushed, v.(string))
	}
	return redis.NewIntResult(int64(len(q.pushed)), q.pushErr)
}

type fakeStudyStore struct {
	errs  []error
	calls int
}

func (f *fakeStudyStore) AddStudyTime(_ context.Context, _ int, _ string, _ int) error {
	f.calls++
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

const heartbeat = `{"user_id":3,"day":"2026-10-19","seconds":60}`

func TestStudyTimeRequeueSurvivesShutdown(t *testing.T) {
	queue := &fakeStudyQueue{items: []string{heartbeat}}
	store := &fakeStudyStore{errs: []error{errors.New("connection reset")}}
	w := NewStudyTimeWorker(store, queue, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.processNext(ctx)

	if len(queue.pushed) != 1 || queue.pushed[0] != heartbeat {
		t.Fatalf("expected the heartbeat to be pushed back, got %v", queue.pushed)
	}
	if queue.ctxErrs[0] != nil {
		t.Errorf("requeue must not use the cancelled worker context, got %v", queue.ctxErrs[0])
	}
}

func TestStudyTimeDropsRejectedJob(t *testing.T) {
	queue := &fakeStudyQueue{items: []string{heartbeat}}
	store := &fakeStudyStore{errs: []error{&pgconn.PgError{Code: "23503"}}}
	w := NewStudyTimeWorker(store, queue, zerolog.Nop())

	w.processNext(context.Background())

	if len(queue.pushed) != 0 {
		t.Errorf("constraint violations must not be retried, got %v", queue.pushed)
	}
}

func TestStudyTimeDrainStopsOnTransientFailure(t *testing.T) {
	second := `{"user_id":4,"day":"2026-10-19","seconds":30}`
	queue := &fakeStudyQueue{items: []string{heartbeat, second}}
	store := &fakeStudyStore{errs: []error{nil, errors.New("pool closed")}}
	w := NewStudyTimeWorker(store, queue, zerolog.Nop())

	w.drain(context.Background())

	if store.calls != 2 {
		t.Errorf("expected 2 store calls, got %d", store.calls)
	}
	if len(queue.pushed) != 1 || queue.pushed[0] != second {
		t.Errorf("expected the failed job to be pushed back, got %v", queue.pushed)
	}
}

func TestStudyTimeRequeueErrorIsReported(t *testing.T) {
	var logs bytes.Buffer
	queue := &fakeStudyQueue{pushErr: errors.New("redis down")}
	w := NewStudyTimeWorker(&fakeStudyStore{}, queue, zerolog.New(&logs))

	w.requeue(heartbeat)

	if len(queue.pushed) != 1 {
		t.Errorf("expected one push attempt, got %d", len(queue.pushed))
	}
	if !strings.Contains(logs.String(), "Requeue failed") || !strings.Contains(logs.String(), "redis down") {
		t.Errorf("requeue failure should be logged, got %q", logs.String())
	}
}
