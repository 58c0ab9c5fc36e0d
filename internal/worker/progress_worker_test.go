package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/rauth/examprep-backend/internal/model"
)

type fakeProgressStore struct {
	batchErr  error
	failKeys  map[string]bool
	rejectKey map[string]bool
	seen      map[string]bool
	batches   int
	singleRun int
}

func (f *fakeProgressStore) attempt(j model.ProgressJob) model.ProgressAttempt {
	return model.ProgressAttempt{
		SubmissionKey: j.SubmissionKey, UserID: j.UserID, Kind: j.Kind,
		ContentID: j.ContentID, Score: j.Score, CreatedAt: time.Unix(1700000000, 0),
	}
}

func (f *fakeProgressStore) InsertBatch(_ context.Context, jobs []model.ProgressJob) ([]model.ProgressAttempt, error) {
	f.batches++
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	var out []model.ProgressAttempt
	for _, j := range jobs {
		if f.seen[j.SubmissionKey] {
			continue
		}
		f.seen[j.SubmissionKey] = true
		out = append(out, f.attempt(j))
	}
	return out, nil
}

func (f *fakeProgressStore) InsertOne(_ context.Context, j model.ProgressJob) (model.ProgressAttempt, bool, error) {
	f.singleRun++
	if f.rejectKey[j.SubmissionKey] {
		return model.ProgressAttempt{}, false, fmt.Errorf("insert attempt: %w",
			&pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"})
	}
	if f.failKeys[j.SubmissionKey] {
		return model.ProgressAttempt{}, false, errors.New("constraint violation")
	}
	if f.seen[j.SubmissionKey] {
		return model.ProgressAttempt{}, false, nil
	}
	f.seen[j.SubmissionKey] = true
	return f.attempt(j), true, nil
}

type fakePublisher struct {
	events []model.ProgressEvent
	err    error
}

func (f *fakePublisher) PublishProgressRecorded(_ context.Context, ev model.ProgressEvent) error {
	f.events = append(f.events, ev)
	return f.err
}

func jobs(keys ...string) []model.ProgressJob {
	out := make([]model.ProgressJob, 0, len(keys))
	for i, k := range keys {
		out = append(out, model.ProgressJob{SubmissionKey: k, UserID: i + 1, Kind: "quiz", ContentID: "q1", Score: i})
	}
	return out
}

func TestFlushBatchAnnouncesOnlyNewAttempts(t *testing.T) {
	store := &fakeProgressStore{seen: map[string]bool{"dup": true}}
	pub := &fakePublisher{}
	w := NewProgressWorker(store, nil, zerolog.Nop(), pub)

	failed := w.flush(context.Background(), jobs("a", "dup", "b"))
	if len(failed) != 0 {
		t.Fatalf("expected no failures, got %d", len(failed))
	}
	if store.batches != 1 || store.singleRun != 0 {
		t.Errorf("expected one bulk insert and no fallback, got %d/%d", store.batches, store.singleRun)
	}
	if len(pub.events) != 2 || pub.events[0].SubmissionKey != "a" || pub.events[1].SubmissionKey != "b" {
		t.Errorf("unexpected events %+v", pub.events)
	}
	if pub.events[0].Type != "progress.recorded" {
		t.Errorf("unexpected event type %q", pub.events[0].Type)
	}
}

func TestFlushFallsBackAndReturnsFailures(t *testing.T) {
	store := &fakeProgressStore{
		batchErr: errors.New("bulk failed"),
		failKeys: map[string]bool{"bad": true},
		seen:     map[string]bool{"dup": true},
	}
	pub := &fakePublisher{}
	w := NewProgressWorker(store, nil, zerolog.Nop(), pub)

	failed := w.flush(context.Background(), jobs("ok", "bad", "dup"))
	if len(failed) != 1 || failed[0].SubmissionKey != "bad" {
		t.Fatalf("expected only 'bad' to be returned for requeue, got %+v", failed)
	}
	if store.singleRun != 3 {
		t.Errorf("expected 3 single inserts, got %d", store.singleRun)
	}
	if len(pub.events) != 1 || pub.events[0].SubmissionKey != "ok" {
		t.Errorf("expected one event for 'ok', got %+v", pub.events)
	}
}

func TestFlushDropsRejectedAttempts(t *testing.T) {
	store := &fakeProgressStore{
		batchErr:  errors.New("bulk failed"),
		rejectKey: map[string]bool{"orphan": true},
		failKeys:  map[string]bool{"flaky": true},
		seen:      map[string]bool{},
	}
	w := NewProgressWorker(store, nil, zerolog.Nop())

	failed := w.flush(context.Background(), jobs("orphan", "flaky", "ok"))
	if len(failed) != 1 || failed[0].SubmissionKey != "flaky" {
		t.Fatalf("only transient failures should be requeued, got %+v", failed)
	}
}

func TestPermanent(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"foreign key", &pgconn.PgError{Code: "23503"}, true},
		{"check violation wrapped", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23514"}), true},
		{"numeric out of range", &pgconn.PgError{Code: "22003"}, true},
		{"connection failure", &pgconn.PgError{Code: "08006"}, false},
		{"plain error", errors.New("timeout"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := permanent(tt.err); got != tt.want {
				t.Errorf("permanent(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestFlushIgnoresPublishFailures(t *testing.T) {
	store := &fakeProgressStore{seen: map[string]bool{}}
	broken := &fakePublisher{err: errors.New("broker down")}
	healthy := &fakePublisher{}
	w := NewProgressWorker(store, nil, zerolog.Nop(), broken, healthy)

	if failed := w.flush(context.Background(), jobs("a")); len(failed) != 0 {
		t.Fatalf("publish failures must not requeue stored attempts")
	}
	if len(healthy.events) != 1 {
		t.Errorf("every publisher should be tried, got %d", len(healthy.events))
	}
}

func TestFlushEmptyBatch(t *testing.T) {
	store := &fakeProgressStore{seen: map[string]bool{}}
	w := NewProgressWorker(store, nil, zerolog.Nop())
	if failed := w.flush(context.Background(), nil); failed != nil || store.batches != 0 {
		t.Errorf("empty batch should not touch the store")
	}
}

func TestDecodeStudyTime(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"user_id":3,"day":"2026-10-19","seconds":60}`, false},
		{"bad json", `{`, true},
		{"missing user", `{"day":"2026-10-19","seconds":60}`, true},
		{"zero seconds", `{"user_id":3,"day":"2026-10-19","seconds":0}`, true},
		{"bad day", `{"user_id":3,"day":"19/10/2026","seconds":60}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeStudyTime(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Errorf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}
