package httpsubmit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rauth/examprep-backend/internal/assessment"
)

func TestSubmitPostsProgress(t *testing.T) {
	tests := []struct {
		name     string
		kind     assessment.Kind
		wantPath string
		legacy   string
	}{
		{"quiz", assessment.KindQuiz, "/api/v1/progress/quiz", "quizId"},
		{"exam", assessment.KindExam, "/api/v1/progress/exam", "examId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]any
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != tt.wantPath {
					t.Errorf("expected path %s, got %s", tt.wantPath, r.URL.Path)
				}
				if auth := r.Header.Get("Authorization"); auth != "Bearer tok" {
					t.Errorf("unexpected Authorization %q", auth)
				}
				if key := r.Header.Get(IdempotencyHeader); key != "sess-1" {
					t.Errorf("unexpected idempotency key %q", key)
				}
				if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
					t.Errorf("decode body: %v", err)
				}
				w.WriteHeader(http.StatusAccepted)
			}))
			defer srv.Close()

			s := New(srv.URL + "/api/v1/")
			err := s.Submit(context.Background(), "tok", assessment.SubmissionPayload{
				SessionID:        "sess-1",
				ContentID:        "content-9",
				Kind:             tt.kind,
				Score:            7,
				TotalQuestions:   10,
				TimeTakenSeconds: 312,
			})
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}
			if got["contentId"] != "content-9" || got[tt.legacy] != "content-9" {
				t.Errorf("expected content id under contentId and %s, got %v", tt.legacy, got)
			}
			if got["score"] != float64(7) || got["timeTakenSeconds"] != float64(312) {
				t.Errorf("unexpected body %v", got)
			}
		})
	}
}

func TestSubmitWithoutCredential(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	err := New(srv.URL).Submit(context.Background(), "", assessment.SubmissionPayload{Kind: assessment.KindQuiz})
	if !errors.Is(err, assessment.ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
	if called {
		t.Error("no request should be sent without a credential")
	}
}

func TestSubmitDecodesErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"Invalid or expired token"}}`))
	}))
	defer srv.Close()

	err := New(srv.URL).Submit(context.Background(), "stale", assessment.SubmissionPayload{Kind: assessment.KindExam})
	var serr *StatusError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if serr.Status != http.StatusUnauthorized || serr.Code != "UNAUTHORIZED" {
		t.Errorf("unexpected status error %+v", serr)
	}
}

func TestSubmitTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := New(url).Submit(context.Background(), "tok", assessment.SubmissionPayload{Kind: assessment.KindQuiz})
	if err == nil {
		t.Fatal("expected transport error")
	}
	if errors.Is(err, assessment.ErrNoCredential) {
		t.Fatal("transport failure must not look like a missing credential")
	}
}

func TestSessionReportsFailedSubmission(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	qs, err := assessment.DecodeQuestions([]byte(`[{"question":"q","options":["a","b"],"answer":"a"}]`))
	if err != nil {
		t.Fatalf("DecodeQuestions: %v", err)
	}
	s, err := assessment.NewSession(
		assessment.SessionConfig{Kind: assessment.KindQuiz, ContentID: "q1", DurationSeconds: 60},
		qs,
		assessment.WithSubmitter(New(srv.URL)),
		assessment.WithCredential("tok"),
	)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_ = s.SelectAnswer(0)
	if err := s.Advance(); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	status, err := s.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if status != assessment.SubmissionFailed {
		t.Fatalf("expected failed, got %s", status)
	}
	res, _ := s.Result()
	if res.FinalScore != 1 {
		t.Errorf("score must stand regardless of submission, got %d", res.FinalScore)
	}
}
