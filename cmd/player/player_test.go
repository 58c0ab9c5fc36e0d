package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rauth/examprep-backend/internal/assessment"
)

func TestParseChoice(t *testing.T) {
	tests := []struct {
		in      string
		n       int
		want    int
		wantErr bool
	}{
		{"a", 3, 0, false},
		{" C ", 3, 2, false},
		{"2", 3, 1, false},
		{"d", 3, 0, true},
		{"0", 3, 0, true},
		{"4", 3, 0, true},
		{"", 3, 0, true},
		{"maybe", 3, 0, true},
	}
	for _, tt := range tests {
		got, err := parseChoice(tt.in, tt.n)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseChoice(%q): err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseChoice(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		body      string
		title     string
		seconds   int
		questions int
	}{
		{
			name: "yaml list",
			file: "angkor.yaml",
			body: `# sample
- question: Who built Angkor Wat?
  options: [Suryavarman II, Jayavarman VII]
  correctAnswerIndex: 0
- questionText: Capital moved in?
  options: ["1434", "1863"]
  answer: "1434"
`,
			title: "angkor", questions: 2,
		},
		{
			name: "yaml document",
			file: "exam.yml",
			body: `title: History Exam
duration: 2
questions:
  - question: Independence year?
    options: ["1945", "1953"]
    answer: "1953"
`,
			title: "History Exam", seconds: 120, questions: 1,
		},
		{
			name:  "json document",
			file:  "quiz.json",
			body:  `{"title":"Rivers","timeLimit":5,"questions":[{"question":"Longest river?","options":["Mekong","Bassac"],"correctAnswerIndex":0}]}`,
			title: "Rivers", seconds: 300, questions: 1,
		},
		{
			name:  "json list",
			file:  "list.json",
			body:  `[{"question":"q","options":["a","b"],"answer":"b"}]`,
			title: "list", questions: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := loadFile(writeFile(t, tt.file, tt.body))
			if err != nil {
				t.Fatalf("loadFile: %v", err)
			}
			if set.Title != tt.title || set.DurationSeconds != tt.seconds || len(set.Questions) != tt.questions {
				t.Fatalf("got title=%q seconds=%d questions=%d", set.Title, set.DurationSeconds, len(set.Questions))
			}
			if set.Questions[0].Correct.Kind == "" {
				t.Fatalf("questions should be normalized, got %+v", set.Questions[0])
			}
		})
	}

	if _, err := loadFile(writeFile(t, "notes.txt", "hello")); err == nil {
		t.Error("expected an error for an unsupported extension")
	}
	for _, bad := range []string{"bad.json", "bad.yaml"} {
		body := `[{"question":"q","options":["only"],"answer":"only"}]`
		if bad == "bad.yaml" {
			body = "- question: q\n  options: [only]\n  answer: only\n"
		}
		_, err := loadFile(writeFile(t, bad, body))
		if !errors.Is(err, assessment.ErrValidation) {
			t.Errorf("%s: expected a validation error, got %v", bad, err)
		}
	}
}

func TestFetchContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("include") != "answers" || r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"data":null,"error":{"code":"TOKEN_REQUIRED","message":"An authentication token is required."}}`))
			return
		}
		switch r.URL.Path {
		case "/api/v1/mockexams/e1":
			_, _ = w.Write([]byte(`{"data":{"mock_exam":{"id":"665f1c2b9a1e4c0012345678","title":"Mock","duration":3,
				"questions":[{"question":"q","options":["a","b"],"correctAnswerIndex":1}]}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"data":null,"error":{"code":"NOT_FOUND","message":"Resource not found."}}`))
		}
	}))
	defer srv.Close()

	set, err := fetchContent(context.Background(), srv.URL+"/api/v1/", "tok", assessment.KindExam, "e1")
	if err != nil {
		t.Fatalf("fetchContent: %v", err)
	}
	if set.Title != "Mock" || set.DurationSeconds != 180 || len(set.Questions) != 1 {
		t.Fatalf("unexpected set %+v", set)
	}

	_, err = fetchContent(context.Background(), srv.URL+"/api/v1", "tok", assessment.KindQuiz, "missing")
	if err == nil || !strings.Contains(err.Error(), "NOT_FOUND") {
		t.Fatalf("expected NOT_FOUND error, got %v", err)
	}
}

const playQuestions = `[
	{"question": "Who built Angkor Wat?", "options": ["Suryavarman II", "Jayavarman VII"], "correctAnswerIndex": 0},
	{"question": "Capital moved to Phnom Penh in?", "options": ["1434", "1863"], "answer": "1434"}
]`

func newTestSession(t *testing.T, p *player) *assessment.Session {
	t.Helper()
	qs, err := assessment.DecodeQuestions([]byte(playQuestions))
	if err != nil {
		t.Fatalf("DecodeQuestions: %v", err)
	}
	sess, err := assessment.NewSession(
		assessment.SessionConfig{Kind: assessment.KindQuiz, ContentID: "local", DurationSeconds: 600},
		qs,
		assessment.WithHooks(p.hooks()),
	)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := sess.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return sess
}

func TestPlayCompletes(t *testing.T) {
	var out bytes.Buffer
	// An invalid letter is re-prompted, then A is correct and B is wrong.
	p := newPlayer(strings.NewReader("z\na\nB\n"), &out, true)
	sess := newTestSession(t, p)

	p.play(sess, "Angkor")

	res, err := sess.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if res.Reason != assessment.FinishCompleted || res.FinalScore != 1 || len(res.History) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if !strings.Contains(out.String(), "choose between A and B") {
		t.Errorf("expected a re-prompt for z, got:\n%s", out.String())
	}

	status := p.awaitSubmission(context.Background(), sess, time.Second)
	if status != assessment.SubmissionSkipped {
		t.Errorf("no submitter means skipped, got %s", status)
	}

	var report bytes.Buffer
	renderResult(&report, res, sess.Questions(), status, true)
	for _, want := range []string{"Score 1/2 (50%)", "✓ Suryavarman II", "✗ 1863  correct: A) 1434", "Results not saved"} {
		if !strings.Contains(report.String(), want) {
			t.Errorf("report missing %q:\n%s", want, report.String())
		}
	}
}

func TestPlayQuitNeedsConfirmation(t *testing.T) {
	var out bytes.Buffer
	p := newPlayer(strings.NewReader("q\nn\na\nq\ny\n"), &out, true)
	sess := newTestSession(t, p)

	p.play(sess, "Angkor")

	res, _ := sess.Result()
	if res.Reason != assessment.FinishAbandoned {
		t.Fatalf("expected abandoned, got %s", res.Reason)
	}
	if len(res.History) != 1 || res.FinalScore != 1 {
		t.Errorf("the answer given before quitting must stand, got %+v", res)
	}
}

func TestPlayExpiresMidPrompt(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	var out bytes.Buffer
	p := newPlayer(pr, &out, true)
	sess := newTestSession(t, p)

	done := make(chan struct{})
	go func() {
		p.play(sess, "Angkor")
		close(done)
	}()

	if _, err := pw.Write([]byte("a\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	// Wait for the first answer to be committed before expiring.
	deadline := time.Now().Add(2 * time.Second)
	for sess.Snapshot().CurrentIndex != 1 {
		if time.Now().After(deadline) {
			t.Fatal("first answer was never committed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := sess.Expire(); err != nil {
		t.Fatalf("Expire: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("player did not stop on expiry")
	}

	res, _ := sess.Result()
	if res.Reason != assessment.FinishExpired || res.FinalScore != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if !strings.Contains(out.String(), "Time is up.") {
		t.Errorf("expected expiry notice, got:\n%s", out.String())
	}
}
