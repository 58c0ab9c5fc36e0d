// Package httpsubmit delivers finished session results to the progress API
// over HTTP.
package httpsubmit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rauth/examprep-backend/internal/assessment"
)

// IdempotencyHeader carries the session id so the server can drop replays.
const IdempotencyHeader = "Idempotency-Key"

// Submitter implements assessment.Submitter against the progress endpoints.
type Submitter struct {
	baseURL string
	client  *http.Client
}

// New constructs a submitter for the API rooted at baseURL, e.g. http://host/api/v1.
func New(baseURL string) *Submitter {
	return NewWithTimeout(baseURL, 0)
}

// NewWithTimeout constructs a submitter with a per-request timeout.
func NewWithTimeout(baseURL string, timeout time.Duration) *Submitter {
	return &Submitter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// progressRequest mirrors the server's progress body. The legacy quizId and
// examId keys are filled alongside contentId.
type progressRequest struct {
	SessionID        string `json:"sessionId"`
	ContentID        string `json:"contentId"`
	QuizID           string `json:"quizId,omitempty"`
	ExamID           string `json:"examId,omitempty"`
	Score            int    `json:"score"`
	TotalQuestions   int    `json:"totalQuestions"`
	TimeTakenSeconds int    `json:"timeTakenSeconds"`
}

// StatusError is a non-2xx answer from the progress API.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("progress api: http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("progress api: http %d", e.Status)
}

// Submit posts p with credential as a bearer token.
func (s *Submitter) Submit(ctx context.Context, credential string, p assessment.SubmissionPayload) error {
	if credential == "" {
		return assessment.ErrNoCredential
	}

	body := progressRequest{
		SessionID:        p.SessionID,
		ContentID:        p.ContentID,
		Score:            p.Score,
		TotalQuestions:   p.TotalQuestions,
		TimeTakenSeconds: p.TimeTakenSeconds,
	}
	path := "/progress/quiz"
	if p.Kind == assessment.KindExam {
		path = "/progress/exam"
		body.ExamID = p.ContentID
	} else {
		body.QuizID = p.ContentID
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+credential)
	if p.SessionID != "" {
		req.Header.Set(IdempotencyHeader, p.SessionID)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post progress: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return decodeError(resp.StatusCode, raw)
}

type errorEnvelope struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(status int, body []byte) error {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		return &StatusError{Status: status, Code: env.Error.Code, Message: env.Error.Message}
	}
	return &StatusError{Status: status}
}
