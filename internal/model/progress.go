package model

import "time"

// ProgressAttempt is one recorded quiz or exam result.
type ProgressAttempt struct {
	ID               int64     `json:"id"`
	SubmissionKey    string    `json:"submission_key"`
	UserID           int       `json:"user_id"`
	Kind             string    `json:"kind"`
	ContentID        string    `json:"content_id"`
	Score            int       `json:"score"`
	TotalQuestions   int       `json:"total_questions,omitempty"`
	TimeTakenSeconds int       `json:"time_taken_seconds"`
	CreatedAt        time.Time `json:"created_at"`
}

// SubmitProgressRequest accepts both the legacy client body
// ({quizId|examId, score, timeTaken}) and the session submitter body.
type SubmitProgressRequest struct {
	SessionID        string `json:"sessionId" binding:"omitempty,max=64"`
	ContentID        string `json:"contentId" binding:"omitempty,max=64"`
	QuizID           string `json:"quizId" binding:"omitempty,max=64"`
	ExamID           string `json:"examId" binding:"omitempty,max=64"`
	Score            *int   `json:"score" binding:"required,min=0,max=10000"`
	TotalQuestions   *int   `json:"totalQuestions" binding:"omitempty,min=1,max=10000"`
	TimeTaken        *int   `json:"timeTaken" binding:"omitempty,min=0,max=86400"`
	TimeTakenSeconds *int   `json:"timeTakenSeconds" binding:"omitempty,min=0,max=86400"`
}

// ResolvedContentID picks the content id from whichever field was sent.
func (r SubmitProgressRequest) ResolvedContentID(kind string) string {
	if r.ContentID != "" {
		return r.ContentID
	}
	if kind == "exam" {
		return r.ExamID
	}
	return r.QuizID
}

// ResolvedTimeTaken prefers the explicit seconds field.
func (r SubmitProgressRequest) ResolvedTimeTaken() int {
	if r.TimeTakenSeconds != nil {
		return *r.TimeTakenSeconds
	}
	if r.TimeTaken != nil {
		return *r.TimeTaken
	}
	return 0
}

// ProgressJob is the queue item written by the API and consumed by ProgressWorker.
type ProgressJob struct {
	SubmissionKey    string    `json:"submission_key"`
	UserID           int       `json:"user_id"`
	Kind             string    `json:"kind"`
	ContentID        string    `json:"content_id"`
	Score            int       `json:"score"`
	TotalQuestions   int       `json:"total_questions,omitempty"`
	TimeTakenSeconds int       `json:"time_taken_seconds"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

// SubmitProgressResponse acknowledges a submission.
type SubmitProgressResponse struct {
	Status        string `json:"status"`
	SubmissionKey string `json:"submission_key"`
}

// Submission acknowledgement statuses.
const (
	SubmissionAccepted  = "accepted"
	SubmissionDuplicate = "duplicate"
)

// StudyTimeRequest is the heartbeat body sent while a learner is active.
type StudyTimeRequest struct {
	Seconds int `json:"seconds" binding:"required,min=1,max=300"`
}

// StudyTimeJob is the queue item consumed by StudyTimeWorker.
type StudyTimeJob struct {
	UserID  int    `json:"user_id"`
	Day     string `json:"day"`
	Seconds int    `json:"seconds"`
}

// KindStats aggregates a user's attempts of one kind.
type KindStats struct {
	Attempts       int     `json:"attempts"`
	AverageScore   float64 `json:"average_score"`
	BestScore      int     `json:"best_score"`
	TotalTimeTaken int     `json:"total_time_taken_seconds"`
}

// ProgressOverview is the per-user analytics response.
type ProgressOverview struct {
	Quiz              KindStats  `json:"quiz"`
	Exam              KindStats  `json:"exam"`
	StudySeconds      int64      `json:"study_seconds"`
	StudySecondsToday int64      `json:"study_seconds_today"`
	LastAttemptAt     *time.Time `json:"last_attempt_at,omitempty"`
}

// ProgressHistoryQuery filters the attempt history listing.
type ProgressHistoryQuery struct {
	Kind    string `form:"kind" binding:"omitempty,oneof=quiz exam"`
	Page    int    `form:"page" binding:"omitempty,min=1"`
	PerPage int    `form:"per_page" binding:"omitempty,min=1,max=100"`
}

const defaultHistoryPerPage = 20

// Normalized fills in the first page and the default page size.
func (q ProgressHistoryQuery) Normalized() ProgressHistoryQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = defaultHistoryPerPage
	}
	return q
}

// Offset is the number of rows before the requested page.
func (q ProgressHistoryQuery) Offset() int {
	return (q.Page - 1) * q.PerPage
}

// ContentProgressSummary aggregates attempts across all users for one content item.
type ContentProgressSummary struct {
	Kind         string    `json:"kind"`
	ContentID    string    `json:"content_id"`
	Attempts     int       `json:"attempts"`
	Learners     int       `json:"learners"`
	AverageScore float64   `json:"average_score"`
	BestScore    int       `json:"best_score"`
	LastAttempt  time.Time `json:"last_attempt_at"`
}

// ProgressEvent is published once an attempt is persisted.
type ProgressEvent struct {
	Type             string    `json:"type"`
	SubmissionKey    string    `json:"submission_key"`
	UserID           int       `json:"user_id"`
	Kind             string    `json:"kind"`
	ContentID        string    `json:"content_id"`
	Score            int       `json:"score"`
	TimeTakenSeconds int       `json:"time_taken_seconds"`
	RecordedAt       time.Time `json:"recorded_at"`
}
