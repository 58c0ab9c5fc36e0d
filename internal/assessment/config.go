package assessment

import (
	"fmt"
	"math"
)

// Kind selects the content type a session runs over.
type Kind string

const (
	KindQuiz Kind = "quiz"
	KindExam Kind = "exam"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool { return k == KindQuiz || k == KindExam }

// SessionConfig describes a session before it starts.
type SessionConfig struct {
	Kind            Kind   `json:"kind"`
	ContentID       string `json:"contentId"`
	DurationSeconds int    `json:"durationSeconds"`
}

func (c SessionConfig) check() error {
	if !c.Kind.Valid() {
		return &ValidationError{Index: -1, Field: "kind", Reason: fmt.Sprintf("unknown session kind %q", c.Kind)}
	}
	if c.DurationSeconds <= 0 {
		return &ValidationError{Index: -1, Field: "durationSeconds", Reason: "duration must be positive"}
	}
	return nil
}

// DurationPolicy derives a session duration when content carries none.
type DurationPolicy struct {
	QuizDefaultMinutes     int
	ExamMinutesPerQuestion float64
}

// DefaultDurationPolicy gives quizzes 15 minutes and exams 1.5 minutes per
// question, rounded up to a whole minute.
func DefaultDurationPolicy() DurationPolicy {
	return DurationPolicy{QuizDefaultMinutes: 15, ExamMinutesPerQuestion: 1.5}
}

// Resolve returns the duration in seconds. A positive explicit value always wins.
func (p DurationPolicy) Resolve(kind Kind, questionCount, explicitSeconds int) int {
	if explicitSeconds > 0 {
		return explicitSeconds
	}
	if kind == KindExam {
		minutes := math.Ceil(float64(questionCount) * p.ExamMinutesPerQuestion)
		if minutes < 1 {
			minutes = 1
		}
		return int(minutes) * 60
	}
	if p.QuizDefaultMinutes <= 0 {
		return DefaultDurationPolicy().QuizDefaultMinutes * 60
	}
	return p.QuizDefaultMinutes * 60
}
