package model

import "github.com/rauth/examprep-backend/internal/assessment"

// StartSessionRequest starts a server-hosted session over stored content.
type StartSessionRequest struct {
	Kind            string `json:"kind" binding:"required,oneof=quiz exam"`
	ContentID       string `json:"content_id" binding:"required,max=64"`
	DurationSeconds int    `json:"duration_seconds" binding:"omitempty,min=10,max=28800"`
}

// SelectAnswerRequest records the pending selection.
type SelectAnswerRequest struct {
	OptionIndex *int `json:"option_index" binding:"required,min=0"`
}

// SessionView is what clients see of a hosted session.
type SessionView struct {
	Title     string              `json:"title,omitempty"`
	Snapshot  assessment.Snapshot `json:"snapshot"`
	Questions []PublicQuestion    `json:"questions,omitempty"`
}
