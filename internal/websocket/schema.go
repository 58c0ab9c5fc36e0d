package websocket

import "github.com/rauth/examprep-backend/internal/assessment"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSelect  Action = "select"
	ActionAdvance Action = "advance"
	ActionAbandon Action = "abandon"
	ActionPing    Action = "ping"
)

// Request is any client message. OptionIndex is only read for select.
type Request struct {
	Action      Action `json:"action"`
	OptionIndex *int   `json:"option_index,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventSnapshot   Event = "snapshot"
	EventTick       Event = "tick"
	EventFinished   Event = "finished"
	EventSubmission Event = "submission"
	EventError      Event = "error"
	EventPong       Event = "pong"
)

// SnapshotResponse is sent on connect and after every accepted action.
type SnapshotResponse struct {
	Event    Event               `json:"event"`
	Snapshot assessment.Snapshot `json:"snapshot"`
}

type TickResponse struct {
	Event     Event `json:"event"`
	Remaining int   `json:"remaining"`
}

type FinishedResponse struct {
	Event  Event             `json:"event"`
	Result assessment.Result `json:"result"`
}

type SubmissionResponse struct {
	Event  Event                       `json:"event"`
	Status assessment.SubmissionStatus `json:"status"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
