package assessment

import "context"

// SubmissionPayload is what a finished session reports to the progress store.
type SubmissionPayload struct {
	SessionID        string `json:"sessionId"`
	ContentID        string `json:"contentId"`
	Kind             Kind   `json:"kind"`
	Score            int    `json:"score"`
	TotalQuestions   int    `json:"totalQuestions"`
	TimeTakenSeconds int    `json:"timeTakenSeconds"`
}

// SubmissionStatus tracks the single submission attempt of a session.
type SubmissionStatus string

const (
	SubmissionPending SubmissionStatus = "pending"
	SubmissionSaved   SubmissionStatus = "saved"
	SubmissionFailed  SubmissionStatus = "failed"
	SubmissionSkipped SubmissionStatus = "skipped"
)

// Terminal reports whether s is a final outcome.
func (s SubmissionStatus) Terminal() bool { return s != SubmissionPending && s != "" }

// Submitter delivers a payload to the progress store. It is called at most
// once per session and must return ErrNoCredential when credential is empty
// and the store requires one.
type Submitter interface {
	Submit(ctx context.Context, credential string, p SubmissionPayload) error
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, credential string, p SubmissionPayload) error

func (f SubmitterFunc) Submit(ctx context.Context, credential string, p SubmissionPayload) error {
	return f(ctx, credential, p)
}
