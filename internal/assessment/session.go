package assessment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State is the session lifecycle.
type State string

const (
	StateNotStarted State = "NOT_STARTED"
	StateInProgress State = "IN_PROGRESS"
	StateFinished   State = "FINISHED"
)

// FinishReason records which transition ended the session.
type FinishReason string

const (
	FinishCompleted FinishReason = "completed"
	FinishExpired   FinishReason = "expired"
	FinishAbandoned FinishReason = "abandoned"
)

// DefaultSubmitTimeout bounds a single submission attempt.
const DefaultSubmitTimeout = 10 * time.Second

// Hooks observe a session. They run outside the session lock and must not block.
type Hooks struct {
	OnTick       func(remaining time.Duration)
	OnFinish     func(res Result)
	OnSubmission func(status SubmissionStatus)
}

// Snapshot is an immutable view of a session.
type Snapshot struct {
	SessionID        string         `json:"sessionId"`
	Kind             Kind           `json:"kind"`
	ContentID        string         `json:"contentId"`
	State            State          `json:"state"`
	Reason           FinishReason   `json:"reason,omitempty"`
	Score            int            `json:"score"`
	TotalQuestions   int            `json:"totalQuestions"`
	CurrentIndex     int            `json:"currentIndex"`
	Pending          *int           `json:"pending"`
	History          []AnswerRecord `json:"history"`
	RemainingSeconds int            `json:"remainingSeconds"`
	DurationSeconds  int            `json:"durationSeconds"`
	Version          uint64         `json:"version"`
}

// Session is one assessment attempt. Every transition runs under a single
// lock and checks state inside it, so user actions and clock expiry can race
// freely: exactly one of them finishes the session.
type Session struct {
	id        string
	cfg       SessionConfig
	questions []QuestionRecord

	clock         *Clock
	clockOpts     []ClockOption
	submitter     Submitter
	credential    string
	submitTimeout time.Duration
	hooks         Hooks
	log           zerolog.Logger

	mu         sync.Mutex
	state      State
	reason     FinishReason
	current    int
	pending    *int
	history    []AnswerRecord
	version    uint64
	timeTaken  int
	status     SubmissionStatus
	finishedAt time.Time
	settled    chan struct{}
}

// Option configures a Session.
type Option func(*Session)

func WithSubmitter(s Submitter) Option { return func(se *Session) { se.submitter = s } }

func WithCredential(token string) Option { return func(se *Session) { se.credential = token } }

func WithLogger(l zerolog.Logger) Option { return func(se *Session) { se.log = l } }

func WithHooks(h Hooks) Option { return func(se *Session) { se.hooks = h } }

func WithSessionID(id string) Option {
	return func(se *Session) {
		if id != "" {
			se.id = id
		}
	}
}

func WithClockOptions(opts ...ClockOption) Option {
	return func(se *Session) { se.clockOpts = append(se.clockOpts, opts...) }
}

func WithSubmitTimeout(d time.Duration) Option {
	return func(se *Session) {
		if d > 0 {
			se.submitTimeout = d
		}
	}
}

// NewSession builds a session over an already loaded question set.
func NewSession(cfg SessionConfig, questions []QuestionRecord, opts ...Option) (*Session, error) {
	if len(questions) == 0 {
		return nil, &ValidationError{Index: -1, Field: "questions", Reason: "question set is empty"}
	}
	if err := cfg.check(); err != nil {
		return nil, err
	}

	s := &Session{
		id:            uuid.NewString(),
		cfg:           cfg,
		questions:     append([]QuestionRecord(nil), questions...),
		submitTimeout: DefaultSubmitTimeout,
		log:           zerolog.Nop(),
		state:         StateNotStarted,
		history:       []AnswerRecord{},
		status:        SubmissionPending,
		settled:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("session_id", s.id).Str("kind", string(cfg.Kind)).Logger()

	s.clock = NewClock(time.Duration(cfg.DurationSeconds)*time.Second, s.clockOpts...)
	s.clock.OnTick(s.handleTick)
	s.clock.OnExpire(s.handleExpire)
	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Config() SessionConfig { return s.cfg }

// Questions returns a copy of the question set.
func (s *Session) Questions() []QuestionRecord {
	return append([]QuestionRecord(nil), s.questions...)
}

// Start moves the session to IN_PROGRESS and starts the clock.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.state != StateNotStarted {
		err := s.precondition("start", ErrAlreadyStarted, "")
		s.mu.Unlock()
		return err
	}
	s.state = StateInProgress
	s.current = 0
	s.pending = nil
	s.history = []AnswerRecord{}
	s.version++
	s.mu.Unlock()

	if err := s.clock.Start(); err != nil {
		return fmt.Errorf("start clock: %w", err)
	}
	s.log.Debug().Int("questions", len(s.questions)).Int("duration_seconds", s.cfg.DurationSeconds).Msg("Session started")
	return nil
}

// SelectAnswer records a pending selection for the current question. The
// last call before Advance wins.
func (s *Session) SelectAnswer(option int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return s.precondition("selectAnswer", ErrNotInProgress, "")
	}
	q := s.questions[s.current]
	if option < 0 || option >= len(q.Options) {
		return s.precondition("selectAnswer", ErrOptionOutOfRange, fmt.Sprintf("option %d out of range for %d options", option, len(q.Options)))
	}
	selected := option
	s.pending = &selected
	s.version++
	return nil
}

// Advance commits the pending selection and moves on, finishing the session
// after the last question.
func (s *Session) Advance() error {
	s.mu.Lock()
	if s.state != StateInProgress {
		err := s.precondition("advance", ErrNotInProgress, "")
		s.mu.Unlock()
		return err
	}
	if s.pending == nil {
		err := s.precondition("advance", ErrNoPendingAnswer, "")
		s.mu.Unlock()
		return err
	}
	if err := s.commitPendingLocked(); err != nil {
		s.mu.Unlock()
		return err
	}

	if s.current < len(s.questions)-1 {
		s.current++
		s.version++
		s.mu.Unlock()
		return nil
	}

	res, submit := s.finishLocked(FinishCompleted)
	s.mu.Unlock()
	s.afterFinish(res, submit)
	return nil
}

// Expire ends the session on clock expiry, grading a pending selection if one exists.
func (s *Session) Expire() error {
	s.mu.Lock()
	if s.state != StateInProgress {
		err := s.precondition("expire", ErrNotInProgress, "")
		s.mu.Unlock()
		return err
	}
	if s.pending != nil {
		if err := s.commitPendingLocked(); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	res, submit := s.finishLocked(FinishExpired)
	s.mu.Unlock()
	s.afterFinish(res, submit)
	return nil
}

// Abandon ends the session without grading the pending selection and
// without submitting.
func (s *Session) Abandon() error {
	s.mu.Lock()
	if s.state != StateInProgress {
		err := s.precondition("abandon", ErrNotInProgress, "")
		s.mu.Unlock()
		return err
	}
	s.pending = nil
	s.settleLocked(SubmissionSkipped)
	res, _ := s.finishLocked(FinishAbandoned)
	s.mu.Unlock()

	s.afterFinish(res, nil)
	if s.hooks.OnSubmission != nil {
		s.hooks.OnSubmission(SubmissionSkipped)
	}
	return nil
}

// Snapshot returns the current view. It never mutates the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending *int
	if s.pending != nil {
		p := *s.pending
		pending = &p
	}
	return Snapshot{
		SessionID:        s.id,
		Kind:             s.cfg.Kind,
		ContentID:        s.cfg.ContentID,
		State:            s.state,
		Reason:           s.reason,
		Score:            s.scoreLocked(),
		TotalQuestions:   len(s.questions),
		CurrentIndex:     s.current,
		Pending:          pending,
		History:          append([]AnswerRecord{}, s.history...),
		RemainingSeconds: ceilSeconds(s.clock.Remaining()),
		DurationSeconds:  s.cfg.DurationSeconds,
		Version:          s.version,
	}
}

// Current returns the question awaiting an answer while the session is in progress.
func (s *Session) Current() (QuestionRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return QuestionRecord{}, false
	}
	return s.questions[s.current], true
}

// Result returns the presentation snapshot. It is only available once the
// session has finished.
func (s *Session) Result() (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateFinished {
		return Result{}, s.precondition("result", ErrNotFinished, "")
	}
	return s.resultLocked(), nil
}

// FinishedAt is the zero time until the session finishes.
func (s *Session) FinishedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishedAt
}

// SubmissionStatus is the current state of the single submission attempt.
func (s *Session) SubmissionStatus() SubmissionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Wait blocks until the submission outcome is known or ctx is done.
func (s *Session) Wait(ctx context.Context) (SubmissionStatus, error) {
	select {
	case <-s.settled:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.status, nil
	case <-ctx.Done():
		return SubmissionPending, ctx.Err()
	}
}

// ─── Internals ────────────────────────────────────────────────────────────────

func (s *Session) commitPendingLocked() error {
	q := s.questions[s.current]
	selected := *s.pending
	correct, err := Evaluate(q, selected)
	if err != nil {
		return err
	}
	s.history = append(s.history, AnswerRecord{
		QuestionIndex:      s.current,
		QuestionPrompt:     q.Prompt,
		SelectedOption:     selected,
		SelectedOptionText: q.Options[selected],
		CorrectAnswerText:  q.CorrectText(),
		IsCorrect:          correct,
	})
	s.pending = nil
	s.version++
	return nil
}

// finishLocked performs the single terminal transition. The returned payload
// is nil for abandoned sessions.
func (s *Session) finishLocked(reason FinishReason) (Result, *SubmissionPayload) {
	s.state = StateFinished
	s.reason = reason
	s.finishedAt = time.Now()
	s.timeTaken = int(s.clock.Elapsed() / time.Second)
	s.version++

	res := s.resultLocked()
	if reason == FinishAbandoned {
		return res, nil
	}
	return res, &SubmissionPayload{
		SessionID:        s.id,
		ContentID:        s.cfg.ContentID,
		Kind:             s.cfg.Kind,
		Score:            res.FinalScore,
		TotalQuestions:   res.TotalQuestions,
		TimeTakenSeconds: s.timeTaken,
	}
}

func (s *Session) afterFinish(res Result, payload *SubmissionPayload) {
	s.clock.Stop()
	s.log.Info().
		Str("reason", string(res.Reason)).
		Int("score", res.FinalScore).
		Int("total", res.TotalQuestions).
		Msg("Session finished")

	if s.hooks.OnFinish != nil {
		s.hooks.OnFinish(res)
	}
	if payload != nil {
		go s.submit(*payload)
	}
}

func (s *Session) submit(p SubmissionPayload) {
	if s.submitter == nil {
		s.log.Warn().Msg("No progress store configured, result not saved")
		s.settle(SubmissionSkipped)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.submitTimeout)
	defer cancel()

	err := s.submitter.Submit(ctx, s.credential, p)
	switch {
	case err == nil:
		s.log.Info().Int("score", p.Score).Msg("Result saved")
		s.settle(SubmissionSaved)
	case errors.Is(err, ErrNoCredential):
		s.log.Warn().Msg("Not signed in, result not saved")
		s.settle(SubmissionSkipped)
	default:
		s.log.Error().Err(err).Msg("Failed to save result")
		s.settle(SubmissionFailed)
	}
}

func (s *Session) settle(status SubmissionStatus) {
	s.mu.Lock()
	changed := s.settleLocked(status)
	s.mu.Unlock()

	if changed && s.hooks.OnSubmission != nil {
		s.hooks.OnSubmission(status)
	}
}

func (s *Session) settleLocked(status SubmissionStatus) bool {
	if s.status.Terminal() {
		return false
	}
	s.status = status
	s.version++
	close(s.settled)
	return true
}

func (s *Session) handleTick(remaining time.Duration) {
	if s.hooks.OnTick == nil {
		return
	}
	s.mu.Lock()
	live := s.state == StateInProgress
	s.mu.Unlock()
	if live {
		s.hooks.OnTick(remaining)
	}
}

func (s *Session) handleExpire() {
	if err := s.Expire(); err != nil {
		// Lost the race to Advance or Abandon.
		s.log.Debug().Err(err).Msg("Expiry ignored")
	}
}

func (s *Session) resultLocked() Result {
	return Result{
		SessionID:        s.id,
		Kind:             s.cfg.Kind,
		ContentID:        s.cfg.ContentID,
		Reason:           s.reason,
		FinalScore:       s.scoreLocked(),
		TotalQuestions:   len(s.questions),
		TimeTakenSeconds: s.timeTaken,
		History:          append([]AnswerRecord{}, s.history...),
		SubmissionStatus: s.status,
	}
}

// scoreLocked derives the score from history; there is no separate counter.
func (s *Session) scoreLocked() int {
	n := 0
	for _, a := range s.history {
		if a.IsCorrect {
			n++
		}
	}
	return n
}

func (s *Session) precondition(op string, cause error, reason string) error {
	if reason == "" {
		reason = cause.Error()
	}
	return &PreconditionError{Op: op, State: s.state, Reason: reason, Cause: cause}
}

func ceilSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
