package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rauth/examprep-backend/internal/assessment"
	"github.com/rauth/examprep-backend/internal/model"
)

// ErrSessionNotFound is returned for unknown sessions and for sessions owned
// by another user.
var ErrSessionNotFound = errors.New("session not found")

// ErrPremiumRequired is returned when a learner without a premium plan
// starts premium content.
var ErrPremiumRequired = errors.New("premium plan required")

// AssessmentLoader resolves stored content into engine input.
type AssessmentLoader interface {
	LoadAssessment(ctx context.Context, kind assessment.Kind, id string) (*model.LoadedAssessment, error)
}

// PremiumChecker reports whether a user may open premium content.
// UserService implements it.
type PremiumChecker interface {
	HasPremiumAccess(ctx context.Context, userID int) (bool, error)
}

// SessionObserver receives lifecycle counts. metrics.Sessions implements it.
type SessionObserver interface {
	SessionStarted(kind string)
	SessionFinished(kind, reason string, score, total int)
	SubmissionSettled(kind, status string)
	LiveSessions(n int)
}

type nopObserver struct{}

func (nopObserver) SessionStarted(string) {}

func (nopObserver) SessionFinished(string, string, int, int) {}

func (nopObserver) SubmissionSettled(string, string) {}

func (nopObserver) LiveSessions(int) {}

// Session stream event types.
const (
	EventTick       = "tick"
	EventFinished   = "finished"
	EventSubmission = "submission"
)

// SessionEvent is pushed to stream subscribers.
type SessionEvent struct {
	Type      string                      `json:"type"`
	Remaining int                         `json:"remaining,omitempty"`
	Result    *assessment.Result          `json:"result,omitempty"`
	Status    assessment.SubmissionStatus `json:"status,omitempty"`
}

// SessionResultView is a finished session with its per-question review.
type SessionResultView struct {
	Result  assessment.Result       `json:"result"`
	Percent float64                 `json:"percent"`
	Review  []assessment.ReviewItem `json:"review"`
}

const subscriberBuffer = 16

type hostedSession struct {
	session *assessment.Session
	userID  int
	title   string
	liveKey string

	mu   sync.Mutex
	subs map[chan SessionEvent]struct{}
}

// broadcast never blocks. A full subscriber misses ticks; for other events
// its oldest buffered event is dropped to make room.
func (h *hostedSession) broadcast(ev SessionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
			continue
		default:
		}
		if ev.Type == EventTick {
			continue
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}

// AssessmentService hosts assessment sessions in memory for the REST and
// WebSocket layers. Each session submits through the configured Submitter
// with its owner's id as the credential.
type AssessmentService struct {
	loader        AssessmentLoader
	submitter     assessment.Submitter
	observer      SessionObserver
	premium       PremiumChecker
	retention     time.Duration
	submitTimeout time.Duration
	clockOpts     []assessment.ClockOption
	log           zerolog.Logger
	now           func() time.Time

	mu       sync.RWMutex
	sessions map[string]*hostedSession
	live     map[string]string
}

// NewAssessmentService creates a new AssessmentService. observer may be nil.
func NewAssessmentService(
	loader AssessmentLoader,
	submitter assessment.Submitter,
	observer SessionObserver,
	retention, submitTimeout time.Duration,
	log zerolog.Logger,
) *AssessmentService {
	if observer == nil {
		observer = nopObserver{}
	}
	return &AssessmentService{
		loader:        loader,
		submitter:     submitter,
		observer:      observer,
		retention:     retention,
		submitTimeout: submitTimeout,
		log:           log.With().Str("component", "assessment_service").Logger(),
		now:           time.Now,
		sessions:      make(map[string]*hostedSession),
		live:          make(map[string]string),
	}
}

// SetPremiumChecker gates premium content behind c. Without a checker all
// content is open.
func (s *AssessmentService) SetPremiumChecker(c PremiumChecker) { s.premium = c }

// Start begins a session over stored content. If the user already has an
// unfinished session over the same content it is returned instead and
// created is false.
func (s *AssessmentService) Start(ctx context.Context, userID int, req model.StartSessionRequest) (view *model.SessionView, created bool, err error) {
	kind := assessment.Kind(req.Kind)
	liveKey := fmt.Sprintf("%d:%s:%s", userID, kind, req.ContentID)

	if h := s.liveSession(liveKey); h != nil {
		return s.view(h), false, nil
	}

	loaded, err := s.loader.LoadAssessment(ctx, kind, req.ContentID)
	if err != nil {
		return nil, false, err
	}
	if loaded.Premium && s.premium != nil {
		ok, err := s.premium.HasPremiumAccess(ctx, userID)
		if err != nil {
			return nil, false, fmt.Errorf("check premium access: %w", err)
		}
		if !ok {
			return nil, false, ErrPremiumRequired
		}
	}
	cfg := loaded.Config
	if req.DurationSeconds > 0 {
		cfg.DurationSeconds = req.DurationSeconds
	}

	h := &hostedSession{
		userID:  userID,
		title:   loaded.Title,
		liveKey: liveKey,
		subs:    make(map[chan SessionEvent]struct{}),
	}
	sess, err := assessment.NewSession(cfg, loaded.Questions,
		assessment.WithSubmitter(s.submitter),
		assessment.WithCredential(strconv.Itoa(userID)),
		assessment.WithLogger(s.log.With().Int("user_id", userID).Str("content_id", cfg.ContentID).Logger()),
		assessment.WithSubmitTimeout(s.submitTimeout),
		assessment.WithClockOptions(s.clockOpts...),
		assessment.WithHooks(s.hooks(h, cfg.Kind)),
	)
	if err != nil {
		return nil, false, err
	}
	h.session = sess

	s.mu.Lock()
	if id, ok := s.live[liveKey]; ok {
		if existing := s.sessions[id]; existing != nil && existing.session.Snapshot().State != assessment.StateFinished {
			s.mu.Unlock()
			return s.view(existing), false, nil
		}
	}
	s.sessions[sess.ID()] = h
	s.live[liveKey] = sess.ID()
	n := len(s.sessions)
	s.mu.Unlock()

	if err := sess.Start(); err != nil {
		s.remove(sess.ID())
		return nil, false, err
	}
	s.observer.SessionStarted(string(cfg.Kind))
	s.observer.LiveSessions(n)
	s.log.Info().
		Str("session_id", sess.ID()).
		Int("user_id", userID).
		Str("kind", string(cfg.Kind)).
		Str("content_id", cfg.ContentID).
		Int("duration_seconds", cfg.DurationSeconds).
		Msg("Session started")
	return s.view(h), true, nil
}

// View returns the session as its owner sees it.
func (s *AssessmentService) View(userID int, id string) (*model.SessionView, error) {
	h, err := s.get(userID, id)
	if err != nil {
		return nil, err
	}
	return s.view(h), nil
}

// Select records the pending option for the current question.
func (s *AssessmentService) Select(userID int, id string, option int) (assessment.Snapshot, error) {
	return s.apply(userID, id, func(sess *assessment.Session) error { return sess.SelectAnswer(option) })
}

// Advance commits the pending option.
func (s *AssessmentService) Advance(userID int, id string) (assessment.Snapshot, error) {
	return s.apply(userID, id, (*assessment.Session).Advance)
}

// Abandon ends the session without submitting.
func (s *AssessmentService) Abandon(userID int, id string) (assessment.Snapshot, error) {
	return s.apply(userID, id, (*assessment.Session).Abandon)
}

// Result returns the finished session's result and review.
func (s *AssessmentService) Result(userID int, id string) (*SessionResultView, error) {
	h, err := s.get(userID, id)
	if err != nil {
		return nil, err
	}
	res, err := h.session.Result()
	if err != nil {
		return nil, err
	}
	return &SessionResultView{
		Result:  res,
		Percent: res.Percent(),
		Review:  assessment.Review(res, h.session.Questions()),
	}, nil
}

// Subscribe streams events for a session. The returned cancel func must be
// called to release the subscription.
func (s *AssessmentService) Subscribe(userID int, id string) (<-chan SessionEvent, func(), error) {
	h, err := s.get(userID, id)
	if err != nil {
		return nil, nil, err
	}
	ch := make(chan SessionEvent, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
		})
	}
	return ch, cancel, nil
}

// Run evicts finished sessions once their retention window passes. It
// returns when ctx is done.
func (s *AssessmentService) Run(ctx context.Context) {
	interval := s.retention / 2
	if interval <= 0 || interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info().Dur("retention", s.retention).Msg("Session janitor started")
	for {
		select {
		case <-ctx.Done():
			s.mu.RLock()
			n := len(s.sessions)
			s.mu.RUnlock()
			s.log.Info().Int("sessions", n).Msg("Session janitor stopped")
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.log.Debug().Int("evicted", n).Msg("Evicted finished sessions")
			}
		}
	}
}

// Sweep evicts finished, settled sessions older than the retention window
// and returns how many were removed.
func (s *AssessmentService) Sweep() int {
	cutoff := s.now().Add(-s.retention)

	s.mu.Lock()
	evicted := 0
	for id, h := range s.sessions {
		finished := h.session.FinishedAt()
		if finished.IsZero() || finished.After(cutoff) {
			continue
		}
		if st := h.session.Snapshot(); st.State != assessment.StateFinished {
			continue
		}
		if !h.session.SubmissionStatus().Terminal() {
			continue
		}
		delete(s.sessions, id)
		if s.live[h.liveKey] == id {
			delete(s.live, h.liveKey)
		}
		evicted++
	}
	n := len(s.sessions)
	s.mu.Unlock()

	s.observer.LiveSessions(n)
	return evicted
}

// Len is the number of sessions held in memory.
func (s *AssessmentService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// ─── Internals ──────────────────────────────────────────────────────────────

func (s *AssessmentService) hooks(h *hostedSession, kind assessment.Kind) assessment.Hooks {
	return assessment.Hooks{
		OnTick: func(remaining time.Duration) {
			h.broadcast(SessionEvent{Type: EventTick, Remaining: int((remaining + time.Second - 1) / time.Second)})
		},
		OnFinish: func(res assessment.Result) {
			s.observer.SessionFinished(string(kind), string(res.Reason), res.FinalScore, res.TotalQuestions)
			s.log.Info().
				Str("session_id", res.SessionID).
				Int("user_id", h.userID).
				Str("reason", string(res.Reason)).
				Int("score", res.FinalScore).
				Int("total", res.TotalQuestions).
				Msg("Session finished")
			h.broadcast(SessionEvent{Type: EventFinished, Result: &res})
		},
		OnSubmission: func(status assessment.SubmissionStatus) {
			s.observer.SubmissionSettled(string(kind), string(status))
			h.broadcast(SessionEvent{Type: EventSubmission, Status: status})
		},
	}
}

func (s *AssessmentService) apply(userID int, id string, op func(*assessment.Session) error) (assessment.Snapshot, error) {
	h, err := s.get(userID, id)
	if err != nil {
		return assessment.Snapshot{}, err
	}
	if err := op(h.session); err != nil {
		return assessment.Snapshot{}, err
	}
	return h.session.Snapshot(), nil
}

func (s *AssessmentService) get(userID int, id string) (*hostedSession, error) {
	s.mu.RLock()
	h, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || h.userID != userID {
		return nil, ErrSessionNotFound
	}
	return h, nil
}

func (s *AssessmentService) liveSession(liveKey string) *hostedSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.live[liveKey]
	if !ok {
		return nil
	}
	h := s.sessions[id]
	if h == nil || h.session.Snapshot().State == assessment.StateFinished {
		return nil
	}
	return h
}

func (s *AssessmentService) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.sessions[id]; ok {
		delete(s.sessions, id)
		if s.live[h.liveKey] == id {
			delete(s.live, h.liveKey)
		}
	}
}

func (s *AssessmentService) view(h *hostedSession) *model.SessionView {
	snap := h.session.Snapshot()
	v := &model.SessionView{Title: h.title, Snapshot: snap}
	if snap.State != assessment.StateFinished {
		v.Questions = model.PublicQuestions(h.session.Questions())
	}
	return v
}
