//go:build cucumber

package assessment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"
)

// TestSessionScenarios runs the session lifecycle feature.
func TestSessionScenarios(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "assessment-session",
		ScenarioInitializer: InitializeSessionScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/session.feature"},
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

// InitializeSessionScenario wires steps for session scenarios.
func InitializeSessionScenario(ctx *godog.ScenarioContext) {
	state := &sessionScenarioState{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		state.reset()
		return ctx, nil
	})

	ctx.Step(`^a question set:$`, state.givenQuestionSet)
	ctx.Step(`^only the first (\d+) questions$`, state.givenFirstQuestions)
	ctx.Step(`^an empty question set$`, state.givenEmptySet)
	ctx.Step(`^a question "([^"]+)" with options "([^"]+)" and answer "([^"]+)"$`, state.givenTextQuestion)
	ctx.Step(`^a session lasting (\d+) seconds$`, state.givenSession)
	ctx.Step(`^the session starts$`, state.whenStart)
	ctx.Step(`^I select option (\d+) and advance$`, state.whenSelectAndAdvance)
	ctx.Step(`^I select option (\d+)$`, state.whenSelect)
	ctx.Step(`^I advance$`, state.whenAdvance)
	ctx.Step(`^I abandon the session$`, state.whenAbandon)
	ctx.Step(`^(\d+) seconds elapse$`, state.whenSecondsElapse)
	ctx.Step(`^the session is finished because it was "([^"]+)"$`, state.thenFinished)
	ctx.Step(`^the final score is (\d+)$`, state.thenScore)
	ctx.Step(`^the history has (\d+) entries$`, state.thenHistory)
	ctx.Step(`^the result is submitted once$`, state.thenSubmittedOnce)
	ctx.Step(`^nothing is submitted$`, state.thenNothingSubmitted)
	ctx.Step(`^the operation is rejected$`, state.thenRejected)
	ctx.Step(`^loading fails with a validation error$`, state.thenLoadFails)
}

type sessionScenarioState struct {
	raw       []RawQuestion
	session   *Session
	clock     *fakeTime
	submitter *recordingSubmitter
	finished  chan struct{}
	elapsed   time.Duration
	lastErr   error
}

// reset clears scenario state.
func (s *sessionScenarioState) reset() {
	*s = sessionScenarioState{
		clock:     newFakeTime(),
		submitter: &recordingSubmitter{},
		finished:  make(chan struct{}),
	}
}

func (s *sessionScenarioState) givenQuestionSet(table *godog.Table) error {
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, c := range row.Cells {
			cells[j] = strings.TrimSpace(c.Value)
		}
		rq := RawQuestion{Question: cells[0], Options: strings.Split(cells[1], ",")}
		if cells[2] != "" {
			idx, err := strconv.Atoi(cells[2])
			if err != nil {
				return fmt.Errorf("row %d: bad index: %w", i, err)
			}
			rq.CorrectAnswerIndex = &idx
		}
		if cells[3] != "" {
			answer := cells[3]
			rq.Answer = &answer
		}
		s.raw = append(s.raw, rq)
	}
	return nil
}

func (s *sessionScenarioState) givenFirstQuestions(n int) error {
	if n > len(s.raw) {
		return fmt.Errorf("only %d questions available", len(s.raw))
	}
	s.raw = s.raw[:n]
	return nil
}

func (s *sessionScenarioState) givenEmptySet() error {
	s.raw = nil
	return nil
}

func (s *sessionScenarioState) givenTextQuestion(prompt, options, answer string) error {
	s.raw = []RawQuestion{{Question: prompt, Options: strings.Split(options, ","), Answer: &answer}}
	return nil
}

func (s *sessionScenarioState) givenSession(seconds int) error {
	qs, err := LoadQuestions(s.raw)
	if err != nil {
		return err
	}
	finished := s.finished
	s.session, err = NewSession(
		SessionConfig{Kind: KindExam, ContentID: "feature", DurationSeconds: seconds},
		qs,
		WithSubmitter(s.submitter),
		WithCredential("learner-token"),
		WithClockOptions(WithNow(s.clock.Now), WithTickInterval(time.Millisecond)),
		WithHooks(Hooks{OnFinish: func(Result) { close(finished) }}),
	)
	return err
}

func (s *sessionScenarioState) whenStart() error { return s.session.Start() }

func (s *sessionScenarioState) whenSelect(option int) error { return s.session.SelectAnswer(option) }

func (s *sessionScenarioState) whenSelectAndAdvance(option int) error {
	if err := s.session.SelectAnswer(option); err != nil {
		return err
	}
	return s.session.Advance()
}

func (s *sessionScenarioState) whenAdvance() error {
	s.lastErr = s.session.Advance()
	return nil
}

func (s *sessionScenarioState) whenAbandon() error { return s.session.Abandon() }

func (s *sessionScenarioState) whenSecondsElapse(seconds int) error {
	step := time.Duration(seconds) * time.Second
	s.clock.Advance(step)
	s.elapsed += step
	if s.elapsed < time.Duration(s.session.Config().DurationSeconds)*time.Second {
		return nil
	}
	select {
	case <-s.finished:
		return nil
	case <-time.After(2 * time.Second):
		return errors.New("session did not expire")
	}
}

func (s *sessionScenarioState) thenFinished(reason string) error {
	snap := s.session.Snapshot()
	if snap.State != StateFinished {
		return fmt.Errorf("expected FINISHED, got %s", snap.State)
	}
	if string(snap.Reason) != reason {
		return fmt.Errorf("expected reason %s, got %s", reason, snap.Reason)
	}
	return nil
}

func (s *sessionScenarioState) thenScore(want int) error {
	if got := s.session.Snapshot().Score; got != want {
		return fmt.Errorf("expected score %d, got %d", want, got)
	}
	return nil
}

func (s *sessionScenarioState) thenHistory(want int) error {
	if got := len(s.session.Snapshot().History); got != want {
		return fmt.Errorf("expected %d history entries, got %d", want, got)
	}
	return nil
}

func (s *sessionScenarioState) thenSubmittedOnce() error {
	if err := s.wait(); err != nil {
		return err
	}
	if n := s.submitter.count(); n != 1 {
		return fmt.Errorf("expected one submission, got %d", n)
	}
	return nil
}

func (s *sessionScenarioState) thenNothingSubmitted() error {
	if err := s.wait(); err != nil {
		return err
	}
	if n := s.submitter.count(); n != 0 {
		return fmt.Errorf("expected no submission, got %d", n)
	}
	return nil
}

func (s *sessionScenarioState) thenRejected() error {
	if !errors.Is(s.lastErr, ErrPrecondition) {
		return fmt.Errorf("expected precondition error, got %v", s.lastErr)
	}
	return nil
}

func (s *sessionScenarioState) thenLoadFails() error {
	_, err := LoadQuestions(s.raw)
	if !errors.Is(err, ErrValidation) {
		return fmt.Errorf("expected validation error, got %v", err)
	}
	return nil
}

func (s *sessionScenarioState) wait() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := s.session.Wait(ctx)
	return err
}
