package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rauth/examprep-backend/internal/assessment"
)

var errQuit = errors.New("quit")

// player drives one session from line-oriented input.
type player struct {
	out     io.Writer
	lines   <-chan string
	noColor bool

	finished chan struct{}
	once     sync.Once
}

func newPlayer(in io.Reader, out io.Writer, noColor bool) *player {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	return &player{out: out, lines: lines, noColor: noColor, finished: make(chan struct{})}
}

// hooks closes p.finished when the session ends by any path, expiry included.
func (p *player) hooks() assessment.Hooks {
	return assessment.Hooks{
		OnFinish: func(assessment.Result) {
			p.once.Do(func() { close(p.finished) })
		},
	}
}

// play runs the prompt loop until the session finishes.
func (p *player) play(sess *assessment.Session, title string) {
	snap := sess.Snapshot()
	fmt.Fprintln(p.out, stylize(fmt.Sprintf("%s · %d questions · %s", title, snap.TotalQuestions,
		formatRemaining(snap.DurationSeconds)), p.noColor, colorTitle))
	fmt.Fprintln(p.out, stylize("Answer with the option letter. Type q to quit.", p.noColor, colorMuted))

	for {
		q, ok := sess.Current()
		if !ok {
			return
		}
		snap := sess.Snapshot()
		p.printQuestion(q, snap)

		choice, err := p.ask(len(q.Options))
		if errors.Is(err, errQuit) {
			if p.confirmQuit() {
				_ = sess.Abandon()
				return
			}
			continue
		}
		if err != nil {
			if sess.Snapshot().State == assessment.StateFinished {
				fmt.Fprintln(p.out)
				fmt.Fprintln(p.out, stylize("Time is up.", p.noColor, colorBad))
				return
			}
			// Input closed before the end: treat as quitting.
			_ = sess.Abandon()
			return
		}

		if err := sess.SelectAnswer(choice); err != nil {
			if errors.Is(err, assessment.ErrNotInProgress) {
				continue
			}
			fmt.Fprintln(p.out, stylize(err.Error(), p.noColor, colorBad))
			continue
		}
		if err := sess.Advance(); err != nil && !errors.Is(err, assessment.ErrNotInProgress) {
			fmt.Fprintln(p.out, stylize(err.Error(), p.noColor, colorBad))
		}
	}
}

func (p *player) printQuestion(q assessment.QuestionRecord, snap assessment.Snapshot) {
	fmt.Fprintln(p.out)
	header := fmt.Sprintf("Question %d/%d", snap.CurrentIndex+1, snap.TotalQuestions)
	fmt.Fprintln(p.out, stylize(header, p.noColor, colorTitle)+"  "+
		stylize(formatRemaining(snap.RemainingSeconds)+" left", p.noColor, colorMuted))
	fmt.Fprintln(p.out, q.Prompt)
	for i, opt := range q.Options {
		fmt.Fprintf(p.out, "  %s) %s\n", optionLetter(i), opt)
	}
}

// ask reads lines until one is a valid choice. It returns errQuit for q, or
// an error when the session finished or input ended while waiting.
func (p *player) ask(n int) (int, error) {
	for {
		fmt.Fprintf(p.out, "Answer [%s-%s]: ", optionLetter(0), optionLetter(n-1))
		line, err := p.readLine()
		if err != nil {
			return 0, err
		}
		if isQuit(line) {
			return 0, errQuit
		}
		choice, err := parseChoice(line, n)
		if err != nil {
			fmt.Fprintln(p.out, stylize(err.Error(), p.noColor, colorBad))
			continue
		}
		return choice, nil
	}
}

func (p *player) confirmQuit() bool {
	fmt.Fprint(p.out, "Abandon this attempt? Progress will not be saved. [y/N]: ")
	line, err := p.readLine()
	if err != nil {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// readLine waits for input or the end of the session, whichever is first.
func (p *player) readLine() (string, error) {
	select {
	case <-p.finished:
		return "", errors.New("session finished")
	case line, ok := <-p.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	}
}

// awaitSubmission shows a saving indicator until the submitter settles.
func (p *player) awaitSubmission(ctx context.Context, sess *assessment.Session, timeout time.Duration) assessment.SubmissionStatus {
	if st := sess.SubmissionStatus(); st.Terminal() {
		return st
	}
	fmt.Fprintln(p.out, stylize("Saving results…", p.noColor, colorMuted))
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	st, err := sess.Wait(ctx)
	if err != nil {
		return assessment.SubmissionPending
	}
	return st
}

func isQuit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "q", "quit", "exit":
		return true
	}
	return false
}

// parseChoice accepts an option letter (a, B) or a 1-based number.
func parseChoice(input string, n int) (int, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return 0, errors.New("enter an option letter")
	}
	if len(s) == 1 && s[0] >= 'a' && s[0] <= 'z' {
		i := int(s[0] - 'a')
		if i < n {
			return i, nil
		}
		return 0, fmt.Errorf("choose between %s and %s", optionLetter(0), optionLetter(n-1))
	}
	if num, err := strconv.Atoi(s); err == nil {
		if num >= 1 && num <= n {
			return num - 1, nil
		}
		return 0, fmt.Errorf("choose between 1 and %d", n)
	}
	return 0, fmt.Errorf("%q is not an option", strings.TrimSpace(input))
}

func optionLetter(i int) string {
	if i < 0 || i >= 26 {
		return strconv.Itoa(i + 1)
	}
	return string(rune('A' + i))
}

func formatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
