package assessment

import "fmt"

type matcher func(q QuestionRecord, selected int) bool

var matchers = map[AnswerKind]matcher{
	AnswerByIndex: func(q QuestionRecord, selected int) bool { return selected == q.Correct.Index },
	AnswerByText:  func(q QuestionRecord, selected int) bool { return q.Options[selected] == q.Correct.Text },
}

// Evaluate reports whether option selected is the correct answer to q.
// It is pure and deterministic.
func Evaluate(q QuestionRecord, selected int) (bool, error) {
	if selected < 0 || selected >= len(q.Options) {
		return false, &PreconditionError{
			Op:     "evaluate",
			Reason: fmt.Sprintf("option %d out of range for %d options", selected, len(q.Options)),
			Cause:  ErrOptionOutOfRange,
		}
	}
	match, ok := matchers[q.Correct.Kind]
	if !ok {
		return false, fmt.Errorf("question %d: unknown answer kind %q", q.ID, q.Correct.Kind)
	}
	return match(q, selected), nil
}
