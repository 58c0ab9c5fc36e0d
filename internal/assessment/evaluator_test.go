package assessment

import (
	"errors"
	"testing"
)

func TestEvaluate(t *testing.T) {
	byIndex := QuestionRecord{
		Prompt:  "When did WWII begin?",
		Options: []string{"1937", "1939", "1941", "1943"},
		Correct: CorrectAnswer{Kind: AnswerByIndex, Index: 1},
	}
	byText := QuestionRecord{
		Prompt:  "The Khmer Empire's capital was Angkor.",
		Options: []string{"True", "False"},
		Correct: CorrectAnswer{Kind: AnswerByText, Text: "True"},
	}

	tests := []struct {
		name     string
		q        QuestionRecord
		selected int
		want     bool
	}{
		{"index match", byIndex, 1, true},
		{"index miss", byIndex, 0, false},
		{"text match", byText, 0, true},
		{"text miss", byText, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.q, tt.selected)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%d) = %v, want %v", tt.selected, got, tt.want)
			}
		})
	}
}

func TestEvaluateOutOfRange(t *testing.T) {
	q := QuestionRecord{Options: []string{"a", "b"}, Correct: CorrectAnswer{Kind: AnswerByIndex}}

	for _, idx := range []int{-1, 2, 99} {
		_, err := Evaluate(q, idx)
		if !errors.Is(err, ErrPrecondition) {
			t.Errorf("Evaluate(%d): expected ErrPrecondition, got %v", idx, err)
		}
	}
}

func TestEvaluateUnknownKind(t *testing.T) {
	q := QuestionRecord{Options: []string{"a", "b"}}
	if _, err := Evaluate(q, 0); err == nil {
		t.Fatal("expected error for unresolved answer kind")
	}
}
