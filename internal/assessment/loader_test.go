package assessment

import (
	"errors"
	"strings"
	"testing"
)

func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }

func TestLoadQuestions(t *testing.T) {
	tests := []struct {
		name      string
		raw       []RawQuestion
		wantIndex int
		wantField string
		wantErr   bool
	}{
		{
			name: "index encoding",
			raw: []RawQuestion{{
				QuestionText:       "When did WWII begin?",
				Options:            []string{"1937", "1939", "1941", "1943"},
				CorrectAnswerIndex: intPtr(1),
			}},
		},
		{
			name: "text encoding with legacy prompt field",
			raw: []RawQuestion{{
				Question: "Angkor Wat was built as a temple to?",
				Options:  []string{"Vishnu", "Buddha"},
				Answer:   strPtr("Vishnu"),
			}},
		},
		{
			name:      "empty set",
			raw:       nil,
			wantErr:   true,
			wantIndex: -1,
			wantField: "questions",
		},
		{
			name: "missing options",
			raw: []RawQuestion{
				{Question: "ok", Options: []string{"a", "b"}, Answer: strPtr("a")},
				{Question: "no options", Answer: strPtr("a")},
			},
			wantErr:   true,
			wantIndex: 1,
			wantField: "options",
		},
		{
			name:      "single option",
			raw:       []RawQuestion{{Question: "q", Options: []string{"only"}, CorrectAnswerIndex: intPtr(0)}},
			wantErr:   true,
			wantField: "options",
		},
		{
			name:      "blank option",
			raw:       []RawQuestion{{Question: "q", Options: []string{"a", ""}, CorrectAnswerIndex: intPtr(0)}},
			wantErr:   true,
			wantField: "options",
		},
		{
			name:      "blank prompt",
			raw:       []RawQuestion{{Question: "   ", Options: []string{"a", "b"}, CorrectAnswerIndex: intPtr(0)}},
			wantErr:   true,
			wantField: "question",
		},
		{
			name: "text answer not among options",
			raw: []RawQuestion{{
				Question: "Capital of France?",
				Options:  []string{"London", "Berlin", "Madrid"},
				Answer:   strPtr("Paris"),
			}},
			wantErr:   true,
			wantField: "answer",
		},
		{
			name:      "text answer is case sensitive",
			raw:       []RawQuestion{{Question: "q", Options: []string{"True", "False"}, Answer: strPtr("true")}},
			wantErr:   true,
			wantField: "answer",
		},
		{
			name:      "index out of range",
			raw:       []RawQuestion{{Question: "q", Options: []string{"a", "b"}, CorrectAnswerIndex: intPtr(2)}},
			wantErr:   true,
			wantField: "correctAnswerIndex",
		},
		{
			name:      "no correct answer",
			raw:       []RawQuestion{{Question: "q", Options: []string{"a", "b"}}},
			wantErr:   true,
			wantField: "answer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadQuestions(tt.raw)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(got) != len(tt.raw) {
					t.Fatalf("expected %d records, got %d", len(tt.raw), len(got))
				}
				return
			}

			if err == nil {
				t.Fatalf("expected error, got %d records", len(got))
			}
			if got != nil {
				t.Fatalf("expected no partial result, got %d records", len(got))
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if verr.Index != tt.wantIndex {
				t.Errorf("expected index %d, got %d", tt.wantIndex, verr.Index)
			}
			if verr.Field != tt.wantField {
				t.Errorf("expected field %q, got %q (%s)", tt.wantField, verr.Field, verr.Reason)
			}
		})
	}
}

func TestLoadQuestionsNormalizes(t *testing.T) {
	raw := []RawQuestion{
		{
			Question:           "legacy",
			QuestionText:       "  preferred  ",
			Options:            []string{"a", "b", "c"},
			CorrectAnswerIndex: intPtr(2),
			Answer:             strPtr("a"),
			Explanation:        "index wins over text",
		},
		{
			Question: "second",
			Options:  []string{"x", "y"},
			Answer:   strPtr("y"),
		},
	}

	got, err := LoadQuestions(raw)
	if err != nil {
		t.Fatalf("LoadQuestions: %v", err)
	}

	first := got[0]
	if first.ID != 0 || got[1].ID != 1 {
		t.Errorf("expected ordinal ids, got %d and %d", first.ID, got[1].ID)
	}
	if first.Prompt != "preferred" {
		t.Errorf("expected questionText to win and be trimmed, got %q", first.Prompt)
	}
	if first.Correct.Kind != AnswerByIndex || first.Correct.Index != 2 {
		t.Errorf("expected index answer 2, got %+v", first.Correct)
	}
	if first.CorrectText() != "c" {
		t.Errorf("expected correct text c, got %q", first.CorrectText())
	}

	second := got[1]
	if second.Correct.Kind != AnswerByText || second.Correct.Text != "y" {
		t.Errorf("expected text answer y, got %+v", second.Correct)
	}
	if second.CorrectIndex() != 1 {
		t.Errorf("expected correct index 1, got %d", second.CorrectIndex())
	}

	raw[0].Options[0] = "mutated"
	if first.Options[0] != "a" {
		t.Error("loader must copy options rather than alias input")
	}
}

func TestDecodeQuestions(t *testing.T) {
	data := []byte(`[
		{"questionText": "Q1", "options": ["1937","1939","1941","1943"], "correctAnswerIndex": 1},
		{"question": "Q2", "options": ["True","False"], "answer": "True"}
	]`)

	got, err := DecodeQuestions(data)
	if err != nil {
		t.Fatalf("DecodeQuestions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(got))
	}

	_, err = DecodeQuestions([]byte(`{"not": "an array"}`))
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for malformed input, got %v", err)
	}
	if !strings.Contains(err.Error(), "malformed") {
		t.Errorf("expected malformed message, got %q", err.Error())
	}
}
