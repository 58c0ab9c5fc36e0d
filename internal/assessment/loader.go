package assessment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadQuestions normalizes raw content into validated question records.
// The result preserves input order and is never partial: any bad record
// fails the whole set with a *ValidationError naming it.
func LoadQuestions(raw []RawQuestion) ([]QuestionRecord, error) {
	if len(raw) == 0 {
		return nil, &ValidationError{Index: -1, Field: "questions", Reason: "question set is empty"}
	}

	out := make([]QuestionRecord, 0, len(raw))
	for i, r := range raw {
		rec, err := normalize(i, r)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// DecodeQuestions parses a JSON array of raw questions and loads it.
func DecodeQuestions(data []byte) ([]QuestionRecord, error) {
	var raw []RawQuestion
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ValidationError{Index: -1, Reason: fmt.Sprintf("malformed question data: %v", err)}
	}
	return LoadQuestions(raw)
}

func normalize(i int, r RawQuestion) (QuestionRecord, error) {
	prompt := r.QuestionText
	if strings.TrimSpace(prompt) == "" {
		prompt = r.Question
	}

	rec := QuestionRecord{
		ID:          i,
		Prompt:      strings.TrimSpace(prompt),
		Options:     append([]string(nil), r.Options...),
		Explanation: r.Explanation,
	}
	if err := validate.Struct(rec); err != nil {
		return QuestionRecord{}, structError(i, err)
	}

	switch {
	case r.CorrectAnswerIndex != nil:
		idx := *r.CorrectAnswerIndex
		if idx < 0 || idx >= len(rec.Options) {
			return QuestionRecord{}, &ValidationError{
				Index:  i,
				Field:  "correctAnswerIndex",
				Reason: fmt.Sprintf("index %d out of range for %d options", idx, len(rec.Options)),
			}
		}
		rec.Correct = CorrectAnswer{Kind: AnswerByIndex, Index: idx}
	case r.Answer != nil:
		if !contains(rec.Options, *r.Answer) {
			return QuestionRecord{}, &ValidationError{
				Index:  i,
				Field:  "answer",
				Reason: fmt.Sprintf("answer %q does not match any option", *r.Answer),
			}
		}
		rec.Correct = CorrectAnswer{Kind: AnswerByText, Text: *r.Answer}
	default:
		return QuestionRecord{}, &ValidationError{Index: i, Field: "answer", Reason: "no correct answer given"}
	}
	return rec, nil
}

// structError converts the first validator failure into a ValidationError.
func structError(i int, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Index: i, Reason: err.Error()}
	}

	fe := verrs[0]
	field := "question"
	if strings.HasPrefix(fe.Field(), "Options") {
		field = "options"
	}

	var reason string
	switch {
	case field == "question":
		reason = "prompt is empty"
	case fe.Tag() == "min":
		reason = fmt.Sprintf("at least %s options required", fe.Param())
	case fe.Tag() == "required" && fe.Field() == "Options":
		reason = "options are missing"
	default:
		reason = fmt.Sprintf("%s is empty", strings.ToLower(fe.Field()))
	}
	return &ValidationError{Index: i, Field: field, Reason: reason}
}

func contains(options []string, s string) bool {
	for _, o := range options {
		if o == s {
			return true
		}
	}
	return false
}
