package assessment

import "fmt"

// AnswerKind says how a question encodes its correct answer.
type AnswerKind string

const (
	AnswerByIndex AnswerKind = "index"
	AnswerByText  AnswerKind = "text"
)

// CorrectAnswer is resolved once at load time. Exactly one of Index or Text
// is meaningful, selected by Kind.
type CorrectAnswer struct {
	Kind  AnswerKind `json:"kind"`
	Index int        `json:"index,omitempty"`
	Text  string     `json:"text,omitempty"`
}

// RawQuestion is a question as stored in content documents. Both prompt
// spellings and both answer encodings are accepted.
type RawQuestion struct {
	Question           string   `json:"question,omitempty" bson:"question,omitempty" yaml:"question,omitempty"`
	QuestionText       string   `json:"questionText,omitempty" bson:"questionText,omitempty" yaml:"questionText,omitempty"`
	Options            []string `json:"options" bson:"options" yaml:"options"`
	CorrectAnswerIndex *int     `json:"correctAnswerIndex,omitempty" bson:"correctAnswerIndex,omitempty" yaml:"correctAnswerIndex,omitempty"`
	Answer             *string  `json:"answer,omitempty" bson:"answer,omitempty" yaml:"answer,omitempty"`
	Explanation        string   `json:"explanation,omitempty" bson:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// QuestionRecord is the normalized, validated form used by the engine.
type QuestionRecord struct {
	ID          int           `json:"id"`
	Prompt      string        `json:"prompt" validate:"required"`
	Options     []string      `json:"options" validate:"min=2,dive,required"`
	Correct     CorrectAnswer `json:"-"`
	Explanation string        `json:"explanation,omitempty"`
}

// CorrectIndex returns the position of the correct option.
func (q QuestionRecord) CorrectIndex() int {
	if q.Correct.Kind == AnswerByIndex {
		return q.Correct.Index
	}
	for i, opt := range q.Options {
		if opt == q.Correct.Text {
			return i
		}
	}
	return -1
}

// CorrectText returns the text of the correct option.
func (q QuestionRecord) CorrectText() string {
	if q.Correct.Kind == AnswerByText {
		return q.Correct.Text
	}
	if q.Correct.Index >= 0 && q.Correct.Index < len(q.Options) {
		return q.Options[q.Correct.Index]
	}
	return ""
}

// OptionText returns the text of option i, or a placeholder when i is out of range.
func (q QuestionRecord) OptionText(i int) string {
	if i < 0 || i >= len(q.Options) {
		return fmt.Sprintf("<option %d>", i)
	}
	return q.Options[i]
}

// AnswerRecord is one committed answer. Records are append-only and never
// modified after commit.
type AnswerRecord struct {
	QuestionIndex      int    `json:"questionIndex"`
	QuestionPrompt     string `json:"questionPrompt"`
	SelectedOption     int    `json:"selectedOption"`
	SelectedOptionText string `json:"selectedOptionText"`
	CorrectAnswerText  string `json:"correctAnswerText"`
	IsCorrect          bool   `json:"isCorrect"`
}
