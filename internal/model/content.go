package model

import (
	"github.com/rauth/examprep-backend/internal/assessment"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Lesson is a study document in the lessons collection.
type Lesson struct {
	ID          bson.ObjectID `json:"id" bson:"_id,omitempty"`
	Title       string        `json:"title" bson:"title"`
	Module      string        `json:"module" bson:"module"`
	Description string        `json:"description" bson:"description"`
	Content     string        `json:"content,omitempty" bson:"content,omitempty"`
	Order       int           `json:"order" bson:"order"`
}

// QuizSettings are display preferences stored with a quiz.
type QuizSettings struct {
	ShuffleQuestions      bool `json:"shuffle_questions" bson:"shuffleQuestions"`
	ShowCorrectAnswers    bool `json:"show_correct_answers" bson:"showCorrectAnswers"`
	AllowMultipleAttempts bool `json:"allow_multiple_attempts" bson:"allowMultipleAttempts"`
}

// Quiz is a practice question set. TimeLimit is in minutes; zero means the
// default quiz duration applies.
type Quiz struct {
	ID           bson.ObjectID            `json:"id" bson:"_id,omitempty"`
	Title        string                   `json:"title" bson:"title"`
	Module       string                   `json:"module" bson:"module"`
	Description  string                   `json:"description,omitempty" bson:"description,omitempty"`
	TimeLimit    int                      `json:"time_limit,omitempty" bson:"timeLimit,omitempty"`
	PassingScore int                      `json:"passing_score,omitempty" bson:"passingScore,omitempty"`
	Premium      bool                     `json:"premium" bson:"premium"`
	Settings     *QuizSettings            `json:"settings,omitempty" bson:"settings,omitempty"`
	Questions    []assessment.RawQuestion `json:"questions,omitempty" bson:"questions"`
}

// MockExam is a timed question set. Duration is in minutes; zero means it is
// derived from the question count.
type MockExam struct {
	ID          bson.ObjectID            `json:"id" bson:"_id,omitempty"`
	Title       string                   `json:"title" bson:"title"`
	Module      string                   `json:"module" bson:"module"`
	Description string                   `json:"description,omitempty" bson:"description,omitempty"`
	Duration    int                      `json:"duration,omitempty" bson:"duration,omitempty"`
	Premium     bool                     `json:"premium" bson:"premium"`
	Questions   []assessment.RawQuestion `json:"questions,omitempty" bson:"questions"`
}

// WithoutAnswers returns a copy of q whose questions carry no answer keys.
func (q Quiz) WithoutAnswers() Quiz {
	q.Questions = stripAnswers(q.Questions)
	return q
}

// WithoutAnswers returns a copy of e whose questions carry no answer keys.
func (e MockExam) WithoutAnswers() MockExam {
	e.Questions = stripAnswers(e.Questions)
	return e
}

// stripAnswers drops answers and explanations, which usually give the
// answer away.
func stripAnswers(raw []assessment.RawQuestion) []assessment.RawQuestion {
	if raw == nil {
		return nil
	}
	out := make([]assessment.RawQuestion, 0, len(raw))
	for _, r := range raw {
		r.CorrectAnswerIndex = nil
		r.Answer = nil
		r.Explanation = ""
		out = append(out, r)
	}
	return out
}

// ContentSummary is a listing entry; it never carries questions.
type ContentSummary struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Module        string `json:"module"`
	Description   string `json:"description,omitempty"`
	QuestionCount int    `json:"question_count"`
	Minutes       int    `json:"minutes"`
	Premium       bool   `json:"premium"`
}

// PublicQuestion is a question as shown to a learner, without its answer.
type PublicQuestion struct {
	Index   int      `json:"index"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// PublicQuestions strips answers from a loaded question set.
func PublicQuestions(qs []assessment.QuestionRecord) []PublicQuestion {
	out := make([]PublicQuestion, 0, len(qs))
	for _, q := range qs {
		out = append(out, PublicQuestion{Index: q.ID, Prompt: q.Prompt, Options: q.Options})
	}
	return out
}

// LoadedAssessment is a content document resolved into engine input.
type LoadedAssessment struct {
	Config    assessment.SessionConfig
	Title     string
	Premium   bool
	Questions []assessment.QuestionRecord
}
