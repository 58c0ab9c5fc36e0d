package assessment

// Result is the read-only outcome handed to a presenter once a session
// finishes. It carries enough to render a per-question review.
type Result struct {
	SessionID        string           `json:"sessionId"`
	Kind             Kind             `json:"kind"`
	ContentID        string           `json:"contentId"`
	Reason           FinishReason     `json:"reason"`
	FinalScore       int              `json:"finalScore"`
	TotalQuestions   int              `json:"totalQuestions"`
	TimeTakenSeconds int              `json:"timeTakenSeconds"`
	History          []AnswerRecord   `json:"history"`
	SubmissionStatus SubmissionStatus `json:"submissionStatus"`
}

// Percent is the score as a percentage of all questions, unanswered ones included.
func (r Result) Percent() float64 {
	if r.TotalQuestions == 0 {
		return 0
	}
	return float64(r.FinalScore) * 100 / float64(r.TotalQuestions)
}

// ReviewItem pairs a question with the answer given to it, if any.
type ReviewItem struct {
	Question      QuestionRecord `json:"question"`
	Answered      bool           `json:"answered"`
	Selected      int            `json:"selected"`
	Correct       bool           `json:"correct"`
	CorrectOption int            `json:"correctOption"`
}

// Review lines history up against questions. Questions never reached or
// left pending appear with Answered false.
func Review(r Result, questions []QuestionRecord) []ReviewItem {
	byIndex := make(map[int]AnswerRecord, len(r.History))
	for _, a := range r.History {
		byIndex[a.QuestionIndex] = a
	}

	items := make([]ReviewItem, 0, len(questions))
	for i, q := range questions {
		item := ReviewItem{Question: q, Selected: -1, CorrectOption: q.CorrectIndex()}
		if a, ok := byIndex[i]; ok {
			item.Answered = true
			item.Selected = a.SelectedOption
			item.Correct = a.IsCorrect
		}
		items = append(items, item)
	}
	return items
}
