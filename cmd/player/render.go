package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rauth/examprep-backend/internal/assessment"
)

const (
	colorTitle = lipgloss.Color("33")
	colorMuted = lipgloss.Color("244")
	colorGood  = lipgloss.Color("42")
	colorWarn  = lipgloss.Color("220")
	colorBad   = lipgloss.Color("196")
)

func stylize(text string, noColor bool, color lipgloss.Color) string {
	if noColor {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}

// renderResult prints the score, the per-question review and whether the
// attempt was saved. The score is always shown, whatever the submission outcome.
func renderResult(w io.Writer, res assessment.Result, questions []assessment.QuestionRecord, status assessment.SubmissionStatus, noColor bool) {
	box := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 2)
	if !noColor {
		box = box.BorderForeground(colorTitle)
	}
	summary := fmt.Sprintf("Score %d/%d (%.0f%%)\n%s in %s",
		res.FinalScore, res.TotalQuestions, res.Percent(),
		reasonText(res.Reason), formatRemaining(res.TimeTakenSeconds))
	fmt.Fprintln(w)
	if noColor {
		fmt.Fprintln(w, summary)
	} else {
		fmt.Fprintln(w, box.Render(summary))
	}

	fmt.Fprintln(w)
	for i, item := range assessment.Review(res, questions) {
		fmt.Fprintln(w, reviewLine(i, item, noColor))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, submissionLine(status, noColor))
}

func reviewLine(i int, item assessment.ReviewItem, noColor bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%2d. %s\n", i+1, item.Question.Prompt)
	switch {
	case !item.Answered:
		b.WriteString("    " + stylize("– not answered", noColor, colorMuted))
		b.WriteString("  correct: " + correctLabel(item))
	case item.Correct:
		b.WriteString("    " + stylize("✓ "+item.Question.OptionText(item.Selected), noColor, colorGood))
	default:
		b.WriteString("    " + stylize("✗ "+item.Question.OptionText(item.Selected), noColor, colorBad))
		b.WriteString("  correct: " + correctLabel(item))
	}
	if item.Question.Explanation != "" {
		b.WriteString("\n    " + stylize(item.Question.Explanation, noColor, colorMuted))
	}
	return b.String()
}

func correctLabel(item assessment.ReviewItem) string {
	if item.CorrectOption < 0 {
		return item.Question.CorrectText()
	}
	return optionLetter(item.CorrectOption) + ") " + item.Question.CorrectText()
}

func reasonText(r assessment.FinishReason) string {
	switch r {
	case assessment.FinishExpired:
		return "Time expired"
	case assessment.FinishAbandoned:
		return "Abandoned"
	default:
		return "Completed"
	}
}

func submissionLine(status assessment.SubmissionStatus, noColor bool) string {
	switch status {
	case assessment.SubmissionSaved:
		return stylize("Results saved.", noColor, colorGood)
	case assessment.SubmissionFailed:
		return stylize("Results not saved: the progress service could not be reached.", noColor, colorBad)
	case assessment.SubmissionSkipped:
		return stylize("Results not saved (offline or abandoned attempt).", noColor, colorWarn)
	default:
		return stylize("Results are still being saved.", noColor, colorWarn)
	}
}
