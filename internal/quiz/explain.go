package quiz

import (
	"fmt"

	"github.com/abhisek/adaptlearn/internal/store"
)

// Explain returns feedback for answerIndex on q. Authored explanations take
// precedence; otherwise a template built from the correct option is used.
func Explain(q store.Question, answerIndex int) string {
	correctText := ""
	if q.CorrectIndex >= 0 && q.CorrectIndex < len(q.Options) {
		correctText = q.Options[q.CorrectIndex]
	}

	if answerIndex == q.CorrectIndex {
		if q.Explanation != "" {
			return "Correct! " + q.Explanation
		}
		return "Correct! Nice work."
	}

	if q.Explanation != "" {
		return fmt.Sprintf("Not quite. The correct answer is %q. %s", correctText, q.Explanation)
	}
	if correctText == "" {
		return "Let's work through this step by step. Review the concept and try again."
	}
	return fmt.Sprintf("Let's work through this step by step. The correct approach is to choose %q.", correctText)
}
