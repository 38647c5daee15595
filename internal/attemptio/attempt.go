package attemptio

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/abhisek/adaptlearn/internal/store"
)

// DecodeAttempt reads one attempt document. Missing totals are derived from
// item_stats; an explicit total must agree with the correct count.
func DecodeAttempt(r io.Reader) (*store.Attempt, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read attempt: %w", err)
	}
	if err := validate(AttemptSchema, raw); err != nil {
		return nil, err
	}

	var doc struct {
		store.Attempt
		Score          *float64 `json:"score"`
		TotalQuestions *int     `json:"total_questions"`
		CorrectAnswers *int     `json:"correct_answers"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &ErrInvalidDocument{Schema: AttemptSchema.Name, Err: err}
	}

	a := doc.Attempt
	correct := 0
	for _, st := range a.ItemStats {
		if st.Correct {
			correct++
		}
	}

	a.TotalQuestions = len(a.ItemStats)
	if doc.TotalQuestions != nil {
		a.TotalQuestions = *doc.TotalQuestions
	}
	a.CorrectAnswers = correct
	if doc.CorrectAnswers != nil {
		a.CorrectAnswers = *doc.CorrectAnswers
	}
	if a.CorrectAnswers > a.TotalQuestions {
		return nil, &ErrInvalidDocument{
			Schema: AttemptSchema.Name,
			Err:    fmt.Errorf("correct_answers %d exceeds total_questions %d", a.CorrectAnswers, a.TotalQuestions),
		}
	}

	switch {
	case doc.Score != nil:
		a.Score = *doc.Score
	case a.TotalQuestions > 0:
		a.Score = float64(a.CorrectAnswers) / float64(a.TotalQuestions)
	}
	return &a, nil
}
