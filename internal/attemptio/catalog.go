package attemptio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/abhisek/adaptlearn/internal/store"
)

// Catalog is the content the engine ranks and selects from.
type Catalog struct {
	Modules []store.Module `json:"modules"`
	Quizzes []CatalogQuiz  `json:"quizzes"`
}

// CatalogQuiz is a quiz with its question bank inlined.
type CatalogQuiz struct {
	store.Quiz
	Questions []store.Question `json:"questions"`
}

// ImportStats counts what Import wrote.
type ImportStats struct {
	Modules   int
	Quizzes   int
	Questions int
}

// DecodeCatalog reads and validates a catalog document.
func DecodeCatalog(r io.Reader) (*Catalog, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if err := validate(CatalogSchema, raw); err != nil {
		return nil, err
	}

	var cat Catalog
	if err := json.Unmarshal(raw, &cat); err != nil {
		return nil, &ErrInvalidDocument{Schema: CatalogSchema.Name, Err: err}
	}

	for qi := range cat.Quizzes {
		quiz := &cat.Quizzes[qi]
		for i := range quiz.Questions {
			q := &quiz.Questions[i]
			if q.CorrectIndex >= len(q.Options) {
				return nil, &ErrInvalidDocument{
					Schema: CatalogSchema.Name,
					Err: fmt.Errorf("quiz %s question %d: correct_index %d out of range for %d options",
						quiz.ID, i, q.CorrectIndex, len(q.Options)),
				}
			}
			q.QuizID = quiz.ID
		}
	}
	return &cat, nil
}

// Import writes the catalog through the given repositories, modules first.
func (c *Catalog) Import(ctx context.Context, modules store.ModuleRepo, quizzes store.QuizRepo) (ImportStats, error) {
	var stats ImportStats
	for i := range c.Modules {
		if err := modules.Create(ctx, &c.Modules[i]); err != nil {
			return stats, fmt.Errorf("import module %s: %w", c.Modules[i].ID, err)
		}
		stats.Modules++
	}
	for qi := range c.Quizzes {
		quiz := &c.Quizzes[qi]
		if err := quizzes.Create(ctx, &quiz.Quiz); err != nil {
			return stats, fmt.Errorf("import quiz %s: %w", quiz.ID, err)
		}
		stats.Quizzes++
		for i := range quiz.Questions {
			if err := quizzes.AddQuestion(ctx, &quiz.Questions[i]); err != nil {
				return stats, fmt.Errorf("import question for quiz %s: %w", quiz.ID, err)
			}
			stats.Questions++
		}
	}
	return stats, nil
}
