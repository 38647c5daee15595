package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

var questionColumns = []string{
	"id", "quiz_id", "stem", "options", "correct_index", "explanation", "tags", "difficulty", "discrimination",
}

type quizRepo struct {
	s *Store
}

func (r *quizRepo) Get(ctx context.Context, id string) (*Quiz, error) {
	b := r.s.builder()
	query, args := b.Select("id", "module_id", "title", "difficulty", "max_questions").
		From(b.Table(QuizzesTable.Name)).
		Where(entsql.EQ("id", id)).
		Query()

	var q Quiz
	err := r.s.db.QueryRowContext(ctx, query, args...).Scan(&q.ID, &q.ModuleID, &q.Title, &q.Difficulty, &q.MaxQuestions)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("quiz %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query quiz: %w", err)
	}
	return &q, nil
}

func (r *quizRepo) Create(ctx context.Context, q *Quiz) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	insert := r.s.builder().Insert(QuizzesTable.Name).
		Columns("id", "module_id", "title", "difficulty", "max_questions").
		Values(q.ID, q.ModuleID, q.Title, q.Difficulty, q.MaxQuestions)
	if err := r.s.exec(ctx, insert); err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	return nil
}

func (r *quizRepo) Questions(ctx context.Context, quizID string) ([]Question, error) {
	b := r.s.builder()
	query, args := b.Select(questionColumns...).
		From(b.Table(QuestionsTable.Name)).
		Where(entsql.EQ("quiz_id", quizID)).
		OrderBy("position").
		Query()

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var questions []Question
	for rows.Next() {
		var (
			q             Question
			options, tags []byte
		)
		if err := rows.Scan(
			&q.ID, &q.QuizID, &q.Stem, &options, &q.CorrectIndex, &q.Explanation, &tags, &q.Difficulty, &q.Discrimination,
		); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := unmarshalJSON(options, &q.Options); err != nil {
			return nil, fmt.Errorf("decode options of %s: %w", q.ID, err)
		}
		if err := unmarshalJSON(tags, &q.Tags); err != nil {
			return nil, fmt.Errorf("decode tags of %s: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (r *quizRepo) AddQuestion(ctx context.Context, q *Question) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	options, err := json.Marshal(nonNil(q.Options))
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	tags, err := json.Marshal(nonNil(q.Tags))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	position, err := r.s.count(ctx, QuestionsTable.Name, entsql.EQ("quiz_id", q.QuizID))
	if err != nil {
		return fmt.Errorf("count questions: %w", err)
	}

	insert := r.s.builder().Insert(QuestionsTable.Name).
		Columns(append([]string{"position"}, questionColumns...)...).
		Values(position, q.ID, q.QuizID, q.Stem, options, q.CorrectIndex, q.Explanation, tags, q.Difficulty, q.Discrimination)
	if err := r.s.exec(ctx, insert); err != nil {
		return fmt.Errorf("save question: %w", err)
	}
	return nil
}

// count returns the number of rows of table matching p.
func (s *Store) count(ctx context.Context, table string, p *entsql.Predicate) (int, error) {
	b := s.builder()
	sel := b.Select(entsql.Count("*")).From(b.Table(table))
	if p != nil {
		sel = sel.Where(p)
	}
	query, args := sel.Query()
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// unmarshalJSON decodes a JSON column, treating NULL/empty as the zero value.
func unmarshalJSON(b []byte, v any) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, v)
}
