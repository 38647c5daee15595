package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

var attemptColumns = []string{
	"id", "quiz_id", "user_id", "score", "total_questions", "correct_answers",
	"started_at", "completed_at", "item_stats", "adaptive_data",
}

type attemptRepo struct {
	s *Store
}

func (r *attemptRepo) Create(ctx context.Context, a *Attempt) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.StartedAt.IsZero() {
		a.StartedAt = time.Now().UTC()
	}
	stats := a.ItemStats
	if stats == nil {
		stats = map[string]ItemStat{}
	}
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal item stats: %w", err)
	}
	var adaptive []byte
	if a.AdaptiveData != nil {
		if adaptive, err = json.Marshal(a.AdaptiveData); err != nil {
			return fmt.Errorf("marshal adaptive data: %w", err)
		}
	}

	r.s.attemptMu.Lock()
	defer r.s.attemptMu.Unlock()

	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attempt tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// seq records insertion order and breaks started_at ties.
	b := r.s.builder()
	query, args := b.Select("COALESCE(MAX(seq), 0)").
		From(b.Table(AttemptsTable.Name)).
		Query()
	var seq int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&seq); err != nil {
		return fmt.Errorf("next attempt sequence: %w", err)
	}

	query, args = b.Insert(AttemptsTable.Name).
		Columns(append(attemptColumns, "seq")...).
		Values(a.ID, a.QuizID, a.UserID, a.Score, a.TotalQuestions, a.CorrectAnswers,
			a.StartedAt, nullTime(a.CompletedAt), statsJSON, adaptive, seq+1).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save attempt: %w", err)
	}
	return tx.Commit()
}

func (r *attemptRepo) Get(ctx context.Context, id string) (*Attempt, error) {
	b := r.s.builder()
	query, args := b.Select(attemptColumns...).
		From(b.Table(AttemptsTable.Name)).
		Where(entsql.EQ("id", id)).
		Query()

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempt: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query attempt: %w", err)
		}
		return nil, fmt.Errorf("attempt %q: %w", id, ErrNotFound)
	}
	return scanAttempt(rows)
}

func (r *attemptRepo) RecentByUser(ctx context.Context, userID string, limit int) ([]Attempt, error) {
	b := r.s.builder()
	sel := b.Select(attemptColumns...).
		From(b.Table(AttemptsTable.Name)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("started_at"), entsql.Desc("seq"))
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	query, args := sel.Query()

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

func scanAttempt(rows *sql.Rows) (*Attempt, error) {
	var (
		a               Attempt
		completed       sql.NullTime
		stats, adaptive []byte
	)
	if err := rows.Scan(
		&a.ID, &a.QuizID, &a.UserID, &a.Score, &a.TotalQuestions, &a.CorrectAnswers,
		&a.StartedAt, &completed, &stats, &adaptive,
	); err != nil {
		return nil, fmt.Errorf("scan attempt: %w", err)
	}
	if completed.Valid {
		t := completed.Time
		a.CompletedAt = &t
	}
	if err := unmarshalJSON(stats, &a.ItemStats); err != nil {
		return nil, fmt.Errorf("decode item stats of %s: %w", a.ID, err)
	}
	if err := unmarshalJSON(adaptive, &a.AdaptiveData); err != nil {
		return nil, fmt.Errorf("decode adaptive data of %s: %w", a.ID, err)
	}
	return &a, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
