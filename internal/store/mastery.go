package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var masteryColumns = []string{
	"user_id", "knowledge_component", "mastery", "attempts", "last_correct", "updated_at",
}

type masteryRepo struct {
	s *Store
}

func (r *masteryRepo) Get(ctx context.Context, userID, kc string) (*MasteryState, error) {
	b := r.s.builder()
	query, args := b.Select(masteryColumns...).
		From(b.Table(MasteryStatesTable.Name)).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("knowledge_component", kc),
		)).
		Limit(1).
		Query()

	var st MasteryState
	err := r.s.db.QueryRowContext(ctx, query, args...).Scan(
		&st.UserID, &st.KnowledgeComponent, &st.Mastery, &st.Attempts, &st.LastCorrect, &st.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query mastery state: %w", err)
	}
	return &st, nil
}

func (r *masteryRepo) ListByUser(ctx context.Context, userID string) ([]MasteryState, error) {
	b := r.s.builder()
	query, args := b.Select(masteryColumns...).
		From(b.Table(MasteryStatesTable.Name)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy("knowledge_component").
		Query()

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query mastery states: %w", err)
	}
	defer rows.Close()

	var states []MasteryState
	for rows.Next() {
		var st MasteryState
		if err := rows.Scan(
			&st.UserID, &st.KnowledgeComponent, &st.Mastery, &st.Attempts, &st.LastCorrect, &st.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan mastery state: %w", err)
		}
		states = append(states, st)
	}
	return states, rows.Err()
}

func (r *masteryRepo) Upsert(ctx context.Context, st *MasteryState) error {
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	}
	insert := r.s.builder().Insert(MasteryStatesTable.Name).
		Columns(masteryColumns...).
		Values(st.UserID, st.KnowledgeComponent, st.Mastery, st.Attempts, st.LastCorrect, st.UpdatedAt).
		OnConflict(
			entsql.ConflictColumns("user_id", "knowledge_component"),
			entsql.ResolveWithNewValues(),
		)
	if err := r.s.exec(ctx, insert); err != nil {
		return fmt.Errorf("upsert mastery state: %w", err)
	}
	return nil
}
