package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

var recommendationColumns = []string{
	"id", "user_id", "module_id", "title", "reason", "confidence", "mastery_gain",
	"difficulty", "estimated_time", "model_version", "created_at",
}

type recommendationRepo struct {
	s *Store
}

func (r *recommendationRepo) Create(ctx context.Context, rec *Recommendation) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	insert := r.s.builder().Insert(RecommendationsTable.Name).
		Columns(recommendationColumns...).
		Values(rec.ID, rec.UserID, rec.ModuleID, rec.Title, rec.Reason, rec.Confidence, rec.MasteryGain,
			rec.Difficulty, rec.EstimatedTime, rec.ModelVersion, rec.CreatedAt)
	if err := r.s.exec(ctx, insert); err != nil {
		return fmt.Errorf("save recommendation: %w", err)
	}
	return nil
}

func (r *recommendationRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Recommendation, error) {
	b := r.s.builder()
	sel := b.Select(recommendationColumns...).
		From(b.Table(RecommendationsTable.Name)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("confidence"))
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	query, args := sel.Query()

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recommendations: %w", err)
	}
	defer rows.Close()

	var recs []Recommendation
	for rows.Next() {
		var rec Recommendation
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.ModuleID, &rec.Title, &rec.Reason, &rec.Confidence, &rec.MasteryGain,
			&rec.Difficulty, &rec.EstimatedTime, &rec.ModelVersion, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
