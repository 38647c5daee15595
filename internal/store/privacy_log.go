package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

type privacyLogRepo struct {
	s *Store
}

func (r *privacyLogRepo) Append(ctx context.Context, l *PrivacyLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	if l.DataSubjects == 0 {
		l.DataSubjects = 1
	}
	insert := r.s.builder().Insert(PrivacyLogsTable.Name).
		Columns("id", "user_id", "operation", "epsilon_used", "noise_level", "data_subjects", "purpose", "created_at").
		Values(l.ID, l.UserID, l.Operation, l.EpsilonUsed, l.NoiseLevel, l.DataSubjects, l.Purpose, l.CreatedAt)
	if err := r.s.exec(ctx, insert); err != nil {
		return fmt.Errorf("append privacy log: %w", err)
	}
	return nil
}

func (r *privacyLogRepo) EpsilonUsed(ctx context.Context, userID string) (float64, error) {
	b := r.s.builder()
	query, args := b.Select(entsql.Sum("epsilon_used")).
		From(b.Table(PrivacyLogsTable.Name)).
		Where(entsql.EQ("user_id", userID)).
		Query()

	var total sql.NullFloat64
	if err := r.s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum epsilon: %w", err)
	}
	return total.Float64, nil
}
