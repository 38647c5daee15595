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

var roundColumns = []string{
	"id", "round_num", "client_count", "participating_clients", "dp_epsilon",
	"status", "global_metrics", "started_at", "completed_at",
}

type roundRepo struct {
	s *Store
}

// Create allocates the next round number and inserts the round in one
// transaction. The mutex serializes allocation within the process; the
// unique index on round_num rejects a concurrent writer from another one.
func (r *roundRepo) Create(ctx context.Context, rd *Round) error {
	r.s.roundMu.Lock()
	defer r.s.roundMu.Unlock()

	if rd.ID == "" {
		rd.ID = uuid.NewString()
	}
	if rd.Status == "" {
		rd.Status = RoundPending
	}
	if rd.StartedAt.IsZero() {
		rd.StartedAt = time.Now().UTC()
	}
	metrics, err := marshalMetrics(rd.GlobalMetrics)
	if err != nil {
		return err
	}

	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin round tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	b := r.s.builder()
	query, args := b.Select("COALESCE(MAX(round_num), 0)").
		From(b.Table(FlRoundsTable.Name)).
		Query()
	var last int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&last); err != nil {
		return fmt.Errorf("next round number: %w", err)
	}
	rd.RoundNum = last + 1

	query, args = b.Insert(FlRoundsTable.Name).
		Columns(roundColumns...).
		Values(rd.ID, rd.RoundNum, rd.ClientCount, rd.ParticipatingClients, nullFloat(rd.DPEpsilon),
			rd.Status, metrics, rd.StartedAt, nullTime(rd.CompletedAt)).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save round: %w", err)
	}
	return tx.Commit()
}

func (r *roundRepo) Get(ctx context.Context, id string) (*Round, error) {
	b := r.s.builder()
	query, args := b.Select(roundColumns...).
		From(b.Table(FlRoundsTable.Name)).
		Where(entsql.EQ("id", id)).
		Query()

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query round: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query round: %w", err)
		}
		return nil, fmt.Errorf("round %q: %w", id, ErrNotFound)
	}
	return scanRound(rows)
}

func (r *roundRepo) Update(ctx context.Context, id string, u RoundUpdate) error {
	upd := r.s.builder().Update(FlRoundsTable.Name).Where(entsql.EQ("id", id))
	if u.Status != "" {
		upd.Set("status", u.Status)
	}
	if u.GlobalMetrics != nil {
		metrics, err := marshalMetrics(u.GlobalMetrics)
		if err != nil {
			return err
		}
		upd.Set("global_metrics", metrics)
	}
	if u.CompletedAt != nil {
		upd.Set("completed_at", *u.CompletedAt)
	}
	if upd.Empty() {
		return nil
	}

	query, args := upd.Query()
	res, err := r.s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update round: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update round: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("round %q: %w", id, ErrNotFound)
	}
	return nil
}

func (r *roundRepo) List(ctx context.Context, limit int) ([]Round, error) {
	b := r.s.builder()
	sel := b.Select(roundColumns...).
		From(b.Table(FlRoundsTable.Name)).
		OrderBy(entsql.Desc("round_num"))
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	query, args := sel.Query()

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rounds: %w", err)
	}
	defer rows.Close()

	var rounds []Round
	for rows.Next() {
		rd, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, *rd)
	}
	return rounds, rows.Err()
}

func scanRound(rows *sql.Rows) (*Round, error) {
	var (
		rd        Round
		epsilon   sql.NullFloat64
		metrics   []byte
		completed sql.NullTime
	)
	if err := rows.Scan(
		&rd.ID, &rd.RoundNum, &rd.ClientCount, &rd.ParticipatingClients, &epsilon,
		&rd.Status, &metrics, &rd.StartedAt, &completed,
	); err != nil {
		return nil, fmt.Errorf("scan round: %w", err)
	}
	if epsilon.Valid {
		e := epsilon.Float64
		rd.DPEpsilon = &e
	}
	if completed.Valid {
		t := completed.Time
		rd.CompletedAt = &t
	}
	if len(metrics) > 0 && string(metrics) != "null" {
		rd.GlobalMetrics = &GlobalMetrics{}
		if err := json.Unmarshal(metrics, rd.GlobalMetrics); err != nil {
			return nil, fmt.Errorf("decode metrics of round %d: %w", rd.RoundNum, err)
		}
	}
	return &rd, nil
}

func marshalMetrics(m *GlobalMetrics) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal global metrics: %w", err)
	}
	return b, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
