package store

import (
	"context"
	"encoding/json"
	"fmt"
)

var moduleColumns = []string{"id", "title", "difficulty", "estimated_time", "knowledge_components"}

type moduleRepo struct {
	s *Store
}

// List returns the catalog in insertion order.
func (r *moduleRepo) List(ctx context.Context) ([]Module, error) {
	b := r.s.builder()
	query, args := b.Select(moduleColumns...).
		From(b.Table(ModulesTable.Name)).
		OrderBy("position").
		Query()

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query modules: %w", err)
	}
	defer rows.Close()

	var modules []Module
	for rows.Next() {
		var (
			m   Module
			kcs []byte
		)
		if err := rows.Scan(&m.ID, &m.Title, &m.Difficulty, &m.EstimatedTime, &kcs); err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		if err := unmarshalJSON(kcs, &m.KnowledgeComponents); err != nil {
			return nil, fmt.Errorf("decode knowledge components of %s: %w", m.ID, err)
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

func (r *moduleRepo) Create(ctx context.Context, m *Module) error {
	kcs, err := json.Marshal(nonNil(m.KnowledgeComponents))
	if err != nil {
		return fmt.Errorf("marshal knowledge components: %w", err)
	}
	position, err := r.s.count(ctx, ModulesTable.Name, nil)
	if err != nil {
		return fmt.Errorf("count modules: %w", err)
	}
	insert := r.s.builder().Insert(ModulesTable.Name).
		Columns(append([]string{"position"}, moduleColumns...)...).
		Values(position, m.ID, m.Title, m.Difficulty, m.EstimatedTime, kcs)
	if err := r.s.exec(ctx, insert); err != nil {
		return fmt.Errorf("save module %s: %w", m.ID, err)
	}
	return nil
}
