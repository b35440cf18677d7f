package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/study-engine/internal/models"
)

// Guidelines and memory facts are stored verbatim for the policy
// caller; the core never interprets them.

func (r *Postgres) CreateGuideline(ctx context.Context, g *models.Guideline) error {
	query := r.psql.Insert("guidelines").
		Columns("rule", "priority", "active", "created_at").
		Values(g.Rule, g.Priority, g.Active, g.CreatedAt).
		Suffix("RETURNING id")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query: %w", err)
	}

	if err = r.QueryRowxContext(ctx, sqlStr, args...).Scan(&g.ID); err != nil {
		return fmt.Errorf("create guideline: %w", err)
	}
	return nil
}

func (r *Postgres) ListGuidelines(ctx context.Context, activeOnly bool) ([]*models.Guideline, error) {
	query := r.psql.Select("id, rule, priority, active, created_at").
		From("guidelines").
		OrderBy("priority DESC, id ASC")
	if activeOnly {
		query = query.Where("active = TRUE")
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build SQL query: %w", err)
	}

	var guidelines []*models.Guideline
	if err = r.SelectContext(ctx, &guidelines, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("list guidelines: %w", err)
	}

	return guidelines, nil
}

func (r *Postgres) UpsertMemoryFact(ctx context.Context, f *models.MemoryFact, now time.Time) error {
	query := `
		INSERT INTO memory_facts (category, key, value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (category, key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.ExecContext(ctx, query, f.Category, f.Key, f.Value, now); err != nil {
		return fmt.Errorf("upsert memory fact (category: %s, key: %s): %w", f.Category, f.Key, err)
	}
	return nil
}

func (r *Postgres) GetMemoryFact(ctx context.Context, category, key string) (*models.MemoryFact, error) {
	query := `
		SELECT category, key, value, created_at, updated_at
		FROM memory_facts WHERE category = $1 AND key = $2
	`

	var f models.MemoryFact
	err := r.GetContext(ctx, &f, query, category, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("memory fact (category: %s, key: %s): %w", category, key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get memory fact (category: %s, key: %s): %w", category, key, err)
	}

	return &f, nil
}

func (r *Postgres) ListMemoryFacts(ctx context.Context, category string) ([]*models.MemoryFact, error) {
	query := r.psql.Select("category, key, value, created_at, updated_at").
		From("memory_facts").
		OrderBy("category, key")
	if category != "" {
		query = query.Where("category = ?", category)
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build SQL query: %w", err)
	}

	var facts []*models.MemoryFact
	if err = r.SelectContext(ctx, &facts, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("list memory facts: %w", err)
	}

	return facts, nil
}
