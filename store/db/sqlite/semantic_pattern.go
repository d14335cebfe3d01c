package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/postpilot/postpilot/store"
)

func (d *DB) CreateSemanticPattern(ctx context.Context, create *store.SemanticPattern) (*store.SemanticPattern, error) {
	now := time.Now()
	if create.CreatedAt.IsZero() {
		create.CreatedAt = now
	}
	if create.UpdatedAt.IsZero() {
		create.UpdatedAt = now
	}
	if create.PatternValue == "" {
		create.PatternValue = "{}"
	}

	fields := []string{"org_id", "pattern_type", "platform", "pattern_key", "pattern_value", "confidence", "sample_size", "created_ts", "updated_ts"}
	args := []any{
		create.OrgID,
		create.PatternType,
		create.Platform,
		create.PatternKey,
		create.PatternValue,
		create.Confidence,
		create.SampleSize,
		create.CreatedAt.Unix(),
		create.UpdatedAt.Unix(),
	}

	stmt := `INSERT INTO semantic_pattern (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id`

	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create semantic_pattern: %w", err)
	}

	return create, nil
}

func (d *DB) ListSemanticPatterns(ctx context.Context, find *store.FindSemanticPattern) ([]*store.SemanticPattern, error) {
	if find == nil {
		return nil, fmt.Errorf("find parameter cannot be nil")
	}

	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.OrgID != nil {
		where, args = append(where, "org_id = "+placeholder(len(args)+1)), append(args, *find.OrgID)
	}
	if find.PatternType != nil {
		where, args = append(where, "pattern_type = "+placeholder(len(args)+1)), append(args, *find.PatternType)
	}
	if find.Platform != nil {
		where, args = append(where, "platform = "+placeholder(len(args)+1)), append(args, *find.Platform)
	}
	if find.PatternKey != nil {
		where, args = append(where, "pattern_key = "+placeholder(len(args)+1)), append(args, *find.PatternKey)
	}
	if find.MinConfidence != nil {
		where, args = append(where, "confidence >= "+placeholder(len(args)+1)), append(args, *find.MinConfidence)
	}

	query := `SELECT id, org_id, pattern_type, platform, pattern_key, pattern_value, confidence, sample_size, created_ts, updated_ts
		FROM semantic_pattern WHERE ` + strings.Join(where, " AND ") + ` ORDER BY confidence DESC, updated_ts DESC`
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list semantic_patterns: %w", err)
	}
	defer rows.Close()

	list := make([]*store.SemanticPattern, 0)
	for rows.Next() {
		p := &store.SemanticPattern{}
		var createdTs, updatedTs int64
		if err := rows.Scan(
			&p.ID,
			&p.OrgID,
			&p.PatternType,
			&p.Platform,
			&p.PatternKey,
			&p.PatternValue,
			&p.Confidence,
			&p.SampleSize,
			&createdTs,
			&updatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan semantic_pattern: %w", err)
		}
		p.CreatedAt = time.Unix(createdTs, 0)
		p.UpdatedAt = time.Unix(updatedTs, 0)
		list = append(list, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate semantic_patterns: %w", err)
	}

	return list, nil
}

func (d *DB) UpdateSemanticPattern(ctx context.Context, update *store.UpdateSemanticPattern) (*store.SemanticPattern, error) {
	if update == nil {
		return nil, fmt.Errorf("update parameter cannot be nil")
	}
	if update.UpdatedAt.IsZero() {
		update.UpdatedAt = time.Now()
	}

	set, args := []string{}, []any{}
	if update.PatternValue != nil {
		set, args = append(set, "pattern_value = "+placeholder(len(args)+1)), append(args, *update.PatternValue)
	}
	if update.Confidence != nil {
		set, args = append(set, "confidence = "+placeholder(len(args)+1)), append(args, *update.Confidence)
	}
	if update.SampleSize != nil {
		set, args = append(set, "sample_size = "+placeholder(len(args)+1)), append(args, *update.SampleSize)
	}
	set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, update.UpdatedAt.Unix())
	args = append(args, update.ID)

	stmt := `UPDATE semantic_pattern SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args))
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, fmt.Errorf("failed to update semantic_pattern: %w", err)
	}

	list, err := d.ListSemanticPatterns(ctx, &store.FindSemanticPattern{ID: &update.ID})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("semantic_pattern not found: %d", update.ID)
	}
	return list[0], nil
}

func (d *DB) CreateProceduralStrategy(ctx context.Context, create *store.ProceduralStrategy) (*store.ProceduralStrategy, error) {
	if create.PromotedAt.IsZero() {
		create.PromotedAt = time.Now()
	}
	if create.Recommendation == "" {
		create.Recommendation = "{}"
	}

	fields := []string{"org_id", "pattern_id", "strategy_key", "recommendation", "confidence", "sample_size", "promoted_ts"}
	args := []any{
		create.OrgID,
		create.PatternID,
		create.StrategyKey,
		create.Recommendation,
		create.Confidence,
		create.SampleSize,
		create.PromotedAt.Unix(),
	}

	stmt := `INSERT INTO procedural_strategy (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id`

	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create procedural_strategy: %w", err)
	}

	return create, nil
}

func (d *DB) ListProceduralStrategies(ctx context.Context, find *store.FindProceduralStrategy) ([]*store.ProceduralStrategy, error) {
	if find == nil {
		return nil, fmt.Errorf("find parameter cannot be nil")
	}

	where, args := []string{"1 = 1"}, []any{}

	if find.OrgID != nil {
		where, args = append(where, "org_id = "+placeholder(len(args)+1)), append(args, *find.OrgID)
	}
	if find.PatternID != nil {
		where, args = append(where, "pattern_id = "+placeholder(len(args)+1)), append(args, *find.PatternID)
	}

	query := `SELECT id, org_id, pattern_id, strategy_key, recommendation, confidence, sample_size, promoted_ts
		FROM procedural_strategy WHERE ` + strings.Join(where, " AND ") + ` ORDER BY promoted_ts DESC`
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list procedural_strategies: %w", err)
	}
	defer rows.Close()

	list := make([]*store.ProceduralStrategy, 0)
	for rows.Next() {
		s := &store.ProceduralStrategy{}
		var promotedTs int64
		if err := rows.Scan(
			&s.ID,
			&s.OrgID,
			&s.PatternID,
			&s.StrategyKey,
			&s.Recommendation,
			&s.Confidence,
			&s.SampleSize,
			&promotedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan procedural_strategy: %w", err)
		}
		s.PromotedAt = time.Unix(promotedTs, 0)
		list = append(list, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate procedural_strategies: %w", err)
	}

	return list, nil
}
