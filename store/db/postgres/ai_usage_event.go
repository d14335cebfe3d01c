package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/postpilot/postpilot/store"
)

func (d *DB) CreateAIUsageEvent(ctx context.Context, create *store.AIUsageEvent) (*store.AIUsageEvent, error) {
	if create.CreatedAt.IsZero() {
		create.CreatedAt = time.Now()
	}
	if create.Metadata == "" {
		create.Metadata = "{}"
	}

	fields := []string{"org_id", "route_key", "provider", "model", "input_tokens", "output_tokens", "cost_usd", "latency_ms", "cache_hit", "success", "error_code", "metadata", "created_ts"}
	args := []any{
		create.OrgID,
		create.RouteKey,
		create.Provider,
		create.Model,
		create.InputTokens,
		create.OutputTokens,
		create.CostUSD,
		create.LatencyMs,
		create.CacheHit,
		create.Success,
		create.ErrorCode,
		create.Metadata,
		create.CreatedAt.Unix(),
	}

	stmt := `INSERT INTO ai_usage_event (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id`

	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create ai_usage_event: %w", err)
	}

	return create, nil
}

func (d *DB) ListAIUsageEvents(ctx context.Context, find *store.FindAIUsageEvent) ([]*store.AIUsageEvent, error) {
	if find == nil {
		return nil, fmt.Errorf("find parameter cannot be nil")
	}

	where, args := []string{"1 = 1"}, []any{}

	if find.OrgID != nil {
		where, args = append(where, "org_id = "+placeholder(len(args)+1)), append(args, *find.OrgID)
	}
	if find.RouteKey != nil {
		where, args = append(where, "route_key = "+placeholder(len(args)+1)), append(args, *find.RouteKey)
	}
	if find.CreatedAfter != nil {
		where, args = append(where, "created_ts >= "+placeholder(len(args)+1)), append(args, find.CreatedAfter.Unix())
	}
	if find.CreatedBefore != nil {
		where, args = append(where, "created_ts < "+placeholder(len(args)+1)), append(args, find.CreatedBefore.Unix())
	}

	query := `SELECT id, org_id, route_key, provider, model, input_tokens, output_tokens, cost_usd, latency_ms, cache_hit, success, error_code, metadata, created_ts
		FROM ai_usage_event WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC, id DESC`
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ai_usage_events: %w", err)
	}
	defer rows.Close()

	list := make([]*store.AIUsageEvent, 0)
	for rows.Next() {
		e := &store.AIUsageEvent{}
		var createdTs int64
		if err := rows.Scan(
			&e.ID,
			&e.OrgID,
			&e.RouteKey,
			&e.Provider,
			&e.Model,
			&e.InputTokens,
			&e.OutputTokens,
			&e.CostUSD,
			&e.LatencyMs,
			&e.CacheHit,
			&e.Success,
			&e.ErrorCode,
			&e.Metadata,
			&createdTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ai_usage_event: %w", err)
		}
		e.CreatedAt = time.Unix(createdTs, 0)
		list = append(list, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ai_usage_events: %w", err)
	}

	return list, nil
}

func (d *DB) SumAIUsageCostUSD(ctx context.Context, sum *store.SumAIUsageCost) (float64, error) {
	if sum == nil {
		return 0, fmt.Errorf("sum parameter cannot be nil")
	}

	var total float64
	err := d.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cost_usd), 0) FROM ai_usage_event WHERE org_id = $1 AND created_ts >= $2`,
		sum.OrgID, sum.CreatedAfter.Unix(),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum ai_usage_event costs: %w", err)
	}

	return total, nil
}
