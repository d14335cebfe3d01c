package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/postpilot/postpilot/store"
)

func (d *DB) GetCreativeMemory(ctx context.Context, key *store.CreativeMemoryKey) (*store.CreativeMemory, error) {
	if key == nil {
		return nil, fmt.Errorf("key parameter cannot be nil")
	}

	query := `SELECT id, org_id, platform, objective, hook_type, framework, cta_type,
			sample_size, success_count, total_engagement, avg_engagement, updated_ts
		FROM creative_memory
		WHERE org_id = ? AND platform = ? AND objective = ? AND hook_type = ? AND framework = ? AND cta_type = ?`

	cm := &store.CreativeMemory{}
	var updatedTs int64
	err := d.db.QueryRowContext(ctx, query,
		key.OrgID, key.Platform, key.Objective, key.HookType, key.Framework, key.CTAType,
	).Scan(
		&cm.ID,
		&cm.OrgID,
		&cm.Platform,
		&cm.Objective,
		&cm.HookType,
		&cm.Framework,
		&cm.CTAType,
		&cm.SampleSize,
		&cm.SuccessCount,
		&cm.TotalEngagement,
		&cm.AvgEngagement,
		&updatedTs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		// Missing aggregate is not an error; the learner creates it lazily.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get creative_memory: %w", err)
	}
	cm.UpdatedAt = time.Unix(updatedTs, 0)

	return cm, nil
}

func (d *DB) UpsertCreativeMemory(ctx context.Context, upsert *store.UpsertCreativeMemory) (*store.CreativeMemory, error) {
	if upsert == nil {
		return nil, fmt.Errorf("upsert parameter cannot be nil")
	}
	now := time.Now()

	stmt := `INSERT INTO creative_memory (org_id, platform, objective, hook_type, framework, cta_type,
			sample_size, success_count, total_engagement, avg_engagement, updated_ts)
		VALUES (` + placeholders(11) + `)
		ON CONFLICT(org_id, platform, objective, hook_type, framework, cta_type) DO UPDATE SET
			sample_size = excluded.sample_size,
			success_count = excluded.success_count,
			total_engagement = excluded.total_engagement,
			avg_engagement = excluded.avg_engagement,
			updated_ts = excluded.updated_ts
		RETURNING id`

	cm := &store.CreativeMemory{
		OrgID:           upsert.Key.OrgID,
		Platform:        upsert.Key.Platform,
		Objective:       upsert.Key.Objective,
		HookType:        upsert.Key.HookType,
		Framework:       upsert.Key.Framework,
		CTAType:         upsert.Key.CTAType,
		SampleSize:      upsert.SampleSize,
		SuccessCount:    upsert.SuccessCount,
		TotalEngagement: upsert.TotalEngagement,
		AvgEngagement:   upsert.AvgEngagement,
		UpdatedAt:       now,
	}
	if err := d.db.QueryRowContext(ctx, stmt,
		upsert.Key.OrgID,
		upsert.Key.Platform,
		upsert.Key.Objective,
		upsert.Key.HookType,
		upsert.Key.Framework,
		upsert.Key.CTAType,
		upsert.SampleSize,
		upsert.SuccessCount,
		upsert.TotalEngagement,
		upsert.AvgEngagement,
		now.Unix(),
	).Scan(&cm.ID); err != nil {
		return nil, fmt.Errorf("failed to upsert creative_memory: %w", err)
	}

	return cm, nil
}

func (d *DB) ListCreativeMemories(ctx context.Context, find *store.FindCreativeMemory) ([]*store.CreativeMemory, error) {
	if find == nil {
		return nil, fmt.Errorf("find parameter cannot be nil")
	}

	where, args := []string{"1 = 1"}, []any{}

	if find.OrgID != nil {
		where, args = append(where, "org_id = "+placeholder(len(args)+1)), append(args, *find.OrgID)
	}
	if find.Platform != nil {
		where, args = append(where, "platform = "+placeholder(len(args)+1)), append(args, *find.Platform)
	}
	if find.Objective != nil {
		where, args = append(where, "objective = "+placeholder(len(args)+1)), append(args, *find.Objective)
	}

	query := `SELECT id, org_id, platform, objective, hook_type, framework, cta_type,
			sample_size, success_count, total_engagement, avg_engagement, updated_ts
		FROM creative_memory WHERE ` + strings.Join(where, " AND ") + ` ORDER BY avg_engagement DESC`
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list creative_memories: %w", err)
	}
	defer rows.Close()

	list := make([]*store.CreativeMemory, 0)
	for rows.Next() {
		cm := &store.CreativeMemory{}
		var updatedTs int64
		if err := rows.Scan(
			&cm.ID,
			&cm.OrgID,
			&cm.Platform,
			&cm.Objective,
			&cm.HookType,
			&cm.Framework,
			&cm.CTAType,
			&cm.SampleSize,
			&cm.SuccessCount,
			&cm.TotalEngagement,
			&cm.AvgEngagement,
			&updatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan creative_memory: %w", err)
		}
		cm.UpdatedAt = time.Unix(updatedTs, 0)
		list = append(list, cm)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate creative_memories: %w", err)
	}

	return list, nil
}
