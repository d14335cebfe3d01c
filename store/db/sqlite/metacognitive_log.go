package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/postpilot/postpilot/store"
)

func (d *DB) CreateMetacognitiveLog(ctx context.Context, create *store.MetacognitiveLog) (*store.MetacognitiveLog, error) {
	if create.CreatedAt.IsZero() {
		create.CreatedAt = time.Now()
	}
	if create.Details == "" {
		create.Details = "{}"
	}

	fields := []string{"org_id", "assessment_type", "score", "period_start_ts", "period_end_ts", "details", "created_ts"}
	args := []any{
		create.OrgID,
		create.AssessmentType,
		create.Score,
		create.PeriodStart.Unix(),
		create.PeriodEnd.Unix(),
		create.Details,
		create.CreatedAt.Unix(),
	}

	stmt := `INSERT INTO metacognitive_log (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id`

	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create metacognitive_log: %w", err)
	}

	return create, nil
}

func (d *DB) ListMetacognitiveLogs(ctx context.Context, find *store.FindMetacognitiveLog) ([]*store.MetacognitiveLog, error) {
	if find == nil {
		return nil, fmt.Errorf("find parameter cannot be nil")
	}

	where, args := []string{"1 = 1"}, []any{}

	if find.OrgID != nil {
		where, args = append(where, "org_id = "+placeholder(len(args)+1)), append(args, *find.OrgID)
	}
	if find.AssessmentType != nil {
		where, args = append(where, "assessment_type = "+placeholder(len(args)+1)), append(args, *find.AssessmentType)
	}
	if find.Since != nil {
		where, args = append(where, "created_ts >= "+placeholder(len(args)+1)), append(args, find.Since.Unix())
	}

	query := `SELECT id, org_id, assessment_type, score, period_start_ts, period_end_ts, details, created_ts
		FROM metacognitive_log WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC`
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list metacognitive_logs: %w", err)
	}
	defer rows.Close()

	list := make([]*store.MetacognitiveLog, 0)
	for rows.Next() {
		m := &store.MetacognitiveLog{}
		var startTs, endTs, createdTs int64
		if err := rows.Scan(
			&m.ID,
			&m.OrgID,
			&m.AssessmentType,
			&m.Score,
			&startTs,
			&endTs,
			&m.Details,
			&createdTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan metacognitive_log: %w", err)
		}
		m.PeriodStart = time.Unix(startTs, 0)
		m.PeriodEnd = time.Unix(endTs, 0)
		m.CreatedAt = time.Unix(createdTs, 0)
		list = append(list, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate metacognitive_logs: %w", err)
	}

	return list, nil
}
