package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/postpilot/postpilot/store"
)

func (d *DB) CreateDecisionLog(ctx context.Context, create *store.DecisionLog) (*store.DecisionLog, error) {
	if create.CreatedAt.IsZero() {
		create.CreatedAt = time.Now()
	}
	if create.UID == "" {
		create.UID = shortuuid.New()
	}

	fields := []string{"uid", "org_id", "draft_id", "variant_id", "post_id", "platform", "objective", "created_ts"}
	args := []any{
		create.UID,
		create.OrgID,
		create.DraftID,
		create.VariantID,
		create.PostID,
		create.Platform,
		create.Objective,
		create.CreatedAt.Unix(),
	}

	stmt := `INSERT INTO decision_log (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id`

	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create decision_log: %w", err)
	}

	return create, nil
}

func (d *DB) ListDecisionLogs(ctx context.Context, find *store.FindDecisionLog) ([]*store.DecisionLog, error) {
	if find == nil {
		return nil, fmt.Errorf("find parameter cannot be nil")
	}

	where, args := []string{"1 = 1"}, []any{}

	if find.OrgID != nil {
		where, args = append(where, "org_id = "+placeholder(len(args)+1)), append(args, *find.OrgID)
	}
	if find.PostID != nil {
		where, args = append(where, "post_id = "+placeholder(len(args)+1)), append(args, *find.PostID)
	}

	query := `SELECT id, uid, org_id, draft_id, variant_id, post_id, platform, objective, created_ts
		FROM decision_log WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC`
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list decision_logs: %w", err)
	}
	defer rows.Close()

	list := make([]*store.DecisionLog, 0)
	for rows.Next() {
		dl := &store.DecisionLog{}
		var createdTs int64
		if err := rows.Scan(
			&dl.ID,
			&dl.UID,
			&dl.OrgID,
			&dl.DraftID,
			&dl.VariantID,
			&dl.PostID,
			&dl.Platform,
			&dl.Objective,
			&createdTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan decision_log: %w", err)
		}
		dl.CreatedAt = time.Unix(createdTs, 0)
		list = append(list, dl)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate decision_logs: %w", err)
	}

	return list, nil
}
