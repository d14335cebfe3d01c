package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/postpilot/postpilot/store"
)

func (d *DB) CreateEpisodicMemory(ctx context.Context, create *store.EpisodicMemory) (*store.EpisodicMemory, error) {
	if create.CreatedAt.IsZero() {
		create.CreatedAt = time.Now()
	}
	if create.Strength == 0 {
		create.Strength = 1
	}
	if create.Metadata == "" {
		create.Metadata = "{}"
	}

	fields := []string{"org_id", "event_type", "platform", "importance", "strength", "metadata", "created_ts"}
	args := []any{
		create.OrgID,
		create.EventType,
		create.Platform,
		create.Importance,
		create.Strength,
		create.Metadata,
		create.CreatedAt.Unix(),
	}

	stmt := `INSERT INTO episodic_memory (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id`

	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create episodic_memory: %w", err)
	}

	return create, nil
}

func (d *DB) ListEpisodicMemories(ctx context.Context, find *store.FindEpisodicMemory) ([]*store.EpisodicMemory, error) {
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
	if find.EventType != nil {
		where, args = append(where, "event_type = "+placeholder(len(args)+1)), append(args, *find.EventType)
	}
	if find.Platform != nil {
		where, args = append(where, "platform = "+placeholder(len(args)+1)), append(args, *find.Platform)
	}
	if find.CreatedAfter != nil {
		where, args = append(where, "created_ts >= "+placeholder(len(args)+1)), append(args, find.CreatedAfter.Unix())
	}

	query := `SELECT id, org_id, event_type, platform, importance, strength, metadata, created_ts
		FROM episodic_memory WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC`

	limit := find.Limit
	if limit > 0 {
		if limit > 1000 {
			limit = 1000 // Cap to prevent excessive data retrieval
		}
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	if find.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", find.Offset)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list episodic_memories: %w", err)
	}
	defer rows.Close()

	list := make([]*store.EpisodicMemory, 0)
	for rows.Next() {
		m := &store.EpisodicMemory{}
		var createdTs int64
		if err := rows.Scan(
			&m.ID,
			&m.OrgID,
			&m.EventType,
			&m.Platform,
			&m.Importance,
			&m.Strength,
			&m.Metadata,
			&createdTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan episodic_memory: %w", err)
		}
		m.CreatedAt = time.Unix(createdTs, 0)
		list = append(list, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate episodic_memories: %w", err)
	}

	return list, nil
}

func (d *DB) ListActiveOrgIDs(ctx context.Context, cutoff time.Time) ([]string, error) {
	query := `SELECT DISTINCT org_id FROM episodic_memory WHERE created_ts > ` + placeholder(1)

	rows, err := d.db.QueryContext(ctx, query, cutoff.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to list active org IDs: %w", err)
	}
	defer rows.Close()

	orgIDs := make([]string, 0)
	for rows.Next() {
		var orgID string
		if err := rows.Scan(&orgID); err != nil {
			return nil, fmt.Errorf("failed to scan org ID: %w", err)
		}
		orgIDs = append(orgIDs, orgID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate org IDs: %w", err)
	}

	return orgIDs, nil
}
