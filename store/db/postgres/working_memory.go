package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/postpilot/postpilot/store"
)

func (d *DB) UpsertWorkingMemory(ctx context.Context, upsert *store.UpsertWorkingMemory) (*store.WorkingMemory, error) {
	if upsert == nil {
		return nil, fmt.Errorf("upsert parameter cannot be nil")
	}
	now := time.Now()

	stmt := `INSERT INTO working_memory (org_id, session_id, content, created_ts, expires_ts)
		VALUES (` + placeholders(5) + `)
		ON CONFLICT(org_id, session_id) DO UPDATE SET content = excluded.content, expires_ts = excluded.expires_ts
		RETURNING id, created_ts`

	wm := &store.WorkingMemory{
		OrgID:     upsert.OrgID,
		SessionID: upsert.SessionID,
		Content:   upsert.Content,
		ExpiresAt: upsert.ExpiresAt,
	}
	var createdTs int64
	if err := d.db.QueryRowContext(ctx, stmt,
		upsert.OrgID,
		upsert.SessionID,
		upsert.Content,
		now.Unix(),
		upsert.ExpiresAt.Unix(),
	).Scan(&wm.ID, &createdTs); err != nil {
		return nil, fmt.Errorf("failed to upsert working_memory: %w", err)
	}
	wm.CreatedAt = time.Unix(createdTs, 0)

	return wm, nil
}

func (d *DB) ListWorkingMemories(ctx context.Context, find *store.FindWorkingMemory) ([]*store.WorkingMemory, error) {
	if find == nil {
		return nil, fmt.Errorf("find parameter cannot be nil")
	}

	// Expired scratch state is invisible to readers.
	where, args := []string{"expires_ts > " + placeholder(1)}, []any{time.Now().Unix()}

	if find.OrgID != nil {
		where, args = append(where, "org_id = "+placeholder(len(args)+1)), append(args, *find.OrgID)
	}
	if find.SessionID != nil {
		where, args = append(where, "session_id = "+placeholder(len(args)+1)), append(args, *find.SessionID)
	}

	query := `SELECT id, org_id, session_id, content, created_ts, expires_ts
		FROM working_memory WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC`
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list working_memories: %w", err)
	}
	defer rows.Close()

	list := make([]*store.WorkingMemory, 0)
	for rows.Next() {
		wm := &store.WorkingMemory{}
		var createdTs, expiresTs int64
		if err := rows.Scan(
			&wm.ID,
			&wm.OrgID,
			&wm.SessionID,
			&wm.Content,
			&createdTs,
			&expiresTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan working_memory: %w", err)
		}
		wm.CreatedAt = time.Unix(createdTs, 0)
		wm.ExpiresAt = time.Unix(expiresTs, 0)
		list = append(list, wm)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate working_memories: %w", err)
	}

	return list, nil
}

func (d *DB) DeleteExpiredWorkingMemories(ctx context.Context) (int64, error) {
	result, err := d.db.ExecContext(ctx, `DELETE FROM working_memory WHERE expires_ts <= `+placeholder(1), time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired working_memories: %w", err)
	}
	return result.RowsAffected()
}
