package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/postpilot/postpilot/store"
)

func (d *DB) CreateConsolidationAudit(ctx context.Context, create *store.ConsolidationAuditLog) (*store.ConsolidationAuditLog, error) {
	if create.CreatedAt.IsZero() {
		create.CreatedAt = time.Now()
	}
	if create.UID == "" {
		create.UID = shortuuid.New()
	}
	if create.Actor == "" {
		create.Actor = "system"
	}
	if create.Details == "" {
		create.Details = "{}"
	}

	sourceIDs, err := json.Marshal(create.SourceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal source_ids: %w", err)
	}

	var targetID sql.NullInt64
	if create.TargetID != nil {
		targetID = sql.NullInt64{Int64: *create.TargetID, Valid: true}
	}
	var confidence sql.NullFloat64
	if create.Confidence != nil {
		confidence = sql.NullFloat64{Float64: *create.Confidence, Valid: true}
	}

	fields := []string{"uid", "org_id", "action_type", "source_ids", "target_id", "details", "confidence", "actor", "created_ts"}
	args := []any{
		create.UID,
		create.OrgID,
		create.ActionType,
		string(sourceIDs),
		targetID,
		create.Details,
		confidence,
		create.Actor,
		create.CreatedAt.Unix(),
	}

	stmt := `INSERT INTO consolidation_audit_log (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id`

	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create consolidation_audit_log: %w", err)
	}

	return create, nil
}

func (d *DB) ListConsolidationAudits(ctx context.Context, find *store.FindConsolidationAudit) ([]*store.ConsolidationAuditLog, error) {
	if find == nil {
		return nil, fmt.Errorf("find parameter cannot be nil")
	}

	where, args := []string{"1 = 1"}, []any{}

	if find.OrgID != nil {
		where, args = append(where, "org_id = "+placeholder(len(args)+1)), append(args, *find.OrgID)
	}
	if find.ActionType != nil {
		where, args = append(where, "action_type = "+placeholder(len(args)+1)), append(args, *find.ActionType)
	}
	if find.Since != nil {
		where, args = append(where, "created_ts >= "+placeholder(len(args)+1)), append(args, find.Since.Unix())
	}

	query := `SELECT id, uid, org_id, action_type, source_ids, target_id, details, confidence, actor, created_ts
		FROM consolidation_audit_log WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC, id DESC`
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list consolidation_audit_logs: %w", err)
	}
	defer rows.Close()

	list := make([]*store.ConsolidationAuditLog, 0)
	for rows.Next() {
		entry := &store.ConsolidationAuditLog{}
		var sourceIDs string
		var targetID sql.NullInt64
		var confidence sql.NullFloat64
		var createdTs int64
		if err := rows.Scan(
			&entry.ID,
			&entry.UID,
			&entry.OrgID,
			&entry.ActionType,
			&sourceIDs,
			&targetID,
			&entry.Details,
			&confidence,
			&entry.Actor,
			&createdTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan consolidation_audit_log: %w", err)
		}
		if err := json.Unmarshal([]byte(sourceIDs), &entry.SourceIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal source_ids: %w", err)
		}
		if targetID.Valid {
			entry.TargetID = &targetID.Int64
		}
		if confidence.Valid {
			entry.Confidence = &confidence.Float64
		}
		entry.CreatedAt = time.Unix(createdTs, 0)
		list = append(list, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate consolidation_audit_logs: %w", err)
	}

	return list, nil
}
