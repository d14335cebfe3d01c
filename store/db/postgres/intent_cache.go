package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/postpilot/postpilot/store"
)

func (d *DB) GetIntentCache(ctx context.Context, get *store.GetIntentCache) (*store.IntentCacheEntry, error) {
	if get == nil {
		return nil, fmt.Errorf("get parameter cannot be nil")
	}

	query := `SELECT id, org_id, route_key, intent_hash, response, provider, model, estimated_cost_usd, created_ts, expires_ts
		FROM intent_cache WHERE org_id = $1 AND route_key = $2 AND intent_hash = $3`

	entry := &store.IntentCacheEntry{}
	var createdTs, expiresTs int64
	err := d.db.QueryRowContext(ctx, query, get.OrgID, get.RouteKey, get.IntentHash).Scan(
		&entry.ID,
		&entry.OrgID,
		&entry.RouteKey,
		&entry.IntentHash,
		&entry.Response,
		&entry.Provider,
		&entry.Model,
		&entry.EstimatedCostUSD,
		&createdTs,
		&expiresTs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		// A cache miss is an expected result, not an error.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get intent_cache: %w", err)
	}
	entry.CreatedAt = time.Unix(createdTs, 0)
	entry.ExpiresAt = time.Unix(expiresTs, 0)

	return entry, nil
}

func (d *DB) UpsertIntentCache(ctx context.Context, upsert *store.UpsertIntentCache) (*store.IntentCacheEntry, error) {
	if upsert == nil {
		return nil, fmt.Errorf("upsert parameter cannot be nil")
	}
	now := time.Now()

	stmt := `INSERT INTO intent_cache (org_id, route_key, intent_hash, response, provider, model, estimated_cost_usd, created_ts, expires_ts)
		VALUES (` + placeholders(9) + `)
		ON CONFLICT(org_id, route_key, intent_hash) DO UPDATE SET
			response = excluded.response,
			provider = excluded.provider,
			model = excluded.model,
			estimated_cost_usd = excluded.estimated_cost_usd,
			created_ts = excluded.created_ts,
			expires_ts = excluded.expires_ts
		RETURNING id`

	entry := &store.IntentCacheEntry{
		OrgID:            upsert.OrgID,
		RouteKey:         upsert.RouteKey,
		IntentHash:       upsert.IntentHash,
		Response:         upsert.Response,
		Provider:         upsert.Provider,
		Model:            upsert.Model,
		EstimatedCostUSD: upsert.EstimatedCostUSD,
		CreatedAt:        now,
		ExpiresAt:        upsert.ExpiresAt,
	}
	if err := d.db.QueryRowContext(ctx, stmt,
		upsert.OrgID,
		upsert.RouteKey,
		upsert.IntentHash,
		upsert.Response,
		upsert.Provider,
		upsert.Model,
		upsert.EstimatedCostUSD,
		now.Unix(),
		upsert.ExpiresAt.Unix(),
	).Scan(&entry.ID); err != nil {
		return nil, fmt.Errorf("failed to upsert intent_cache: %w", err)
	}

	return entry, nil
}

func (d *DB) DeleteExpiredIntentCache(ctx context.Context) (int64, error) {
	result, err := d.db.ExecContext(ctx, `DELETE FROM intent_cache WHERE expires_ts <= $1`, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired intent_cache entries: %w", err)
	}
	return result.RowsAffected()
}
