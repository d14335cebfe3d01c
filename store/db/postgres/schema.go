package postgres

var schema = []string{
	`CREATE TABLE IF NOT EXISTS episodic_memory (
		id BIGSERIAL PRIMARY KEY,
		org_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		platform TEXT NOT NULL DEFAULT '',
		importance DOUBLE PRECISION NOT NULL DEFAULT 0.5,
		strength DOUBLE PRECISION NOT NULL DEFAULT 1,
		metadata TEXT NOT NULL DEFAULT '{}',
		created_ts BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_episodic_memory_org_created ON episodic_memory (org_id, created_ts)`,
	`CREATE TABLE IF NOT EXISTS semantic_pattern (
		id BIGSERIAL PRIMARY KEY,
		org_id TEXT NOT NULL DEFAULT '',
		pattern_type TEXT NOT NULL,
		platform TEXT NOT NULL DEFAULT '',
		pattern_key TEXT NOT NULL,
		pattern_value TEXT NOT NULL DEFAULT '{}',
		confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		sample_size BIGINT NOT NULL DEFAULT 0,
		created_ts BIGINT NOT NULL,
		updated_ts BIGINT NOT NULL,
		UNIQUE(org_id, pattern_type, platform, pattern_key)
	)`,
	`CREATE TABLE IF NOT EXISTS procedural_strategy (
		id BIGSERIAL PRIMARY KEY,
		org_id TEXT NOT NULL,
		pattern_id BIGINT NOT NULL,
		strategy_key TEXT NOT NULL,
		recommendation TEXT NOT NULL DEFAULT '{}',
		confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		sample_size BIGINT NOT NULL DEFAULT 0,
		promoted_ts BIGINT NOT NULL,
		UNIQUE(org_id, pattern_id)
	)`,
	`CREATE TABLE IF NOT EXISTS working_memory (
		id BIGSERIAL PRIMARY KEY,
		org_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '{}',
		created_ts BIGINT NOT NULL,
		expires_ts BIGINT NOT NULL,
		UNIQUE(org_id, session_id)
	)`,
	`CREATE TABLE IF NOT EXISTS metacognitive_log (
		id BIGSERIAL PRIMARY KEY,
		org_id TEXT NOT NULL,
		assessment_type TEXT NOT NULL,
		score DOUBLE PRECISION NOT NULL DEFAULT 0,
		period_start_ts BIGINT NOT NULL,
		period_end_ts BIGINT NOT NULL,
		details TEXT NOT NULL DEFAULT '{}',
		created_ts BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS creative_memory (
		id BIGSERIAL PRIMARY KEY,
		org_id TEXT NOT NULL,
		platform TEXT NOT NULL DEFAULT '',
		objective TEXT NOT NULL DEFAULT '',
		hook_type TEXT NOT NULL DEFAULT '',
		framework TEXT NOT NULL DEFAULT '',
		cta_type TEXT NOT NULL DEFAULT '',
		sample_size BIGINT NOT NULL DEFAULT 0,
		success_count BIGINT NOT NULL DEFAULT 0,
		total_engagement DOUBLE PRECISION NOT NULL DEFAULT 0,
		avg_engagement DOUBLE PRECISION NOT NULL DEFAULT 0,
		updated_ts BIGINT NOT NULL,
		UNIQUE(org_id, platform, objective, hook_type, framework, cta_type)
	)`,
	`CREATE TABLE IF NOT EXISTS decision_log (
		id BIGSERIAL PRIMARY KEY,
		uid TEXT NOT NULL UNIQUE,
		org_id TEXT NOT NULL,
		draft_id TEXT NOT NULL,
		variant_id TEXT NOT NULL DEFAULT '',
		post_id TEXT NOT NULL,
		platform TEXT NOT NULL DEFAULT '',
		objective TEXT NOT NULL DEFAULT '',
		created_ts BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS consolidation_audit_log (
		id BIGSERIAL PRIMARY KEY,
		uid TEXT NOT NULL UNIQUE,
		org_id TEXT NOT NULL,
		action_type TEXT NOT NULL,
		source_ids TEXT NOT NULL DEFAULT '[]',
		target_id BIGINT,
		details TEXT NOT NULL DEFAULT '{}',
		confidence DOUBLE PRECISION,
		actor TEXT NOT NULL DEFAULT 'system',
		created_ts BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_consolidation_audit_org_created ON consolidation_audit_log (org_id, created_ts)`,
	`CREATE TABLE IF NOT EXISTS intent_cache (
		id BIGSERIAL PRIMARY KEY,
		org_id TEXT NOT NULL,
		route_key TEXT NOT NULL,
		intent_hash TEXT NOT NULL,
		response TEXT NOT NULL DEFAULT '',
		provider TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		estimated_cost_usd DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_ts BIGINT NOT NULL,
		expires_ts BIGINT NOT NULL,
		UNIQUE(org_id, route_key, intent_hash)
	)`,
	`CREATE TABLE IF NOT EXISTS ai_usage_event (
		id BIGSERIAL PRIMARY KEY,
		org_id TEXT NOT NULL,
		route_key TEXT NOT NULL DEFAULT '',
		provider TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		input_tokens BIGINT NOT NULL DEFAULT 0,
		output_tokens BIGINT NOT NULL DEFAULT 0,
		cost_usd DOUBLE PRECISION NOT NULL DEFAULT 0,
		latency_ms BIGINT NOT NULL DEFAULT 0,
		cache_hit BOOLEAN NOT NULL DEFAULT FALSE,
		success BOOLEAN NOT NULL DEFAULT TRUE,
		error_code TEXT NOT NULL DEFAULT '',
		metadata TEXT NOT NULL DEFAULT '{}',
		created_ts BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ai_usage_event_org_created ON ai_usage_event (org_id, created_ts)`,
}
