package store

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id                TEXT PRIMARY KEY,
		external_job_id   TEXT NOT NULL,
		job_source        TEXT NOT NULL,
		feed_id           BIGINT,
		company_name      TEXT NOT NULL,
		title             TEXT NOT NULL,
		description       TEXT NOT NULL,
		posted_at         TIMESTAMPTZ NOT NULL,
		expires_at        TIMESTAMPTZ,
		status            TEXT NOT NULL DEFAULT 'OPEN',
		is_remote         BOOLEAN NOT NULL DEFAULT FALSE,
		is_multi_location BOOLEAN NOT NULL DEFAULT FALSE,
		is_international  BOOLEAN NOT NULL DEFAULT FALSE,
		application_url   TEXT NOT NULL DEFAULT '',
		employment_type   TEXT NOT NULL DEFAULT '',
		locations         TEXT[],
		salary_min        DOUBLE PRECISION,
		salary_max        DOUBLE PRECISION,
		salary_period     TEXT NOT NULL DEFAULT '',
		currency          TEXT NOT NULL DEFAULT '',
		content_hash      TEXT NOT NULL,
		enrichment        JSONB,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (job_source, external_job_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_content_hash ON jobs (content_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_feed_status ON jobs (job_source, feed_id, status)`,
	`CREATE TABLE IF NOT EXISTS review_queue (
		external_job_id TEXT NOT NULL,
		job_source      TEXT NOT NULL,
		job             JSONB NOT NULL,
		enrichment      JSONB,
		confidence      DOUBLE PRECISION,
		status          TEXT NOT NULL DEFAULT 'pending',
		added_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (job_source, external_job_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_review_queue_status ON review_queue (status)`,
}

// RunMigrations applies the schema statements in order. Every statement is
// idempotent, so re-running on startup is safe.
func (s *Postgres) RunMigrations(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("exec migration %d: %w", i+1, err)
		}
	}
	return nil
}
