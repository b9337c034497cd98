// Package store persists canonical jobs in Postgres. The store is the source
// of truth: sink publishes and enrichment are derived from it and never roll
// it back.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Ashutoshmitra/job-platform/internal/dedup"
	"github.com/Ashutoshmitra/job-platform/internal/errors"
	"github.com/Ashutoshmitra/job-platform/internal/models"
)

type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// New creates a pooled Postgres connection and verifies it.
func New(ctx context.Context, dsn string, logger *zap.Logger) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{pool: pool, logger: logger}, nil
}

func (s *Postgres) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Postgres) Pool() *pgxpool.Pool {
	return s.pool
}

// HasHash reports whether any job with the given content hash exists.
func (s *Postgres) HasHash(ctx context.Context, hash string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM jobs WHERE content_hash = $1)
	`, hash).Scan(&exists)
	if err != nil {
		return false, errors.Unavailable("query content hash", err)
	}
	return exists, nil
}

// ActiveByFeed lists the open jobs previously ingested for the same
// feed/source pair. feedID may be nil for company-website ingests.
func (s *Postgres) ActiveByFeed(ctx context.Context, source models.JobSource, feedID *int64) ([]dedup.StoredJob, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT external_job_id, content_hash
		FROM jobs
		WHERE job_source = $1 AND feed_id IS NOT DISTINCT FROM $2 AND status = $3
		ORDER BY created_at, external_job_id
	`, source, feedID, models.StatusOpen)
	if err != nil {
		return nil, errors.Unavailable("query active jobs", err)
	}
	defer rows.Close()

	var jobs []dedup.StoredJob
	for rows.Next() {
		var j dedup.StoredJob
		if err := rows.Scan(&j.ExternalJobID, &j.ContentHash); err != nil {
			return nil, errors.Unavailable("scan active job", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Unavailable("iterate active jobs", err)
	}
	return jobs, nil
}

const upsertSQL = `
	INSERT INTO jobs (
		id, external_job_id, job_source, feed_id, company_name, title,
		description, posted_at, expires_at, status, is_remote,
		is_multi_location, is_international, application_url,
		employment_type, locations, salary_min, salary_max, salary_period,
		currency, content_hash, enrichment, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24
	)
	ON CONFLICT (job_source, external_job_id) DO UPDATE SET
		feed_id = EXCLUDED.feed_id,
		company_name = EXCLUDED.company_name,
		title = EXCLUDED.title,
		description = EXCLUDED.description,
		posted_at = EXCLUDED.posted_at,
		expires_at = EXCLUDED.expires_at,
		status = EXCLUDED.status,
		is_remote = EXCLUDED.is_remote,
		is_multi_location = EXCLUDED.is_multi_location,
		is_international = EXCLUDED.is_international,
		application_url = EXCLUDED.application_url,
		employment_type = EXCLUDED.employment_type,
		locations = EXCLUDED.locations,
		salary_min = EXCLUDED.salary_min,
		salary_max = EXCLUDED.salary_max,
		salary_period = EXCLUDED.salary_period,
		currency = EXCLUDED.currency,
		content_hash = EXCLUDED.content_hash,
		enrichment = EXCLUDED.enrichment,
		updated_at = EXCLUDED.updated_at`

// upsertArgs binds the insert values in column order. created_at keeps the
// job's original timestamp across re-ingests; updated_at always takes the
// current time so a conflict-update records when the row last changed.
func upsertArgs(job models.CanonicalJob, enrichment []byte, createdAt, now time.Time) []any {
	return []any{
		job.ID, job.ExternalJobID, job.JobSource, job.FeedID, job.CompanyName,
		job.Title, job.Description, job.PostedAt, job.ExpiresAt, job.Status,
		job.IsRemote, job.IsMultiLocation, job.IsInternational,
		job.ApplicationURL, job.EmploymentType, job.Locations, job.SalaryMin,
		job.SalaryMax, job.SalaryPeriod, job.Currency, job.ContentHash,
		enrichment, createdAt, now,
	}
}

// Upsert inserts a job or, when the same (job_source, external_job_id) was
// ingested before, overwrites the stored row with the new snapshot.
func (s *Postgres) Upsert(ctx context.Context, job models.CanonicalJob) error {
	var enrichment []byte
	if job.Enrichment != nil {
		var err error
		enrichment, err = json.Marshal(job.Enrichment)
		if err != nil {
			return fmt.Errorf("marshal enrichment: %w", err)
		}
	}

	now := time.Now().UTC()
	createdAt := job.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err := s.pool.Exec(ctx, upsertSQL, upsertArgs(job, enrichment, createdAt, now)...)
	if err != nil {
		return errors.Unavailable("upsert job", err)
	}
	return nil
}

// MarkClosed transitions jobs to CLOSED by content hash within one
// feed/source scope. Rows are never deleted.
func (s *Postgres) MarkClosed(ctx context.Context, source models.JobSource, feedID *int64, hashes []string) (int64, error) {
	if len(hashes) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE jobs
		SET status = $4, updated_at = NOW()
		WHERE job_source = $1 AND feed_id IS NOT DISTINCT FROM $2
		  AND content_hash = ANY($3) AND status = $5
	`, source, feedID, hashes, models.StatusClosed, models.StatusOpen)
	if err != nil {
		return 0, errors.Unavailable("close jobs", err)
	}
	closed := tag.RowsAffected()
	s.logger.Info("closed jobs no longer present in feed", zap.Int64("count", closed))
	return closed, nil
}

// GetByKey fetches a stored job by its source-scoped identity.
func (s *Postgres) GetByKey(ctx context.Context, key models.JobKey) (models.CanonicalJob, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, external_job_id, job_source, feed_id, company_name, title,
			description, posted_at, expires_at, status, is_remote,
			is_multi_location, is_international, application_url,
			employment_type, locations, salary_min, salary_max, salary_period,
			currency, content_hash, enrichment, created_at, updated_at
		FROM jobs
		WHERE job_source = $1 AND external_job_id = $2
	`, key.JobSource, key.ExternalJobID)

	var job models.CanonicalJob
	var expiresAt pgtype.Timestamptz
	var enrichment []byte
	if err := row.Scan(&job.ID, &job.ExternalJobID, &job.JobSource, &job.FeedID,
		&job.CompanyName, &job.Title, &job.Description, &job.PostedAt,
		&expiresAt, &job.Status, &job.IsRemote, &job.IsMultiLocation,
		&job.IsInternational, &job.ApplicationURL, &job.EmploymentType,
		&job.Locations, &job.SalaryMin, &job.SalaryMax, &job.SalaryPeriod,
		&job.Currency, &job.ContentHash, &enrichment, &job.CreatedAt,
		&job.UpdatedAt); err != nil {
		return models.CanonicalJob{}, errors.NotFound("job not found", err)
	}
	if expiresAt.Valid {
		job.ExpiresAt = &expiresAt.Time
	}
	if len(enrichment) > 0 {
		job.Enrichment = &models.Enrichment{}
		if err := json.Unmarshal(enrichment, job.Enrichment); err != nil {
			return models.CanonicalJob{}, fmt.Errorf("unmarshal enrichment: %w", err)
		}
	}
	return job, nil
}
