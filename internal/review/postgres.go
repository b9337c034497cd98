package review

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Ashutoshmitra/job-platform/internal/errors"
	"github.com/Ashutoshmitra/job-platform/internal/models"
)

type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger}
}

// Add upserts an entry. A resubmission overwrites the prior enrichment and
// confidence and resets the entry to pending.
func (s *PostgresStore) Add(ctx context.Context, entry models.ReviewQueueEntry) error {
	jobJSON, err := json.Marshal(entry.Job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	var enrichmentJSON []byte
	if entry.Enrichment != nil {
		enrichmentJSON, err = json.Marshal(entry.Enrichment)
		if err != nil {
			return fmt.Errorf("marshal enrichment: %w", err)
		}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO review_queue (
			external_job_id, job_source, job, enrichment, confidence, status,
			added_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (job_source, external_job_id) DO UPDATE SET
			job = EXCLUDED.job,
			enrichment = EXCLUDED.enrichment,
			confidence = EXCLUDED.confidence,
			status = EXCLUDED.status,
			updated_at = NOW()
	`, entry.Job.ExternalJobID, entry.Job.JobSource, jobJSON, enrichmentJSON,
		entry.Confidence, models.ReviewPending)
	if err != nil {
		return errors.Unavailable("upsert review entry", err)
	}

	s.logger.Info("queued job for manual review",
		zap.String("external_job_id", entry.Job.ExternalJobID),
		zap.String("job_source", string(entry.Job.JobSource)))
	return nil
}

func (s *PostgresStore) List(ctx context.Context, status *models.ReviewStatus) ([]models.ReviewQueueEntry, error) {
	var filter *string
	if status != nil {
		f := string(*status)
		filter = &f
	}
	// Default listing hides resolved entries; they stay stored and are
	// returned when asked for by status.
	rows, err := s.pool.Query(ctx, `
		SELECT job, enrichment, confidence, status, added_at, updated_at
		FROM review_queue
		WHERE CASE
			WHEN $1::text IS NULL THEN status <> $2
			ELSE status = $1
		END
		ORDER BY added_at
	`, filter, models.ReviewResolved)
	if err != nil {
		return nil, errors.Unavailable("query review queue", err)
	}
	defer rows.Close()

	var entries []models.ReviewQueueEntry
	for rows.Next() {
		var entry models.ReviewQueueEntry
		var jobJSON, enrichmentJSON []byte
		var addedAt, updatedAt time.Time
		if err := rows.Scan(&jobJSON, &enrichmentJSON, &entry.Confidence,
			&entry.Status, &addedAt, &updatedAt); err != nil {
			return nil, errors.Unavailable("scan review entry", err)
		}
		if err := json.Unmarshal(jobJSON, &entry.Job); err != nil {
			return nil, fmt.Errorf("unmarshal job: %w", err)
		}
		if len(enrichmentJSON) > 0 {
			entry.Enrichment = &models.Enrichment{}
			if err := json.Unmarshal(enrichmentJSON, entry.Enrichment); err != nil {
				return nil, fmt.Errorf("unmarshal enrichment: %w", err)
			}
		}
		entry.AddedAt = addedAt
		entry.UpdatedAt = updatedAt
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Unavailable("iterate review queue", err)
	}
	return entries, nil
}

func (s *PostgresStore) Resolve(ctx context.Context, key models.JobKey) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE review_queue
		SET status = $3, updated_at = NOW()
		WHERE job_source = $1 AND external_job_id = $2
	`, key.JobSource, key.ExternalJobID, models.ReviewResolved)
	if err != nil {
		return errors.Unavailable("resolve review entry", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("review entry not found", nil)
	}
	return nil
}
