// Package review holds jobs waiting on a human decision. Entries are keyed
// by (job_source, external_job_id): resubmitting the same job updates the
// stored enrichment and confidence instead of duplicating the entry, and
// nothing is ever hard-deleted so the audit trail survives resolution.
package review

import (
	"context"

	"github.com/Ashutoshmitra/job-platform/internal/models"
)

// Store is the manual-review holding area.
//
// List with a nil status excludes resolved entries; they are never deleted
// and stay reachable by listing the resolved status explicitly.
type Store interface {
	Add(ctx context.Context, entry models.ReviewQueueEntry) error
	List(ctx context.Context, status *models.ReviewStatus) ([]models.ReviewQueueEntry, error)
	Resolve(ctx context.Context, key models.JobKey) error
}
