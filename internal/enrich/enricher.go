// Package enrich calls the external classification service that assigns
// ai_* attributes and a confidence score to a job. The rest of the pipeline
// treats it as an opaque function; a failed call simply means "no confidence
// available" and the job goes to manual review.
package enrich

import (
	"context"

	"github.com/Ashutoshmitra/job-platform/internal/models"
)

type Enricher interface {
	Enrich(ctx context.Context, job models.CanonicalJob) (*models.Enrichment, error)
}

// NopEnricher returns no enrichment, which routes everything to manual
// review. Used when no API key is configured.
type NopEnricher struct{}

func (NopEnricher) Enrich(context.Context, models.CanonicalJob) (*models.Enrichment, error) {
	return nil, nil
}
