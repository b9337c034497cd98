// Package routing sends each enriched job to exactly one of two places:
// the downstream auto-approval sink or the manual review queue.
package routing

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Ashutoshmitra/job-platform/internal/models"
	"github.com/Ashutoshmitra/job-platform/internal/telemetry"
)

// ApprovedSink receives jobs that cleared the confidence threshold.
type ApprovedSink interface {
	Publish(ctx context.Context, job models.CanonicalJob) error
}

// ReviewQueue holds jobs that need a human decision.
type ReviewQueue interface {
	Add(ctx context.Context, entry models.ReviewQueueEntry) error
}

type Decision string

const (
	DecisionAutoApproved Decision = "auto_approved"
	DecisionManualReview Decision = "manual_review"
)

type Router struct {
	threshold float64
	approved  ApprovedSink
	review    ReviewQueue
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewRouter builds a router with a fixed confidence threshold. The threshold
// is an inclusive lower bound: a score exactly equal to it auto-approves.
func NewRouter(threshold float64, approved ApprovedSink, review ReviewQueue, logger *zap.Logger) *Router {
	return &Router{
		threshold: threshold,
		approved:  approved,
		review:    review,
		logger:    logger,
		tracer:    telemetry.GetTracer("job-platform/routing"),
	}
}

// Route decides and emits. A job without enrichment, or whose enrichment
// failed, defaults to manual review. The returned decision reflects what was
// attempted; the error reports the emit outcome. A sink publish failure never
// rolls back anything — the store stays the source of truth and the sync can
// be retried independently.
func (r *Router) Route(ctx context.Context, job models.CanonicalJob) (Decision, error) {
	ctx, span := r.tracer.Start(ctx, "Router.Route")
	defer span.End()

	confidence, ok := job.Confidence()
	if !ok {
		r.logger.Warn("no confidence score, defaulting to manual review",
			zap.String("external_job_id", job.ExternalJobID),
			zap.String("title", job.Title))
		return DecisionManualReview, r.sendToReview(ctx, job)
	}

	span.SetAttributes(telemetry.Float64("confidence", confidence))

	if confidence >= r.threshold {
		r.logger.Info("auto-approving job",
			zap.String("external_job_id", job.ExternalJobID),
			zap.Float64("confidence", confidence),
			zap.Float64("threshold", r.threshold))
		if err := r.approved.Publish(ctx, job); err != nil {
			span.RecordError(err)
			r.logger.Error("failed to publish approved job",
				zap.String("external_job_id", job.ExternalJobID),
				zap.Error(err))
			return DecisionAutoApproved, err
		}
		return DecisionAutoApproved, nil
	}

	r.logger.Info("sending job for manual review",
		zap.String("external_job_id", job.ExternalJobID),
		zap.Float64("confidence", confidence),
		zap.Float64("threshold", r.threshold))
	return DecisionManualReview, r.sendToReview(ctx, job)
}

func (r *Router) sendToReview(ctx context.Context, job models.CanonicalJob) error {
	entry := models.ReviewQueueEntry{
		Job:        job,
		Enrichment: job.Enrichment,
		Status:     models.ReviewPending,
	}
	if c, ok := job.Confidence(); ok {
		entry.Confidence = &c
	}
	return r.review.Add(ctx, entry)
}
