// Package pipeline drives one feed run end to end: normalize, validate,
// hash, resolve against the store, persist, enrich, route. Record-level
// failures are collected and reported; store-level failures abort the run,
// because no dedup decision is trustworthy without store access.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Ashutoshmitra/job-platform/internal/audit"
	"github.com/Ashutoshmitra/job-platform/internal/config"
	"github.com/Ashutoshmitra/job-platform/internal/dedup"
	"github.com/Ashutoshmitra/job-platform/internal/enrich"
	"github.com/Ashutoshmitra/job-platform/internal/hasher"
	"github.com/Ashutoshmitra/job-platform/internal/mapper"
	"github.com/Ashutoshmitra/job-platform/internal/models"
	"github.com/Ashutoshmitra/job-platform/internal/routing"
	"github.com/Ashutoshmitra/job-platform/internal/schema"
	"github.com/Ashutoshmitra/job-platform/internal/telemetry"
)

// Store is the persistent job store the pipeline resolves against.
type Store interface {
	HasHash(ctx context.Context, hash string) (bool, error)
	ActiveByFeed(ctx context.Context, source models.JobSource, feedID *int64) ([]dedup.StoredJob, error)
	Upsert(ctx context.Context, job models.CanonicalJob) error
	MarkClosed(ctx context.Context, source models.JobSource, feedID *int64, hashes []string) (int64, error)
}

// RunLocker serializes runs over the same feed/source.
type RunLocker interface {
	Acquire(ctx context.Context, source models.JobSource, feedID *int64) (func(context.Context) error, error)
}

type Pipeline struct {
	store    Store
	enricher enrich.Enricher
	router   *routing.Router
	locker   RunLocker
	recorder audit.Recorder
	config   *config.Config
	logger   *zap.Logger
	tracer   trace.Tracer
}

func New(store Store, enricher enrich.Enricher, router *routing.Router, locker RunLocker, recorder audit.Recorder, cfg *config.Config, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		store:    store,
		enricher: enricher,
		router:   router,
		locker:   locker,
		recorder: recorder,
		config:   cfg,
		logger:   logger,
		tracer:   telemetry.GetTracer("job-platform/pipeline"),
	}
}

// ProcessRun ingests one feed snapshot. The returned report is valid even on
// error; the error marks run-level failures (lock contention, store outage).
func (p *Pipeline) ProcessRun(ctx context.Context, req models.RunRequest) (models.RunReport, error) {
	ctx, span := p.tracer.Start(ctx, "Pipeline.ProcessRun")
	defer span.End()

	report := models.RunReport{
		RunID:     uuid.New().String(),
		FeedID:    req.FeedID,
		JobSource: req.JobSource,
		StartedAt: time.Now().UTC(),
	}
	span.SetAttributes(
		telemetry.String("run_id", report.RunID),
		telemetry.Int("records", len(req.Records)),
	)

	release, err := p.locker.Acquire(ctx, req.JobSource, req.FeedID)
	if err != nil {
		span.RecordError(err)
		report.FinishedAt = time.Now().UTC()
		return report, err
	}
	defer func() {
		if err := release(ctx); err != nil {
			p.logger.Warn("failed to release run lock", zap.Error(err))
		}
	}()

	var outcomes []audit.Outcome

	jobs := p.normalize(ctx, req, &report, &outcomes)
	report.Processed = len(jobs)
	p.logger.Info("normalized feed records",
		zap.String("run_id", report.RunID),
		zap.Int("valid", len(jobs)),
		zap.Int("failed", len(report.Errors)))

	resolution, err := p.resolve(ctx, req, jobs)
	if err != nil {
		span.RecordError(err)
		report.FinishedAt = time.Now().UTC()
		return report, err
	}

	if err := p.apply(ctx, req, resolution, &report, &outcomes); err != nil {
		span.RecordError(err)
		report.FinishedAt = time.Now().UTC()
		return report, err
	}

	targets := resolution.ToInsert
	if p.config.RouteUnchanged {
		targets = append(targets, resolution.ToSkip...)
	}
	p.enrichAndRoute(ctx, targets, &report, &outcomes)

	report.FinishedAt = time.Now().UTC()
	if err := p.recorder.RecordRun(ctx, report, outcomes); err != nil {
		// Audit is an observability concern; losing a row must not fail the run.
		p.logger.Warn("failed to record run audit",
			zap.String("run_id", report.RunID),
			zap.Error(err))
	}

	p.logger.Info("feed run complete",
		zap.String("run_id", report.RunID),
		zap.Int("inserted", report.Inserted),
		zap.Int("skipped", report.Skipped),
		zap.Int("closed", report.Closed),
		zap.Int("auto_approved", report.AutoApproved),
		zap.Int("manual_review", report.ManualReview),
		zap.Int("errors", len(report.Errors)))
	return report, nil
}

type normResult struct {
	job     models.CanonicalJob
	failure *schema.ValidationFailure
}

// normalize maps, validates and hashes every raw record. The stages are pure
// per record, so they fan out across workers; results keep input order
// because the resolver's first-wins tie-break depends on it.
func (p *Pipeline) normalize(ctx context.Context, req models.RunRequest, report *models.RunReport, outcomes *[]audit.Outcome) []models.CanonicalJob {
	_, span := p.tracer.Start(ctx, "Pipeline.normalize")
	defer span.End()

	results := make([]normResult, len(req.Records))
	indexes := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < p.workers(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = p.normalizeOne(req, req.Records[i])
			}
		}()
	}
	for i := range req.Records {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	jobs := make([]models.CanonicalJob, 0, len(results))
	for i, res := range results {
		if res.failure != nil {
			report.Errors = append(report.Errors, models.RecordError{
				Index:  i,
				Field:  res.failure.Field,
				Reason: res.failure.Reason,
			})
			*outcomes = append(*outcomes, audit.Outcome{
				Outcome: audit.OutcomeValidationFailed,
				Detail:  res.failure.Error(),
			})
			continue
		}
		jobs = append(jobs, res.job)
	}
	return jobs
}

func (p *Pipeline) normalizeOne(req models.RunRequest, rec models.RawRecord) normResult {
	mapped := mapper.Map(rec)

	// The run envelope carries the source identity; records only override it
	// when they name it themselves.
	if _, ok := mapped["job_source"]; !ok {
		mapped["job_source"] = string(req.JobSource)
	}
	if _, ok := mapped["feed_id"]; !ok && req.FeedID != nil {
		mapped["feed_id"] = *req.FeedID
	}

	job, err := schema.Validate(mapped)
	if err != nil {
		return normResult{failure: err.(*schema.ValidationFailure)}
	}
	job.ContentHash = hasher.ContentHash(job)
	return normResult{job: job}
}

// resolve queries the store and partitions the run. Any store error is fatal
// for the run.
func (p *Pipeline) resolve(ctx context.Context, req models.RunRequest, jobs []models.CanonicalJob) (dedup.Resolution, error) {
	ctx, span := p.tracer.Start(ctx, "Pipeline.resolve")
	defer span.End()

	known := make(map[string]bool, len(jobs))
	for _, job := range jobs {
		if _, ok := known[job.ContentHash]; ok {
			continue
		}
		exists, err := p.store.HasHash(ctx, job.ContentHash)
		if err != nil {
			return dedup.Resolution{}, err
		}
		known[job.ContentHash] = exists
	}

	feedJobs, err := p.store.ActiveByFeed(ctx, req.JobSource, req.FeedID)
	if err != nil {
		return dedup.Resolution{}, err
	}

	res := dedup.Resolve(jobs, known, feedJobs)
	span.SetAttributes(
		telemetry.Int("to_insert", len(res.ToInsert)),
		telemetry.Int("to_skip", len(res.ToSkip)),
		telemetry.Int("to_close", len(res.ToClose)),
	)
	return res, nil
}

// apply persists the resolution: upserts for new content, closure for
// vanished content.
func (p *Pipeline) apply(ctx context.Context, req models.RunRequest, res dedup.Resolution, report *models.RunReport, outcomes *[]audit.Outcome) error {
	ctx, span := p.tracer.Start(ctx, "Pipeline.apply")
	defer span.End()

	for i := range res.ToInsert {
		job := &res.ToInsert[i]
		now := time.Now().UTC()
		job.CreatedAt = now
		job.UpdatedAt = now
		if err := p.store.Upsert(ctx, *job); err != nil {
			return err
		}
		report.Inserted++
		*outcomes = append(*outcomes, audit.Outcome{
			ExternalJobID: job.ExternalJobID,
			Outcome:       audit.OutcomeInserted,
		})
	}

	for _, job := range res.ToSkip {
		report.Skipped++
		*outcomes = append(*outcomes, audit.Outcome{
			ExternalJobID: job.ExternalJobID,
			Outcome:       audit.OutcomeSkipped,
		})
	}

	if len(res.ToClose) > 0 {
		hashes := make([]string, 0, len(res.ToClose))
		for _, stored := range res.ToClose {
			hashes = append(hashes, stored.ContentHash)
			*outcomes = append(*outcomes, audit.Outcome{
				ExternalJobID: stored.ExternalJobID,
				Outcome:       audit.OutcomeClosed,
			})
		}
		closed, err := p.store.MarkClosed(ctx, req.JobSource, req.FeedID, hashes)
		if err != nil {
			return err
		}
		report.Closed = int(closed)
	}
	return nil
}

type routeResult struct {
	job      models.CanonicalJob
	decision routing.Decision
	err      error
}

// enrichAndRoute runs enrichment and routing for each target job. Jobs fan
// out across workers, but a single job's enrich-then-route is strictly
// serial inside one goroutine, so no job is ever routed twice concurrently.
func (p *Pipeline) enrichAndRoute(ctx context.Context, targets []models.CanonicalJob, report *models.RunReport, outcomes *[]audit.Outcome) {
	if len(targets) == 0 {
		return
	}
	ctx, span := p.tracer.Start(ctx, "Pipeline.enrichAndRoute")
	defer span.End()

	jobCh := make(chan models.CanonicalJob)
	resultCh := make(chan routeResult)

	var wg sync.WaitGroup
	for w := 0; w < p.workers(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				resultCh <- p.enrichAndRouteOne(ctx, job)
			}
		}()
	}
	go func() {
		for _, job := range targets {
			jobCh <- job
		}
		close(jobCh)
	}()
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for res := range resultCh {
		if res.err != nil {
			report.Errors = append(report.Errors, models.RecordError{
				Reason: res.err.Error(),
			})
			*outcomes = append(*outcomes, audit.Outcome{
				ExternalJobID: res.job.ExternalJobID,
				Outcome:       audit.OutcomePublishFailed,
				Detail:        res.err.Error(),
			})
			continue
		}
		switch res.decision {
		case routing.DecisionAutoApproved:
			report.AutoApproved++
			*outcomes = append(*outcomes, audit.Outcome{
				ExternalJobID: res.job.ExternalJobID,
				Outcome:       audit.OutcomeAutoApproved,
			})
		case routing.DecisionManualReview:
			report.ManualReview++
			*outcomes = append(*outcomes, audit.Outcome{
				ExternalJobID: res.job.ExternalJobID,
				Outcome:       audit.OutcomeManualReview,
			})
		}
	}
}

func (p *Pipeline) enrichAndRouteOne(ctx context.Context, job models.CanonicalJob) routeResult {
	enrichment, err := p.enricher.Enrich(ctx, job)
	if err != nil {
		// Conservative default: an unreachable or confused enrichment
		// service sends the job to a human, never to auto-approval.
		p.logger.Warn("enrichment failed, routing to manual review",
			zap.String("external_job_id", job.ExternalJobID),
			zap.Error(err))
		enrichment = nil
	}
	job.Enrichment = enrichment

	if enrichment != nil {
		if err := p.store.Upsert(ctx, job); err != nil {
			p.logger.Error("failed to persist enrichment",
				zap.String("external_job_id", job.ExternalJobID),
				zap.Error(err))
		}
	}

	decision, err := p.router.Route(ctx, job)
	return routeResult{job: job, decision: decision, err: err}
}

func (p *Pipeline) workers() int {
	if p.config.Workers > 0 {
		return p.config.Workers
	}
	return 1
}
