// Package sink publishes auto-approved jobs to the downstream consumer. A
// failed publish is logged and reported but never affects store state; the
// store is the source of truth and the sync can be retried independently.
package sink

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Ashutoshmitra/job-platform/internal/config"
	"github.com/Ashutoshmitra/job-platform/internal/errors"
	"github.com/Ashutoshmitra/job-platform/internal/models"
	"github.com/Ashutoshmitra/job-platform/internal/telemetry"
)

var tracer = telemetry.GetTracer("job-platform/sink")

const ApprovedSubject = "jobs.approved"

type NATSPublisher struct {
	conn   *nats.Conn
	logger *zap.Logger
}

func NewNATSPublisher(logger *zap.Logger, cfg *config.Config) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Timeout(cfg.NATSConnTimeout),
		nats.Name("job-platform-sink"),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	}

	conn, err := nats.Connect(cfg.NATSURL, opts...)
	if err != nil {
		return nil, errors.Unavailable("connecting to NATS", err)
	}

	return &NATSPublisher{conn: conn, logger: logger}, nil
}

// NewNATSPublisherWithConn wraps an existing connection, shared with the
// feed-run subscriber.
func NewNATSPublisherWithConn(conn *nats.Conn, logger *zap.Logger) *NATSPublisher {
	return &NATSPublisher{conn: conn, logger: logger}
}

// approvedEnrichment mirrors models.Enrichment without the confidence score.
// The score is pipeline-internal routing input, not downstream data.
type approvedEnrichment struct {
	Title         string   `json:"ai_title"`
	Description   string   `json:"ai_description"`
	JobTasks      []string `json:"ai_job_tasks"`
	SearchTerms   []string `json:"ai_search_terms"`
	TopTags       []string `json:"ai_top_tags"`
	JobFunctionID int      `json:"ai_job_function_id"`
	Skills        []string `json:"ai_skills"`
}

type approvedEvent struct {
	models.CanonicalJob
	Enrichment *approvedEnrichment `json:"enrichment,omitempty"`
}

func (p *NATSPublisher) Publish(ctx context.Context, job models.CanonicalJob) error {
	_, span := tracer.Start(ctx, "PublishApprovedJob")
	defer span.End()

	event := approvedEvent{CanonicalJob: job}
	event.CanonicalJob.Enrichment = nil
	if job.Enrichment != nil {
		event.Enrichment = &approvedEnrichment{
			Title:         job.Enrichment.Title,
			Description:   job.Enrichment.Description,
			JobTasks:      job.Enrichment.JobTasks,
			SearchTerms:   job.Enrichment.SearchTerms,
			TopTags:       job.Enrichment.TopTags,
			JobFunctionID: job.Enrichment.JobFunctionID,
			Skills:        job.Enrichment.Skills,
		}
	}

	data, err := json.Marshal(event)
	if err != nil {
		span.RecordError(err)
		return errors.Internal("marshaling approved job", err)
	}

	span.SetAttributes(
		telemetry.String("nats.subject", ApprovedSubject),
		telemetry.Int("message.size", len(data)),
	)

	if err := p.conn.Publish(ApprovedSubject, data); err != nil {
		span.RecordError(err)
		p.logger.Error("failed to publish approved job",
			zap.String("external_job_id", job.ExternalJobID),
			zap.Error(err))
		return errors.Unavailable("publishing to NATS", err)
	}

	p.logger.Debug("published approved job",
		zap.String("external_job_id", job.ExternalJobID),
		zap.String("subject", ApprovedSubject))
	return nil
}

func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
