// Package events receives feed-run submissions over NATS. The decoders
// upstream flatten whatever the feed shipped (XML, CSV, JSON, archives) into
// a sequence of raw records and publish one envelope per run.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Ashutoshmitra/job-platform/internal/models"
	"github.com/Ashutoshmitra/job-platform/internal/pipeline"
	"github.com/Ashutoshmitra/job-platform/internal/telemetry"
)

const FeedRunSubject = "jobs.feed.run"

type Handler struct {
	logger   *zap.Logger
	nc       *nats.Conn
	tracer   trace.Tracer
	pipeline *pipeline.Pipeline
	sub      *nats.Subscription
}

func NewHandler(logger *zap.Logger, nc *nats.Conn, p *pipeline.Pipeline) *Handler {
	return &Handler{
		logger:   logger,
		nc:       nc,
		tracer:   telemetry.GetTracer("job-platform/events"),
		pipeline: p,
	}
}

func (h *Handler) RegisterSubscriptions(lc fx.Lifecycle) error {
	sub, err := h.nc.QueueSubscribe(FeedRunSubject, "pipeline-service", h.handleFeedRun)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", FeedRunSubject, err)
	}

	h.sub = sub
	h.logger.Info("registered NATS subscriptions", zap.String("subject", FeedRunSubject))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return h.sub.Unsubscribe()
		},
	})

	return nil
}

func (h *Handler) handleFeedRun(msg *nats.Msg) {
	ctx, span := h.tracer.Start(context.Background(), "handleFeedRun")
	defer span.End()

	var req models.RunRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		span.RecordError(err)
		h.logger.Error("failed to decode feed run envelope",
			zap.String("subject", msg.Subject),
			zap.Error(err))
		return
	}

	report, err := h.pipeline.ProcessRun(ctx, req)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("feed run failed",
			zap.String("run_id", report.RunID),
			zap.Error(err))
	}

	// A reply subject means the submitter wants the report back.
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		h.logger.Error("failed to marshal run report", zap.Error(err))
		return
	}
	if err := msg.Respond(data); err != nil {
		h.logger.Error("failed to send run report",
			zap.String("run_id", report.RunID),
			zap.Error(err))
	}
}
