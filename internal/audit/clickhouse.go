// Package audit appends run reports and per-record outcomes to ClickHouse.
// Audit writes are best-effort: a failure is logged, never fatal to the run.
package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"

	"github.com/Ashutoshmitra/job-platform/internal/config"
	"github.com/Ashutoshmitra/job-platform/internal/models"
)

// Outcome is the per-record audit row for one run.
type Outcome struct {
	ExternalJobID string
	Outcome       string
	Detail        string
}

const (
	OutcomeInserted         = "inserted"
	OutcomeSkipped          = "skipped"
	OutcomeClosed           = "closed"
	OutcomeAutoApproved     = "auto_approved"
	OutcomeManualReview     = "manual_review"
	OutcomeValidationFailed = "validation_failed"
	OutcomePublishFailed    = "publish_failed"
)

// Recorder receives the audit trail of a finished run.
type Recorder interface {
	RecordRun(ctx context.Context, report models.RunReport, outcomes []Outcome) error
}

// NopRecorder discards audit data. Used when ClickHouse is not configured.
type NopRecorder struct{}

func (NopRecorder) RecordRun(context.Context, models.RunReport, []Outcome) error {
	return nil
}

type ClickHouseRecorder struct {
	conn   clickhouse.Conn
	logger *zap.Logger
}

// Connect opens a native-protocol ClickHouse connection and pings it.
func Connect(ctx context.Context, cfg *config.Config) (clickhouse.Conn, error) {
	hostAndParams := strings.Split(cfg.ClickHouseDSN, "?")
	host := hostAndParams[0]

	conn, err := clickhouse.Open(&clickhouse.Options{
		Protocol: clickhouse.Native,
		Addr:     []string{host},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Auth: clickhouse.Auth{
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
		},
		DialTimeout:     time.Second * 30,
		MaxOpenConns:    cfg.ClickHouseMaxOpenConns,
		MaxIdleConns:    cfg.ClickHouseMaxIdleConns,
		ConnMaxLifetime: cfg.ClickHouseConnMaxLife,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create clickhouse connection: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return conn, nil
}

func NewClickHouseRecorder(conn clickhouse.Conn, logger *zap.Logger) *ClickHouseRecorder {
	return &ClickHouseRecorder{conn: conn, logger: logger}
}

func (r *ClickHouseRecorder) RecordRun(ctx context.Context, report models.RunReport, outcomes []Outcome) error {
	var feedID int64
	if report.FeedID != nil {
		feedID = *report.FeedID
	}

	if err := r.conn.Exec(ctx, `
		INSERT INTO pipeline_runs (
			run_id, feed_id, job_source, started_at, finished_at,
			processed, inserted, skipped, closed, auto_approved,
			manual_review, error_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, report.RunID, feedID, string(report.JobSource), report.StartedAt,
		report.FinishedAt, report.Processed, report.Inserted, report.Skipped,
		report.Closed, report.AutoApproved, report.ManualReview,
		len(report.Errors)); err != nil {
		return fmt.Errorf("insert run report: %w", err)
	}

	if len(outcomes) == 0 {
		return nil
	}

	batch, err := r.conn.PrepareBatch(ctx, `
		INSERT INTO record_outcomes (run_id, external_job_id, outcome, detail, recorded_at)
	`)
	if err != nil {
		return fmt.Errorf("prepare outcome batch: %w", err)
	}
	now := time.Now().UTC()
	for _, o := range outcomes {
		if err := batch.Append(report.RunID, o.ExternalJobID, o.Outcome, o.Detail, now); err != nil {
			return fmt.Errorf("append outcome: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send outcome batch: %w", err)
	}

	r.logger.Debug("recorded run audit",
		zap.String("run_id", report.RunID),
		zap.Int("outcomes", len(outcomes)))
	return nil
}
