package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"
)

type Migration struct {
	Version     int
	Description string
	Up          string
}

var Migrations = []Migration{
	{
		Version:     1,
		Description: "create pipeline_runs table",
		Up: `
			CREATE TABLE IF NOT EXISTS pipeline_runs (
				run_id String,
				feed_id Int64,
				job_source String,
				started_at DateTime,
				finished_at DateTime,
				processed Int32,
				inserted Int32,
				skipped Int32,
				closed Int32,
				auto_approved Int32,
				manual_review Int32,
				error_count Int32
			) ENGINE = MergeTree()
			ORDER BY (started_at, run_id)
		`,
	},
	{
		Version:     2,
		Description: "create record_outcomes table",
		Up: `
			CREATE TABLE IF NOT EXISTS record_outcomes (
				run_id String,
				external_job_id String,
				outcome String,
				detail String,
				recorded_at DateTime
			) ENGINE = MergeTree()
			ORDER BY (recorded_at, run_id)
		`,
	},
}

type Migrator struct {
	conn   clickhouse.Conn
	logger *zap.Logger
}

func NewMigrator(conn clickhouse.Conn, logger *zap.Logger) *Migrator {
	return &Migrator{conn: conn, logger: logger}
}

func (m *Migrator) CreateMigrationsTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS migrations (
			version Int32,
			description String,
			applied_at DateTime,
			PRIMARY KEY (version)
		) ENGINE = MergeTree()
	`
	if err := m.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) GetAppliedMigrations(ctx context.Context) (map[int]time.Time, error) {
	rows, err := m.conn.Query(ctx, "SELECT version, applied_at FROM migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int32
		var appliedAt time.Time
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[int(version)] = appliedAt
	}
	return applied, nil
}

// Run applies every pending migration in version order.
func (m *Migrator) Run(ctx context.Context) error {
	if err := m.CreateMigrationsTable(ctx); err != nil {
		return err
	}
	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}
	for _, migration := range Migrations {
		if _, ok := applied[migration.Version]; ok {
			continue
		}
		if err := m.conn.Exec(ctx, migration.Up); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
		}
		if err := m.conn.Exec(ctx, `
			INSERT INTO migrations (version, description, applied_at)
			VALUES (?, ?, now())
		`, migration.Version, migration.Description); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
		m.logger.Info("applied clickhouse migration",
			zap.Int("version", migration.Version),
			zap.String("description", migration.Description))
	}
	return nil
}
