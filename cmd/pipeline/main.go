package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Ashutoshmitra/job-platform/internal/audit"
	"github.com/Ashutoshmitra/job-platform/internal/config"
	"github.com/Ashutoshmitra/job-platform/internal/enrich"
	"github.com/Ashutoshmitra/job-platform/internal/events"
	"github.com/Ashutoshmitra/job-platform/internal/pipeline"
	"github.com/Ashutoshmitra/job-platform/internal/review"
	"github.com/Ashutoshmitra/job-platform/internal/routing"
	"github.com/Ashutoshmitra/job-platform/internal/runlock"
	"github.com/Ashutoshmitra/job-platform/internal/sink"
	"github.com/Ashutoshmitra/job-platform/internal/store"
	"github.com/Ashutoshmitra/job-platform/internal/telemetry"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return zap.NewProduction()
}

func newNATSConnection(cfg *config.Config) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Timeout(cfg.NATSConnTimeout),
		nats.Name("pipeline-service"),
		nats.RetryOnFailedConnect(true),
	}
	return nats.Connect(cfg.NATSURL, opts...)
}

func newRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func newStore(cfg *config.Config, logger *zap.Logger) (*store.Postgres, error) {
	return store.New(context.Background(), cfg.PostgresDSN, logger)
}

func newRecorder(cfg *config.Config, logger *zap.Logger) (audit.Recorder, error) {
	conn, err := audit.Connect(context.Background(), cfg)
	if err != nil {
		logger.Warn("clickhouse unavailable, run audit disabled", zap.Error(err))
		return audit.NopRecorder{}, nil
	}
	return audit.NewClickHouseRecorder(conn, logger), nil
}

func newEnricher(cfg *config.Config, logger *zap.Logger) enrich.Enricher {
	if cfg.EnrichAPIKey == "" {
		logger.Warn("no enrichment API key configured, all jobs route to manual review")
		return enrich.NopEnricher{}
	}
	client := &http.Client{Timeout: cfg.EnrichTimeout}
	return enrich.NewChatEnricher(cfg.EnrichAPIURL, cfg.EnrichAPIKey, cfg.EnrichModel, client, logger)
}

func newReviewStore(pg *store.Postgres, logger *zap.Logger) review.Store {
	return review.NewPostgresStore(pg.Pool(), logger)
}

func newSinkPublisher(nc *nats.Conn, logger *zap.Logger) *sink.NATSPublisher {
	return sink.NewNATSPublisherWithConn(nc, logger)
}

func newRouter(cfg *config.Config, publisher *sink.NATSPublisher, reviewStore review.Store, logger *zap.Logger) *routing.Router {
	return routing.NewRouter(cfg.ConfidenceThreshold, publisher, reviewStore, logger)
}

func newLocker(client *redis.Client, cfg *config.Config) *runlock.Locker {
	return runlock.New(client, cfg.RunLockTTL)
}

func newPipeline(pg *store.Postgres, enricher enrich.Enricher, router *routing.Router, locker *runlock.Locker, recorder audit.Recorder, cfg *config.Config, logger *zap.Logger) *pipeline.Pipeline {
	return pipeline.New(pg, enricher, router, locker, recorder, cfg, logger)
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			newLogger,
			newNATSConnection,
			newRedisClient,
			newStore,
			newRecorder,
			newEnricher,
			newReviewStore,
			newSinkPublisher,
			newRouter,
			newLocker,
			newPipeline,
			events.NewHandler,
		),
		fx.Invoke(
			func(cfg *config.Config, logger *zap.Logger, lc fx.Lifecycle) {
				shutdown, err := telemetry.InitTracer(context.Background(), "pipeline-service", cfg.OTLPCollectorURL)
				if err != nil {
					logger.Warn("tracing disabled", zap.Error(err))
					return
				}
				lc.Append(fx.Hook{
					OnStop: func(ctx context.Context) error {
						shutdown()
						return nil
					},
				})
			},
			func(pg *store.Postgres, lc fx.Lifecycle) error {
				if err := pg.RunMigrations(context.Background()); err != nil {
					return err
				}
				lc.Append(fx.Hook{
					OnStop: func(ctx context.Context) error {
						pg.Close()
						return nil
					},
				})
				return nil
			},
			func(handler *events.Handler, lc fx.Lifecycle) error {
				return handler.RegisterSubscriptions(lc)
			},
		),
	)

	startCtx := context.Background()
	if err := app.Start(startCtx); err != nil {
		log.Fatal(err)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	stopCtx := context.Background()
	if err := app.Stop(stopCtx); err != nil {
		log.Fatal(err)
	}
}
