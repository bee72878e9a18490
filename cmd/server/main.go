package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	hwstore "healthnet/internal/healthworker/store"
	"healthnet/internal/membership"
	"healthnet/internal/notify"
	"healthnet/internal/platform/config"
	"healthnet/internal/platform/httpserver"
	"healthnet/internal/platform/kafka"
	"healthnet/internal/platform/logger"
	"healthnet/internal/platform/metrics"
	"healthnet/internal/platform/postgres"
	"healthnet/internal/platform/redis"
	regstore "healthnet/internal/registry/store"
	httptransport "healthnet/internal/transport/http"
	"healthnet/internal/verification"
	"healthnet/internal/verification/batch"
	vmetrics "healthnet/internal/verification/metrics"
	"healthnet/pkg/platform/audit"
	"healthnet/pkg/platform/audit/outbox"
	"healthnet/pkg/platform/audit/publisher"
	auditmemory "healthnet/pkg/platform/audit/store/memory"
	auditpostgres "healthnet/pkg/platform/audit/store/postgres"
	"healthnet/pkg/platform/middleware/auth"
	"healthnet/pkg/requestcontext"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Log)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("healthnet exited with error", "error", err)
		os.Exit(1)
	}
}

type stores struct {
	workers interface {
		verification.WorkerStore
		membership.WorkerStore
		batch.WorkerLister
	}
	records verification.RecordStore
	tx      hwstore.WorkerTx
	audit   audit.Store
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	var db *sql.DB
	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
	}
	st := buildStores(db, log)

	auditPublisher := publisher.NewPublisher(st.audit, publisher.WithLogger(log))
	defer auditPublisher.Close()

	sender, err := buildSender(cfg.SMS, log)
	if err != nil {
		return err
	}
	catalog, err := notify.LoadCatalog(cfg.SMS.MessagesFile)
	if err != nil {
		return err
	}

	verificationMetrics := vmetrics.New()
	engine := verification.New(st.workers, st.records, st.tx,
		verification.WithLogger(log),
		verification.WithAuditPublisher(auditPublisher),
		verification.WithMetrics(verificationMetrics),
	)
	membershipService := membership.New(st.workers, st.tx, sender, catalog,
		membership.WithLogger(log),
		membership.WithAuditPublisher(auditPublisher),
		membership.WithMetrics(membership.NewMetrics()),
	)

	checks := map[string]httptransport.HealthCheck{}
	if db != nil {
		checks["postgres"] = db.PingContext
	}

	var leaser batch.Leaser = batch.NewMemoryLeaser()
	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		leaser = batch.NewRedisLeaser(redisClient.Client)
		checks["redis"] = redisClient.Health
	}
	runner := batch.NewRunner(st.workers, engine,
		batch.WithLogger(log),
		batch.WithMetrics(verificationMetrics),
		batch.WithLeaser(leaser),
		batch.WithConcurrency(cfg.Verification.BatchConcurrency),
		batch.WithPageSize(cfg.Verification.BatchPageSize),
		batch.WithLeaseTTL(cfg.Verification.LeaseTTL),
	)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Handler:   httptransport.NewHandler(engine, membershipService, log),
		Validator: auth.NewHS256Validator(cfg.AdminJWTSecret),
		Logger:    log,
		Metrics:   metrics.New(),
		Checks:    checks,
	})
	srv := httpserver.New(cfg.Addr, router)

	// The outbox only exists in Postgres, so the relay needs both.
	var kafkaClient *kgo.Client
	if db != nil && len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err = kafka.NewClient(cfg.Kafka)
		if err != nil {
			return err
		}
		defer kafkaClient.Close()
		if err := kafka.EnsureTopic(ctx, kafkaClient, cfg.Kafka.AuditTopic, cfg.Kafka.Partitions); err != nil {
			log.Warn("audit topic bootstrap failed", "topic", cfg.Kafka.AuditTopic, "error", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, log)
	})
	g.Go(func() error {
		runBatches(gctx, runner, cfg.Verification.BatchInterval, log)
		return nil
	})

	if kafkaClient != nil {
		g.Go(func() error {
			return relayAudit(gctx, db, kafkaClient, cfg.Kafka.AuditTopic, log)
		})
	}

	log.Info("healthnet started",
		"addr", cfg.Addr,
		"postgres", db != nil,
		"redis", redisClient != nil,
		"kafka", kafkaClient != nil,
	)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func buildStores(db *sql.DB, log *slog.Logger) stores {
	if db == nil {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		return stores{
			workers: hwstore.NewInMemoryStore(),
			records: regstore.NewInMemoryStore(),
			tx:      hwstore.NewShardedTx(0),
			audit:   auditmemory.NewInMemoryStore(),
		}
	}
	return stores{
		workers: hwstore.NewPostgres(db),
		records: regstore.NewPostgres(db),
		tx:      hwstore.NewPostgresTx(db, 0),
		audit:   auditpostgres.New(db),
	}
}

func buildSender(cfg config.SMSConfig, log *slog.Logger) (notify.Sender, error) {
	if cfg.GatewayURL == "" {
		log.Warn("SMS_GATEWAY_URL not set, membership notifications are logged only")
		return notify.NewLogSender(log), nil
	}
	return notify.NewGatewayClient(notify.GatewayConfig{
		BaseURL:         cfg.GatewayURL,
		ConversationKey: cfg.ConversationKey,
		AccountKey:      cfg.AccountKey,
		AccessToken:     cfg.AccessToken,
		Timeout:         cfg.Timeout,
	}, notify.WithLogger(log), notify.WithMetrics(notify.NewMetrics()))
}

// runBatches sweeps unverified workers once at startup and then on every
// tick. Each sweep is bounded by the interval so a slow run cannot overlap
// the next one.
func runBatches(ctx context.Context, runner *batch.Runner, interval time.Duration, log *slog.Logger) {
	if interval <= 0 {
		log.Info("verification batch disabled")
		return
	}
	sweep := func() {
		runCtx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		runCtx = requestcontext.WithTime(runCtx, time.Now())
		if _, err := runner.Run(runCtx); err != nil && ctx.Err() == nil {
			log.Warn("verification batch stopped early", "error", err)
		}
	}

	sweep()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}

func relayAudit(ctx context.Context, db *sql.DB, client *kgo.Client, topic string, log *slog.Logger) error {
	relay := outbox.New(db, client, topic,
		outbox.WithLogger(log),
		outbox.WithMetrics(outbox.NewMetrics()),
	)
	if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
