package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"verigrant/internal/idempotency"
	"verigrant/internal/identity"
	"verigrant/internal/platform/config"
	"verigrant/internal/platform/httpserver"
	"verigrant/internal/platform/logger"
	platformmetrics "verigrant/internal/platform/metrics"
	platformredis "verigrant/internal/platform/redis"
	"verigrant/internal/treasury/handler"
	"verigrant/internal/treasury/metrics"
	"verigrant/internal/treasury/ports"
	"verigrant/internal/treasury/service"
	memorystore "verigrant/internal/treasury/store/memory"
	postgresstore "verigrant/internal/treasury/store/postgres"
	"verigrant/internal/treasury/worker"
	"verigrant/pkg/platform/audit"
	"verigrant/pkg/platform/audit/publisher"
	kafkaaudit "verigrant/pkg/platform/audit/store/kafka"
	memoryaudit "verigrant/pkg/platform/audit/store/memory"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the treasury packages.
func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Treasury state store: postgres when configured, in-memory otherwise.
	var store ports.Store
	if cfg.Postgres.DSN != "" {
		db, err := sql.Open("pgx", cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		pg := postgresstore.New(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		store = pg
		log.Info("using postgres treasury store")
	} else {
		store = memorystore.New()
		log.Warn("no postgres DSN configured, treasury state is in-memory only")
	}

	// Audit sink: kafka when brokers are configured.
	var auditStore audit.Store
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := kafkaaudit.Dial(cfg.Kafka.Brokers)
		if err != nil {
			return err
		}
		defer kafkaClient.Close()
		var kafkaOpts []kafkaaudit.Option
		if cfg.Kafka.Topic != "" {
			kafkaOpts = append(kafkaOpts, kafkaaudit.WithTopic(cfg.Kafka.Topic))
		}
		auditStore = kafkaaudit.New(kafkaClient, kafkaOpts...)
		log.Info("audit events publishing to kafka", "topic", cfg.Kafka.Topic)
	} else {
		auditStore = memoryaudit.NewInMemoryStore()
	}
	auditPublisher := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(256),
		publisher.WithLogger(log),
	)
	defer auditPublisher.Close()

	treasury, err := service.New(store, identity.NewContextAuthorizer(),
		service.WithLogger(log),
		service.WithMetrics(metrics.New()),
		service.WithAuditPublisher(auditPublisher),
	)
	if err != nil {
		return err
	}

	// Idempotency cache: redis when configured, in-process otherwise.
	var idempotencyStore idempotency.Store = idempotency.NewInMemoryStore()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		idempotencyStore = idempotency.NewRedisStore(redisClient.Client)
		log.Info("idempotency cache backed by redis")
	}

	jwtService := identity.NewJWTService(cfg.Server.JWTSigningKey, "verigrant", "treasury")
	treasuryHandler := handler.New(treasury, log,
		identity.NewJWTServiceAdapter(jwtService),
		handler.WithHTTPMetrics(platformmetrics.New()),
		handler.WithMiddleware(idempotency.Middleware(idempotencyStore, cfg.IdempotencyTTL, log)),
	)

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	treasuryHandler.Register(router)

	srv := httpserver.New(cfg.Server.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting verigrant treasury", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutting down")
		return httpserver.Shutdown(srv, 10*time.Second)
	})

	if cfg.Worker.Enabled {
		claimer := worker.NewYieldClaimer(treasury, log)
		group.Go(func() error {
			// The sweep schedule comes from the on-chain-style singleton
			// config, which may not exist until an operator initializes the
			// treasury. Poll until it does.
			ticker := time.NewTicker(5 * time.Second)
			defer ticker.Stop()
			for {
				if err := claimer.Start(groupCtx); err == nil {
					break
				}
				select {
				case <-groupCtx.Done():
					return nil
				case <-ticker.C:
				}
			}
			<-groupCtx.Done()
			claimer.Stop()
			return nil
		})
	}

	return group.Wait()
}
