package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"brokergate/internal/audit"
	"brokergate/internal/auth/jwt"
	"brokergate/internal/auth/store/revocation"
	"brokergate/internal/authz"
	authzmetrics "brokergate/internal/authz/metrics"
	"brokergate/internal/platform/config"
	"brokergate/internal/platform/httpserver"
	"brokergate/internal/platform/kafka"
	"brokergate/internal/platform/logger"
	platformredis "brokergate/internal/platform/redis"
	"brokergate/internal/scope"
	httptransport "brokergate/internal/transport/http"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// All authorization logic lives in internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	registry := scope.DefaultRegistry()

	// Persistence: postgres when configured, in-memory otherwise. The raw
	// client is wrapped immediately; nothing below this point sees it.
	var (
		client     scope.Client
		auditStore audit.Store
	)
	if cfg.Postgres.DSN != "" {
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			log.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
		if err := db.Ping(); err != nil {
			log.Error("failed to ping postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		client = scope.NewPostgresClient(db, registry.Entities())
		auditStore = audit.NewPostgresStore(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory store")
		client = scope.NewMemoryClient()
		auditStore = audit.NewMemoryStore()
	}
	store := scope.NewScopedStore(client, registry)

	recorder := audit.NewRecorder(auditStore, log)

	// Optional audit fan-out to Kafka.
	var auditSink audit.Sink
	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		log.Error("failed to connect kafka", "error", err)
		os.Exit(1)
	}
	if producer != nil {
		defer producer.Close()
		auditSink = audit.NewKafkaSink(producer)
	}

	// Optional token revocation list backed by Redis.
	var checker authz.RevocationChecker
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		checker = revocation.NewRedisTRL(redisClient.Client)
	}

	validator := jwt.New(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	verifier := authz.NewVerifier(store, registry)
	pipeline := authz.NewPipeline(validator, checker, verifier, recorder, authzmetrics.New(), log)

	handler := httptransport.NewHandler(store, recorder, auditStore, log)
	router := httptransport.NewRouter(handler, pipeline, httptransport.Policies())
	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting brokergate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		if err := recorder.Run(ctx, auditSink); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}
