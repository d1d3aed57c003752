package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alangunning/nomulus/internal/domain/store"
	"github.com/alangunning/nomulus/internal/flows"
	"github.com/alangunning/nomulus/internal/flows/handler"
	flowmetrics "github.com/alangunning/nomulus/internal/flows/metrics"
	jwttoken "github.com/alangunning/nomulus/internal/jwt_token"
	"github.com/alangunning/nomulus/internal/platform/config"
	"github.com/alangunning/nomulus/internal/platform/httpserver"
	"github.com/alangunning/nomulus/internal/platform/logger"
	"github.com/alangunning/nomulus/internal/platform/metrics"
	"github.com/alangunning/nomulus/internal/platform/postgres"
	"github.com/alangunning/nomulus/internal/platform/redis"
	httptransport "github.com/alangunning/nomulus/internal/transport/http"
	"github.com/alangunning/nomulus/pkg/platform/middleware/ratelimit"
)

const limiterCleanupInterval = time.Minute

// main wires dependencies and runs the HTTP server until SIGINT/SIGTERM.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	domains, health, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	flow := flows.NewTransferQueryFlow(domains,
		flows.WithLogger(log),
		flows.WithMetrics(flowmetrics.New()),
		flows.WithPolicy(flows.Policy{
			MaxExtensionYears:        cfg.Transfer.MaxExtensionYears,
			RegistrationCeilingYears: cfg.Transfer.RegistrationCeilingYears,
		}),
	)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	var limiter *ratelimit.Limiter
	if cfg.RateLimit.RPS > 0 {
		limiter = ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}

	router := httptransport.NewRouter(httptransport.Dependencies{
		Logger:      log,
		Tokens:      jwttoken.NewJWTServiceAdapter(jwtService),
		Limiter:     limiter,
		Metrics:     metrics.New(),
		Health:      health,
		AdminToken:  cfg.AdminToken,
		CORSOrigins: cfg.CORSOrigins,
	}, handler.New(flow, log))

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting nomulus",
			"addr", cfg.Addr,
			"env", cfg.Environment,
			"store", cfg.StoreBackend,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	if limiter != nil {
		g.Go(func() error {
			ticker := time.NewTicker(limiterCleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					limiter.Cleanup()
				}
			}
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore builds the configured domain store and the health checks that
// go with it.
func openStore(ctx context.Context, cfg config.Server, log *slog.Logger) (flows.DomainLoader, map[string]httptransport.HealthChecker, func(), error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, nil, nil, err
		}
		pg := store.NewPostgres(db.DB)
		if err := pg.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		health := map[string]httptransport.HealthChecker{"postgres": db}

		// A configured Redis becomes a read replica behind the breaker.
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		if client == nil {
			return pg, health, func() { _ = db.Close() }, nil
		}
		health["redis"] = client
		failover := store.NewFailover(pg, store.NewRedis(client.Client), store.WithFailoverLogger(log))
		return failover, health, func() {
			_ = client.Close()
			_ = db.Close()
		}, nil

	case config.StoreRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, nil, err
		}
		if client == nil {
			return nil, nil, nil, errors.New("STORE_BACKEND=redis requires REDIS_URL")
		}
		return store.NewRedis(client.Client), map[string]httptransport.HealthChecker{"redis": client}, func() { _ = client.Close() }, nil

	default:
		log.Warn("using in-memory domain store; data is lost on restart")
		return store.NewInMemory(), nil, func() {}, nil
	}
}
