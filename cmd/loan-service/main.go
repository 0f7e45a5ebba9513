// Command loan-service serves the book loan API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/citylibrary/loan-service/internal/api"
	"github.com/citylibrary/loan-service/internal/api/handler"
	"github.com/citylibrary/loan-service/internal/core/ports"
	"github.com/citylibrary/loan-service/internal/core/service"
	"github.com/citylibrary/loan-service/internal/infrastructure/clients"
	"github.com/citylibrary/loan-service/internal/infrastructure/config"
	"github.com/citylibrary/loan-service/internal/infrastructure/db/redis"
	"github.com/citylibrary/loan-service/internal/infrastructure/metrics"
	"github.com/citylibrary/loan-service/internal/infrastructure/telemetry"
	"github.com/citylibrary/loan-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log := logger.Get()
		log.Fatal().Err(err).Msg("loan service stopped")
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger options come from config; fall back to defaults to report this.
		logger.Init(logger.Options{})
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: cfg.Tracing.ServiceName,
		Env:     cfg.Env,
	})

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: cfg.Tracing.ServiceName,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn().Err(err).Msg("tracer shutdown")
		}
	}()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.close(context.Background()); err != nil {
			log.Warn().Err(err).Msg("store close")
		}
	}()
	log.Info().Str("driver", cfg.StoreDriver).Msg("loan store ready")

	var checks []handler.DependencyCheck
	if store.health != nil {
		checks = append(checks, *store.health)
	}

	var idem ports.IdempotencyStore
	if cfg.Redis.Addr != "" {
		rdb, err := redis.Open(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()

		idem = redis.NewIdempotencyStore(rdb, cfg.Redis.IdempotencyTTL)
		checks = append(checks, handler.DependencyCheck{
			Name: "redis",
			Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
		log.Info().Str("addr", cfg.Redis.Addr).Msg("idempotency enabled")
	}

	loanService := service.NewLoanService(
		store.loans,
		store.adjustments,
		clients.NewInventoryClient(cfg.Remote.BookServiceURL, cfg.Remote.Timeout),
		clients.NewUserDirectoryClient(cfg.Remote.UserServiceURL, cfg.Remote.Timeout),
		log.With().Str("component", "loan_service").Logger(),
		service.WithObserver(metrics.LoanObserver{}),
	)

	e := api.NewRouter(api.RouterDeps{
		Service:     loanService,
		Idempotency: idem,
		Readiness:   checks,
		Logger:      log,
	})

	return serve(ctx, e, ":"+cfg.Port, log)
}

// serve runs the server until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, h http.Handler, addr string, log zerolog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}
