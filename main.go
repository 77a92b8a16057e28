package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"simplecrm/api"
	"simplecrm/internal/cache"
	"simplecrm/internal/config"
	"simplecrm/internal/events"
	"simplecrm/internal/postgres"
	"simplecrm/internal/sales"
)

func main() {
	cfg := config.Load()

	logger, err := config.NewLogger(cfg)
	if err != nil {
		panic(fmt.Errorf("error building logger: %v", err))
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]api.HealthCheck{}

	var uow sales.UnitOfWork
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		uow = postgres.NewUnitOfWork(db)
		checks["postgres"] = db.PingContext
		logger.Info("using postgres storage")
	} else {
		uow = sales.NewLocalStorage()
		logger.Warn("DATABASE_URL not set, using in-memory storage")
	}

	var opts []sales.Option
	if cfg.RedisAddr != "" {
		client, err := cache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer client.Close()
		opts = append(opts,
			sales.WithSellerCache(cache.NewSellerCache(client, cfg.SellerCacheTTL, logger)),
			sales.WithPublisher(events.NewPublisher(client, cfg.StreamMaxLen)),
		)
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		logger.Info("seller cache and event streams enabled", zap.String("redis_addr", cfg.RedisAddr))
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	api.InitRoutes(r, api.Services{
		Sellers:      sales.NewSellerService(uow, logger, opts...),
		Transactions: sales.NewTransactionService(uow, logger, opts...),
		Analytics:    sales.NewAnalyticsService(uow, logger),
		Checks:       checks,
	}, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("env", cfg.Env), zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("error trying to start server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("server exited")
	return nil
}
