package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SscSPs/finledger/internal/adapters/aggregator"
	"github.com/SscSPs/finledger/internal/adapters/pricefeed"
	portsrepo "github.com/SscSPs/finledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/finledger/internal/core/ports/services"
	"github.com/SscSPs/finledger/internal/core/services"
	"github.com/SscSPs/finledger/internal/handlers"
	"github.com/SscSPs/finledger/internal/middleware"
	"github.com/SscSPs/finledger/internal/platform/config"
	"github.com/SscSPs/finledger/internal/platform/metrics"
	"github.com/SscSPs/finledger/internal/platform/scheduler"
	"github.com/SscSPs/finledger/internal/repositories/database/pgsql"
	"github.com/SscSPs/finledger/internal/repositories/memory"
	"github.com/SscSPs/finledger/pkg/database"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	limitermemory "github.com/ulule/limiter/v3/drivers/store/memory"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("Server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	var cleanup []func()
	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	repos, err := openStorage(cfg, logger, &cleanup)
	if err != nil {
		return err
	}

	teller, err := aggregator.NewTellerClient(aggregator.Config{
		BaseURL:     cfg.TellerAPIURL,
		Certificate: cfg.TellerCertificate,
		PrivateKey:  cfg.TellerPrivateKey,
		Timeout:     cfg.TellerTimeout,
	})
	if err != nil {
		return err
	}

	oracle, err := buildPriceOracle(cfg, logger, &cleanup)
	if err != nil {
		return err
	}

	container := services.NewServiceContainer(cfg, repos, services.External{
		PriceOracle: oracle,
		Aggregator:  teller,
	})

	apiRate, err := limiter.NewRateFromFormatted(cfg.APIRateLimit)
	if err != nil {
		return err
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
			ExposeHeaders:    []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		metrics.Middleware(),
		middleware.StructuredLoggingMiddleware(logger),
		gin.Recovery(),
	)
	if err := r.SetTrustedProxies(nil); err != nil {
		return err
	}
	handlers.RegisterRoutes(r, cfg, container, limiter.New(limitermemory.NewStore(), apiRate))

	jobs, err := startScheduler(cfg, logger, container)
	if err != nil {
		return err
	}
	defer jobs.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      2 * cfg.TellerTimeout,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port), slog.String("storage", cfg.StorageDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStorage(cfg *config.Config, logger *slog.Logger, cleanup *[]func()) (portsrepo.RepositoryProvider, error) {
	if cfg.StorageDriver == config.StorageMemory {
		logger.Warn("Using in-memory storage, data will not persist")
		return memory.NewRepositoryProvider(memory.NewStore()), nil
	}

	if err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir, logger); err != nil {
		return portsrepo.RepositoryProvider{}, err
	}

	pool, err := database.NewPgxPool(context.Background(), cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		return portsrepo.RepositoryProvider{}, err
	}
	*cleanup = append(*cleanup, func() { database.ClosePgxPool(pool) })
	logger.Info("Database connection pool established")

	return pgsql.NewRepositoryProvider(pool), nil
}

// buildPriceOracle chains Alpha Vantage (when keyed) ahead of Yahoo, rate
// limits the chain and optionally fronts it with a Redis quote cache.
func buildPriceOracle(cfg *config.Config, logger *slog.Logger, cleanup *[]func()) (portssvc.PriceOracle, error) {
	var feeds []portssvc.PriceOracle
	if cfg.AlphaVantageAPIKey != "" {
		feeds = append(feeds, pricefeed.NewAlphaVantageOracle(cfg.AlphaVantageURL, cfg.AlphaVantageAPIKey, 0))
	} else {
		logger.Warn("ALPHA_VANTAGE_API_KEY not set, using Yahoo Finance only")
	}
	feeds = append(feeds, pricefeed.NewYahooOracle(cfg.YahooBaseURL, 0))

	var oracle portssvc.PriceOracle = pricefeed.NewChainOracle(feeds...)
	limited, err := pricefeed.NewRateLimitedOracle(oracle, cfg.PriceRateLimit)
	if err != nil {
		return nil, err
	}
	oracle = limited

	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		rdb := redis.NewClient(opt)
		*cleanup = append(*cleanup, func() { _ = rdb.Close() })
		oracle = pricefeed.NewCachedOracle(oracle, rdb, cfg.PriceCacheTTL)
		logger.Info("Redis quote cache enabled", slog.Duration("ttl", cfg.PriceCacheTTL))
	}
	return oracle, nil
}

func startScheduler(cfg *config.Config, logger *slog.Logger, container *portssvc.ServiceContainer) (*scheduler.Scheduler, error) {
	s := scheduler.New(logger, 30*time.Minute)
	if err := s.AddJob(cfg.SyncSchedule, scheduler.SyncJob(container.Sync)); err != nil {
		return nil, err
	}
	if err := s.AddJob(cfg.PriceRefreshSchedule, scheduler.PriceRefreshJob(container.Position, cfg.PriceMaxAge)); err != nil {
		return nil, err
	}
	s.Start()
	return s, nil
}
