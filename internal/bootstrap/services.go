package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/clanhall/gatekeeper/config"
	"github.com/clanhall/gatekeeper/internal/observability/metrics"
	"github.com/clanhall/gatekeeper/internal/service"
)

// ServiceContainer holds the application services and their observability.
type ServiceContainer struct {
	Identity       *service.IdentityResolver
	Metrics        *metrics.Collector
	MetricsHandler http.Handler
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewServices builds the metrics registry and the identity resolver.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps missing AppConfig")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	identity, err := BuildIdentityResolver(IdentityConfig{
		Auth:        deps.Config.Auth,
		DB:          deps.DB,
		RedisClient: deps.RedisClient,
		KeyPrefix:   deps.Config.Redis.KeyPrefix,
		Metrics:     collector,
		Logger:      deps.Logger,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	return ServiceContainer{
		Identity:       identity,
		Metrics:        collector,
		MetricsHandler: metrics.Handler(reg),
	}, nil
}

// ServiceOrchestrationConfig contains everything needed to run the service until shutdown.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// RunServicesWithShutdown starts the HTTP server and blocks until a shutdown
// signal is received or the server fails.
func RunServicesWithShutdown(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	errCh := make(chan error, 1)
	server := StartHTTPServer(&HTTPServerConfig{
		Config:         cfg.Config,
		Identity:       cfg.Services.Identity,
		DB:             cfg.DB,
		RedisClient:    cfg.RedisClient,
		MetricsHandler: cfg.Services.MetricsHandler,
		Logger:         logger,
	}, errCh)

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return waitForShutdown(shutdownWait{
		signals: sigCtx.Done(),
		errCh:   errCh,
		server:  server,
		timeout: cfg.Config.HTTP.ShutdownTimeout,
		logger:  logger,
	})
}

type shutdownWait struct {
	signals <-chan struct{}
	errCh   <-chan error
	server  *http.Server
	timeout time.Duration
	logger  *slog.Logger
}

// waitForShutdown waits for a shutdown signal or a server error, then stops the server.
func waitForShutdown(w shutdownWait) error {
	var runErr error
	select {
	case <-w.signals:
		w.logger.Info("shutting down services...")
	case runErr = <-w.errCh:
		w.logger.Error("service error", "error", runErr)
	}

	if err := ShutdownHTTPServer(ShutdownConfig{
		Context: context.Background(),
		Server:  w.server,
		Timeout: w.timeout,
		Logger:  w.logger,
	}); err != nil {
		if runErr != nil {
			return errors.Join(runErr, fmt.Errorf("graceful stop: %w", err))
		}
		return fmt.Errorf("graceful stop: %w", err)
	}
	return runErr
}
