package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ForecastPull/internal/domain/repository"
	"ForecastPull/internal/usecase"
	pkgcache "ForecastPull/pkg/cache"
	pkgch "ForecastPull/pkg/clickhouse"
	"ForecastPull/pkg/config"
	xhttp "ForecastPull/pkg/http"
	pkgkafka "ForecastPull/pkg/kafka"
	applogger "ForecastPull/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg       *config.Config
	log       *applogger.Logger
	applier   *usecase.ResolutionApplier
	poller    *usecase.ResolutionPoller
	publisher repository.NotificationPublisher
	consumer  *pkgkafka.Consumer
	kh        pkgkafka.MessageHandler
	boards    *usecase.LeaderboardService

	chClient   *pkgch.Client
	redisCache *pkgcache.RedisCache

	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	applier *usecase.ResolutionApplier,
	poller *usecase.ResolutionPoller,
	publisher repository.NotificationPublisher,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	boards *usecase.LeaderboardService,
	chClient *pkgch.Client,
	redisCache *pkgcache.RedisCache,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		applier:    applier,
		poller:     poller,
		publisher:  publisher,
		consumer:   consumer,
		kh:         kh,
		boards:     boards,
		chClient:   chClient,
		redisCache: redisCache,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.log
	if l == nil {
		l, _ = applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
	}

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Finish scoring for events that resolved before a previous shutdown.
	if err := a.applier.Recover(ctx); err != nil {
		l.Warn("startup recovery error", applogger.Error(err))
	}

	// Direct backend: the publisher is an in-process pipeline with its own
	// retry loop. Kafka publishers have nothing to start.
	if s, ok := a.publisher.(interface{ Start(context.Context) }); ok {
		s.Start(ctx)
		l.Info("resolution pipeline started")
	}

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start the authority poller (logs its own effective settings)
	go a.poller.Run(ctx)

	// Periodic leaderboard rebuilds keep cached boards warm between reads.
	if a.boards != nil && a.cfg.Leaderboard.RefreshInterval > 0 {
		go a.refreshLeaderboards(ctx, a.cfg.Leaderboard.RefreshInterval, l)
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	cancel()
	return a.shutdown(l)
}

func (a *App) refreshLeaderboards(ctx context.Context, interval time.Duration, l *applogger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.boards.RefreshAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.boards.RefreshAll(ctx)
			l.Debug("leaderboards refreshed")
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown(l *applogger.Logger) error {
	l.Info("shutting down...")

	// Shutdown HTTP server first so no new work arrives.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	// Stop consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Close the publisher (flushes the direct pipeline buffer or the
	// Kafka producer batches).
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			l.Warn("publisher close error", applogger.Error(err))
		}
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.redisCache != nil {
		if err := a.redisCache.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
