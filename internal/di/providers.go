package di

import (
	"context"
	"fmt"
	"time"

	"ForecastPull/internal/domain/repository"
	"ForecastPull/internal/handler/api"
	mid "ForecastPull/internal/middleware"
	internalrepo "ForecastPull/internal/repository"
	"ForecastPull/internal/service/authority"
	"ForecastPull/internal/service/ratelimit"
	"ForecastPull/internal/usecase"
	pkgcache "ForecastPull/pkg/cache"
	pkgch "ForecastPull/pkg/clickhouse"
	"ForecastPull/pkg/config"
	pkgkafka "ForecastPull/pkg/kafka"
	applogger "ForecastPull/pkg/logger"
	"ForecastPull/pkg/metrics"
	"ForecastPull/pkg/server"
)

// ProvideLogger creates the application logger. Production environments log
// JSON, everything else gets the console writer.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "console"
	if cfg.Environment == "production" {
		format = "json"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideMemoryStore creates the in-memory event/forecast/forecaster store.
func ProvideMemoryStore() *internalrepo.MemoryStore {
	return internalrepo.NewMemoryStore()
}

// ProvideEventStore exposes the memory store as an EventStore.
func ProvideEventStore(s *internalrepo.MemoryStore) repository.EventStore { return s }

// ProvideForecastStore exposes the memory store as a ForecastStore.
func ProvideForecastStore(s *internalrepo.MemoryStore) repository.ForecastStore { return s }

// ProvideForecasterStore exposes the memory store as a ForecasterStore.
func ProvideForecasterStore(s *internalrepo.MemoryStore) repository.ForecasterStore { return s }

// ProvideClickHouseClient creates a ClickHouse client when the score archive
// is enabled; a nil client downgrades the archive to a no-op.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	table := cfg.ClickHouse.Table
	if table == "" {
		table = "score_history"
	}
	if err := client.InitSchema(ctx, internalrepo.ScoreHistorySchema(db, table)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideScoreArchive creates the ClickHouse score archive, or a no-op one
// when ClickHouse is disabled.
func ProvideScoreArchive(chClient *pkgch.Client, cfg *config.Config) repository.ScoreArchive {
	if chClient == nil {
		return internalrepo.NoopScoreArchive{}
	}
	table := cfg.ClickHouse.Table
	if table == "" {
		table = "score_history"
	}
	return internalrepo.NewClickHouseScoreArchive(chClient.DB(), cfg.ClickHouse.Database+"."+table)
}

// ProvideRedisCache connects to Redis when caching is enabled.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	opts := []pkgcache.RedisOption{
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	}
	if cfg.Redis.Prefix != "" {
		opts = append(opts, pkgcache.WithRedisPrefix(cfg.Redis.Prefix))
	}
	rc, err := pkgcache.NewRedisCache(opts...)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideSnapshotCache wraps Redis with snapshot key conventions. Snapshot
// reads go through a small in-process layer first since boards and
// reputations are read far more often than they change. Without Redis the
// services recompute on every read.
func ProvideSnapshotCache(rc *pkgcache.RedisCache, cfg *config.Config) *internalrepo.SnapshotCache {
	if rc == nil {
		return nil
	}
	layered := pkgcache.NewLayeredCache(rc, pkgcache.WithLayeredMemorySize(512))
	return internalrepo.NewSnapshotCache(layered, cfg.Leaderboard.CacheTTL)
}

// ProvideAuthority creates the resolution authority HTTP client.
func ProvideAuthority(cfg *config.Config) (repository.ResolutionAuthority, error) {
	opts := []authority.Option{}
	if cfg.Authority.Timeout > 0 {
		opts = append(opts, authority.WithTimeout(cfg.Authority.Timeout))
	}
	if cfg.Authority.RatePerSecond > 0 {
		opts = append(opts, authority.WithRateLimit(cfg.Authority.RatePerSecond, cfg.Authority.Burst))
	}
	return authority.NewClient(cfg.Authority.BaseURL, opts...)
}

// ProvideReputation creates the reputation service.
func ProvideReputation(
	forecasts repository.ForecastStore,
	forecasters repository.ForecasterStore,
	cache *internalrepo.SnapshotCache,
	cfg *config.Config,
) *usecase.ReputationService {
	return usecase.NewReputationService(forecasts, forecasters, cache, cfg.Consensus.Epsilon)
}

// ProvideSubmission creates the submission service.
func ProvideSubmission(
	events repository.EventStore,
	forecasts repository.ForecastStore,
	forecasters repository.ForecasterStore,
	m repository.Metrics,
) *usecase.SubmissionService {
	return usecase.NewSubmissionService(events, forecasts, forecasters, m)
}

// ProvideConsensus creates the consensus service.
func ProvideConsensus(
	events repository.EventStore,
	forecasts repository.ForecastStore,
	reputation *usecase.ReputationService,
	m repository.Metrics,
) *usecase.ConsensusService {
	return usecase.NewConsensusService(events, forecasts, reputation, m)
}

// ProvideCalibration creates the calibration service.
func ProvideCalibration(
	forecasts repository.ForecastStore,
	forecasters repository.ForecasterStore,
	cfg *config.Config,
) *usecase.CalibrationService {
	return usecase.NewCalibrationService(forecasts, forecasters, cfg.Calibration.Buckets)
}

// ProvideLeaderboard creates the leaderboard service.
func ProvideLeaderboard(
	forecasts repository.ForecastStore,
	forecasters repository.ForecasterStore,
	cache *internalrepo.SnapshotCache,
	cfg *config.Config,
	log *applogger.Logger,
) *usecase.LeaderboardService {
	return usecase.NewLeaderboardService(forecasts, forecasters, cache, cfg.Calibration.Buckets, log)
}

// ProvideApplier creates the resolution applier.
func ProvideApplier(
	events repository.EventStore,
	forecasts repository.ForecastStore,
	reputation *usecase.ReputationService,
	archive repository.ScoreArchive,
	m repository.Metrics,
	log *applogger.Logger,
) *usecase.ResolutionApplier {
	return usecase.NewResolutionApplier(events, forecasts, reputation, archive, m, log)
}

// ProvideNotificationPublisher selects the transport between poller and
// applier: Kafka when backend.type is "kafka", otherwise an in-process
// pipeline that applies resolutions directly.
func ProvideNotificationPublisher(
	cfg *config.Config,
	applier *usecase.ResolutionApplier,
	m repository.Metrics,
) (repository.NotificationPublisher, error) {
	if cfg.Backend.Type != "kafka" {
		opts := []mid.PipelineOption{}
		if cfg.Backend.BufferSize > 0 {
			opts = append(opts, mid.WithBufferSize(cfg.Backend.BufferSize))
		}
		return mid.NewResolutionPipeline(applier, m, opts...), nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaNotificationPublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideKafkaConsumer creates a Kafka consumer; nil when the backend is
// direct and notifications never leave the process.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideResolutionsHandler registers the handler for the resolutions topic.
func ProvideResolutionsHandler(applier *usecase.ResolutionApplier, m repository.Metrics, cfg *config.Config) *usecase.KafkaResolutionsHandler {
	return usecase.NewKafkaResolutionsHandler(cfg.Kafka.Topic, applier, m)
}

// ProvidePoller creates the resolution poller.
func ProvidePoller(
	events repository.EventStore,
	auth repository.ResolutionAuthority,
	publisher repository.NotificationPublisher,
	lease *internalrepo.SnapshotCache,
	m repository.Metrics,
	log *applogger.Logger,
	cfg *config.Config,
) *usecase.ResolutionPoller {
	return usecase.NewResolutionPoller(events, auth, publisher, lease, m, log, usecase.PollerConfig{
		Interval:     cfg.Resolution.PollInterval,
		Concurrency:  cfg.Resolution.Concurrency,
		QueryTimeout: cfg.Resolution.QueryTimeout,
		CycleBudget:  cfg.Resolution.CycleBudget,
		LeaseTTL:     cfg.Resolution.LeaseTTL,
	})
}

// ProvideRateLimiter creates the per-forecaster submission limiter.
func ProvideRateLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideHandler creates the HTTP handler for the engine API.
func ProvideHandler(
	log *applogger.Logger,
	submission *usecase.SubmissionService,
	consensus *usecase.ConsensusService,
	reputation *usecase.ReputationService,
	calib *usecase.CalibrationService,
	boards *usecase.LeaderboardService,
	archive repository.ScoreArchive,
	limiter *ratelimit.Limiter,
) *api.EngineEchoHandler {
	return api.NewEngineEchoHandler(log, submission, consensus, reputation, calib, boards, archive, limiter)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	applier *usecase.ResolutionApplier,
	poller *usecase.ResolutionPoller,
	publisher repository.NotificationPublisher,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaResolutionsHandler,
	boards *usecase.LeaderboardService,
	chClient *pkgch.Client,
	redisCache *pkgcache.RedisCache,
	handler *api.EngineEchoHandler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	app := server.New(cfg, log, applier, poller, publisher, consumer, kh, boards, chClient, redisCache)
	app.SetHTTPHandler(handler)
	return app
}
