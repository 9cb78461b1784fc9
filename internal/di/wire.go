//go:build wireinject
// +build wireinject

package di

import (
	"ForecastPull/pkg/config"
	"ForecastPull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Stores
		ProvideMemoryStore,
		ProvideEventStore,
		ProvideForecastStore,
		ProvideForecasterStore,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideScoreArchive,
		ProvideRedisCache,
		ProvideSnapshotCache,
		ProvideAuthority,

		// Use cases
		ProvideReputation,
		ProvideSubmission,
		ProvideConsensus,
		ProvideCalibration,
		ProvideLeaderboard,
		ProvideApplier,

		// Resolution transport
		ProvideNotificationPublisher,
		ProvideKafkaConsumer,
		ProvideResolutionsHandler,
		ProvidePoller,

		// HTTP
		ProvideRateLimiter,
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
