//go:build wireinject
// +build wireinject

package di

import (
	"AgentTrader/pkg/config"
	"AgentTrader/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideKafkaProducer,
		ProvideClickHouseClient,

		// Repositories
		ProvideSignalPublisher,
		ProvideSignalRecorder,
		ProvideWeightStore,
		ProvideOutcomeLedger,
		ProvideMacroSource,
		ProvideCandleSource,

		// Core state and services
		ProvideWeightState,
		ProvideCandleBook,
		ProvideSignalHistory,
		ProvideIndicators,
		ProvideSynthesizer,
		ProvideMacroService,
		ProvideAlerter,
		ProvideEngine,
		ProvideLearner,
		ProvideScheduler,

		// HTTP
		ProvideRateLimiter,
		ProvideHTTPHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
