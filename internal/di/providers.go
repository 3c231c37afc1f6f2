package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"AgentTrader/internal/domain/repository"
	"AgentTrader/internal/handler/api"
	mid "AgentTrader/internal/middleware"
	internalrepo "AgentTrader/internal/repository"
	"AgentTrader/internal/scheduler"
	"AgentTrader/internal/service/binance"
	"AgentTrader/internal/service/coingecko"
	"AgentTrader/internal/service/ratelimit"
	"AgentTrader/internal/services/indicators"
	"AgentTrader/internal/services/learning"
	"AgentTrader/internal/services/signals"
	"AgentTrader/internal/usecase"
	"AgentTrader/pkg/cache"
	pkgch "AgentTrader/pkg/clickhouse"
	"AgentTrader/pkg/config"
	xhttp "AgentTrader/pkg/http"
	pkgkafka "AgentTrader/pkg/kafka"
	"AgentTrader/pkg/logger"
	"AgentTrader/pkg/metrics"
	"AgentTrader/pkg/server"
)

// ProvideLogger creates the process logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("symbol", cfg.Asset.Symbol)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry.
func ProvideMetrics() repository.Metrics {
	return metrics.New(nil)
}

// ProvideCache connects to Redis. When Redis is disabled or unreachable the
// process keeps running on an in-memory cache and learned weights live only
// until exit.
func ProvideCache(cfg *config.Config, log *logger.Logger) (cache.Service, func()) {
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisCache(
			cache.WithRedisServer(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB),
			cache.WithRedisPool(cfg.Redis.PoolSize, 2),
			cache.WithRedisDialTimeout(cfg.Redis.DialTimeout),
			cache.WithRedisPrefix(cfg.Redis.Prefix),
		)
		if err == nil {
			return rc, func() { _ = rc.Close() }
		}
		log.Warn("redis unavailable, using in-memory store", logger.Error(err))
	}
	mc := cache.NewMemoryCache()
	return mc, func() { _ = mc.Close() }
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithClientID("agenttrader-"+cfg.Asset.Symbol),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.BatchSize, cfg.Kafka.BatchTimeout),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideSignalPublisher publishes signals and alerts to Kafka when available.
func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.SignalPublisher {
	if producer == nil {
		return internalrepo.NopSignalPublisher{}
	}
	alertTopic := ""
	if cfg.Alerts.Enabled {
		alertTopic = cfg.Alerts.Topic
	}
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Asset.Symbol, cfg.Kafka.SignalTopic, alertTopic)
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithServer(cfg.ClickHouse.Host, cfg.ClickHouse.Port, cfg.ClickHouse.UseHTTP),
		pkgch.WithAuth(cfg.ClickHouse.Database, cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithPool(10, 5),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithLimits(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideSignalRecorder creates the audit recorder and its tables.
func ProvideSignalRecorder(ch *pkgch.Client, cfg *config.Config, log *logger.Logger) (repository.SignalRecorder, error) {
	if ch == nil {
		return internalrepo.NopRecorder{}, nil
	}
	rec := internalrepo.NewCHSignalRecorder(ch, cfg.Asset.Symbol)
	rec.SetLogger(log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rec.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return rec, nil
}

func ProvideWeightStore(c cache.Service, cfg *config.Config) repository.WeightStore {
	return internalrepo.NewCacheWeightStore(c, cfg.Asset.Symbol)
}

func ProvideOutcomeLedger(c cache.Service, cfg *config.Config) repository.OutcomeLedger {
	return internalrepo.NewCacheLedger(c, cfg.Asset.Symbol)
}

// ProvideWeightState loads the persisted weights, falling back to defaults.
func ProvideWeightState(store repository.WeightStore, log *logger.Logger) *learning.WeightState {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	w, err := store.Load(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		log.Info("no saved weights, starting from defaults")
	case err != nil:
		log.Warn("weight load failed, starting from defaults", logger.Error(err))
	default:
		log.Info("weights restored", logger.Any("weights", w))
	}
	return learning.NewWeightState(w)
}

func ProvideCandleBook(cfg *config.Config) *usecase.CandleBook {
	return usecase.NewCandleBook(cfg.Candles.SeriesCap)
}

func ProvideSignalHistory(cfg *config.Config) *usecase.SignalHistory {
	return usecase.NewSignalHistory(cfg.Signal.HistoryCap)
}

func ProvideIndicators(cfg *config.Config) *indicators.Provider {
	return indicators.NewProvider(indicators.Config{
		RSIPeriod:     cfg.Signal.RSIPeriod,
		Smoothing:     indicators.Smoothing(cfg.Signal.RSISmoothing),
		PivotWindow:   cfg.Signal.PivotWindow,
		ZoneTolerance: cfg.Signal.ZoneTolerance,
		MaxZones:      cfg.Signal.MaxZones,
	})
}

func ProvideSynthesizer(cfg *config.Config) *signals.Synthesizer {
	return signals.NewSynthesizer(signals.Config{
		Overbought:        cfg.Signal.Overbought,
		Oversold:          cfg.Signal.Oversold,
		MinComposite:      cfg.Signal.MinComposite,
		ZoneProximity:     cfg.Signal.ZoneProximity,
		VolatilityCeiling: cfg.Signal.VolatilityCeiling,
		VolatilityDampen:  cfg.Signal.VolatilityDampen,
		MaxReasons:        cfg.Signal.MaxReasons,
	})
}

// ProvideMacroSource creates the CoinGecko client.
func ProvideMacroSource(cfg *config.Config) repository.MacroSource {
	return coingecko.New(coingecko.Config{
		BaseURL:         cfg.CoinGecko.BaseURL,
		APIKey:          cfg.CoinGecko.APIKey,
		PrimaryID:       cfg.CoinGecko.PrimaryID,
		ReferenceID:     cfg.CoinGecko.ReferenceID,
		DominanceSymbol: cfg.CoinGecko.DominanceSymbol,
		Days:            cfg.CoinGecko.Days,
		Interval:        cfg.CoinGecko.Interval,
		Timeout:         cfg.Macro.Timeout,
		RateLimit:       cfg.CoinGecko.RateLimit,
	})
}

func ProvideMacroService(
	src repository.MacroSource,
	rec repository.SignalRecorder,
	m repository.Metrics,
	cfg *config.Config,
	log *logger.Logger,
) *usecase.MacroService {
	return usecase.NewMacroService(src, rec, m, log.With(logger.String("component", "macro")),
		usecase.WithMacroTimeout(cfg.Macro.Timeout))
}

func ProvideAlerter(cfg *config.Config, pub repository.SignalPublisher, m repository.Metrics, log *logger.Logger) *usecase.Alerter {
	return usecase.NewAlerter(usecase.NewAlertConfig(cfg.Alerts.Enabled, cfg.Alerts.MinConfidence), pub, m, log)
}

func ProvideEngine(
	cfg *config.Config,
	book *usecase.CandleBook,
	ind *indicators.Provider,
	synth *signals.Synthesizer,
	macro *usecase.MacroService,
	weights *learning.WeightState,
	history *usecase.SignalHistory,
	alerter *usecase.Alerter,
	pub repository.SignalPublisher,
	rec repository.SignalRecorder,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.Engine {
	return usecase.NewEngine(usecase.EngineDeps{
		Timeframes: cfg.Timeframes(),
		Book:       book,
		Indicators: ind,
		Synth:      synth,
		Macro:      macro,
		Weights:    weights,
		History:    history,
		Alerter:    alerter,
		Publisher:  pub,
		Recorder:   rec,
		Metrics:    m,
		Log:        log.With(logger.String("component", "engine")),
	})
}

func ProvideLearner(
	cfg *config.Config,
	history *usecase.SignalHistory,
	book *usecase.CandleBook,
	ledger repository.OutcomeLedger,
	store repository.WeightStore,
	state *learning.WeightState,
	rec repository.SignalRecorder,
	m repository.Metrics,
	log *logger.Logger,
) *learning.Learner {
	adapter := learning.NewAdapter(learning.AdapterConfig{
		LearningRate:     cfg.Learning.LearningRate,
		ScaleByOutcome:   cfg.Learning.ScaleByOutcome,
		OutcomeScale:     cfg.Learning.OutcomeScale,
		MaxWeight:        cfg.Learning.MaxWeight,
		DominantFeatures: cfg.Learning.DominantFeatures,
	})
	return learning.NewLearner(
		learning.LearnerConfig{Window: cfg.Learning.Window, Horizon: cfg.Learning.Horizon, LockTTL: cfg.Learning.LockTTL},
		history, book, ledger, store, state, adapter,
		learning.NewToggle(cfg.Learning.Enabled),
		rec, m,
		log.With(logger.String("component", "learner")),
	)
}

// ProvideCandleSource builds the live candle feed. Binance always serves
// backfill; the stream comes from Binance or from the kline topic.
func ProvideCandleSource(cfg *config.Config, m repository.Metrics, log *logger.Logger) (repository.CandleSource, error) {
	bn := binance.New(binance.Config{
		RestURL:        cfg.Binance.RestURL,
		StreamURL:      cfg.Binance.StreamURL,
		Symbol:         cfg.Asset.Symbol,
		Timeout:        cfg.Binance.Timeout,
		ReconnectDelay: cfg.Binance.ReconnectDelay,
		PingInterval:   cfg.Binance.PingInterval,
	}, log.With(logger.String("component", "binance")))

	var src repository.CandleSource = bn
	if cfg.Candles.Source == "kafka" {
		consumer, err := pkgkafka.NewConsumer(log.With(logger.String("component", "kafka_consumer")),
			pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
			pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
			pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
			pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
			pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka consumer: %w", err)
		}
		src = usecase.NewKafkaCandleSource(bn, consumer, cfg.Candles.Topic, cfg.Asset.Symbol, m)
	}

	pipe := mid.NewRealtimePipeline(nil, m, mid.WithMaxRPS(cfg.Candles.MaxRPS))
	return pipe.Source(src), nil
}

func ProvideScheduler(macro *usecase.MacroService, learner *learning.Learner, engine *usecase.Engine, log *logger.Logger) *scheduler.Scheduler {
	return scheduler.New(macro, learner, engine, log.With(logger.String("component", "scheduler")))
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
}

// ProvideHTTPHandler wires the query API onto the live state.
func ProvideHTTPHandler(
	cfg *config.Config,
	macro *usecase.MacroService,
	history *usecase.SignalHistory,
	learner *learning.Learner,
	state *learning.WeightState,
	book *usecase.CandleBook,
	log *logger.Logger,
) xhttp.Handler {
	return api.NewHandler(api.Deps{
		Symbol:   cfg.Asset.Symbol,
		Macro:    macro,
		Signals:  history,
		Outcomes: learner,
		Weights:  state,
		Candles:  usecase.NewCandlesUseCase(book),
		Log:      log.With(logger.String("component", "api")),
	})
}

func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, limiter *ratelimit.Limiter, log *logger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	}
	if cfg.Server.RateLimitRPS > 0 {
		opts = append(opts, xhttp.WithMiddleware(limiter.Middleware()))
	}
	return xhttp.NewServer(h, log.With(logger.String("component", "http")), opts...)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	engine *usecase.Engine,
	src repository.CandleSource,
	macro *usecase.MacroService,
	sched *scheduler.Scheduler,
	state *learning.WeightState,
	store repository.WeightStore,
	limiter *ratelimit.Limiter,
	httpServer *xhttp.Server,
	producer *pkgkafka.Producer,
	rec repository.SignalRecorder,
) *server.App {
	var logPublisher logger.Publisher
	if producer != nil {
		logPublisher = producer
	}
	return server.New(server.Deps{
		Config:       cfg,
		Log:          log,
		Engine:       engine,
		Source:       src,
		Macro:        macro,
		Scheduler:    sched,
		Weights:      state,
		WeightStore:  store,
		Limiter:      limiter,
		HTTP:         httpServer,
		LogPublisher: logPublisher,
		Recorder:     rec,
	})
}
