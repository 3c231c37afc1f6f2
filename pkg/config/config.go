package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"AgentTrader/internal/domain/models"
	"AgentTrader/pkg/util"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" default:"10" validate:"gte=0"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" default:"20" validate:"gte=0"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

type LogConfig struct {
	Level     string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format    string `yaml:"format" default:"console" validate:"oneof=console json"`
	Output    string `yaml:"output" default:"stdout"`
	Collector struct {
		Enabled   bool          `yaml:"enabled"`
		Topic     string        `yaml:"topic" default:"agenttrader.logs"`
		Interval  time.Duration `yaml:"interval" default:"30s"`
		Threshold int           `yaml:"threshold" default:"50" validate:"gte=1"`
	} `yaml:"collector"`
}

type AssetConfig struct {
	Symbol     string   `yaml:"symbol" default:"ETHUSDT" validate:"required"`
	Timeframes []string `yaml:"timeframes" default:"[\"1m\",\"5m\",\"15m\",\"1h\",\"4h\",\"1d\"]" validate:"min=1,dive,oneof=1m 5m 15m 1h 4h 1d"`
}

type CandlesConfig struct {
	Source    string `yaml:"source" default:"binance" validate:"oneof=binance kafka"`
	Backfill  int    `yaml:"backfill" default:"500" validate:"gte=1,lte=1000"`
	SeriesCap int    `yaml:"series_cap" default:"600" validate:"gte=50"`
	MaxRPS    int    `yaml:"max_rps" default:"4" validate:"gte=0"`
	Topic     string `yaml:"topic" default:"market.klines"`
}

type BinanceConfig struct {
	RestURL        string        `yaml:"rest_url" default:"https://api.binance.com" validate:"url"`
	StreamURL      string        `yaml:"stream_url" default:"wss://stream.binance.com:9443/stream" validate:"url"`
	Timeout        time.Duration `yaml:"timeout" default:"10s"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"3s"`
	PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
}

type MacroConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval" default:"10m" validate:"gte=1000000000"`
	Timeout         time.Duration `yaml:"timeout" default:"20s"`
}

type CoinGeckoConfig struct {
	BaseURL         string  `yaml:"base_url" default:"https://api.coingecko.com/api/v3" validate:"url"`
	APIKey          string  `yaml:"api_key"`
	PrimaryID       string  `yaml:"primary_id" default:"ethereum" validate:"required"`
	ReferenceID     string  `yaml:"reference_id" default:"bitcoin" validate:"required"`
	DominanceSymbol string  `yaml:"dominance_symbol" default:"btc" validate:"required"`
	Days            int     `yaml:"days" default:"30" validate:"gte=2"`
	Interval        string  `yaml:"interval" default:"hourly"`
	RateLimit       float64 `yaml:"rate_limit" default:"0.5" validate:"gte=0"`
}

type SignalConfig struct {
	Overbought        float64 `yaml:"overbought" default:"70" validate:"gt=0,lt=100"`
	Oversold          float64 `yaml:"oversold" default:"30" validate:"gt=0,lt=100"`
	MinComposite      float64 `yaml:"min_composite" default:"0.15" validate:"gte=0"`
	ZoneProximity     float64 `yaml:"zone_proximity" default:"0.02" validate:"gt=0"`
	VolatilityCeiling float64 `yaml:"volatility_ceiling" default:"120" validate:"gt=0"`
	VolatilityDampen  float64 `yaml:"volatility_dampen" default:"0.5" validate:"gte=0,lte=1"`
	MaxReasons        int     `yaml:"max_reasons" default:"3" validate:"gte=1"`
	RSIPeriod         int     `yaml:"rsi_period" default:"14" validate:"gte=2"`
	RSISmoothing      string  `yaml:"rsi_smoothing" default:"ema" validate:"oneof=ema sma"`
	PivotWindow       int     `yaml:"pivot_window" default:"3" validate:"gte=1"`
	ZoneTolerance     float64 `yaml:"zone_tolerance" default:"0.003" validate:"gt=0"`
	MaxZones          int     `yaml:"max_zones" default:"5" validate:"gte=1"`
	HistoryCap        int     `yaml:"history_cap" default:"200" validate:"gte=20"`
}

type LearningConfig struct {
	Enabled          bool          `yaml:"enabled" default:"true"`
	Interval         time.Duration `yaml:"interval" default:"1m"`
	Window           int           `yaml:"window" default:"20" validate:"gte=1"`
	Horizon          int           `yaml:"horizon" default:"5" validate:"gte=1"`
	LearningRate     float64       `yaml:"learning_rate" default:"0.05" validate:"gt=0,lte=1"`
	ScaleByOutcome   bool          `yaml:"scale_by_outcome" default:"true"`
	OutcomeScale     float64       `yaml:"outcome_scale" default:"50" validate:"gt=0"`
	MaxWeight        float64       `yaml:"max_weight" default:"3" validate:"gt=0"`
	DominantFeatures int           `yaml:"dominant_features" default:"2" validate:"gte=1"`
	LockTTL          time.Duration `yaml:"lock_ttl" default:"30s"`
}

type AlertsConfig struct {
	Enabled       bool    `yaml:"enabled"`
	MinConfidence float64 `yaml:"min_confidence" default:"0.6" validate:"gt=0,lte=1"`
	Topic         string  `yaml:"topic" default:"signals.alerts"`
}

type RedisConfig struct {
	Enabled     bool          `yaml:"enabled" default:"true"`
	Addr        string        `yaml:"addr" default:"localhost:6379"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	PoolSize    int           `yaml:"pool_size" default:"10"`
	DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
	Prefix      string        `yaml:"prefix" default:"agenttrader"`
}

type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	SignalTopic  string        `yaml:"signal_topic" default:"signals.feed"`
	RequiredAcks int           `yaml:"required_acks" default:"1"`
	Compression  string        `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
	MaxAttempts  int           `yaml:"max_attempts" default:"5"`
	BatchSize    int           `yaml:"batch_size" default:"100"`
	BatchTimeout time.Duration `yaml:"batch_timeout" default:"50ms"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	Async        bool          `yaml:"async"`
	Consumer     struct {
		GroupID    string        `yaml:"group_id" default:"agenttrader"`
		Workers    int           `yaml:"workers" default:"2"`
		BufferSize int           `yaml:"buffer_size" default:"256"`
		RetryMax   int           `yaml:"retry_max" default:"3"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
		DLQTopic   string        `yaml:"dlq_topic"`
	} `yaml:"consumer"`
}

type ClickHouseConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"agenttrader"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
}

type Config struct {
	Environment string           `yaml:"environment" default:"development" validate:"oneof=development staging production test"`
	Server      ServerConfig     `yaml:"server"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Log         LogConfig        `yaml:"log"`
	Asset       AssetConfig      `yaml:"asset"`
	Candles     CandlesConfig    `yaml:"candles"`
	Binance     BinanceConfig    `yaml:"binance"`
	Macro       MacroConfig      `yaml:"macro"`
	CoinGecko   CoinGeckoConfig  `yaml:"coingecko"`
	Signal      SignalConfig     `yaml:"signal"`
	Learning    LearningConfig   `yaml:"learning"`
	Alerts      AlertsConfig     `yaml:"alerts"`
	Redis       RedisConfig      `yaml:"redis"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
}

var validate = validator.New()

// Default returns a config holding only defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Parse applies defaults first and then the YAML document, so explicit
// false/zero values in the file are kept.
func Parse(b []byte) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

// Load reads and parses a YAML configuration file. An empty path yields defaults.
func Load(path string) (*Config, error) {
	var (
		c   *Config
		err error
	)
	if path == "" {
		c, err = Default()
	} else {
		var b []byte
		b, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		c, err = Parse(b)
	}
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides selected fields from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("SYMBOL"); v != "" {
		c.Asset.Symbol = v
	}
	if v := getenv("TIMEFRAMES"); v != "" {
		c.Asset.Timeframes = util.SplitList(v)
	}
	if v := getenv("CANDLES_SOURCE"); v != "" {
		c.Candles.Source = v
	}
	if v := getenv("SERVER_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
		c.Kafka.Enabled = true
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := getenv("COINGECKO_API_KEY"); v != "" {
		c.CoinGecko.APIKey = v
	}
	if v := getenv("ALERTS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Alerts.Enabled = b
		}
	}
}

// Validate checks struct tags and the rules that span fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Signal.Oversold >= c.Signal.Overbought {
		return fmt.Errorf("signal.oversold (%v) must be below signal.overbought (%v)", c.Signal.Oversold, c.Signal.Overbought)
	}
	if _, err := models.ParseTimeframes(c.Asset.Timeframes); err != nil {
		return fmt.Errorf("asset.timeframes: %w", err)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Candles.Source == "kafka" && !c.Kafka.Enabled {
		return errors.New("candles.source kafka requires kafka.enabled")
	}
	return nil
}

// Timeframes returns the configured timeframes in canonical order.
func (c *Config) Timeframes() []models.Timeframe {
	tfs, err := models.ParseTimeframes(c.Asset.Timeframes)
	if err != nil || len(tfs) == 0 {
		return models.AllTimeframes
	}
	return tfs
}
