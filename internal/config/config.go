// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Exchange adapter kinds.
const (
	KindBinance   = "binance"
	KindSimulated = "simulated"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig        `mapstructure:"app"`
	Arbitrage ArbitrageConfig  `mapstructure:"arbitrage"`
	Exchanges []ExchangeConfig `mapstructure:"exchanges"`
	Redis     RedisConfig      `mapstructure:"redis"`
	Postgres  PostgresConfig   `mapstructure:"postgres"`
	Telemetry TelemetryConfig  `mapstructure:"telemetry"`
	Health    HealthConfig     `mapstructure:"health"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// ArbitrageConfig holds the sequence engine settings.
type ArbitrageConfig struct {
	MaxExtensions       int           `mapstructure:"max_extensions"`
	GeneratorWorkers    int           `mapstructure:"generator_workers"` // 0 = NumCPU+1
	AnalyzerWorkers     int           `mapstructure:"analyzer_workers"`  // 0 = NumCPU
	MaxSearchIterations int           `mapstructure:"max_search_iterations"`
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	PollJitter          time.Duration `mapstructure:"poll_jitter"`
	FetchTimeout        time.Duration `mapstructure:"fetch_timeout"`
	FetchConcurrency    int           `mapstructure:"fetch_concurrency"`
	PairRefreshInterval time.Duration `mapstructure:"pair_refresh_interval"`
	StopTimeout         time.Duration `mapstructure:"stop_timeout"`
	SafetyPercent       float64       `mapstructure:"safety_percent"`
	TopCycles           int           `mapstructure:"top_cycles"`
	TUIMode             bool          `mapstructure:"-"` // Set at runtime, not from config file
}

// SafetyPercentDecimal returns the safety percentage as decimal.Decimal.
func (c *ArbitrageConfig) SafetyPercentDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.SafetyPercent)
}

// ExchangeConfig describes one exchange the engine polls.
type ExchangeConfig struct {
	Name             string             `mapstructure:"name"`
	Kind             string             `mapstructure:"kind"`
	Active           bool               `mapstructure:"active"`
	AutomaticTrading bool               `mapstructure:"automatic_trading"`
	FeeRate          float64            `mapstructure:"fee_rate"`
	Account          string             `mapstructure:"account"`
	TradeAmount      float64            `mapstructure:"trade_amount"`
	Balances         map[string]float64 `mapstructure:"balances"`
	Binance          BinanceConfig      `mapstructure:"binance"`
	Simulated        SimulatedConfig    `mapstructure:"simulated"`
}

// FeeRateDecimal returns the fee rate as decimal.Decimal.
func (c *ExchangeConfig) FeeRateDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.FeeRate)
}

// TradeAmountDecimal returns the automatic trading amount cap as decimal.Decimal.
func (c *ExchangeConfig) TradeAmountDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.TradeAmount)
}

// BalancesDecimal returns configured balances keyed by upper-case currency code.
func (c *ExchangeConfig) BalancesDecimal() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(c.Balances))
	for k, v := range c.Balances {
		out[strings.ToUpper(k)] = decimal.NewFromFloat(v)
	}
	return out
}

// BinanceConfig holds Binance API configuration.
type BinanceConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	WebSocketURL      string        `mapstructure:"websocket_url"` // wss://stream.binance.com:9443 or wss://stream.binance.us:9443 for US
	StreamDepth       bool          `mapstructure:"stream_depth"`
	Assets            []string      `mapstructure:"assets"`
	DepthLimit        int           `mapstructure:"depth_limit"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	StaleTimeout      time.Duration `mapstructure:"stale_timeout"`
}

// SimulatedConfig holds the static books of a simulated exchange.
type SimulatedConfig struct {
	Books      []BookConfig `mapstructure:"books"`
	Volatility float64      `mapstructure:"volatility"` // relative random walk per fetch, 0 = static
	Seed       int64        `mapstructure:"seed"`
}

// BookConfig seeds one simulated order book around a best bid and ask.
type BookConfig struct {
	Pair   string  `mapstructure:"pair"`
	Bid    float64 `mapstructure:"bid"`
	Ask    float64 `mapstructure:"ask"`
	Amount float64 `mapstructure:"amount"`
	Levels int     `mapstructure:"levels"`
	Step   float64 `mapstructure:"step"` // relative price distance between levels
}

// RedisConfig holds the opportunity publisher settings.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
	Stream   string `mapstructure:"stream"`
}

// PostgresConfig holds the opportunity store settings.
type PostgresConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Provider       string `mapstructure:"provider"` // zipkin, otlp-grpc, otlp-http, console
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// HealthConfig holds the health server settings.
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// Exchange returns the configuration of the named exchange.
func (c *Config) Exchange(name string) (ExchangeConfig, bool) {
	for _, ex := range c.Exchanges {
		if ex.Name == name {
			return ex, true
		}
	}
	return ExchangeConfig{}, false
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("ARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, defaults run the simulated exchange
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.ApplyBinanceDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")

	// Arbitrage
	v.BindEnv("arbitrage.max_extensions", "ARB_MAX_EXTENSIONS")
	v.BindEnv("arbitrage.poll_interval", "ARB_POLL_INTERVAL")
	v.BindEnv("arbitrage.safety_percent", "ARB_SAFETY_PERCENT")

	// Redis
	v.BindEnv("redis.enabled", "ARB_REDIS_ENABLED")
	v.BindEnv("redis.addr", "ARB_REDIS_ADDR", "REDIS_ADDR")
	v.BindEnv("redis.password", "ARB_REDIS_PASSWORD", "REDIS_PASSWORD")

	// Postgres
	v.BindEnv("postgres.enabled", "ARB_POSTGRES_ENABLED")
	v.BindEnv("postgres.dsn", "ARB_POSTGRES_DSN", "DATABASE_URL")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.provider", "ARB_OTEL_PROVIDER")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.otlp_headers", "ARB_OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "arbitrage-sequences")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Engine defaults
	v.SetDefault("arbitrage.max_extensions", 4)
	v.SetDefault("arbitrage.generator_workers", 0)
	v.SetDefault("arbitrage.analyzer_workers", 0)
	v.SetDefault("arbitrage.max_search_iterations", 1000)
	v.SetDefault("arbitrage.poll_interval", "5s")
	v.SetDefault("arbitrage.poll_jitter", "1s")
	v.SetDefault("arbitrage.fetch_timeout", "10s")
	v.SetDefault("arbitrage.fetch_concurrency", 8)
	v.SetDefault("arbitrage.pair_refresh_interval", "10m")
	v.SetDefault("arbitrage.stop_timeout", "15s")
	v.SetDefault("arbitrage.safety_percent", 1.0)
	v.SetDefault("arbitrage.top_cycles", 10)

	// A single simulated exchange with one profitable triangle
	v.SetDefault("exchanges", []map[string]any{
		{
			"name":              "sim",
			"kind":              KindSimulated,
			"active":            true,
			"automatic_trading": false,
			"fee_rate":          0.002,
			"account":           "demo",
			"trade_amount":      100,
			"balances":          map[string]any{"USD": 1000, "BTC": 1, "LTC": 100},
			"simulated": map[string]any{
				"volatility": 0.001,
				"seed":       1,
				"books": []map[string]any{
					{"pair": "BTC/USD", "bid": 99, "ask": 100, "amount": 1, "levels": 5, "step": 0.002},
					{"pair": "LTC/BTC", "bid": 0.0099, "ask": 0.01, "amount": 50, "levels": 5, "step": 0.002},
					{"pair": "LTC/USD", "bid": 1.05, "ask": 1.06, "amount": 50, "levels": 5, "step": 0.002},
				},
			},
		},
	})

	// Sinks
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.channel", "arbitrage:opportunities")
	v.SetDefault("redis.stream", "arbitrage:opportunities:log")
	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.max_conns", 4)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.provider", "otlp-grpc")
	v.SetDefault("telemetry.service_name", "arbitrage-sequences")
	v.SetDefault("telemetry.prometheus_port", 9090)

	v.SetDefault("health.port", 8080)
}

// ApplyBinanceDefaults fills unset per-exchange Binance fields.
func (c *Config) ApplyBinanceDefaults() {
	for i := range c.Exchanges {
		b := &c.Exchanges[i].Binance
		if b.BaseURL == "" {
			b.BaseURL = "https://api.binance.com"
		}
		if b.WebSocketURL == "" {
			b.WebSocketURL = "wss://stream.binance.com:9443"
		}
		if b.DepthLimit == 0 {
			b.DepthLimit = 20
		}
		if b.RequestsPerMinute == 0 {
			b.RequestsPerMinute = 1200
		}
		if b.StaleTimeout == 0 {
			b.StaleTimeout = 5 * time.Second
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Exchanges) == 0 {
		return fmt.Errorf("exchanges cannot be empty")
	}
	if c.Arbitrage.MaxExtensions < 0 {
		return fmt.Errorf("arbitrage.max_extensions must be >= 0")
	}
	if c.Arbitrage.MaxSearchIterations <= 0 {
		return fmt.Errorf("arbitrage.max_search_iterations must be > 0")
	}
	if c.Arbitrage.PollInterval <= 0 {
		return fmt.Errorf("arbitrage.poll_interval must be > 0")
	}
	if c.Arbitrage.SafetyPercent < 0 || c.Arbitrage.SafetyPercent >= 100 {
		return fmt.Errorf("arbitrage.safety_percent must be in [0, 100)")
	}

	seen := make(map[string]struct{}, len(c.Exchanges))
	for _, ex := range c.Exchanges {
		if ex.Name == "" {
			return fmt.Errorf("exchange name is required")
		}
		if _, dup := seen[ex.Name]; dup {
			return fmt.Errorf("duplicate exchange %q", ex.Name)
		}
		seen[ex.Name] = struct{}{}
		if ex.FeeRate < 0 || ex.FeeRate >= 1 {
			return fmt.Errorf("exchange %q: fee_rate must be in [0, 1)", ex.Name)
		}
		if ex.Kind == KindSimulated && len(ex.Simulated.Books) == 0 {
			return fmt.Errorf("exchange %q: simulated.books cannot be empty", ex.Name)
		}
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	if c.Postgres.Enabled && c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required when postgres is enabled")
	}
	return nil
}
