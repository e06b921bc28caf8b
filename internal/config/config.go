// Package config defines the command-line flags, their environment variable
// fallbacks and the resulting runtime configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// Sink names accepted by --sink.
const (
	SinkNone       = "none"
	SinkMemory     = "memory"
	SinkPostgres   = "postgres"
	SinkClickhouse = "clickhouse"
	SinkRedis      = "redis"
	SinkKafka      = "kafka"
)

var sinks = []string{SinkNone, SinkMemory, SinkPostgres, SinkClickhouse, SinkRedis, SinkKafka}

// Flag names.
const (
	FlagLogLevel        = "log-level"
	FlagHTTPAddr        = "http-addr"
	FlagJupiterURL      = "jupiter-url"
	FlagPumpFunURL      = "pumpfun-url"
	FlagPumpPortalWSURL = "pumpportal-ws-url"
	FlagHeliusURL       = "helius-url"
	FlagHeliusAPIKey    = "helius-api-key"
	FlagHeliusPageLimit = "helius-page-limit"
	FlagHeliusMaxPages  = "helius-max-pages"
	FlagSolanaRPCURL    = "solana-rpc-url"
	FlagKnownMints      = "known-mints"
	FlagFetchTimeout    = "fetch-timeout"
	FlagRefreshInterval = "refresh-interval"
	FlagReconnectDelay  = "reconnect-delay"
	FlagRateLimit       = "rate-limit"
	FlagDisableLive     = "disable-live"
	FlagSink            = "sink"
	FlagPostgresDSN     = "postgres-dsn"
	FlagClickhouseDSN   = "clickhouse-dsn"
	FlagRedisAddr       = "redis-addr"
	FlagRedisPassword   = "redis-password"
	FlagRedisDB         = "redis-db"
	FlagRedisStream     = "redis-stream"
	FlagRedisMaxLen     = "redis-maxlen"
	FlagKafkaBrokers    = "kafka-brokers"
	FlagKafkaTopic      = "kafka-topic"
)

// Config is the resolved runtime configuration.
type Config struct {
	LogLevel string
	HTTPAddr string

	JupiterURL      string
	PumpFunURL      string
	PumpPortalWSURL string
	HeliusURL       string
	HeliusAPIKey    string
	HeliusPageLimit int
	HeliusMaxPages  int
	SolanaRPCURL    string
	KnownMints      []string

	FetchTimeout    time.Duration
	RefreshInterval time.Duration
	ReconnectDelay  time.Duration
	RateLimit       float64 // requests per second per provider; 0 disables pacing
	DisableLive     bool

	Sink          string
	PostgresDSN   string
	ClickhouseDSN string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisStream   string
	RedisMaxLen   int64
	KafkaBrokers  string
	KafkaTopic    string
}

// Flags returns every flag understood by FromContext.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: FlagLogLevel, Value: "info", Usage: "log level (debug, info, warn, error)", EnvVars: []string{"LOG_LEVEL"}},
		&cli.StringFlag{Name: FlagHTTPAddr, Value: ":8080", Usage: "HTTP API listen address", EnvVars: []string{"HTTP_ADDR"}},

		&cli.StringFlag{Name: FlagJupiterURL, Usage: "Jupiter token API base URL", EnvVars: []string{"JUPITER_URL"}},
		&cli.StringFlag{Name: FlagPumpFunURL, Usage: "pump.fun frontend API base URL", EnvVars: []string{"PUMPFUN_URL"}},
		&cli.StringFlag{Name: FlagPumpPortalWSURL, Usage: "PumpPortal WebSocket URL", EnvVars: []string{"PUMPPORTAL_WS_URL"}},
		&cli.StringFlag{Name: FlagHeliusURL, Usage: "Helius RPC base URL", EnvVars: []string{"HELIUS_URL"}},
		&cli.StringFlag{Name: FlagHeliusAPIKey, Usage: "Helius API key; the adapter is skipped without one", EnvVars: []string{"HELIUS_API_KEY"}},
		&cli.IntFlag{Name: FlagHeliusPageLimit, Value: 1000, Usage: "Helius searchAssets page size", EnvVars: []string{"HELIUS_PAGE_LIMIT"}},
		&cli.IntFlag{Name: FlagHeliusMaxPages, Value: 5, Usage: "Helius searchAssets page cap", EnvVars: []string{"HELIUS_MAX_PAGES"}},
		&cli.StringFlag{Name: FlagSolanaRPCURL, Usage: "Solana JSON-RPC endpoint", EnvVars: []string{"SOLANA_RPC_URL"}},
		&cli.StringSliceFlag{Name: FlagKnownMints, Usage: "mints read directly from chain (default: built-in list)", EnvVars: []string{"KNOWN_MINTS"}},

		&cli.DurationFlag{Name: FlagFetchTimeout, Value: 30 * time.Second, Usage: "per-adapter fetch timeout", EnvVars: []string{"FETCH_TIMEOUT"}},
		&cli.DurationFlag{Name: FlagRefreshInterval, Value: time.Hour, Usage: "periodic refresh interval; 0 disables", EnvVars: []string{"REFRESH_INTERVAL"}},
		&cli.DurationFlag{Name: FlagReconnectDelay, Value: 30 * time.Second, Usage: "live feed reconnect delay", EnvVars: []string{"RECONNECT_DELAY"}},
		&cli.Float64Flag{Name: FlagRateLimit, Value: 0, Usage: "max requests per second per provider; 0 disables", EnvVars: []string{"RATE_LIMIT"}},
		&cli.BoolFlag{Name: FlagDisableLive, Usage: "do not open the live feed", EnvVars: []string{"DISABLE_LIVE"}},

		&cli.StringFlag{Name: FlagSink, Value: SinkMemory, Usage: "summary sink: " + strings.Join(sinks, ", "), EnvVars: []string{"SINK"}},
		&cli.StringFlag{Name: FlagPostgresDSN, Usage: "PostgreSQL connection string", EnvVars: []string{"POSTGRES_DSN"}},
		&cli.StringFlag{Name: FlagClickhouseDSN, Usage: "ClickHouse connection string", EnvVars: []string{"CLICKHOUSE_DSN"}},
		&cli.StringFlag{Name: FlagRedisAddr, Value: "localhost:6379", Usage: "Redis address", EnvVars: []string{"REDIS_ADDR"}},
		&cli.StringFlag{Name: FlagRedisPassword, Usage: "Redis password", EnvVars: []string{"REDIS_PASSWORD"}},
		&cli.IntFlag{Name: FlagRedisDB, Usage: "Redis database index", EnvVars: []string{"REDIS_DB"}},
		&cli.StringFlag{Name: FlagRedisStream, Value: "token_summaries", Usage: "Redis stream name", EnvVars: []string{"REDIS_STREAM"}},
		&cli.Int64Flag{Name: FlagRedisMaxLen, Value: 100_000, Usage: "approximate Redis stream cap; 0 leaves it uncapped", EnvVars: []string{"REDIS_MAXLEN"}},
		&cli.StringFlag{Name: FlagKafkaBrokers, Value: "localhost:9092", Usage: "Kafka bootstrap servers", EnvVars: []string{"KAFKA_BROKERS"}},
		&cli.StringFlag{Name: FlagKafkaTopic, Value: "token-summaries", Usage: "Kafka topic", EnvVars: []string{"KAFKA_TOPIC"}},
	}
}

// FromContext reads and validates the configuration from parsed flags.
func FromContext(c *cli.Context) (*Config, error) {
	cfg := &Config{
		LogLevel:        c.String(FlagLogLevel),
		HTTPAddr:        c.String(FlagHTTPAddr),
		JupiterURL:      c.String(FlagJupiterURL),
		PumpFunURL:      c.String(FlagPumpFunURL),
		PumpPortalWSURL: c.String(FlagPumpPortalWSURL),
		HeliusURL:       c.String(FlagHeliusURL),
		HeliusAPIKey:    c.String(FlagHeliusAPIKey),
		HeliusPageLimit: c.Int(FlagHeliusPageLimit),
		HeliusMaxPages:  c.Int(FlagHeliusMaxPages),
		SolanaRPCURL:    c.String(FlagSolanaRPCURL),
		KnownMints:      c.StringSlice(FlagKnownMints),
		FetchTimeout:    c.Duration(FlagFetchTimeout),
		RefreshInterval: c.Duration(FlagRefreshInterval),
		ReconnectDelay:  c.Duration(FlagReconnectDelay),
		RateLimit:       c.Float64(FlagRateLimit),
		DisableLive:     c.Bool(FlagDisableLive),
		Sink:            strings.ToLower(c.String(FlagSink)),
		PostgresDSN:     c.String(FlagPostgresDSN),
		ClickhouseDSN:   c.String(FlagClickhouseDSN),
		RedisAddr:       c.String(FlagRedisAddr),
		RedisPassword:   c.String(FlagRedisPassword),
		RedisDB:         c.Int(FlagRedisDB),
		RedisStream:     c.String(FlagRedisStream),
		RedisMaxLen:     c.Int64(FlagRedisMaxLen),
		KafkaBrokers:    c.String(FlagKafkaBrokers),
		KafkaTopic:      c.String(FlagKafkaTopic),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid %s: %w", FlagLogLevel, err)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("%s must be positive", FlagFetchTimeout)
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("%s must not be negative", FlagRefreshInterval)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%s must not be negative", FlagRateLimit)
	}

	switch c.Sink {
	case SinkNone, SinkMemory:
	case SinkPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("--%s is required for sink %q", FlagPostgresDSN, c.Sink)
		}
	case SinkClickhouse:
		if c.ClickhouseDSN == "" {
			return fmt.Errorf("--%s is required for sink %q", FlagClickhouseDSN, c.Sink)
		}
	case SinkRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("--%s is required for sink %q", FlagRedisAddr, c.Sink)
		}
	case SinkKafka:
		if c.KafkaBrokers == "" || c.KafkaTopic == "" {
			return fmt.Errorf("--%s and --%s are required for sink %q", FlagKafkaBrokers, FlagKafkaTopic, c.Sink)
		}
	default:
		return fmt.Errorf("unknown sink %q (want one of %s)", c.Sink, strings.Join(sinks, ", "))
	}
	return nil
}

// LoadDotEnv loads variables from the given files into the environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// NewLogger configures the logrus standard logger and returns it.
func NewLogger(level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger := logrus.StandardLogger()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetLevel(lvl)
	return logger, nil
}
