package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Network identifies which Solana cluster the indexer talks to.
type Network string

const (
	NetworkDevnet      Network = "devnet"
	NetworkMainnetBeta Network = "mainnet-beta"
)

// MaxSignatureLimit is the largest page getSignaturesForAddress accepts.
const MaxSignatureLimit = 1000

// ParseNetwork validates a network name.
func ParseNetwork(s string) (Network, error) {
	switch Network(s) {
	case NetworkDevnet, NetworkMainnetBeta:
		return Network(s), nil
	default:
		return "", fmt.Errorf("unsupported network %q (must be %s or %s)", s, NetworkDevnet, NetworkMainnetBeta)
	}
}

// DefaultRPCURL returns the public RPC endpoint for the network.
func (n Network) DefaultRPCURL() string {
	switch n {
	case NetworkMainnetBeta:
		return "https://api.mainnet-beta.solana.com"
	default:
		return "https://api.devnet.solana.com"
	}
}

// MarketsFile returns the name of the market metadata file for the network.
func (n Network) MarketsFile() string {
	switch n {
	case NetworkMainnetBeta:
		return "mainnet_markets.json"
	default:
		return "devnet_markets.json"
	}
}

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
// Components never read the environment themselves; they receive values from here.
type Config struct {
	LogLevel string

	// Chain configuration
	Network      Network
	SolanaRPCURL string
	MarketsDir   string
	MarketQuery  string
	// MarketAddress overrides the address taken from the market file when set.
	MarketAddress string

	// Ingestion configuration
	SignatureLimit int
	IngestWorkers  int
	RPCTimeout     time.Duration
	PublishTimeout time.Duration

	// NATS configuration
	NATSURL string

	// Database configuration (sink only)
	DatabaseURL string

	// Temporal configuration
	TemporalHost      string
	TemporalNamespace string
	TemporalTaskQueue string
	PollInterval      time.Duration

	MetricsAddr string
	// ServerAddr is where the sink serves the transaction query API.
	ServerAddr string
}

// MarketsPath returns the path of the market metadata file for the configured network.
func (c *Config) MarketsPath() string {
	return filepath.Join(c.MarketsDir, c.Network.MarketsFile())
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	network, err := ParseNetwork(getEnvOrDefault("NETWORK", string(NetworkDevnet)))
	if err != nil {
		errs = append(errs, fmt.Errorf("NETWORK: %w", err))
	} else {
		cfg.Network = network
	}
	cfg.SolanaRPCURL = getEnvOrDefault("SOLANA_RPC_URL", cfg.Network.DefaultRPCURL())
	cfg.MarketsDir = getEnvOrDefault("MARKETS_DIR", "markets")
	cfg.MarketQuery = getEnvOrDefault("MARKET_QUERY", ".[0]")
	cfg.MarketAddress = os.Getenv("MARKET_ADDRESS")

	limit, err := parseInt("SIGNATURE_LIMIT", 10)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.SignatureLimit = limit
	}

	workers, err := parseInt("INGEST_WORKERS", 4)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.IngestWorkers = workers
	}

	rpcTimeout, err := parseDuration("RPC_TIMEOUT", "10s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.RPCTimeout = rpcTimeout
	}

	publishTimeout, err := parseDuration("PUBLISH_TIMEOUT", "5s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.PublishTimeout = publishTimeout
	}

	cfg.NATSURL = getEnvOrDefault("NATS_URL", "nats://localhost:4222")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	cfg.TemporalHost = getEnvOrDefault("TEMPORAL_HOST", "localhost:7233")
	cfg.TemporalNamespace = getEnvOrDefault("TEMPORAL_NAMESPACE", "default")
	cfg.TemporalTaskQueue = getEnvOrDefault("TEMPORAL_TASK_QUEUE", "phoenix-ingest")

	pollInterval, err := parseDuration("POLL_INTERVAL", "30s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.PollInterval = pollInterval
	}

	cfg.MetricsAddr = getEnvOrDefault("METRICS_ADDR", ":9091")
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for process initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if _, err := ParseNetwork(string(c.Network)); err != nil {
		errs = append(errs, err)
	}

	if c.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SolanaRPCURL is required"))
	}

	if c.MarketAddress == "" && c.MarketsDir == "" {
		errs = append(errs, fmt.Errorf("MarketsDir is required when MarketAddress is not set"))
	}

	if c.SignatureLimit < 0 || c.SignatureLimit > MaxSignatureLimit {
		errs = append(errs, fmt.Errorf("SignatureLimit must be between 0 and %d", MaxSignatureLimit))
	}

	if c.IngestWorkers < 1 {
		errs = append(errs, fmt.Errorf("IngestWorkers must be at least 1"))
	}

	if c.RPCTimeout <= 0 {
		errs = append(errs, fmt.Errorf("RPCTimeout must be positive"))
	}

	if c.PublishTimeout <= 0 {
		errs = append(errs, fmt.Errorf("PublishTimeout must be positive"))
	}

	if c.NATSURL == "" {
		errs = append(errs, fmt.Errorf("NATSURL is required"))
	}

	if c.TemporalTaskQueue == "" {
		errs = append(errs, fmt.Errorf("TemporalTaskQueue is required"))
	}

	if c.PollInterval < time.Second {
		errs = append(errs, fmt.Errorf("PollInterval must be at least 1 second"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}
