// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Ethereum  EthereumConfig  `mapstructure:"ethereum"`
	GasOracle GasOracleConfig `mapstructure:"gas_oracle"`
	Executor  ExecutorConfig  `mapstructure:"executor"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// EthereumConfig holds the RPC endpoint and signer configuration the
// connection manager is built from.
type EthereumConfig struct {
	RPCURL         string        `mapstructure:"rpc_url"`
	ChainID        uint64        `mapstructure:"chain_id"`
	PrivateKey     string        `mapstructure:"private_key"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

// GasOracleConfig holds the gas price oracle endpoint and call budget.
type GasOracleConfig struct {
	URL               string `mapstructure:"url"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	DefaultSetting    string `mapstructure:"default_setting"`
}

// ExecutorConfig holds tuning knobs for the contract caller and
// transaction executor's throttled queues.
type ExecutorConfig struct {
	ContractCallerMaxRetries int `mapstructure:"contract_caller_max_retries"`
}

// ContractConfig holds a single watched contract's address.
type ContractConfig struct {
	Name    string `mapstructure:"name"`
	Address string `mapstructure:"address"`
}

// AddressHex returns Address parsed as common.Address.
func (c ContractConfig) AddressHex() common.Address {
	return common.HexToAddress(c.Address)
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
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
	v.SetEnvPrefix("EVMNET")
	v.AutomaticEnv()

	// Bind env vars to config keys
	bindEnvVars(v)

	// Set defaults
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "EVMNET_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "EVMNET_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "EVMNET_LOG_LEVEL", "LOG_LEVEL")

	// Ethereum
	v.BindEnv("ethereum.rpc_url", "EVMNET_RPC_URL", "RPC_URL")
	v.BindEnv("ethereum.chain_id", "EVMNET_CHAIN_ID", "CHAIN_ID")
	v.BindEnv("ethereum.private_key", "EVMNET_PRIVATE_KEY", "PRIVATE_KEY")

	// Gas oracle
	v.BindEnv("gas_oracle.url", "EVMNET_GAS_ORACLE_URL", "GAS_ORACLE_URL")
	v.BindEnv("gas_oracle.requests_per_minute", "EVMNET_GAS_ORACLE_RPM")
	v.BindEnv("gas_oracle.default_setting", "EVMNET_GAS_ORACLE_DEFAULT_SETTING")

	// Telemetry
	v.BindEnv("telemetry.enabled", "EVMNET_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "EVMNET_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "EVMNET_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "evmnet")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Ethereum defaults
	v.SetDefault("ethereum.chain_id", 1)
	v.SetDefault("ethereum.max_reconnects", 0) // infinite
	v.SetDefault("ethereum.initial_backoff", "1s")
	v.SetDefault("ethereum.max_backoff", "30s")

	// Gas oracle defaults
	v.SetDefault("gas_oracle.requests_per_minute", 30)
	v.SetDefault("gas_oracle.default_setting", "average")

	// Executor defaults
	v.SetDefault("executor.contract_caller_max_retries", 5)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "evmnet")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ethereum.RPCURL == "" {
		return fmt.Errorf("ethereum.rpc_url is required")
	}
	if c.Ethereum.PrivateKey != "" && len(c.Ethereum.PrivateKey) != 64 {
		return fmt.Errorf("ethereum.private_key must be a 64-character hex string without 0x prefix")
	}
	if c.GasOracle.URL != "" && c.GasOracle.RequestsPerMinute <= 0 {
		return fmt.Errorf("gas_oracle.requests_per_minute must be positive when gas_oracle.url is set")
	}
	return nil
}
