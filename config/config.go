package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full engine configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Wallet  WalletConfig  `yaml:"wallet"`
	Engine  EngineConfig  `yaml:"engine"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// APIConfig holds the backend and ledger endpoints.
type APIConfig struct {
	Base      string `yaml:"base"`
	LedgerRPC string `yaml:"ledger_rpc"`
}

// WalletConfig points at the local wallet daemon.
type WalletConfig struct {
	Endpoint string `yaml:"endpoint"`
}

// EngineConfig controls reconciliation behavior.
type EngineConfig struct {
	Network                string `yaml:"network"` // mainnet | devnet
	RefreshIntervalSeconds int    `yaml:"refresh_interval_seconds"`
	DeviceID               string `yaml:"device_id"`
}

// StorageConfig controls where the durable records live.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // SQLite file path, or ":memory:"
}

// LogConfig controls logging format and level.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load reads the YAML config and the .env file when present. Env values
// override YAML for the keys that map to one.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// RefreshInterval returns the daemon refresh cadence as a time.Duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Engine.RefreshIntervalSeconds) * time.Second
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STORMBET_API_BASE"); v != "" {
		cfg.API.Base = v
	}
	if v := os.Getenv("STORMBET_LEDGER_RPC"); v != "" {
		cfg.API.LedgerRPC = v
	}
	if v := os.Getenv("STORMBET_WALLET_ENDPOINT"); v != "" {
		cfg.Wallet.Endpoint = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.API.Base == "" {
		cfg.API.Base = "https://api.stormbet.fun"
	}
	if cfg.API.LedgerRPC == "" {
		cfg.API.LedgerRPC = "https://api.mainnet-beta.solana.com"
	}
	if cfg.Engine.Network == "" {
		cfg.Engine.Network = "mainnet"
	}
	if cfg.Engine.RefreshIntervalSeconds <= 0 {
		cfg.Engine.RefreshIntervalSeconds = 30
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "stormbet.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
