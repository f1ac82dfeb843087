// Package config loads gateway configuration: service settings from
// environment variables and the per-chain source list from a TOML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds application configuration from environment variables.
type Config struct {
	HTTPAddr     string
	SourcesFile  string
	CacheTTL     time.Duration
	CacheMaxSize int
	// PageBudget caps pages scanned per source in one aggregated search.
	PageBudget      int
	DefaultPageSize int
	MaxPageSize     int
}

// SourceConfig describes one configured registry backend. Kind selects
// the implementation; the other fields are kind-specific.
type SourceConfig struct {
	Kind    string `toml:"kind"` // "indexer", "chain" or "postgres"
	ChainID int64  `toml:"chain_id"`
	Name    string `toml:"name"`

	// indexer
	BaseURL string `toml:"base_url"`

	// chain
	RPCURL           string `toml:"rpc_url"`
	RegistryContract string `toml:"registry_contract"`

	// postgres
	DSN string `toml:"dsn"`
}

// SourcesFile is the root of the TOML sources file.
type SourcesFile struct {
	Sources []SourceConfig `toml:"sources"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	return Config{
		HTTPAddr:        envOr("AMD_HTTP_ADDR", ":8081"),
		SourcesFile:     envOr("AMD_SOURCES_FILE", "sources.toml"),
		CacheTTL:        envDurationOr("AMD_CACHE_TTL", 5*time.Minute),
		CacheMaxSize:    envIntOr("AMD_CACHE_MAX_SIZE", 500),
		PageBudget:      envIntOr("AMD_PAGE_BUDGET", 10),
		DefaultPageSize: envIntOr("AMD_DEFAULT_PAGE_SIZE", 50),
		MaxPageSize:     envIntOr("AMD_MAX_PAGE_SIZE", 200),
	}
}

// LoadSources parses the TOML sources file and validates each entry.
func LoadSources(path string) ([]SourceConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	var file SourcesFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}
	if len(file.Sources) == 0 {
		return nil, fmt.Errorf("sources file %s configures no sources", path)
	}
	seen := make(map[int64]bool)
	for i, sc := range file.Sources {
		if err := sc.validate(); err != nil {
			return nil, fmt.Errorf("source %d: %w", i, err)
		}
		if seen[sc.ChainID] {
			return nil, fmt.Errorf("source %d: duplicate chain_id %d", i, sc.ChainID)
		}
		seen[sc.ChainID] = true
	}
	return file.Sources, nil
}

func (sc SourceConfig) validate() error {
	if sc.ChainID == 0 {
		return fmt.Errorf("chain_id is required")
	}
	if sc.Name == "" {
		return fmt.Errorf("name is required")
	}
	switch sc.Kind {
	case "indexer":
		if sc.BaseURL == "" {
			return fmt.Errorf("indexer source needs base_url")
		}
	case "chain":
		if sc.RPCURL == "" || sc.RegistryContract == "" {
			return fmt.Errorf("chain source needs rpc_url and registry_contract")
		}
	case "postgres":
		if sc.DSN == "" {
			return fmt.Errorf("postgres source needs dsn")
		}
	default:
		return fmt.Errorf("unknown source kind %q", sc.Kind)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
