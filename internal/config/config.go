// Package config loads agentmem settings from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Zate/remote-agent-memory/internal/agents"
	"github.com/Zate/remote-agent-memory/internal/memory"
	"github.com/Zate/remote-agent-memory/internal/memory/vector"
	"github.com/Zate/remote-agent-memory/internal/relevance"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendVector = "vector"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Config holds all agentmem configuration.
type Config struct {
	Storage   StorageConfig     `yaml:"storage" json:"storage"`
	Retrieval RetrievalConfig   `yaml:"retrieval" json:"retrieval"`
	Scoring   relevance.Weights `yaml:"scoring" json:"scoring"`
	Logging   LoggingConfig     `yaml:"logging" json:"logging"`
	Server    ServerConfig      `yaml:"server" json:"server"`
}

// StorageConfig selects and sizes the memory backend.
type StorageConfig struct {
	Backend          string `yaml:"backend" json:"backend"` // sqlite, vector
	DataDir          string `yaml:"data_dir" json:"data_dir"`
	MaxContentLength int    `yaml:"max_content_length" json:"max_content_length"`
	MaxSearchResults int    `yaml:"max_search_results" json:"max_search_results"`
}

// RetrievalConfig tunes context retrieval.
type RetrievalConfig struct {
	SearchConcurrency int   `yaml:"search_concurrency" json:"search_concurrency"`
	Rerank            bool  `yaml:"rerank" json:"rerank"`
	CacheSize         int64 `yaml:"cache_size" json:"cache_size"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level,omitempty"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format,omitempty"` // json, console
	Debug  bool   `yaml:"debug" json:"debug,omitempty"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Name string `yaml:"name" json:"name"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	mem := memory.DefaultConfig()
	ret := agents.DefaultConfig()
	return &Config{
		Storage: StorageConfig{
			Backend:          BackendSQLite,
			DataDir:          mem.DataDir,
			MaxContentLength: mem.MaxContentLength,
			MaxSearchResults: mem.MaxSearchResults,
		},
		Retrieval: RetrievalConfig{
			SearchConcurrency: ret.SearchConcurrency,
			Rerank:            ret.Rerank,
			CacheSize:         ret.CacheSize,
		},
		Scoring: relevance.DefaultWeights(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			Name: "agentmem",
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".agentmem", "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied before validation.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("config: read: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("AGENTMEM_DATA_DIR"); dir != "" {
		c.Storage.DataDir = dir
	}
	if backend := os.Getenv("AGENTMEM_BACKEND"); backend != "" {
		c.Storage.Backend = strings.ToLower(backend)
	}
	if v := os.Getenv("AGENTMEM_DEBUG"); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			c.Logging.Debug = debug
		}
	}
}

// Validate reports the first invalid setting, wrapped in ErrInvalid.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite, BackendVector:
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalid, c.Storage.Backend)
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("%w: storage.data_dir is empty", ErrInvalid)
	}
	if c.Storage.MaxContentLength <= 0 {
		return fmt.Errorf("%w: storage.max_content_length must be positive", ErrInvalid)
	}
	if c.Storage.MaxSearchResults <= 0 {
		return fmt.Errorf("%w: storage.max_search_results must be positive", ErrInvalid)
	}
	if c.Retrieval.SearchConcurrency <= 0 {
		return fmt.Errorf("%w: retrieval.search_concurrency must be positive", ErrInvalid)
	}
	if c.Retrieval.CacheSize <= 0 {
		return fmt.Errorf("%w: retrieval.cache_size must be positive", ErrInvalid)
	}
	for _, d := range relevance.Dimensions {
		if w := c.Scoring.Of(d); w < 0 || w > 1 {
			return fmt.Errorf("%w: scoring.%s = %g, want [0,1]", ErrInvalid, d, w)
		}
	}
	if c.Scoring.Sum() == 0 {
		return fmt.Errorf("%w: scoring weights are all zero", ErrInvalid)
	}
	return nil
}

// MemoryConfig returns the SQLite backend settings.
func (c *Config) MemoryConfig() memory.Config {
	return memory.Config{
		DataDir:          c.Storage.DataDir,
		MaxContentLength: c.Storage.MaxContentLength,
		MaxSearchResults: c.Storage.MaxSearchResults,
	}
}

// VectorConfig returns the vector backend settings.
func (c *Config) VectorConfig() vector.Config {
	return vector.Config{
		DataDir:          c.Storage.DataDir,
		Dimensions:       vector.DefaultDimensions,
		MaxContentLength: c.Storage.MaxContentLength,
		MaxSearchResults: c.Storage.MaxSearchResults,
	}
}

// AgentsConfig returns the integration layer settings.
func (c *Config) AgentsConfig() agents.Config {
	return agents.Config{
		SearchConcurrency: c.Retrieval.SearchConcurrency,
		Rerank:            c.Retrieval.Rerank,
		CacheSize:         c.Retrieval.CacheSize,
		Weights:           c.Scoring,
	}
}
