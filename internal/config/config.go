package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// BackendType selects the vector index backend a store uses.
type BackendType string

const (
	BackendExact BackendType = "exact"
	BackendHNSW  BackendType = "hnsw"
)

// Config represents the complete agentmemdb configuration.
type Config struct {
	Version int          `yaml:"version" json:"version"`
	Store   StoreConfig  `yaml:"store" json:"store"`
	HNSW    HNSWConfig   `yaml:"hnsw" json:"hnsw"`
	Query   QueryConfig  `yaml:"query" json:"query"`
	Server  ServerConfig `yaml:"server" json:"server"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// StoreConfig configures where and how episodes are persisted.
type StoreConfig struct {
	// Path is the directory (DiskStore) or file (MemoryStore.SaveToFile) backing the store.
	Path string `yaml:"path" json:"path"`
	// Dim is the embedding dimensionality. 0 means unset: the CLI then uses
	// --dim or an existing store's meta.json, and fails if neither is available.
	Dim int `yaml:"dim" json:"dim"`
	// Backend selects "exact" or "hnsw".
	Backend BackendType `yaml:"backend" json:"backend"`
	// MaxElements caps the HNSW backend's capacity (0 = backend default).
	MaxElements int `yaml:"max_elements" json:"max_elements"`
}

// HNSWConfig holds HNSW tuning values. They are loaded, merged and
// validated but not passed to pkg/memdb, whose HNSW backend always uses
// M=16 and EfSearch=32.
type HNSWConfig struct {
	// M is the max number of neighbors per node.
	M int `yaml:"m" json:"m"`
	// EfSearch is the candidate list size used during queries.
	EfSearch int `yaml:"ef_search" json:"ef_search"`
}

// QueryConfig configures filtered top-k query composition.
type QueryConfig struct {
	// OversampleMultiplier is loaded, merged and validated but not read by
	// pkg/memdb, which applies its own fixed oversampling multipliers.
	OversampleMultiplier int `yaml:"oversample_multiplier" json:"oversample_multiplier"`
	// DefaultTopK is used by CLI/MCP callers that don't specify one explicitly.
	DefaultTopK int `yaml:"default_top_k" json:"default_top_k"`
}

// ServerConfig configures the MCP adapter.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Dir      string `yaml:"dir" json:"dir"`
	MaxSizeMB int   `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles int    `yaml:"max_files" json:"max_files"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Store: StoreConfig{
			Path:        defaultStorePath(),
			Dim:         0,
			Backend:     BackendExact,
			MaxElements: 0,
		},
		HNSW: HNSWConfig{
			M:        16,
			EfSearch: 64,
		},
		Query: QueryConfig{
			OversampleMultiplier: 4,
			DefaultTopK:          10,
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
		Logging: LoggingConfig{
			Level:     "info",
			Dir:       "",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// defaultStorePath returns the default disk store directory.
func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".agentmemdb", "store")
	}
	return filepath.Join(home, ".agentmemdb", "store")
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/agentmemdb/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/agentmemdb/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "agentmemdb", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "agentmemdb", "config.yaml")
	}
	return filepath.Join(home, ".config", "agentmemdb", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist (that's OK).
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()

	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}

	return cfg, nil
}

// Load loads configuration from the specified directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/agentmemdb/config.yaml)
//  3. Project config (agentmemdb.yaml in dir)
//  4. Environment variables (AGENTMEMDB_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from agentmemdb.yaml or agentmemdb.yml.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, "agentmemdb.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, "agentmemdb.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Store.Path != "" {
		c.Store.Path = other.Store.Path
	}
	if other.Store.Dim != 0 {
		c.Store.Dim = other.Store.Dim
	}
	if other.Store.Backend != "" {
		c.Store.Backend = other.Store.Backend
	}
	if other.Store.MaxElements != 0 {
		c.Store.MaxElements = other.Store.MaxElements
	}

	if other.HNSW.M != 0 {
		c.HNSW.M = other.HNSW.M
	}
	if other.HNSW.EfSearch != 0 {
		c.HNSW.EfSearch = other.HNSW.EfSearch
	}

	if other.Query.OversampleMultiplier != 0 {
		c.Query.OversampleMultiplier = other.Query.OversampleMultiplier
	}
	if other.Query.DefaultTopK != 0 {
		c.Query.DefaultTopK = other.Query.DefaultTopK
	}

	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.Dir != "" {
		c.Logging.Dir = other.Logging.Dir
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
}

// applyEnvOverrides applies AGENTMEMDB_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("AGENTMEMDB_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("AGENTMEMDB_DIM"); v != "" {
		if d, err := strconv.Atoi(v); err == nil && d > 0 {
			c.Store.Dim = d
		}
	}
	if v := os.Getenv("AGENTMEMDB_BACKEND"); v != "" {
		c.Store.Backend = BackendType(strings.ToLower(v))
	}
	if v := os.Getenv("AGENTMEMDB_MAX_ELEMENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Store.MaxElements = n
		}
	}
	if v := os.Getenv("AGENTMEMDB_HNSW_EF_SEARCH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.HNSW.EfSearch = n
		}
	}
	if v := os.Getenv("AGENTMEMDB_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
		c.Server.LogLevel = v
	}
	if v := os.Getenv("AGENTMEMDB_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Store.Backend != BackendExact && c.Store.Backend != BackendHNSW {
		return fmt.Errorf("store.backend must be 'exact' or 'hnsw', got %q", c.Store.Backend)
	}
	if c.Store.Dim < 0 {
		return fmt.Errorf("store.dim must be non-negative, got %d", c.Store.Dim)
	}
	if c.Store.MaxElements < 0 {
		return fmt.Errorf("store.max_elements must be non-negative, got %d", c.Store.MaxElements)
	}
	if c.HNSW.M <= 0 {
		return fmt.Errorf("hnsw.m must be positive, got %d", c.HNSW.M)
	}
	if c.HNSW.EfSearch <= 0 {
		return fmt.Errorf("hnsw.ef_search must be positive, got %d", c.HNSW.EfSearch)
	}
	if c.Query.OversampleMultiplier <= 0 {
		return fmt.Errorf("query.oversample_multiplier must be positive, got %d", c.Query.OversampleMultiplier)
	}

	validTransports := map[string]bool{"stdio": true, "sse": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'stdio' or 'sse', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// AsJSON returns the configuration marshaled as indented JSON.
func (c *Config) AsJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
