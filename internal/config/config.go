package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Default TTL presets in milliseconds. List queries are the most volatile,
// single documents sit in the middle, immutable snapshots live longest.
const (
	DefaultListTTLMillis     = 30_000
	DefaultDocumentTTLMillis = 120_000
	DefaultStableTTLMillis   = 600_000
)

// DefaultRetentionCount is the number of unnamed versions kept per scenario.
const DefaultRetentionCount = 50

// Config holds application configuration.
type Config struct {
	// OwnerID identifies the local user owning all scenarios. Identity is
	// external to this system; a fixed value per install is sufficient.
	OwnerID string `json:"owner_id,omitempty" env:"ITINVAULT_OWNER"`

	// RetentionCount is the maximum number of unnamed versions kept per
	// scenario. Named versions are never subject to retention.
	RetentionCount int `json:"retention_count,omitempty" env:"ITINVAULT_RETENTION"`

	// CacheDisabled turns the query cache off entirely. Every read then
	// goes straight to the store.
	CacheDisabled bool `json:"cache_disabled,omitempty" env:"ITINVAULT_CACHE_DISABLED"`

	// ListTTLMillis is the cache TTL for list-type queries (volatile
	// enumerations like the scenario list or a version history).
	ListTTLMillis int `json:"list_ttl_ms,omitempty" env:"ITINVAULT_LIST_TTL_MS"`

	// DocumentTTLMillis is the cache TTL for single-document queries.
	DocumentTTLMillis int `json:"document_ttl_ms,omitempty" env:"ITINVAULT_DOCUMENT_TTL_MS"`

	// StableTTLMillis is the cache TTL for rarely-mutated documents,
	// e.g. immutable version snapshots.
	StableTTLMillis int `json:"stable_ttl_ms,omitempty" env:"ITINVAULT_STABLE_TTL_MS"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is
	// locked" errors). 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty" env:"ITINVAULT_DB_MAX_OPEN_CONNS"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty" env:"ITINVAULT_DB_MAX_IDLE_CONNS"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are ignored.
	DisabledTools []string `json:"disabled_tools,omitempty" env:"ITINVAULT_DISABLED_TOOLS"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		OwnerID:           "local",
		RetentionCount:    DefaultRetentionCount,
		ListTTLMillis:     DefaultListTTLMillis,
		DocumentTTLMillis: DefaultDocumentTTLMillis,
		StableTTLMillis:   DefaultStableTTLMillis,
	}
}

// Load loads configuration from baseDir/config.json, then applies any
// ITINVAULT_* environment overrides. Returns default config if the file
// doesn't exist. The baseDir parameter allows tests to use t.TempDir()
// instead of ~/.itinvault.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for non-zero scalars.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.OwnerID = overlay.OwnerID
	if result.OwnerID == "" {
		result.OwnerID = base.OwnerID
	}

	result.RetentionCount = overlay.RetentionCount
	if result.RetentionCount == 0 {
		result.RetentionCount = base.RetentionCount
	}

	result.ListTTLMillis = overlay.ListTTLMillis
	if result.ListTTLMillis == 0 {
		result.ListTTLMillis = base.ListTTLMillis
	}

	result.DocumentTTLMillis = overlay.DocumentTTLMillis
	if result.DocumentTTLMillis == 0 {
		result.DocumentTTLMillis = base.DocumentTTLMillis
	}

	result.StableTTLMillis = overlay.StableTTLMillis
	if result.StableTTLMillis == 0 {
		result.StableTTLMillis = base.StableTTLMillis
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	result.CacheDisabled = base.CacheDisabled || overlay.CacheDisabled

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// ListTTL returns the list-query TTL as a duration.
func (c *Config) ListTTL() time.Duration {
	return time.Duration(c.ListTTLMillis) * time.Millisecond
}

// DocumentTTL returns the single-document TTL as a duration.
func (c *Config) DocumentTTL() time.Duration {
	return time.Duration(c.DocumentTTLMillis) * time.Millisecond
}

// StableTTL returns the rarely-mutated-document TTL as a duration.
func (c *Config) StableTTL() time.Duration {
	return time.Duration(c.StableTTLMillis) * time.Millisecond
}

// mergeStringSlice combines two slices and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
