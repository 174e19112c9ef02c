// Package config provides the Config struct and loader for .oolong.yaml
// project-level configuration files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/oolongbench/oolong-pairs/internal/models"
)

// Default values for project configuration. New() is the only place that
// should reference them.
const (
	DefaultEngine       = "cli"
	DefaultModel        = "claude-sonnet-4-20250514"
	DefaultSubcallModel = "claude-haiku-3-5-20241022"
	DefaultTimeout      = 300

	DefaultDatasetFilter    = "trec_coarse"
	DefaultMinContextLength = 100_000

	DefaultDBPath   = "data/benchmark.db"
	DefaultStateDir = "/tmp/oolong-pairs"
	DefaultCacheDir = ".oolong-cache"

	DefaultConfidenceLevel = 0.95
)

// DatasetConfig holds corpus selection settings.
type DatasetConfig struct {
	Path             string `yaml:"path,omitempty"`
	Filter           string `yaml:"filter,omitempty"`
	MinContextLength int    `yaml:"min_context_length,omitempty"`
	Limit            int    `yaml:"limit,omitempty"`
}

// RunConfig holds default execution parameters.
type RunConfig struct {
	Strategy     string         `yaml:"strategy,omitempty"`
	Mode         string         `yaml:"mode,omitempty"`
	Engine       string         `yaml:"engine,omitempty"`
	Model        string         `yaml:"model,omitempty"`
	SubcallModel string         `yaml:"subcall_model,omitempty"`
	TimeoutSec   int            `yaml:"timeout,omitempty"`
	Params       map[string]any `yaml:"params,omitempty"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// StorageConfig holds database and handoff directory settings.
type StorageConfig struct {
	DBPath   string `yaml:"db_path,omitempty"`
	StateDir string `yaml:"state_dir,omitempty"`
}

// OpenAIConfig holds settings for the OpenAI-compatible engine.
type OpenAIConfig struct {
	BaseURL   string `yaml:"base_url,omitempty"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
}

// StatsConfig holds statistics settings.
type StatsConfig struct {
	ConfidenceLevel float64 `yaml:"confidence_level,omitempty"`
}

// Config is the top-level configuration loaded from .oolong.yaml.
type Config struct {
	Dataset DatasetConfig `yaml:"dataset,omitempty"`
	Run     RunConfig     `yaml:"run,omitempty"`
	Cache   CacheConfig   `yaml:"cache,omitempty"`
	Storage StorageConfig `yaml:"storage,omitempty"`
	OpenAI  OpenAIConfig  `yaml:"openai,omitempty"`
	Stats   StatsConfig   `yaml:"stats,omitempty"`
}

// New returns a Config with all hard-coded defaults populated.
func New() *Config {
	return &Config{
		Dataset: DatasetConfig{
			Filter:           DefaultDatasetFilter,
			MinContextLength: DefaultMinContextLength,
		},
		Run: RunConfig{
			Strategy:     string(models.StrategyTruncation),
			Mode:         string(models.ModeDirect),
			Engine:       DefaultEngine,
			Model:        DefaultModel,
			SubcallModel: DefaultSubcallModel,
			TimeoutSec:   DefaultTimeout,
		},
		Cache: CacheConfig{
			Enabled: boolPtr(false),
			Dir:     DefaultCacheDir,
		},
		Storage: StorageConfig{
			DBPath:   DefaultDBPath,
			StateDir: DefaultStateDir,
		},
		OpenAI: OpenAIConfig{
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Stats: StatsConfig{
			ConfidenceLevel: DefaultConfidenceLevel,
		},
	}
}

// Load finds .oolong.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
// Real I/O errors (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*Config, error) {
	cfg := New()

	data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil // no file found → return defaults
		}
		return nil, fmt.Errorf("loading .oolong.yaml: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing .oolong.yaml: %w", err)
	}

	mergeConfig(cfg, &fileCfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the rest of the pipeline cannot act on. It runs
// at load time so a bad config fails the command before any model calls.
func (c *Config) Validate() error {
	if _, err := models.ParseStrategyKind(c.Run.Strategy); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := models.ParseExecutionMode(c.Run.Mode); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.Run.Engine {
	case "cli", "openai", "mock":
	default:
		return fmt.Errorf("config: '%s' is not a valid engine (cli, openai, mock)", c.Run.Engine)
	}
	if c.Run.TimeoutSec < 0 {
		return fmt.Errorf("config: timeout must be >= 0, got %d", c.Run.TimeoutSec)
	}
	if cl := c.Stats.ConfidenceLevel; cl <= 0 || cl >= 1 {
		return fmt.Errorf("config: confidence_level must be in (0, 1), got %v", cl)
	}
	return nil
}

// CacheEnabled reports whether result caching is on.
func (c *Config) CacheEnabled() bool {
	return c.Cache.Enabled != nil && *c.Cache.Enabled
}

// SetCacheEnabled turns result caching on or off.
func (c *Config) SetCacheEnabled(enabled bool) {
	c.Cache.Enabled = boolPtr(enabled)
}

// findConfigFile walks up from dir looking for .oolong.yaml (max 10 levels).
// Returns os.ErrNotExist if no config file is found. Propagates real I/O
// errors (e.g. permission denied) instead of silently swallowing them.
func findConfigFile(dir string) ([]byte, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, ".oolong.yaml")
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *Config) {
	if src.Dataset.Path != "" {
		dst.Dataset.Path = src.Dataset.Path
	}
	if src.Dataset.Filter != "" {
		dst.Dataset.Filter = src.Dataset.Filter
	}
	if src.Dataset.MinContextLength != 0 {
		dst.Dataset.MinContextLength = src.Dataset.MinContextLength
	}
	if src.Dataset.Limit != 0 {
		dst.Dataset.Limit = src.Dataset.Limit
	}

	if src.Run.Strategy != "" {
		dst.Run.Strategy = src.Run.Strategy
	}
	if src.Run.Mode != "" {
		dst.Run.Mode = src.Run.Mode
	}
	if src.Run.Engine != "" {
		dst.Run.Engine = src.Run.Engine
	}
	if src.Run.Model != "" {
		dst.Run.Model = src.Run.Model
	}
	if src.Run.SubcallModel != "" {
		dst.Run.SubcallModel = src.Run.SubcallModel
	}
	if src.Run.TimeoutSec != 0 {
		dst.Run.TimeoutSec = src.Run.TimeoutSec
	}
	if len(src.Run.Params) > 0 {
		dst.Run.Params = src.Run.Params
	}

	if src.Cache.Enabled != nil {
		dst.Cache.Enabled = src.Cache.Enabled
	}
	if src.Cache.Dir != "" {
		dst.Cache.Dir = src.Cache.Dir
	}

	if src.Storage.DBPath != "" {
		dst.Storage.DBPath = src.Storage.DBPath
	}
	if src.Storage.StateDir != "" {
		dst.Storage.StateDir = src.Storage.StateDir
	}

	if src.OpenAI.BaseURL != "" {
		dst.OpenAI.BaseURL = src.OpenAI.BaseURL
	}
	if src.OpenAI.APIKeyEnv != "" {
		dst.OpenAI.APIKeyEnv = src.OpenAI.APIKeyEnv
	}

	if src.Stats.ConfidenceLevel != 0 {
		dst.Stats.ConfidenceLevel = src.Stats.ConfidenceLevel
	}
}

func boolPtr(b bool) *bool {
	return &b
}
