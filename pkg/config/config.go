package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/storepilot/storepilot/pkg/models"
)

// ErrConfigMissing is returned when the config file does not exist.
var ErrConfigMissing = errors.New("config file missing")

// Config holds all storepilot configuration.
type Config struct {
	DataDir   string           `yaml:"data_dir"`
	DBPath    string           `yaml:"db_path"`
	Providers []ProviderConfig `yaml:"providers"`
	Analysis  AnalysisConfig   `yaml:"analysis"`
	Cache     CacheConfig      `yaml:"cache"`
	Prompt    PromptConfig     `yaml:"prompt"`
	Policy    PolicyConfig     `yaml:"policy"`
}

// ProviderConfig defines an OpenAI-compatible analysis endpoint.
type ProviderConfig struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// AnalysisConfig fixes the request shape used for every analysis call.
type AnalysisConfig struct {
	Provider     string        `yaml:"provider"`
	MaxTokens    int           `yaml:"max_tokens"`
	Temperature  float64       `yaml:"temperature"`
	TopP         float64       `yaml:"top_p"`
	SystemPrompt string        `yaml:"system_prompt"`
	Timeout      time.Duration `yaml:"timeout"`
	// Budgets cap tokens spent on remote calls; cache hits are free.
	Budgets []models.TokenBudget `yaml:"budgets"`
}

// CacheConfig selects and configures the result cache backend.
// Backend is "file" (default), "sqlite" or "redis".
type CacheConfig struct {
	Backend     string `yaml:"backend"`
	Dir         string `yaml:"dir"`
	RedisURL    string `yaml:"redis_url"`
	RedisPrefix string `yaml:"redis_prefix"`
	// MemoryEntries bounds the in-memory LRU in front of the backend; 0 disables it.
	MemoryEntries int `yaml:"memory_entries"`
}

// PromptConfig controls prompt compaction.
type PromptConfig struct {
	Tier string `yaml:"tier"`
	// MaxFieldLen overrides the tier's per-field bound when positive.
	MaxFieldLen int `yaml:"max_field_len"`
}

// PolicyConfig controls the promotion policy engine.
type PolicyConfig struct {
	LogPath    string               `yaml:"log_path"`
	BaseBid    float64              `yaml:"base_bid"`
	BaseBudget float64              `yaml:"base_budget"`
	History    int                  `yaml:"history"`
	Interval   time.Duration        `yaml:"interval"`
	Rules      []models.SegmentRule `yaml:"rules"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		DataDir: "data",
		DBPath:  "storepilot.db",
		Analysis: AnalysisConfig{
			MaxTokens:   800,
			Temperature: 0.5,
			TopP:        0.9,
			Timeout:     60 * time.Second,
		},
		Cache: CacheConfig{
			Backend:     "file",
			Dir:         ".cache/analysis",
			RedisPrefix: "storepilot:analysis:",
		},
		Prompt: PromptConfig{
			Tier: "compact",
		},
		Policy: PolicyConfig{
			LogPath:    "logs/promotion_adjustments.jsonl",
			BaseBid:    1.0,
			BaseBudget: 75,
			History:    5,
			Interval:   10 * time.Minute,
		},
	}
}

// Load reads a YAML config file and expands environment variables.
// A .env file next to the config, if present, is loaded first without
// overriding variables already set.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigMissing, path)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	envFile := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// Provider returns the named provider, or the first one when name is empty.
func (c *Config) Provider(name string) (ProviderConfig, error) {
	if len(c.Providers) == 0 {
		return ProviderConfig{}, fmt.Errorf("no providers configured")
	}
	if name == "" {
		return c.Providers[0], nil
	}
	for _, p := range c.Providers {
		if p.Name == name {
			return p, nil
		}
	}
	return ProviderConfig{}, fmt.Errorf("provider %q not configured", name)
}
