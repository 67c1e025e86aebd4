package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/storepilot/storepilot/pkg/analysis"
	"github.com/storepilot/storepilot/pkg/budget"
	"github.com/storepilot/storepilot/pkg/cache"
	"github.com/storepilot/storepilot/pkg/cache/file"
	"github.com/storepilot/storepilot/pkg/cache/lru"
	"github.com/storepilot/storepilot/pkg/cache/redis"
	"github.com/storepilot/storepilot/pkg/cache/sqlite"
	"github.com/storepilot/storepilot/pkg/config"
	"github.com/storepilot/storepilot/pkg/gateway"
	"github.com/storepilot/storepilot/pkg/policy"
	"github.com/storepilot/storepilot/pkg/tracker"
)

// loadConfig reads the config file. Without an explicit --config a missing
// default file falls back to built-in defaults.
func (g *globals) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if errors.Is(err, config.ErrConfigMissing) && !cmd.Flags().Changed("config") {
		g.logger.Debug("no config file, using defaults", zap.String("path", g.configPath))
		return config.Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// openCache builds the configured cache backend, fronted by an LRU when
// cache.memory_entries is set.
func openCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*cache.Cache, error) {
	var (
		store cache.Store
		err   error
	)
	switch cfg.Cache.Backend {
	case "", "file":
		store, err = file.New(cfg.Cache.Dir)
	case "sqlite":
		store, err = sqlite.New(cfg.DBPath)
	case "redis":
		store, err = redis.New(ctx, cfg.Cache.RedisURL, cfg.Cache.RedisPrefix)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}

	backend := cfg.Cache.Backend
	if backend == "" {
		backend = "file"
	}
	if cfg.Cache.MemoryEntries > 0 {
		store = lru.New(store, cfg.Cache.MemoryEntries)
		backend += "+lru"
	}
	return cache.New(store, backend, logger), nil
}

// session holds everything an analysis command needs.
type session struct {
	svc     *analysis.Service
	cache   *cache.Cache
	tracker *tracker.SQLiteTracker
}

func (s *session) Close() {
	_ = s.cache.Close()
	_ = s.tracker.Close()
}

func openSession(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*session, error) {
	p, err := cfg.Provider(cfg.Analysis.Provider)
	if err != nil {
		return nil, err
	}
	c, err := openCache(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	tr, err := tracker.New(cfg.DBPath)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("init tracker: %w", err)
	}

	gw := gateway.New(gateway.Config{
		Provider:     p.Name,
		BaseURL:      p.URL,
		APIKey:       p.APIKey,
		Model:        p.Model,
		MaxTokens:    cfg.Analysis.MaxTokens,
		Temperature:  cfg.Analysis.Temperature,
		TopP:         cfg.Analysis.TopP,
		SystemPrompt: cfg.Analysis.SystemPrompt,
		Timeout:      cfg.Analysis.Timeout,
	}, gateway.WithLogger(logger))

	opts := []analysis.Option{analysis.WithTracker(tr), analysis.WithLogger(logger)}
	if len(cfg.Analysis.Budgets) > 0 {
		opts = append(opts, analysis.WithBudget(budget.New(cfg.Analysis.Budgets, tr)))
	}
	svc := analysis.New(c, gw, opts...)
	return &session{svc: svc, cache: c, tracker: tr}, nil
}

func newEngine(cfg *config.Config, logger *zap.Logger) (*policy.Engine, *policy.DecisionLog, error) {
	table, err := policy.FromRules(cfg.Policy.Rules)
	if err != nil {
		return nil, nil, err
	}
	log := policy.NewDecisionLog(cfg.Policy.LogPath)
	e, err := policy.NewEngine(table, log, policy.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return e, log, nil
}

func reportsDir(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "reports")
}
