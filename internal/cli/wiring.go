package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gavelhq/gavel/internal/analyzer"
	"github.com/gavelhq/gavel/internal/cache"
	"github.com/gavelhq/gavel/internal/config"
	"github.com/gavelhq/gavel/internal/engine"
	"github.com/gavelhq/gavel/internal/githost"
	"github.com/gavelhq/gavel/internal/kvstore"
	"github.com/gavelhq/gavel/internal/llm"
	"github.com/gavelhq/gavel/internal/selector"
	"github.com/gavelhq/gavel/internal/tasks"
)

// buildEngine wires an Engine from the effective config. The returned
// closer releases the durable store and must be called on shutdown.
func buildEngine(cfg config.Config) (*engine.Engine, func(), error) {
	if err := os.MkdirAll(filepath.Dir(cfg.StorePath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating store directory: %w", err)
	}
	kv, err := kvstore.Open(cfg.StorePath)
	if err != nil {
		return nil, nil, err
	}

	reviewCache := cache.New(kv,
		time.Duration(cfg.Cache.ReviewTTLHours)*time.Hour,
		time.Duration(cfg.Cache.HistoryTTLHours)*time.Hour)
	taskStore := tasks.NewStore(kv, time.Duration(cfg.Cache.TaskRetentionHours)*time.Hour)

	completer, err := buildCompleter(cfg)
	if err != nil {
		kv.Close()
		return nil, nil, err
	}

	an := analyzer.New(completer, analyzer.Options{
		Workers:      cfg.Review.Workers,
		MaxFileLines: cfg.Review.MaxFileLines,
		RedactPaths:  cfg.Review.RedactPaths,
	})

	sel := selector.New(selector.Options{
		IgnoreGlobs:    cfg.Review.IgnoreGlobs,
		MaxFiles:       cfg.Review.MaxFiles,
		SmartFiltering: !cfg.Review.DisableSmartFiltering,
		CostCeiling:    cfg.Review.CostCeiling,
		Model:          cfg.Model,
	})

	diff := githost.NewGitLab(cfg.GitLab.BaseURL, cfg.GitLab.Token)

	eng := engine.New(reviewCache, taskStore, diff, an, sel, cfg.Model)
	return eng, func() { kv.Close() }, nil
}

// buildCompleter constructs the completion client chain. Returns nil when no
// completion endpoint is configured; the analyzer degrades gracefully.
func buildCompleter(cfg config.Config) (llm.Completer, error) {
	if cfg.LLM.BaseURL == "" {
		return nil, nil
	}
	primary, err := llm.NewClient(llm.ClientOptions{
		BaseURL:   cfg.LLM.BaseURL,
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.Model,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("building completion client: %w", err)
	}
	if cfg.FallbackModel == "" || cfg.FallbackModel == cfg.Model {
		return primary, nil
	}
	secondary, err := llm.NewClient(llm.ClientOptions{
		BaseURL:   cfg.LLM.BaseURL,
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.FallbackModel,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("building fallback client: %w", err)
	}
	return llm.WithFallback(primary, secondary), nil
}
