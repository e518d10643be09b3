package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config represents the gavel configuration.
type Config struct {
	Model         string       `yaml:"model"`
	FallbackModel string       `yaml:"fallbackModel,omitempty"`
	Format        string       `yaml:"format"`
	StorePath     string       `yaml:"storePath,omitempty"`
	GitLab        GitLabConfig `yaml:"gitlab"`
	LLM           LLMConfig    `yaml:"llm"`
	Review        ReviewConfig `yaml:"review"`
	Cache         CacheConfig  `yaml:"cache"`
	Server        ServerConfig `yaml:"server"`
}

// GitLabConfig locates the git host serving diffs and file content.
type GitLabConfig struct {
	BaseURL string `yaml:"baseURL"`
	Token   string `yaml:"token,omitempty"`
}

// LLMConfig locates the completion service.
type LLMConfig struct {
	BaseURL        string `yaml:"baseURL"`
	APIKey         string `yaml:"apiKey,omitempty"`
	MaxTokens      int    `yaml:"maxTokens"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// ReviewConfig controls file selection and analysis behavior.
type ReviewConfig struct {
	Workers      int      `yaml:"workers"`
	MaxFiles     int      `yaml:"maxFiles"`
	MaxFileLines int      `yaml:"maxFileLines"`
	CostCeiling  float64  `yaml:"costCeiling"`
	IgnoreGlobs  []string `yaml:"ignoreGlobs,omitempty"`
	RedactPaths  []string `yaml:"redactPaths,omitempty"`
	// DisableSmartFiltering turns off priority ordering and the cost budget,
	// passing every non-ignored file to analysis.
	DisableSmartFiltering bool `yaml:"disableSmartFiltering,omitempty"`
}

// CacheConfig controls result and task retention.
type CacheConfig struct {
	ReviewTTLHours     int `yaml:"reviewTTLHours"`
	HistoryTTLHours    int `yaml:"historyTTLHours"`
	TaskRetentionHours int `yaml:"taskRetentionHours"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Model:  "gpt-4-turbo",
		Format: "text",
		GitLab: GitLabConfig{
			BaseURL: "https://gitlab.com",
		},
		LLM: LLMConfig{
			MaxTokens:      4096,
			TimeoutSeconds: 120,
		},
		Review: ReviewConfig{
			Workers:      5,
			MaxFiles:     50,
			MaxFileLines: 1000,
			CostCeiling:  1.0,
		},
		Cache: CacheConfig{
			ReviewTTLHours:     7 * 24,
			HistoryTTLHours:    30 * 24,
			TaskRetentionHours: 24,
		},
		Server: ServerConfig{
			Listen: "127.0.0.1:8700",
		},
	}
}

// ConfigDir returns the platform-appropriate config directory for gavel.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "gavel"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "gavel"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "gavel"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "gavel"), nil
	default:
		return filepath.Join(home, ".config", "gavel"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadFile loads config from the config file. Returns zero Config and nil
// error if the file doesn't exist.
func LoadFile() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Save writes the config to the config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags (only non-zero values should be set).
func Load(overrides map[string]string) (Config, error) {
	cfg := Default()

	fileCfg, err := LoadFile()
	if err != nil {
		return Config{}, err
	}
	mergeFile(&cfg, fileCfg)
	mergeEnv(&cfg)
	mergeOverrides(&cfg, overrides)

	if cfg.StorePath == "" {
		dir, err := ConfigDir()
		if err != nil {
			return Config{}, err
		}
		cfg.StorePath = filepath.Join(dir, "gavel.db")
	}

	return cfg, nil
}

func mergeFile(dst *Config, src Config) {
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.FallbackModel != "" {
		dst.FallbackModel = src.FallbackModel
	}
	if src.Format != "" {
		dst.Format = src.Format
	}
	if src.StorePath != "" {
		dst.StorePath = src.StorePath
	}
	if src.GitLab.BaseURL != "" {
		dst.GitLab.BaseURL = src.GitLab.BaseURL
	}
	if src.GitLab.Token != "" {
		dst.GitLab.Token = src.GitLab.Token
	}
	if src.LLM.BaseURL != "" {
		dst.LLM.BaseURL = src.LLM.BaseURL
	}
	if src.LLM.APIKey != "" {
		dst.LLM.APIKey = src.LLM.APIKey
	}
	if src.LLM.MaxTokens > 0 {
		dst.LLM.MaxTokens = src.LLM.MaxTokens
	}
	if src.LLM.TimeoutSeconds > 0 {
		dst.LLM.TimeoutSeconds = src.LLM.TimeoutSeconds
	}
	if src.Review.Workers > 0 {
		dst.Review.Workers = src.Review.Workers
	}
	if src.Review.MaxFiles > 0 {
		dst.Review.MaxFiles = src.Review.MaxFiles
	}
	if src.Review.MaxFileLines > 0 {
		dst.Review.MaxFileLines = src.Review.MaxFileLines
	}
	if src.Review.CostCeiling > 0 {
		dst.Review.CostCeiling = src.Review.CostCeiling
	}
	if len(src.Review.IgnoreGlobs) > 0 {
		dst.Review.IgnoreGlobs = src.Review.IgnoreGlobs
	}
	if len(src.Review.RedactPaths) > 0 {
		dst.Review.RedactPaths = src.Review.RedactPaths
	}
	dst.Review.DisableSmartFiltering = src.Review.DisableSmartFiltering || dst.Review.DisableSmartFiltering
	if src.Cache.ReviewTTLHours > 0 {
		dst.Cache.ReviewTTLHours = src.Cache.ReviewTTLHours
	}
	if src.Cache.HistoryTTLHours > 0 {
		dst.Cache.HistoryTTLHours = src.Cache.HistoryTTLHours
	}
	if src.Cache.TaskRetentionHours > 0 {
		dst.Cache.TaskRetentionHours = src.Cache.TaskRetentionHours
	}
	if src.Server.Listen != "" {
		dst.Server.Listen = src.Server.Listen
	}
}

func mergeEnv(cfg *Config) {
	if v := os.Getenv("GAVEL_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("GAVEL_FALLBACK_MODEL"); v != "" {
		cfg.FallbackModel = v
	}
	if v := os.Getenv("GAVEL_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("GAVEL_STORE_PATH"); v != "" {
		cfg.StorePath = v
	}
	if v := os.Getenv("GAVEL_GITLAB_URL"); v != "" {
		cfg.GitLab.BaseURL = v
	}
	if v := os.Getenv("GAVEL_GITLAB_TOKEN"); v != "" {
		cfg.GitLab.Token = v
	}
	if v := os.Getenv("GAVEL_LLM_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("GAVEL_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("GAVEL_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Review.Workers = n
		}
	}
	if v := os.Getenv("GAVEL_COST_CEILING"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Review.CostCeiling = f
		}
	}
	if v := os.Getenv("GAVEL_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
}

func mergeOverrides(cfg *Config, overrides map[string]string) {
	if overrides == nil {
		return
	}
	if v, ok := overrides["model"]; ok && v != "" {
		cfg.Model = v
	}
	if v, ok := overrides["format"]; ok && v != "" {
		cfg.Format = v
	}
	if v, ok := overrides["store"]; ok && v != "" {
		cfg.StorePath = v
	}
	if v, ok := overrides["gitlabURL"]; ok && v != "" {
		cfg.GitLab.BaseURL = v
	}
	if v, ok := overrides["gitlabToken"]; ok && v != "" {
		cfg.GitLab.Token = v
	}
	if v, ok := overrides["workers"]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Review.Workers = n
		}
	}
	if v, ok := overrides["costCeiling"]; ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Review.CostCeiling = f
		}
	}
	if v, ok := overrides["maxFiles"]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Review.MaxFiles = n
		}
	}
	if v, ok := overrides["listen"]; ok && v != "" {
		cfg.Server.Listen = v
	}
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "model":
		cfg.Model = value
	case "fallbackModel":
		cfg.FallbackModel = value
	case "format":
		cfg.Format = value
	case "storePath":
		cfg.StorePath = value
	case "gitlab.baseURL":
		cfg.GitLab.BaseURL = value
	case "gitlab.token":
		cfg.GitLab.Token = value
	case "llm.baseURL":
		cfg.LLM.BaseURL = value
	case "llm.apiKey":
		cfg.LLM.APIKey = value
	case "workers":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("workers must be an integer: %w", err)
		}
		cfg.Review.Workers = n
	case "maxFiles":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("maxFiles must be an integer: %w", err)
		}
		cfg.Review.MaxFiles = n
	case "costCeiling":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("costCeiling must be a number: %w", err)
		}
		cfg.Review.CostCeiling = f
	case "server.listen":
		cfg.Server.Listen = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}
