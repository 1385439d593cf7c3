package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"distill/pkg/logger"
)

// Config is the root of the distill configuration file.
type Config struct {
	Provider   ProviderConfig   `mapstructure:"provider" yaml:"provider"`
	Summarize  SummarizeConfig  `mapstructure:"summarize" yaml:"summarize"`
	Cache      CacheConfig      `mapstructure:"cache" yaml:"cache"`
	Transcript TranscriptConfig `mapstructure:"transcript" yaml:"transcript"`
	Log        logger.LogConfig `mapstructure:"log" yaml:"log"`
	Gateway    GatewayConfig    `mapstructure:"gateway" yaml:"gateway"`
}

// ProviderConfig selects the text-generation backend.
type ProviderConfig struct {
	Name     string `mapstructure:"name" yaml:"name"` // openai, ollama
	Model    string `mapstructure:"model" yaml:"model"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey   string `mapstructure:"api_key" yaml:"api_key"`
	Timeout  string `mapstructure:"timeout" yaml:"timeout"`
	// ContextWindow overrides the model's known context size when > 0.
	ContextWindow int `mapstructure:"context_window" yaml:"context_window"`
	// Tokenizer is "tiktoken" (exact, downloads the encoding on first use)
	// or "heuristic" (about three characters per token, works offline).
	Tokenizer string `mapstructure:"tokenizer" yaml:"tokenizer"`
}

// GetTimeout parses Timeout, falling back to two minutes.
func (c *ProviderConfig) GetTimeout() time.Duration {
	if c.Timeout == "" {
		return 2 * time.Minute
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}

// SummarizeConfig controls the condensation loop.
type SummarizeConfig struct {
	MaxIterations    int    `mapstructure:"max_iterations" yaml:"max_iterations"`
	Hierarchy        string `mapstructure:"hierarchy" yaml:"hierarchy"` // markdown, plain
	ResponseReserve  int    `mapstructure:"response_reserve" yaml:"response_reserve"`
	TruncateOverflow bool   `mapstructure:"truncate_overflow" yaml:"truncate_overflow"`
	RequireShrink    bool   `mapstructure:"require_shrink" yaml:"require_shrink"`
	Prompt           string `mapstructure:"prompt" yaml:"prompt"`
}

// CacheConfig controls the persistent ask cache.
type CacheConfig struct {
	Enabled         bool   `mapstructure:"enabled" yaml:"enabled"`
	Path            string `mapstructure:"path" yaml:"path"`
	MinPromptLength int    `mapstructure:"min_prompt_length" yaml:"min_prompt_length"`
}

// TranscriptConfig controls the human-readable prompt/response log.
type TranscriptConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
	Width   int    `mapstructure:"width" yaml:"width"`
}

// GatewayConfig configures `distill serve`.
type GatewayConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

var (
	globalConfig *Config
	mu           sync.RWMutex
)

// Load reads configuration with precedence ENV > file > defaults.
// A missing file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	mu.Lock()
	defer mu.Unlock()

	SetDefaults()

	viper.SetEnvPrefix("DISTILL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return nil, err
		}
		viper.SetConfigFile(expanded)
		if err := viper.ReadInConfig(); err != nil {
			var pathErr *os.PathError
			if !errors.As(err, &pathErr) && !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	globalConfig = &cfg
	return &cfg, nil
}

// GetConfig returns the last loaded configuration, or nil.
func GetConfig() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return globalConfig
}

// Default returns the built-in configuration without reading files or env.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// SaveTo writes cfg to path as YAML, creating parent directories.
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	// 0600: the file may hold an API key.
	return os.WriteFile(path, data, 0o600)
}

// Reset clears loaded state (tests).
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	globalConfig = nil
	viper.Reset()
}
