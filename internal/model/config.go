package model

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Config holds the complete creditlens configuration
type Config struct {
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Sync         SyncConfig         `yaml:"sync" mapstructure:"sync"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// StoreConfig controls the local object store
type StoreConfig struct {
	Dir       string        `yaml:"dir" mapstructure:"dir"`               // Disk tier root; empty keeps everything in memory
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"` // How long decoded records stay in the memory tier
}

// SyncConfig controls the best-effort file mirror
type SyncConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"` // Companion server, e.g. http://127.0.0.1:5174
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`   // Bound on every pull and push
}

// ServerConfig controls the companion file-sync server
type ServerConfig struct {
	Addr    string `yaml:"addr" mapstructure:"addr"`
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"` // Where sessions.json and settings.json live
}

// LLMConfig holds extraction collaborator settings
type LLMConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model      string `yaml:"model" mapstructure:"model"`
	APIKey     string `yaml:"-" mapstructure:"api_key"` // Never written to config files
	BaseURL    string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout    int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens  int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// ConcurrencyConfig controls batch parallelism
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig throttles collaborator calls
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// LogConfig controls structured logging
type LogConfig struct {
	File       string `yaml:"file" mapstructure:"file"`
	Production bool   `yaml:"production" mapstructure:"production"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	base := defaultBaseDir()
	return &Config{
		Store: StoreConfig{
			Dir:       filepath.Join(base, "store"),
			MemoryTTL: 10 * time.Minute,
		},
		Sync: SyncConfig{
			Enabled: false,
			BaseURL: "http://127.0.0.1:5174",
			Timeout: 3 * time.Second,
		},
		Server: ServerConfig{
			Addr:    "127.0.0.1:5174",
			DataDir: filepath.Join(base, "sync"),
		},
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			Timeout:   120,
			MaxTokens: 4000,
		},
		Concurrency: ConcurrencyConfig{
			Workers: runtime.NumCPU(),
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         4,
		},
		Log: LogConfig{
			File: filepath.Join(base, "logs", "creditlens.log"),
		},
	}
}

func defaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".creditlens"
	}
	return filepath.Join(home, ".creditlens")
}
