package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/creditlens/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	noLog   bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "creditlens",
	Short: "CreditLens - credit agreement term extraction and benchmarking",
	Long: `CreditLens reads credit agreements, extracts standard terms, and grades
each one against a benchmark profile (Green / Yellow / Red).

Deal sessions and settings live in a local store. When sync is enabled they
are mirrored, best-effort, to a companion file-sync server ("creditlens serve")
so the same data survives across machines and restarts.

Extraction, chat, and financials are delegated to an LLM provider.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number and build information for CreditLens.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("creditlens v0.3.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.creditlens/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noLog, "no-log", false, "disable the log file and console warnings")
	rootCmd.PersistentFlags().String("store-dir", "", "local store directory (empty keeps data in memory)")
	rootCmd.PersistentFlags().Bool("sync", false, "mirror sessions and settings to the file-sync server")
	rootCmd.PersistentFlags().String("sync-url", "", "file-sync server base URL")
	rootCmd.PersistentFlags().String("llm-provider", "", "LLM provider (openai, anthropic, ollama)")
	rootCmd.PersistentFlags().String("llm-model", "", "LLM model name")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("store.dir", rootCmd.PersistentFlags().Lookup("store-dir"))
	_ = viper.BindPFlag("sync.enabled", rootCmd.PersistentFlags().Lookup("sync"))
	_ = viper.BindPFlag("sync.base_url", rootCmd.PersistentFlags().Lookup("sync-url"))
	_ = viper.BindPFlag("llm.provider", rootCmd.PersistentFlags().Lookup("llm-provider"))
	_ = viper.BindPFlag("llm.model", rootCmd.PersistentFlags().Lookup("llm-model"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	setDefaults(model.DefaultConfig())

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(filepath.Join(home, ".creditlens"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match CREDITLENS_*, e.g. CREDITLENS_SYNC_BASE_URL
	viper.SetEnvPrefix("CREDITLENS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every config key so env overrides apply to keys
// absent from the config file
func setDefaults(cfg *model.Config) {
	viper.SetDefault("store.dir", cfg.Store.Dir)
	viper.SetDefault("store.memory_ttl", cfg.Store.MemoryTTL)
	viper.SetDefault("sync.enabled", cfg.Sync.Enabled)
	viper.SetDefault("sync.base_url", cfg.Sync.BaseURL)
	viper.SetDefault("sync.timeout", cfg.Sync.Timeout)
	viper.SetDefault("server.addr", cfg.Server.Addr)
	viper.SetDefault("server.data_dir", cfg.Server.DataDir)
	viper.SetDefault("llm.provider", cfg.LLM.Provider)
	viper.SetDefault("llm.model", cfg.LLM.Model)
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.base_url", cfg.LLM.BaseURL)
	viper.SetDefault("llm.timeout", cfg.LLM.Timeout)
	viper.SetDefault("llm.max_tokens", cfg.LLM.MaxTokens)
	viper.SetDefault("llm.http_proxy", cfg.LLM.HTTPProxy)
	viper.SetDefault("llm.https_proxy", cfg.LLM.HTTPSProxy)
	viper.SetDefault("llm.no_proxy", cfg.LLM.NoProxy)
	viper.SetDefault("concurrency.workers", cfg.Concurrency.Workers)
	viper.SetDefault("rate_limiting.requests_per_second", cfg.RateLimiting.RequestsPerSecond)
	viper.SetDefault("rate_limiting.burst_size", cfg.RateLimiting.BurstSize)
	viper.SetDefault("log.file", cfg.Log.File)
	viper.SetDefault("log.production", cfg.Log.Production)
}

// loadConfig resolves the effective configuration: flags, env, config file, defaults
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// The default model name is OpenAI's; other providers pick their own
	if !strings.EqualFold(cfg.LLM.Provider, "openai") && cfg.LLM.Model == model.DefaultConfig().LLM.Model {
		cfg.LLM.Model = ""
	}

	// Provider credentials come from the provider's own environment variable
	// unless set explicitly
	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case "anthropic", "claude":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	case "ollama":
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" && cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = baseURL
		}
	}

	return cfg, nil
}
