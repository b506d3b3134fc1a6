package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ppiankov/creditlens/internal/model"
	"github.com/ppiankov/creditlens/internal/objstore"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var forceInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the creditlens config file",
	Long: `Settings resolve from flags first, then CREDITLENS_* environment variables,
then ~/.creditlens/config.yaml, then built-in defaults.

Provider credentials come from OPENAI_API_KEY or ANTHROPIC_API_KEY and are
never written to the config file.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if used := viper.ConfigFileUsed(); used != "" {
			fmt.Fprintf(os.Stderr, "# loaded from %s\n", used)
		} else {
			fmt.Fprintln(os.Stderr, "# no config file found, built-in defaults")
		}
		return renderConfig(cmd.OutOrStdout(), cfg)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Write the built-in defaults to ~/.creditlens/config.yaml, or to the path
given by --config. An existing file is kept unless --force is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configFilePath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !forceInit {
			return fmt.Errorf("%s already exists (use --force to replace it)", path)
		}

		var buf bytes.Buffer
		if err := writeConfigTemplate(&buf, model.DefaultConfig()); err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		if err := objstore.AtomicWriteFile(path, buf.Bytes(), 0o600); err != nil {
			return fmt.Errorf("write config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ wrote %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "overwrite an existing config file")

	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

func configFilePath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".creditlens", "config.yaml"), nil
}

// renderConfig prints cfg as YAML. The API key has no YAML field, so only
// whether one is set is reported.
func renderConfig(w io.Writer, cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	keyState := "not set"
	if cfg.LLM.APIKey != "" {
		keyState = "set"
	}
	_, err = fmt.Fprintf(w, "%s\n# llm api key: %s\n", data, keyState)
	return err
}

func writeConfigTemplate(w io.Writer, cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	_, err = fmt.Fprintf(w, `# creditlens config
#
# store.dir empty keeps sessions in memory for the life of the process.
# sync.enabled mirrors sessions and settings to "creditlens serve" at sync.base_url.

%s
# Credentials stay in the environment:
#   export OPENAI_API_KEY=sk-...
#   export ANTHROPIC_API_KEY=sk-ant-...
#   export OLLAMA_BASE_URL=http://localhost:11434
`, data)
	return err
}
