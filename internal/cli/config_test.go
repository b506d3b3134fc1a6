package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/creditlens/internal/model"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteConfigTemplate_ReadsBackAsDefaults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeConfigTemplate(&buf, model.DefaultConfig()))
	assert.Contains(t, buf.String(), "export OPENAI_API_KEY")
	assert.NotContains(t, buf.String(), "api_key:")

	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewReader(buf.Bytes())))

	got := &model.Config{}
	require.NoError(t, v.Unmarshal(got))
	assert.Equal(t, model.DefaultConfig(), got)
}

func TestRenderConfig_HidesAPIKey(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.APIKey = "sk-secret"

	var buf bytes.Buffer
	require.NoError(t, renderConfig(&buf, cfg))
	assert.NotContains(t, buf.String(), "sk-secret")
	assert.Contains(t, buf.String(), "# llm api key: set")
}

func TestConfigInit_KeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfgFile = path
	t.Cleanup(func() {
		cfgFile = ""
		forceInit = false
	})

	require.NoError(t, configInitCmd.RunE(configInitCmd, nil))
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  provider: ollama\n"), 0o600))

	err := configInitCmd.RunE(configInitCmd, nil)
	require.Error(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "llm:\n  provider: ollama\n", string(data))

	forceInit = true
	require.NoError(t, configInitCmd.RunE(configInitCmd, nil))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# creditlens config")
}
