package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "openai", c.LLMProvider)
	assert.Equal(t, "gpt-4.1-nano", c.LLMModel)
	assert.Equal(t, 5000, c.HTTPPort)
	assert.Equal(t, 10*time.Second, c.ConnectTimeout)
	assert.Equal(t, 5*time.Second, c.ReceiveTimeout)
	assert.Equal(t, 3, c.MaxProbeFailures)
	assert.Equal(t, 50, c.BufferCapacity)
	assert.Equal(t, 300*time.Second, c.BufferWindow)

	s := c.Session()
	assert.Equal(t, 100*time.Millisecond, s.SummaryDelay)
	assert.Equal(t, 5*time.Second, s.DetachedWait)

	opts := c.Deepgram()
	assert.Equal(t, "nl", opts.Language)
	assert.Equal(t, 16000, opts.SampleRate)
}

func TestLoadFromYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm_provider: Gemini
keepalive_timeout: 2s
buffer_capacity: 20
`), 0o644))

	t.Setenv("GEMINI_API_KEY", "from-env")

	v := viper.New()
	v.SetConfigFile(path)
	v.AutomaticEnv()
	require.NoError(t, v.ReadInConfig())

	c, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "gemini", c.LLMProvider)
	assert.Equal(t, "gemini-1.5-flash", c.LLMModel)
	assert.Equal(t, 2*time.Second, c.ReceiveTimeout)
	assert.Equal(t, 20, c.BufferCapacity)
	assert.Equal(t, "from-env", c.GeminiAPIKey)
	assert.NoError(t, c.RequireLanguageModel())
}

func TestValidateCollectsErrors(t *testing.T) {
	v := viper.New()
	v.Set("llm_provider", "anthropic")
	v.Set("max_probe_failures", 0)
	v.Set("http_port", 70000)

	_, err := Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm_provider")
	assert.Contains(t, err.Error(), "max_probe_failures")
	assert.Contains(t, err.Error(), "http_port")
}

func TestRequireKeys(t *testing.T) {
	c, err := Load(viper.New())
	require.NoError(t, err)

	assert.EqualError(t, c.RequireDeepgram(), "missing DEEPGRAM_API_KEY or --deepgram-api-key=")
	assert.EqualError(t, c.RequireLanguageModel(), "missing OPENAI_API_KEY or --openai-api-key=")

	c.DeepgramAPIKey = "dg"
	assert.NoError(t, c.RequireDeepgram())
}
