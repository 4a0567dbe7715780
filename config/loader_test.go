// 配置加载器与默认配置测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
providers:
  deepseek:
    base_url: "https://api.deepseek.com"
    api_key: "sk-test"

agents:
  - name: "alice"
    provider: "deepseek"
    model: "deepseek-chat"
    persona: "A cheerful comedian."
  - name: "bob"
    provider: "deepseek"
    model: "deepseek-reasoner"
    temperature: 0
    top_p: 0.8
    max_tokens: 512
    presence_penalty: 0.3
    persona: "A grumpy critic."

host:
  name: "moderator"
  provider: "deepseek"
  model: "deepseek-chat"
  persona: "Keeps things moving."
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "salon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// --- 默认配置测试 ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "rotation", cfg.Salon.Mode)
	assert.Equal(t, 10, cfg.Salon.Rounds)
	assert.Equal(t, 4, cfg.Salon.MaxConcurrent)
	assert.False(t, cfg.Salon.ShowHostUtterance)
	assert.Equal(t, DefaultHostName, cfg.Host.Name)

	assert.Equal(t, "{speaker} said: {message}\n", cfg.Templates.Inbox.Speaker)
	assert.Contains(t, cfg.Templates.Directive, "{speaker}")
	assert.Contains(t, cfg.Templates.HostAssignmentSuffix, "determine_next_speaker")

	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "none", cfg.Transcript.Backend)
	assert.Equal(t, "localhost:6379", cfg.Transcript.Redis.Addr)

	// 没有 provider 与 agent 的默认配置不能通过校验
	assert.Error(t, cfg.Validate())
}

func TestLoader_LoadFromYAML(t *testing.T) {
	yamlContent := minimalYAML + `
salon:
  mode: "assignment"
  rounds: 3
  topic: "Tonight is joke night!"
  max_concurrent: 2
  show_host_utterance: true

log:
  level: "debug"
  format: "json"

transcript:
  backend: "redis"
  redis:
    addr: "redis.example.com:6379"
    ttl: 1h
`
	cfg, err := NewLoader().WithConfigPath(writeConfig(t, yamlContent)).Load()
	require.NoError(t, err)

	assert.Equal(t, "assignment", cfg.Salon.Mode)
	assert.Equal(t, 3, cfg.Salon.Rounds)
	assert.Equal(t, "Tonight is joke night!", cfg.Salon.Topic)
	assert.Equal(t, 2, cfg.Salon.MaxConcurrent)
	assert.True(t, cfg.Salon.ShowHostUtterance)

	require.Len(t, cfg.Agents, 2)
	assert.Equal(t, "alice", cfg.Agents[0].Name)
	assert.Equal(t, "bob", cfg.Agents[1].Name)

	// 条目默认值
	require.NotNil(t, cfg.Agents[0].Temperature)
	assert.Equal(t, DefaultTemperature, *cfg.Agents[0].Temperature)
	assert.Equal(t, DefaultTopP, *cfg.Agents[0].TopP)
	assert.Nil(t, cfg.Agents[0].PresencePenalty)

	// 显式的 0 不被默认值覆盖
	assert.Equal(t, 0.0, *cfg.Agents[1].Temperature)
	assert.Equal(t, 0.8, *cfg.Agents[1].TopP)
	assert.Equal(t, 512, cfg.Agents[1].MaxTokens)
	assert.Equal(t, 0.3, *cfg.Agents[1].PresencePenalty)

	assert.Equal(t, "moderator", cfg.Host.Name)
	assert.Equal(t, DefaultEndpointPath, cfg.Providers["deepseek"].EndpointPath)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "redis.example.com:6379", cfg.Transcript.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Transcript.Redis.TTL)
	// 未覆盖的模板保持默认
	assert.Equal(t, DefaultTemplateConfig().Inbox, cfg.Templates.Inbox)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	t.Setenv("SALON_MODE", "competition")
	t.Setenv("SALON_ROUNDS", "7")
	t.Setenv("SALON_SHOW_HOST_UTTERANCE", "true")
	t.Setenv("SALON_LOG_LEVEL", "warn")
	t.Setenv("SALON_LOG_OUTPUT_PATHS", "stdout, /tmp/salon.log")
	t.Setenv("SALON_METRICS_SHUTDOWN_TIMEOUT", "2s")
	t.Setenv("SALON_TRANSCRIPT_REDIS_DB", "3")

	cfg, err := NewLoader().WithConfigPath(writeConfig(t, minimalYAML)).Load()
	require.NoError(t, err)

	assert.Equal(t, "competition", cfg.Salon.Mode)
	assert.Equal(t, 7, cfg.Salon.Rounds)
	assert.True(t, cfg.Salon.ShowHostUtterance)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, []string{"stdout", "/tmp/salon.log"}, cfg.Log.OutputPaths)
	assert.Equal(t, 2*time.Second, cfg.Metrics.ShutdownTimeout)
	assert.Equal(t, 3, cfg.Transcript.Redis.DB)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_ROUNDS", "2")

	cfg, err := NewLoader().
		WithConfigPath(writeConfig(t, minimalYAML)).
		WithEnvPrefix("MYAPP").
		Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Salon.Rounds)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("SALON_ROUNDS", "many")

	_, err := NewLoader().WithConfigPath(writeConfig(t, minimalYAML)).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SALON_ROUNDS")
}

func TestLoader_APIKeyFromEnv(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "sk-from-env")
	yamlContent := `
providers:
  deepseek:
    base_url: "https://api.deepseek.com"
    api_key_env: "DEEPSEEK_API_KEY"
agents:
  - {name: alice, provider: deepseek, model: deepseek-chat}
host:
  provider: deepseek
  model: deepseek-chat
`
	cfg, err := NewLoader().WithConfigPath(writeConfig(t, yamlContent)).Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.Providers["deepseek"].APIKey)
	assert.Equal(t, DefaultHostName, cfg.Host.Name)
}

func TestLoader_WithValidator(t *testing.T) {
	called := false
	_, err := NewLoader().
		WithConfigPath(writeConfig(t, minimalYAML)).
		WithValidator(func(cfg *Config) error {
			called = true
			if cfg.Salon.Rounds > 5 {
				return assert.AnError
			}
			return nil
		}).
		Load()
	assert.True(t, called)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestLoader_NonExistentFile(t *testing.T) {
	_, err := NewLoader().
		WithConfigPath("/non/existent/path/salon.yaml").
		Load()
	assert.Error(t, err)
}

func TestLoader_InvalidYAML(t *testing.T) {
	_, err := NewLoader().
		WithConfigPath(writeConfig(t, "salon:\n  rounds: [invalid\n  this is not valid yaml\n")).
		Load()
	assert.Error(t, err)
}

// --- Config 方法测试 ---

func TestConfig_Validate(t *testing.T) {
	base := func(t *testing.T) *Config {
		cfg, err := NewLoader().WithConfigPath(writeConfig(t, minimalYAML)).Load()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			modify: func(c *Config) {},
		},
		{
			name:    "unknown mode",
			modify:  func(c *Config) { c.Salon.Mode = "debate" },
			wantErr: "Mode",
		},
		{
			name:    "zero rounds",
			modify:  func(c *Config) { c.Salon.Rounds = 0 },
			wantErr: "Rounds",
		},
		{
			name:    "zero concurrency",
			modify:  func(c *Config) { c.Salon.MaxConcurrent = 0 },
			wantErr: "MaxConcurrent",
		},
		{
			name: "temperature too high",
			modify: func(c *Config) {
				v := 3.0
				c.Agents[0].Temperature = &v
			},
			wantErr: "Temperature",
		},
		{
			name:    "missing model",
			modify:  func(c *Config) { c.Agents[1].Model = "" },
			wantErr: "Model",
		},
		{
			name:    "invalid base url",
			modify:  func(c *Config) { c.Providers["deepseek"] = ProviderConfig{BaseURL: "not a url"} },
			wantErr: "BaseURL",
		},
		{
			name:    "duplicate agent",
			modify:  func(c *Config) { c.Agents[1].Name = "alice" },
			wantErr: "duplicate agent names: alice",
		},
		{
			name:    "host collides with agent",
			modify:  func(c *Config) { c.Host.Name = "bob" },
			wantErr: "collides",
		},
		{
			name:    "unknown provider",
			modify:  func(c *Config) { c.Agents[0].Provider = "openai" },
			wantErr: `alice: unknown provider "openai"`,
		},
		{
			name:    "redis backend without addr",
			modify:  func(c *Config) { c.Transcript.Backend = "redis"; c.Transcript.Redis.Addr = "" },
			wantErr: "transcript.redis.addr",
		},
		{
			name:    "unknown transcript backend",
			modify:  func(c *Config) { c.Transcript.Backend = "sqlite" },
			wantErr: "Backend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base(t)
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// --- MustLoad 测试 ---

func TestMustLoad_Success(t *testing.T) {
	path := writeConfig(t, minimalYAML)
	assert.NotPanics(t, func() {
		cfg := MustLoad(path)
		assert.Len(t, cfg.Agents, 2)
	})
}

func TestMustLoad_InvalidFile(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml")
	assert.Panics(t, func() {
		MustLoad(path)
	})
}
