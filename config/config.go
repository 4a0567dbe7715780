package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是沙龙的完整配置结构
type Config struct {
	// Providers 端点表，键为 provider 名称
	Providers map[string]ProviderConfig `yaml:"providers" validate:"required,min=1,dive"`

	// Agents 参与者，顺序即轮转顺序
	Agents []AgentConfig `yaml:"agents" validate:"required,min=1,dive"`

	// Host 主持人
	Host AgentConfig `yaml:"host"`

	// Salon 会话配置
	Salon SalonConfig `yaml:"salon" env:"."`

	// Templates 提示词模板
	Templates TemplateConfig `yaml:"templates"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Metrics 指标服务配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`

	// Transcript 对话记录配置
	Transcript TranscriptConfig `yaml:"transcript" env:"TRANSCRIPT"`
}

// ProviderConfig 一个 OpenAI 兼容端点
type ProviderConfig struct {
	// 基础 URL，例如 https://api.deepseek.com
	BaseURL string `yaml:"base_url" validate:"required,url"`
	// API Key；为空时读取 APIKeyEnv 指定的环境变量
	APIKey string `yaml:"api_key"`
	// 存放 API Key 的环境变量名
	APIKeyEnv string `yaml:"api_key_env"`
	// 聊天补全路径，默认 /v1/chat/completions
	EndpointPath string `yaml:"endpoint_path"`
	// 建连超时
	DialTimeout time.Duration `yaml:"dial_timeout" validate:"gte=0"`
	// 等待响应头超时；流本身不设总超时
	ResponseHeaderTimeout time.Duration `yaml:"response_header_timeout" validate:"gte=0"`
}

// ModelParams 采样参数。指针字段为 nil 表示使用默认值或不发送。
type ModelParams struct {
	Model            string   `yaml:"model" validate:"required"`
	Temperature      *float64 `yaml:"temperature" validate:"omitempty,gte=0,lte=2"`
	TopP             *float64 `yaml:"top_p" validate:"omitempty,gte=0,lte=1"`
	MaxTokens        int      `yaml:"max_tokens" validate:"gte=0"`
	PresencePenalty  *float64 `yaml:"presence_penalty" validate:"omitempty,gte=-2,lte=2"`
	FrequencyPenalty *float64 `yaml:"frequency_penalty" validate:"omitempty,gte=-2,lte=2"`
}

// AgentConfig 一个参与者或主持人
type AgentConfig struct {
	Name        string `yaml:"name" validate:"required"`
	Provider    string `yaml:"provider" validate:"required"`
	ModelParams `yaml:",inline"`
	// Persona 角色设定，会写入系统提示词
	Persona string `yaml:"persona"`
}

// SalonConfig 会话配置
type SalonConfig struct {
	// 模式: rotation, assignment, competition
	Mode string `yaml:"mode" env:"MODE" validate:"oneof=rotation assignment competition"`
	// 最大轮数
	Rounds int `yaml:"rounds" env:"ROUNDS" validate:"gte=1"`
	// 默认话题
	Topic string `yaml:"topic" env:"TOPIC"`
	// 全局并发请求上限
	MaxConcurrent int `yaml:"max_concurrent" env:"MAX_CONCURRENT" validate:"gte=1"`
	// 每秒新请求上限，0 表示不限
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"REQUESTS_PER_SECOND" validate:"gte=0"`
	// 限流突发
	Burst int `yaml:"burst" env:"BURST" validate:"gte=0"`
	// rotation/competition 模式下是否向观察者展示主持人发言
	ShowHostUtterance bool `yaml:"show_host_utterance" env:"SHOW_HOST_UTTERANCE"`
}

// PromptTemplate 系统提示词模板。
// Prefix 支持 {role} {role_prompt}；Participant 对每个其他参与者渲染一次。
type PromptTemplate struct {
	Prefix      string `yaml:"prefix"`
	Participant string `yaml:"participant"`
	Suffix      string `yaml:"suffix"`
}

// InboxTemplate 待处理消息折叠模板。
// Speaker 支持 {speaker} {message}；RoundIndex 支持 {current_round} {total_rounds}。
type InboxTemplate struct {
	Prefix     string `yaml:"prefix"`
	Speaker    string `yaml:"speaker"`
	Suffix     string `yaml:"suffix"`
	RoundIndex string `yaml:"round_index"`
}

// TemplateConfig 所有提示词模板
type TemplateConfig struct {
	SystemPrompt PromptTemplate `yaml:"system_prompt"`
	HostPrompt   PromptTemplate `yaml:"host_prompt"`
	// HostAssignmentSuffix 替换 assignment 模式下主持人提示词的 Suffix
	HostAssignmentSuffix string        `yaml:"host_assignment_suffix"`
	Inbox                InboxTemplate `yaml:"inbox"`
	// Directive 指派发言时广播的指令，支持 {speaker} {reason}
	Directive string `yaml:"directive"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL" validate:"oneof=debug info warn error"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT" validate:"oneof=json console"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE" validate:"gte=0,lte=1"`
}

// MetricsConfig Prometheus 指标与健康检查服务
type MetricsConfig struct {
	Enabled         bool          `yaml:"enabled" env:"ENABLED"`
	Addr            string        `yaml:"addr" env:"ADDR"`
	Namespace       string        `yaml:"namespace" env:"NAMESPACE"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// TranscriptConfig 对话记录存储
type TranscriptConfig struct {
	// 后端: none, memory, redis
	Backend string      `yaml:"backend" env:"BACKEND" validate:"oneof=none memory redis"`
	Redis   RedisConfig `yaml:"redis" env:"REDIS"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 最小空闲连接
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	// 键前缀
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
	// 记录过期时间，0 表示永不过期
	TTL time.Duration `yaml:"ttl" env:"TTL"`
	// 是否启用 TLS
	TLS bool `yaml:"tls" env:"TLS"`
}

// =============================================================================
// ✅ 校验
// =============================================================================

var validate = validator.New()

// Validate 验证配置：先做字段级校验，再做跨字段校验
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation errors: %w", err)
	}

	var errs []string

	names := lo.Map(c.Agents, func(a AgentConfig, _ int) string { return a.Name })
	if dups := lo.FindDuplicates(names); len(dups) > 0 {
		errs = append(errs, fmt.Sprintf("duplicate agent names: %s", strings.Join(dups, ", ")))
	}
	if lo.Contains(names, c.Host.Name) {
		errs = append(errs, fmt.Sprintf("host name %q collides with an agent name", c.Host.Name))
	}

	for _, a := range append(slices.Clone(c.Agents), c.Host) {
		if _, ok := c.Providers[a.Provider]; !ok {
			errs = append(errs, fmt.Sprintf("%s: unknown provider %q", a.Name, a.Provider))
		}
	}

	if c.Transcript.Backend == "redis" && c.Transcript.Redis.Addr == "" {
		errs = append(errs, "transcript.redis.addr is required for the redis backend")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ResolvedAPIKey 返回 API Key，APIKey 为空时从 APIKeyEnv 读取
func (p ProviderConfig) ResolvedAPIKey(getenv func(string) string) string {
	if p.APIKey != "" || p.APIKeyEnv == "" {
		return p.APIKey
	}
	return getenv(p.APIKeyEnv)
}
