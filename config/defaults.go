// =============================================================================
// 📦 Salon 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

const (
	// DefaultEndpointPath 聊天补全路径
	DefaultEndpointPath = "/v1/chat/completions"
	// DefaultHostName 主持人名称
	DefaultHostName = "host"
	// DefaultTemperature 默认温度
	DefaultTemperature = 0.7
	// DefaultTopP 默认 top_p
	DefaultTopP = 1.0
)

// DefaultConfig 返回默认配置。providers 与 agents 没有默认值，必须由配置文件提供。
func DefaultConfig() *Config {
	return &Config{
		Providers:  map[string]ProviderConfig{},
		Host:       AgentConfig{Name: DefaultHostName},
		Salon:      DefaultSalonConfig(),
		Templates:  DefaultTemplateConfig(),
		Log:        DefaultLogConfig(),
		Telemetry:  DefaultTelemetryConfig(),
		Metrics:    DefaultMetricsConfig(),
		Transcript: DefaultTranscriptConfig(),
	}
}

// DefaultSalonConfig 返回默认会话配置
func DefaultSalonConfig() SalonConfig {
	return SalonConfig{
		Mode:              "rotation",
		Rounds:            10,
		MaxConcurrent:     4,
		RequestsPerSecond: 0,
		Burst:             1,
		ShowHostUtterance: false,
	}
}

// DefaultTemplateConfig 返回默认提示词模板
func DefaultTemplateConfig() TemplateConfig {
	return TemplateConfig{
		SystemPrompt: PromptTemplate{
			Prefix: "You are {role}. {role_prompt}\n\n" +
				"You are taking part in a salon discussion together with these participants:\n",
			Participant: "- {role}: {role_prompt}\n",
			Suffix: "\nStay in character, respond to what the others have said, " +
				"and keep each reply focused.",
		},
		HostPrompt: PromptTemplate{
			Prefix:      "You are {role}, the host of a salon discussion. {role_prompt}\n\nThe participants are:\n",
			Participant: "- {role}: {role_prompt}\n",
			Suffix: "\nGuide the discussion. When it has reached its goal, " +
				"call mark_task_as_completed with all_steps_done set to true.",
		},
		HostAssignmentSuffix: "\nAfter each of your turns, call determine_next_speaker to pick exactly one " +
			"participant from the list above and give a short reason. When the discussion has " +
			"reached its goal, call mark_task_as_completed with all_steps_done set to true instead.",
		Inbox: InboxTemplate{
			Prefix:     "",
			Speaker:    "{speaker} said: {message}\n",
			Suffix:     "",
			RoundIndex: "\n(round {current_round} of {total_rounds})",
		},
		Directive: "{speaker} should speak now; reason: {reason}",
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "agentsalon",
		SampleRate:   0.1,
	}
}

// DefaultMetricsConfig 返回默认指标服务配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:         false,
		Addr:            ":9091",
		Namespace:       "agentsalon",
		ShutdownTimeout: 5 * time.Second,
	}
}

// DefaultTranscriptConfig 返回默认对话记录配置
func DefaultTranscriptConfig() TranscriptConfig {
	return TranscriptConfig{
		Backend: "none",
		Redis:   DefaultRedisConfig(),
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		KeyPrefix:    "agentsalon:transcript:",
		TTL:          7 * 24 * time.Hour,
	}
}
