// =============================================================================
// 📦 测试数据工厂 - 沙龙配置与消息
// =============================================================================
// 提供预定义的参与者、主持人与完整配置，用于装配与端到端测试
// =============================================================================
package fixtures

import (
	"fmt"

	"github.com/BaSui01/agentsalon/config"
	"github.com/BaSui01/agentsalon/llm"
	"github.com/samber/lo"
)

// 默认名称
const (
	ProviderName = "local"
	HostName     = "moderator"
	Model        = "deepseek-chat"
	APIKey       = "sk-test"
)

// =============================================================================
// 🤖 参与者配置工厂
// =============================================================================

// ParticipantConfig 返回一个使用 ProviderName 与 Model 的参与者
func ParticipantConfig(name, persona string) config.AgentConfig {
	return config.AgentConfig{
		Name:        name,
		Provider:    ProviderName,
		ModelParams: config.ModelParams{Model: Model},
		Persona:     persona,
	}
}

// ComedianConfig 返回 alice
func ComedianConfig() config.AgentConfig {
	return ParticipantConfig("alice", "A cheerful comedian.")
}

// CriticConfig 返回 bob，采样参数全部显式设置
func CriticConfig() config.AgentConfig {
	cfg := ParticipantConfig("bob", "A grumpy critic.")
	cfg.Temperature = lo.ToPtr(0.0)
	cfg.TopP = lo.ToPtr(0.8)
	cfg.MaxTokens = 512
	cfg.PresencePenalty = lo.ToPtr(0.3)
	return cfg
}

// HostConfig 返回主持人
func HostConfig() config.AgentConfig {
	return ParticipantConfig(HostName, "Keeps things moving.")
}

// =============================================================================
// 🏛️ 完整配置工厂
// =============================================================================

// SalonConfig 返回两位参与者加主持人、一轮、rotation 模式的配置，
// 唯一的 provider 指向 baseURL
func SalonConfig(baseURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Providers[ProviderName] = config.ProviderConfig{BaseURL: baseURL, APIKey: APIKey}
	cfg.Agents = []config.AgentConfig{ComedianConfig(), CriticConfig()}
	cfg.Host = HostConfig()
	cfg.Salon.Rounds = 1
	cfg.Salon.Topic = "Tonight is joke night!"
	return cfg
}

// CrowdConfig 返回 n 位参与者（agent-1 ... agent-n）的配置
func CrowdConfig(baseURL string, n int) *config.Config {
	cfg := SalonConfig(baseURL)
	cfg.Agents = lo.Times(n, func(i int) config.AgentConfig {
		return ParticipantConfig(fmt.Sprintf("agent-%d", i+1), "")
	})
	return cfg
}

// =============================================================================
// 💬 消息工厂
// =============================================================================

// SystemMessage 返回 system 消息
func SystemMessage(content string) llm.Message {
	return llm.Message{Role: llm.RoleSystem, Content: content}
}

// UserMessage 返回 user 消息
func UserMessage(content string) llm.Message {
	return llm.Message{Role: llm.RoleUser, Content: content}
}

// AssistantMessage 返回 assistant 消息
func AssistantMessage(content string) llm.Message {
	return llm.Message{Role: llm.RoleAssistant, Content: content}
}

// LongHistory 返回一条 system 消息加 turns 轮 user/assistant 消息
func LongHistory(turns int) []llm.Message {
	msgs := []llm.Message{SystemMessage("You are alice. A cheerful comedian.")}
	for i := range turns {
		msgs = append(msgs,
			UserMessage(fmt.Sprintf("bob said: joke number %d?\n\n(round %d of %d)", i, i+1, turns)),
			AssistantMessage(fmt.Sprintf("Here is joke number %d.", i)),
		)
	}
	return msgs
}
