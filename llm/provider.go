package llm

import (
	"context"
	"encoding/json"
)

// 统一的 LLM 错误码，用于对齐 HTTP 状态与会话终止策略。
type ErrorCode string

const (
	ErrInvalidRequest      ErrorCode = "LLM_INVALID_REQUEST"      // 参数/格式错误
	ErrUnauthorized        ErrorCode = "LLM_UNAUTHORIZED"         // 未授权或密钥失效
	ErrForbidden           ErrorCode = "LLM_FORBIDDEN"            // 权限或内容策略拒绝
	ErrRateLimited         ErrorCode = "LLM_RATE_LIMITED"         // 上游限流
	ErrQuotaExceeded       ErrorCode = "LLM_QUOTA_EXCEEDED"       // 额度/配额用尽
	ErrModelOverloaded     ErrorCode = "LLM_MODEL_OVERLOADED"     // 模型过载
	ErrUpstreamTimeout     ErrorCode = "LLM_UPSTREAM_TIMEOUT"     // 上游超时
	ErrUpstreamError       ErrorCode = "LLM_UPSTREAM_ERROR"       // 上游 5xx/网络错误
	ErrStreamError         ErrorCode = "LLM_STREAM_ERROR"         // 流内显式 error 帧
	ErrToolArguments       ErrorCode = "LLM_TOOL_ARGUMENTS"       // 工具调用参数拼接后无法解析
	ErrProviderUnavailable ErrorCode = "LLM_PROVIDER_UNAVAILABLE" // Provider 未配置
)

// Error 是所有远端调用失败的统一表示。
// 本项目不做自动重试，Retryable 仅供调用方决定是否重启会话。
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
}

func (e *Error) Error() string {
	if e.Provider == "" {
		return string(e.Code) + ": " + e.Message
	}
	return e.Provider + ": " + string(e.Code) + ": " + e.Message
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message 是历史记录中的一条消息，只追加不修改。
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ToolSchema 描述一个可供模型调用的函数。
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"` // JSON Schema
}

// ToolCallDelta 是流式响应中的一个工具调用片段。
// Arguments 是参数 JSON 文本的一部分，需要按到达顺序拼接。
type ToolCallDelta struct {
	Index     int    `json:"index"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// FunctionCall 是拼接并解析完成后的工具调用。
type FunctionCall struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ChatRequest 是一次流式补全请求；Stream 总是开启。
type ChatRequest struct {
	Model            string       `json:"model"`
	Messages         []Message    `json:"messages"`
	Temperature      float32      `json:"temperature"`
	TopP             float32      `json:"top_p"`
	MaxTokens        int          `json:"max_tokens,omitempty"`
	PresencePenalty  *float32     `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float32     `json:"frequency_penalty,omitempty"`
	Tools            []ToolSchema `json:"tools,omitempty"`
}

// DeltaKind 标识增量的类型。
type DeltaKind string

const (
	DeltaContent   DeltaKind = "content"
	DeltaReasoning DeltaKind = "reasoning"
	DeltaToolCall  DeltaKind = "tool_call"
)

// StreamChunk 是解码器产出的一个增量。
// Err 非空时表示致命错误，之后通道关闭；正常结束只关闭通道。
type StreamChunk struct {
	Kind     DeltaKind      `json:"kind,omitempty"`
	Text     string         `json:"text,omitempty"`
	ToolCall *ToolCallDelta `json:"tool_call,omitempty"`
	Err      *Error         `json:"error,omitempty"`
}

// Provider 是流式补全端点的抽象。
// 返回的通道必须被读完或通过 ctx 取消，否则底层连接与并发槽位不会释放。
type Provider interface {
	// Stream 发起流式聊天请求，返回增量通道
	Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error)

	// Name 返回 Provider 的唯一标识
	Name() string
}
