package providers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/BaSui01/agentsalon/llm"
)

// MapHTTPError 将 HTTP 状态码映射为 llm.Error
// 这是所有提供者使用的通用错误映射函数
func MapHTTPError(status int, msg string, provider string) *llm.Error {
	switch status {
	case http.StatusUnauthorized:
		return &llm.Error{
			Code:       llm.ErrUnauthorized,
			Message:    msg,
			HTTPStatus: status,
			Provider:   provider,
		}
	case http.StatusForbidden:
		return &llm.Error{
			Code:       llm.ErrForbidden,
			Message:    msg,
			HTTPStatus: status,
			Provider:   provider,
		}
	case http.StatusTooManyRequests:
		return &llm.Error{
			Code:       llm.ErrRateLimited,
			Message:    msg,
			HTTPStatus: status,
			Retryable:  true,
			Provider:   provider,
		}
	case http.StatusBadRequest:
		// 检查配额/信用关键字
		msgLower := strings.ToLower(msg)
		if strings.Contains(msgLower, "quota") ||
			strings.Contains(msgLower, "credit") {
			return &llm.Error{
				Code:       llm.ErrQuotaExceeded,
				Message:    msg,
				HTTPStatus: status,
				Provider:   provider,
			}
		}
		return &llm.Error{
			Code:       llm.ErrInvalidRequest,
			Message:    msg,
			HTTPStatus: status,
			Provider:   provider,
		}
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return &llm.Error{
			Code:       llm.ErrUpstreamTimeout,
			Message:    msg,
			HTTPStatus: status,
			Retryable:  true,
			Provider:   provider,
		}
	case 529: // Model overloaded (used by some providers)
		return &llm.Error{
			Code:       llm.ErrModelOverloaded,
			Message:    msg,
			HTTPStatus: status,
			Retryable:  true,
			Provider:   provider,
		}
	default:
		return &llm.Error{
			Code:       llm.ErrUpstreamError,
			Message:    msg,
			HTTPStatus: status,
			Retryable:  status >= 500,
			Provider:   provider,
		}
	}
}

// ReadErrorMessage 读取响应体中的错误消息
// 尝试解析 JSON 错误响应，失败则回退到原始文本
func ReadErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil {
		return "failed to read error response"
	}

	var errResp OpenAICompatErrorResp
	if err := json.Unmarshal(data, &errResp); err == nil {
		if msg := ErrorFrameMessage(errResp.Error); msg != "" {
			return msg
		}
	}

	return strings.TrimSpace(string(data))
}

// ErrorFrameMessage 从 error 字段中提取可读消息。
// error 可能是 {"message": "...", "type": "..."} 对象，也可能是纯字符串。
// null、false、0、空字符串、空对象和空数组都不算错误，返回 "".
func ErrorFrameMessage(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return ""
	}

	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return trimmed
	}

	switch val := v.(type) {
	case nil:
		return ""
	case bool:
		if !val {
			return ""
		}
	case float64:
		if val == 0 {
			return ""
		}
	case string:
		return strings.TrimSpace(val)
	case []any:
		if len(val) == 0 {
			return ""
		}
	case map[string]any:
		if len(val) == 0 {
			return ""
		}
		msg, _ := val["message"].(string)
		if msg == "" {
			return trimmed
		}
		if typ, _ := val["type"].(string); typ != "" {
			return fmt.Sprintf("%s (type: %s)", msg, typ)
		}
		return msg
	}
	return trimmed
}

// OpenAI 兼容 API 通用类型.

// OpenAICompatMessage 表示 OpenAI 兼容的消息格式.
type OpenAICompatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAICompatFunctionDef 表示工具定义中的函数描述.
type OpenAICompatFunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

// OpenAICompatTool 表示 OpenAI 兼容的工具定义.
type OpenAICompatTool struct {
	Type     string                  `json:"type"`
	Function OpenAICompatFunctionDef `json:"function"`
}

// OpenAICompatRequest 表示 OpenAI 兼容的流式聊天请求.
// temperature 与 top_p 总是序列化，0 是合法值。
type OpenAICompatRequest struct {
	Model            string                `json:"model"`
	Messages         []OpenAICompatMessage `json:"messages"`
	Temperature      float32               `json:"temperature"`
	TopP             float32               `json:"top_p"`
	MaxTokens        int                   `json:"max_tokens,omitempty"`
	PresencePenalty  *float32              `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float32              `json:"frequency_penalty,omitempty"`
	Stream           bool                  `json:"stream"`
	Tools            []OpenAICompatTool    `json:"tools,omitempty"`
}

// OpenAICompatToolCallDelta 表示流式增量中的工具调用片段.
// arguments 是 JSON 文本的一段，不能按结构解析.
type OpenAICompatToolCallDelta struct {
	Index    int    `json:"index"`
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function"`
}

// OpenAICompatDelta 表示 choices[i].delta.
type OpenAICompatDelta struct {
	Role             string                      `json:"role,omitempty"`
	Content          string                      `json:"content,omitempty"`
	ReasoningContent string                      `json:"reasoning_content,omitempty"`
	ToolCalls        []OpenAICompatToolCallDelta `json:"tool_calls,omitempty"`
}

// OpenAICompatStreamChoice 表示流式响应中的单个选项.
type OpenAICompatStreamChoice struct {
	Index        int                `json:"index"`
	FinishReason string             `json:"finish_reason,omitempty"`
	Delta        *OpenAICompatDelta `json:"delta,omitempty"`
}

// OpenAICompatStreamChunk 表示一个 `data:` 帧的 JSON 负载.
type OpenAICompatStreamChunk struct {
	ID      string                     `json:"id,omitempty"`
	Model   string                     `json:"model,omitempty"`
	Choices []OpenAICompatStreamChoice `json:"choices,omitempty"`
	Error   json.RawMessage            `json:"error,omitempty"`
}

// OpenAICompatErrorResp 表示 OpenAI 兼容的错误响应.
type OpenAICompatErrorResp struct {
	Error json.RawMessage `json:"error"`
}

// ConvertMessagesToOpenAI 将 llm.Message 切片转换为 OpenAI 兼容格式.
func ConvertMessagesToOpenAI(msgs []llm.Message) []OpenAICompatMessage {
	out := make([]OpenAICompatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, OpenAICompatMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return out
}

// ConvertToolsToOpenAI 将 llm.ToolSchema 切片转换为 OpenAI 兼容格式.
func ConvertToolsToOpenAI(tools []llm.ToolSchema) []OpenAICompatTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]OpenAICompatTool, 0, len(tools))
	for _, t := range tools {
		out = append(out, OpenAICompatTool{
			Type: "function",
			Function: OpenAICompatFunctionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}

// BuildStreamRequest 把 llm.ChatRequest 转换为线上请求体，stream 固定为 true.
func BuildStreamRequest(req *llm.ChatRequest) OpenAICompatRequest {
	return OpenAICompatRequest{
		Model:            req.Model,
		Messages:         ConvertMessagesToOpenAI(req.Messages),
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		MaxTokens:        req.MaxTokens,
		PresencePenalty:  req.PresencePenalty,
		FrequencyPenalty: req.FrequencyPenalty,
		Stream:           true,
		Tools:            ConvertToolsToOpenAI(req.Tools),
	}
}
