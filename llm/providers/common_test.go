package providers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/agentsalon/llm"
)

func TestMapHTTPError(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		msg           string
		wantCode      llm.ErrorCode
		wantRetryable bool
	}{
		{"unauthorized", http.StatusUnauthorized, "bad key", llm.ErrUnauthorized, false},
		{"forbidden", http.StatusForbidden, "nope", llm.ErrForbidden, false},
		{"rate limited", http.StatusTooManyRequests, "slow down", llm.ErrRateLimited, true},
		{"quota", http.StatusBadRequest, "You exceeded your current Quota", llm.ErrQuotaExceeded, false},
		{"credit", http.StatusBadRequest, "insufficient credit", llm.ErrQuotaExceeded, false},
		{"bad request", http.StatusBadRequest, "messages is required", llm.ErrInvalidRequest, false},
		{"gateway timeout", http.StatusGatewayTimeout, "", llm.ErrUpstreamTimeout, true},
		{"request timeout", http.StatusRequestTimeout, "", llm.ErrUpstreamTimeout, true},
		{"overloaded", 529, "busy", llm.ErrModelOverloaded, true},
		{"server error", http.StatusInternalServerError, "oops", llm.ErrUpstreamError, true},
		{"not found", http.StatusNotFound, "no such model", llm.ErrUpstreamError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapHTTPError(tt.status, tt.msg, "p")
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Equal(t, tt.wantRetryable, err.Retryable)
			assert.Equal(t, tt.status, err.HTTPStatus)
			assert.Equal(t, "p", err.Provider)
			assert.Equal(t, tt.msg, err.Message)
		})
	}
}

func TestReadErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"object error", `{"error":{"message":"invalid model","type":"invalid_request_error"}}`, "invalid model (type: invalid_request_error)"},
		{"object without type", `{"error":{"message":"invalid model"}}`, "invalid model"},
		{"string error", `{"error":"rate limit"}`, "rate limit"},
		{"plain text", "  Bad Gateway\n", "Bad Gateway"},
		{"json without error", `{"detail":"x"}`, `{"detail":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReadErrorMessage(strings.NewReader(tt.body)))
		})
	}
}

func TestErrorFrameMessage_Empty(t *testing.T) {
	for _, raw := range []string{"", "null", "false", "0", `""`, `"  "`, "{}", "[]", " {} "} {
		assert.Empty(t, ErrorFrameMessage(json.RawMessage(raw)), "raw=%q", raw)
	}
	assert.Empty(t, ErrorFrameMessage(nil))
}

func TestErrorFrameMessage(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`{"message":"quota exceeded","type":"rate_limit"}`, "quota exceeded (type: rate_limit)"},
		{`{"message":"bad gateway"}`, "bad gateway"},
		{`"upstream closed"`, "upstream closed"},
		{`{"code":500}`, `{"code":500}`},
		{"true", "true"},
		{"503", "503"},
		{"not json", "not json"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorFrameMessage(json.RawMessage(tt.raw)))
		})
	}
}

func TestBuildStreamRequest(t *testing.T) {
	maxTokens := 256
	presence := float32(0.5)
	req := &llm.ChatRequest{
		Model: "deepseek-chat",
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "you are alice"},
			{Role: llm.RoleUser, Content: ""},
		},
		Temperature:     0,
		TopP:            0.9,
		MaxTokens:       maxTokens,
		PresencePenalty: &presence,
		Tools: []llm.ToolSchema{{
			Name:        "mark_task_as_completed",
			Description: "done",
			Parameters:  json.RawMessage(`{"type":"object"}`),
		}},
	}

	raw, err := json.Marshal(BuildStreamRequest(req))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.Equal(t, "deepseek-chat", got["model"])
	assert.Equal(t, true, got["stream"])
	assert.Equal(t, float64(0), got["temperature"])
	assert.InDelta(t, 0.9, got["top_p"], 1e-6)
	assert.Equal(t, float64(256), got["max_tokens"])
	assert.Equal(t, 0.5, got["presence_penalty"])
	assert.NotContains(t, got, "frequency_penalty")

	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	// 空内容也要序列化
	assert.Equal(t, map[string]any{"role": "user", "content": ""}, msgs[1])

	tools := got["tools"].([]any)
	require.Len(t, tools, 1)
	tool := tools[0].(map[string]any)
	assert.Equal(t, "function", tool["type"])
	assert.Equal(t, "mark_task_as_completed", tool["function"].(map[string]any)["name"])
}

func TestBuildStreamRequest_OmitsOptionalFields(t *testing.T) {
	raw, err := json.Marshal(BuildStreamRequest(&llm.ChatRequest{Model: "m"}))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.NotContains(t, got, "tools")
	assert.NotContains(t, got, "max_tokens")
	assert.NotContains(t, got, "presence_penalty")
	assert.Contains(t, got, "top_p")
}
