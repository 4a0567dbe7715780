// MockProvider 的 LLM 提供商测试模拟实现。
//
// 按调用顺序回放预先编排的 SSE 响应体，经过真实的流式解码器，
// 支持错误注入与阻塞至 ctx 取消的场景。
package mocks

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/BaSui01/agentsalon/llm"
	"github.com/BaSui01/agentsalon/llm/streaming"
)

// ErrScriptExhausted 编排的响应已用完
var ErrScriptExhausted = errors.New("mocks: no scripted response left")

// --- MockProvider 结构 ---

// Script 描述一次 Stream 调用的结果
type Script struct {
	// Body SSE 响应体，交给流式解码器
	Body string
	// Err 非空时 Stream 直接返回该错误
	Err error
	// Block 为 true 时通道保持打开直到 ctx 取消
	Block bool
}

// MockProvider 是 llm.Provider 的模拟实现
type MockProvider struct {
	mu sync.Mutex

	name    string
	scripts []Script
	calls   []*llm.ChatRequest

	streamFunc func(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error)
}

// NewMockProvider 创建新的 MockProvider
func NewMockProvider() *MockProvider {
	return &MockProvider{name: "mock"}
}

// --- Builder 方法 ---

// WithName 设置 Provider 名称
func (m *MockProvider) WithName(name string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
	return m
}

// WithScripts 追加按顺序回放的响应
func (m *MockProvider) WithScripts(scripts ...Script) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts = append(m.scripts, scripts...)
	return m
}

// WithBodies 追加按顺序回放的 SSE 响应体
func (m *MockProvider) WithBodies(bodies ...string) *MockProvider {
	for _, b := range bodies {
		m.WithScripts(Script{Body: b})
	}
	return m
}

// WithStreamFunc 设置自定义 Stream 函数，优先于编排的响应
func (m *MockProvider) WithStreamFunc(fn func(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error)) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamFunc = fn
	return m
}

// --- Provider 接口实现 ---

// Name 返回 Provider 名称
func (m *MockProvider) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

// Stream 记录请求并回放下一个编排的响应
func (m *MockProvider) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	m.mu.Lock()
	m.calls = append(m.calls, cloneRequest(req))
	fn := m.streamFunc
	var script Script
	var ok bool
	if fn == nil && len(m.scripts) > 0 {
		script, m.scripts, ok = m.scripts[0], m.scripts[1:], true
	}
	name := m.name
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if !ok {
		return nil, ErrScriptExhausted
	}
	if script.Err != nil {
		return nil, script.Err
	}
	if script.Block {
		ch := make(chan llm.StreamChunk)
		go func() {
			defer close(ch)
			<-ctx.Done()
		}()
		return ch, nil
	}
	return streaming.Stream(ctx, io.NopCloser(strings.NewReader(script.Body)), name, nil, nil), nil
}

// --- 调用记录 ---

// Calls 返回所有请求的副本
func (m *MockProvider) Calls() []*llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*llm.ChatRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount 返回调用次数
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// LastCall 返回最后一次请求，没有调用时返回 nil
func (m *MockProvider) LastCall() *llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}

// Remaining 返回尚未回放的响应数
func (m *MockProvider) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.scripts)
}

func cloneRequest(req *llm.ChatRequest) *llm.ChatRequest {
	if req == nil {
		return nil
	}
	c := *req
	c.Messages = append([]llm.Message(nil), req.Messages...)
	c.Tools = append([]llm.ToolSchema(nil), req.Tools...)
	return &c
}
