package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/BaSui01/agentsalon/llm/providers"
)

// =============================================================================
// 🛰️ SSE 测试服务器
// =============================================================================

// RecordedRequest 是 SSEServer 收到的一次请求
type RecordedRequest struct {
	Header http.Header
	Path   string
	Body   providers.OpenAICompatRequest
}

// SSEServer 按顺序回放响应体的 OpenAI 兼容测试端点。
// 每个响应体按帧（以空行分隔）写出并逐帧 flush。
type SSEServer struct {
	*httptest.Server

	mu       sync.Mutex
	bodies   []string
	requests []RecordedRequest
}

// NewSSEServer 启动测试服务器，测试结束时自动关闭
func NewSSEServer(t *testing.T, bodies ...string) *SSEServer {
	t.Helper()
	s := &SSEServer{bodies: bodies}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Enqueue 追加响应体
func (s *SSEServer) Enqueue(bodies ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies = append(s.bodies, bodies...)
}

// Requests 返回已收到请求的副本
func (s *SSEServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

func (s *SSEServer) handle(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body providers.OpenAICompatRequest
	_ = json.Unmarshal(raw, &body)

	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{Header: r.Header.Clone(), Path: r.URL.Path, Body: body})
	var next string
	ok := len(s.bodies) > 0
	if ok {
		next, s.bodies = s.bodies[0], s.bodies[1:]
	}
	s.mu.Unlock()

	if !ok {
		http.Error(w, `{"error":{"message":"no scripted response","type":"test"}}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	for _, frame := range strings.SplitAfter(next, "\n\n") {
		if frame == "" {
			continue
		}
		if _, err := io.WriteString(w, frame); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}
