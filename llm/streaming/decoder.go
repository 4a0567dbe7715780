package streaming

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/agentsalon/llm"
	"github.com/BaSui01/agentsalon/llm/providers"
)

const (
	dataPrefix   = "data:"
	doneSentinel = "[DONE]"
)

// Decoder 把 OpenAI 兼容的 SSE 响应体解码为类型化增量。
//
// 每次 Next 返回一个增量；io.EOF 表示正常结束（[DONE] 或连接关闭），
// 其他错误都是致命的，之后 Next 始终返回同一个错误。
type Decoder struct {
	r        *bufio.Reader
	provider string
	logger   *zap.Logger

	err     error
	skipped int
}

// NewDecoder 创建解码器。logger 为 nil 时不输出日志。
func NewDecoder(r io.Reader, provider string, logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{
		r:        bufio.NewReader(r),
		provider: provider,
		logger:   logger.With(zap.String("component", "sse_decoder"), zap.String("provider", provider)),
	}
}

// Skipped 返回因 JSON 解析失败而被跳过的负载数量。
func (d *Decoder) Skipped() int { return d.skipped }

// Next 返回下一个增量。
func (d *Decoder) Next() (llm.StreamChunk, error) {
	if d.err != nil {
		return llm.StreamChunk{}, d.err
	}
	for {
		line, readErr := d.r.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			d.err = &llm.Error{
				Code:       llm.ErrUpstreamError,
				Message:    readErr.Error(),
				HTTPStatus: http.StatusBadGateway,
				Retryable:  true,
				Provider:   d.provider,
			}
			return llm.StreamChunk{}, d.err
		}

		// 最后一行可能没有换行符，先处理再结束
		chunk, ok, err := d.decodeLine(line)
		if err != nil {
			d.err = err
			return llm.StreamChunk{}, err
		}
		if ok {
			if readErr != nil {
				d.err = io.EOF
			}
			return chunk, nil
		}
		if d.err != nil {
			return llm.StreamChunk{}, d.err
		}
		if readErr != nil {
			d.err = io.EOF
			return llm.StreamChunk{}, io.EOF
		}
	}
}

// decodeLine 处理一行输入。ok 为 true 时 chunk 有效；
// 遇到 [DONE] 时设置 d.err = io.EOF。
func (d *Decoder) decodeLine(line string) (llm.StreamChunk, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, dataPrefix) {
		return llm.StreamChunk{}, false, nil
	}
	data := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
	if data == doneSentinel {
		d.err = io.EOF
		return llm.StreamChunk{}, false, nil
	}

	var payload providers.OpenAICompatStreamChunk
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		d.skipped++
		d.logger.Warn("skipping malformed stream payload",
			zap.Error(err),
			zap.String("data", data))
		return llm.StreamChunk{}, false, nil
	}

	if len(payload.Choices) == 0 {
		msg := providers.ErrorFrameMessage(payload.Error)
		if msg == "" {
			return llm.StreamChunk{}, false, nil
		}
		d.logger.Error("stream error frame", zap.String("message", msg))
		return llm.StreamChunk{}, false, &llm.Error{
			Code:       llm.ErrStreamError,
			Message:    msg,
			HTTPStatus: http.StatusBadGateway,
			Provider:   d.provider,
		}
	}

	delta := payload.Choices[0].Delta
	if delta == nil {
		return llm.StreamChunk{}, false, nil
	}
	switch {
	case len(delta.ToolCalls) > 0:
		tc := delta.ToolCalls[0]
		return llm.StreamChunk{
			Kind: llm.DeltaToolCall,
			ToolCall: &llm.ToolCallDelta{
				Index:     tc.Index,
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		}, true, nil
	case delta.Content != "":
		return llm.StreamChunk{Kind: llm.DeltaContent, Text: delta.Content}, true, nil
	case delta.ReasoningContent != "":
		return llm.StreamChunk{Kind: llm.DeltaReasoning, Text: delta.ReasoningContent}, true, nil
	}
	return llm.StreamChunk{}, false, nil
}

// Summary 描述一次流的结局。Err 为 nil 表示正常结束。
type Summary struct {
	Deltas  int
	Skipped int
	Err     error
}

// Stream 在后台 goroutine 中解码 body，并通过通道逐个投递增量。
// 致命错误以一个 Err 非空的 chunk 投递后关闭通道；正常结束只关闭通道。
// body 总会被关闭；onDone 非空时在通道关闭前调用一次，用于释放并发槽位。
func Stream(ctx context.Context, body io.ReadCloser, provider string, logger *zap.Logger, onDone func(Summary)) <-chan llm.StreamChunk {
	ch := make(chan llm.StreamChunk)
	go func() {
		defer close(ch)

		dec := NewDecoder(body, provider, logger)
		var sum Summary
		defer func() {
			sum.Skipped = dec.Skipped()
			if onDone != nil {
				onDone(sum)
			}
		}()
		defer body.Close()

		for {
			chunk, err := dec.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				// ctx 取消导致的读失败不再投递
				if ctx.Err() != nil {
					sum.Err = ctx.Err()
					return
				}
				sum.Err = err
				var llmErr *llm.Error
				if !errors.As(err, &llmErr) {
					llmErr = &llm.Error{Code: llm.ErrUpstreamError, Message: err.Error(), Provider: provider}
				}
				select {
				case <-ctx.Done():
				case ch <- llm.StreamChunk{Err: llmErr}:
				}
				return
			}
			select {
			case <-ctx.Done():
				sum.Err = ctx.Err()
				return
			case ch <- chunk:
				sum.Deltas++
			}
		}
	}()
	return ch
}
