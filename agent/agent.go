package agent

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BaSui01/agentsalon/config"
	"github.com/BaSui01/agentsalon/internal/metrics"
	"github.com/BaSui01/agentsalon/internal/telemetry"
	"github.com/BaSui01/agentsalon/llm"
	"github.com/BaSui01/agentsalon/llm/streaming"
	"github.com/BaSui01/agentsalon/llm/tokenizer"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Kind 区分普通参与者与主持人
type Kind int

const (
	KindParticipant Kind = iota // 普通参与者
	KindHost                    // 主持人
)

func (k Kind) String() string {
	if k == KindHost {
		return "host"
	}
	return "participant"
}

// PieceKind 发言片段类型
type PieceKind string

const (
	PieceContent   PieceKind = "content"
	PieceReasoning PieceKind = "reasoning"
)

// Piece 发言过程中转发给调用方的一个片段。
// Err 非空时是最后一个片段，本轮发言失败。
type Piece struct {
	Kind PieceKind
	Text string
	Err  error
}

// Config Agent 配置
type Config struct {
	Name         string
	Kind         Kind
	Params       config.ModelParams
	SystemPrompt string
	// Tools 随每次请求发送的工具定义，普通参与者为空
	Tools []llm.ToolSchema
	// Inbox 待处理消息折叠模板
	Inbox config.InboxTemplate
}

// Agent 绑定一个模型与角色的沙龙参与者。
//
// History 以一条 system 消息开始，每次成功发言追加一条 user 消息与一条 assistant 消息。
// 失败或取消的发言不修改 History。
type Agent struct {
	cfg       Config
	provider  llm.Provider
	tokenizer tokenizer.Tokenizer
	metrics   *metrics.Collector
	logger    *zap.Logger

	inbox    Inbox
	speaking atomic.Bool

	mu       sync.RWMutex
	history  []llm.Message
	lastCall *llm.FunctionCall
}

// New 创建 Agent。collector 可以为 nil。
func New(cfg Config, provider llm.Provider, collector *metrics.Collector, logger *zap.Logger) (*Agent, error) {
	cfg.Name = strings.TrimSpace(cfg.Name)
	switch {
	case cfg.Name == "":
		return nil, fmt.Errorf("%w: empty name", ErrConfigInvalid)
	case provider == nil:
		return nil, fmt.Errorf("%w: %s: provider not set", ErrConfigInvalid, cfg.Name)
	case cfg.Params.Model == "":
		return nil, fmt.Errorf("%w: %s: model not set", ErrConfigInvalid, cfg.Name)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Agent{
		cfg:       cfg,
		provider:  provider,
		tokenizer: tokenizer.ForModel(cfg.Params.Model),
		metrics:   collector,
		logger: logger.With(
			zap.String("component", "agent"),
			zap.String("agent", cfg.Name),
			zap.Stringer("kind", cfg.Kind),
		),
		history: []llm.Message{{Role: llm.RoleSystem, Content: cfg.SystemPrompt}},
	}, nil
}

// Name 返回参与者名称
func (a *Agent) Name() string { return a.cfg.Name }

// Kind 返回参与者类型
func (a *Agent) Kind() Kind { return a.cfg.Kind }

// IsHost 是否为主持人
func (a *Agent) IsHost() bool { return a.cfg.Kind == KindHost }

// Model 返回模型名称
func (a *Agent) Model() string { return a.cfg.Params.Model }

// Tokenizer 返回用于估算 prompt 大小的分词器
func (a *Agent) Tokenizer() tokenizer.Tokenizer { return a.tokenizer }

// Deliver 把另一位参与者的发言放入待处理队列
func (a *Agent) Deliver(speaker, text string) {
	a.inbox.Push(Utterance{Speaker: speaker, Text: text})
}

// Pending 返回待处理发言数
func (a *Agent) Pending() int { return a.inbox.Len() }

// History 返回历史消息的副本
func (a *Agent) History() []llm.Message {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.history)
}

// LastUtterance 返回最近一次成功发言的正文，没有时为空
func (a *Agent) LastUtterance() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	last := a.history[len(a.history)-1]
	if last.Role != llm.RoleAssistant {
		return ""
	}
	return last.Content
}

// LastCall 返回最近一次发言的工具调用，没有时为 nil
func (a *Agent) LastCall() *llm.FunctionCall {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastCall
}

// =============================================================================
// 🎙️ 发言
// =============================================================================

// Speak 发起一次发言。
//
// 待处理队列在调用时被取空并折叠为一条 user 消息；正文与推理片段到达即转发。
// 流正常结束后才把 user 与 assistant 消息一起写入 History，并记录工具调用。
// 请求无法发出时直接返回错误；流中途失败以带 Err 的最后一个片段通知。
// ctx 取消时通道直接关闭，History 不变。调用方必须读完通道。
func (a *Agent) Speak(ctx context.Context, round, totalRounds int) (<-chan Piece, error) {
	if !a.speaking.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%s: %w", a.cfg.Name, ErrAgentBusy)
	}
	start := time.Now()

	entries := a.inbox.Drain()
	user := llm.Message{Role: llm.RoleUser, Content: FoldInbox(a.cfg.Inbox, entries, round, totalRounds)}

	a.mu.Lock()
	a.lastCall = nil
	messages := append(slices.Clone(a.history), user)
	a.mu.Unlock()

	ctx, span := telemetry.Tracer("agent").Start(ctx, "agent.speak", trace.WithAttributes(
		telemetry.AttrSpeaker.String(a.cfg.Name),
		telemetry.AttrKind.String(a.cfg.Kind.String()),
		telemetry.AttrRound.Int(round),
		attribute.Int("salon.inbox_entries", len(entries)),
	))

	a.countPrompt(messages)
	a.logger.Debug("turn started",
		zap.Int("round", round),
		zap.Int("inbox_entries", len(entries)),
		zap.Int("history", len(messages)))

	chunks, err := a.provider.Stream(ctx, a.buildRequest(messages))
	if err != nil {
		a.finish(span, start, err)
		a.speaking.Store(false)
		return nil, err
	}

	out := make(chan Piece)
	go a.consume(ctx, span, start, user, chunks, out)
	return out, nil
}

func (a *Agent) consume(ctx context.Context, span trace.Span, start time.Time, user llm.Message, chunks <-chan llm.StreamChunk, out chan<- Piece) {
	defer close(out)
	defer a.speaking.Store(false)

	var (
		content strings.Builder
		acc     streaming.Accumulator
		turnErr error
	)
	for chunk := range chunks {
		if chunk.Err != nil {
			turnErr = chunk.Err
			continue
		}
		switch chunk.Kind {
		case llm.DeltaToolCall:
			acc.Add(chunk.ToolCall)
		case llm.DeltaContent:
			content.WriteString(chunk.Text)
			a.emit(ctx, out, Piece{Kind: PieceContent, Text: chunk.Text})
		case llm.DeltaReasoning:
			a.emit(ctx, out, Piece{Kind: PieceReasoning, Text: chunk.Text})
		}
	}

	if turnErr == nil && ctx.Err() != nil {
		turnErr = ctx.Err()
	}
	var call *llm.FunctionCall
	if turnErr == nil {
		call, turnErr = acc.Finish()
	}
	if turnErr != nil {
		a.finish(span, start, turnErr)
		a.emit(ctx, out, Piece{Err: turnErr})
		return
	}

	a.mu.Lock()
	a.history = append(a.history, user, llm.Message{Role: llm.RoleAssistant, Content: content.String()})
	a.lastCall = call
	a.mu.Unlock()

	if call != nil {
		span.SetAttributes(attribute.String("salon.tool_call", call.Name))
	}
	a.finish(span, start, nil)
}

// emit 转发片段；ctx 结束后丢弃
func (a *Agent) emit(ctx context.Context, out chan<- Piece, p Piece) {
	select {
	case <-ctx.Done():
	case out <- p:
	}
}

func (a *Agent) finish(span trace.Span, start time.Time, err error) {
	status := telemetry.End(span, err)
	elapsed := time.Since(start)
	a.metrics.RecordTurn(a.cfg.Name, a.cfg.Kind.String(), status, elapsed)

	if status == telemetry.StatusError {
		a.logger.Warn("turn failed", zap.Error(err), zap.Duration("duration", elapsed))
		return
	}
	a.logger.Debug("turn finished", zap.String("status", status), zap.Duration("duration", elapsed))
}

func (a *Agent) buildRequest(messages []llm.Message) *llm.ChatRequest {
	p := a.cfg.Params
	return &llm.ChatRequest{
		Model:            p.Model,
		Messages:         messages,
		Temperature:      float32(lo.FromPtrOr(p.Temperature, config.DefaultTemperature)),
		TopP:             float32(lo.FromPtrOr(p.TopP, config.DefaultTopP)),
		MaxTokens:        p.MaxTokens,
		PresencePenalty:  float32Ptr(p.PresencePenalty),
		FrequencyPenalty: float32Ptr(p.FrequencyPenalty),
		Tools:            a.cfg.Tools,
	}
}

// countPrompt 估算 prompt token 数，写入指标
func (a *Agent) countPrompt(messages []llm.Message) {
	n, err := a.tokenizer.CountMessages(messages)
	if err != nil {
		a.logger.Debug("token counting failed", zap.String("tokenizer", a.tokenizer.Name()), zap.Error(err))
		return
	}
	a.metrics.RecordPromptTokens(a.cfg.Name, a.cfg.Params.Model, n)
	if limit := a.tokenizer.MaxTokens(); n > limit {
		a.logger.Warn("prompt exceeds model context window",
			zap.Int("prompt_tokens", n),
			zap.Int("max_tokens", limit))
	}
}

func float32Ptr(v *float64) *float32 {
	if v == nil {
		return nil
	}
	return lo.ToPtr(float32(*v))
}
