package conversation

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BaSui01/agentsalon/agent"
	"github.com/BaSui01/agentsalon/internal/metrics"
	"github.com/BaSui01/agentsalon/internal/telemetry"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// State 状态机所处阶段
type State string

const (
	StateIdle        State = "idle"
	StateOpening     State = "opening"
	StateRoundActive State = "round_active"
	StateAgentTurn   State = "agent_turn"
	StateHostTurn    State = "host_turn"
	StateTerminated  State = "terminated"
)

// Config Salon 配置
type Config struct {
	Mode   Mode
	Rounds int
	// ShowHostUtterance rotation/competition 模式下是否把主持人的片段作为事件发出。
	// assignment 模式下主持人的片段总是发出。
	ShowHostUtterance bool
	// Directive 指派发言时广播的指令模板，支持 {speaker} {reason}
	Directive string
}

// Salon 按模式轮流驱动参与者与主持人发言。
//
// 同一会话内的发言严格串行；发言结束后把正文投递给其他所有人的待处理队列。
type Salon struct {
	cfg     Config
	agents  []*agent.Agent
	host    *agent.Agent
	names   []string
	metrics *metrics.Collector
	logger  *zap.Logger

	running atomic.Bool

	mu        sync.RWMutex
	state     State
	round     int
	sessionID string
	err       error
}

// New 创建 Salon。agents 的顺序即 rotation 模式的发言顺序。collector 可以为 nil。
func New(cfg Config, agents []*agent.Agent, host *agent.Agent, collector *metrics.Collector, logger *zap.Logger) (*Salon, error) {
	if !cfg.Mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, cfg.Mode)
	}
	if cfg.Rounds <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRounds, cfg.Rounds)
	}
	if len(agents) == 0 {
		return nil, ErrNoAgents
	}
	if host == nil || !host.IsHost() {
		return nil, ErrNoHost
	}

	names := make([]string, 0, len(agents))
	for _, a := range agents {
		if a == nil || a.IsHost() {
			return nil, fmt.Errorf("%w: participants must not be hosts", ErrNoAgents)
		}
		if lo.Contains(names, a.Name()) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAgent, a.Name())
		}
		if a.Name() == host.Name() {
			return nil, fmt.Errorf("%w: %s", ErrReservedName, a.Name())
		}
		names = append(names, a.Name())
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	return &Salon{
		cfg:     cfg,
		agents:  agents,
		host:    host,
		names:   names,
		metrics: collector,
		logger:  logger.With(zap.String("component", "salon"), zap.String("mode", cfg.Mode.String())),
		state:   StateIdle,
	}, nil
}

// Mode 返回当前模式
func (s *Salon) Mode() Mode { return s.cfg.Mode }

// Participants 返回参与者名称，按发言顺序
func (s *Salon) Participants() []string { return append([]string(nil), s.names...) }

// Host 返回主持人
func (s *Salon) Host() *agent.Agent { return s.host }

// State 返回当前状态
func (s *Salon) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Round 返回当前轮次，从 1 开始；尚未开始时为 0
func (s *Salon) Round() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.round
}

// SessionID 返回最近一次会话的 ID
func (s *Salon) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// Err 返回最近一次会话的致命错误。事件通道关闭后才有意义。
func (s *Salon) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Salon) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// =============================================================================
// 💬 会话
// =============================================================================

// Chat 以 topic 开始一次会话，返回事件通道。
//
// 通道在 task_finished 或 error 事件之后关闭。ctx 取消时通道直接关闭，
// 不发送终止事件，Err 返回 ctx.Err()。调用方必须读完通道。
func (s *Salon) Chat(ctx context.Context, topic string) (<-chan Event, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.sessionID = id
	s.round = 0
	s.err = nil
	s.state = StateIdle
	s.mu.Unlock()

	out := make(chan Event)
	go s.run(ctx, &session{salon: s, id: id, out: out}, topic)
	return out, nil
}

func (s *Salon) run(ctx context.Context, sess *session, topic string) {
	defer close(sess.out)
	defer s.running.Store(false)

	start := time.Now()
	ctx, span := telemetry.Tracer("conversation").Start(ctx, "salon.chat", trace.WithAttributes(
		telemetry.AttrSessionID.String(sess.id),
		telemetry.AttrMode.String(s.cfg.Mode.String()),
		attribute.Int("salon.rounds", s.cfg.Rounds),
		attribute.Int("salon.agents", len(s.agents)),
	))

	logger := s.logger.With(zap.String("session_id", sess.id))
	logger.Info("conversation started", zap.Int("rounds", s.cfg.Rounds), zap.Strings("agents", s.names))

	reason, err := sess.drive(ctx, topic)
	s.setState(StateTerminated)

	switch {
	case err == nil:
		s.metrics.RecordConversation(s.cfg.Mode.String(), string(reason))
		span.SetAttributes(attribute.String("salon.finish_reason", string(reason)))
		telemetry.End(span, nil)
		sess.emit(ctx, Event{Type: EventTaskFinished, Reason: string(reason)})
		logger.Info("conversation finished",
			zap.String("reason", string(reason)),
			zap.Int("rounds", s.Round()),
			zap.Duration("duration", time.Since(start)))

	case ctx.Err() != nil:
		s.fail(ctx.Err())
		s.metrics.RecordConversation(s.cfg.Mode.String(), telemetry.End(span, ctx.Err()))
		logger.Info("conversation cancelled", zap.Int("rounds", s.Round()))

	default:
		s.fail(err)
		s.metrics.RecordConversation(s.cfg.Mode.String(), telemetry.End(span, err))
		sess.emit(ctx, Event{Type: EventError, Err: err, Text: err.Error()})
		logger.Error("conversation failed", zap.Error(err), zap.Int("rounds", s.Round()))
	}
}

func (s *Salon) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// session 一次 Chat 调用的运行状态
type session struct {
	salon *Salon
	id    string
	out   chan<- Event
	round int
}

// emit 发送事件；ctx 结束后返回 false
func (x *session) emit(ctx context.Context, ev Event) bool {
	ev.SessionID = x.id
	ev.TotalRounds = x.salon.cfg.Rounds
	if ev.Round == 0 {
		ev.Round = x.round
	}
	ev.Time = time.Now()
	select {
	case <-ctx.Done():
		return false
	case x.out <- ev:
		return true
	}
}

func (x *session) drive(ctx context.Context, topic string) (FinishReason, error) {
	s := x.salon
	x.seed(topic)

	if s.cfg.Mode.HasOpening() {
		s.setState(StateOpening)
		if _, err := x.hostTurn(ctx, agent.OpeningRound); err != nil {
			return "", err
		}
		if s.host.IsTaskMarkedComplete() {
			return FinishCompleted, nil
		}
	}
	pending, err := x.openingAssignment()
	if err != nil {
		return "", err
	}

	for round := 0; round < s.cfg.Rounds; round++ {
		if err := x.beginRound(ctx, round); err != nil {
			return "", err
		}

		var err error
		if s.cfg.Mode.Assigns() {
			err = x.assignmentRound(ctx, round, pending)
			pending = nil
		} else {
			err = x.rotationRound(ctx, round)
		}
		if err != nil {
			return "", err
		}
		if s.host.IsTaskMarkedComplete() {
			return FinishCompleted, nil
		}
	}
	return FinishMaxRounds, nil
}

// seed 把话题以主持人的名义放入参与者的待处理队列；有开场的模式也放入主持人的
func (x *session) seed(topic string) {
	s := x.salon
	if strings.TrimSpace(topic) == "" {
		return
	}
	for _, a := range s.agents {
		a.Deliver(s.host.Name(), topic)
	}
	if s.cfg.Mode.HasOpening() {
		s.host.Deliver(s.host.Name(), topic)
	}
}

func (x *session) beginRound(ctx context.Context, round int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := x.salon
	x.round = round + 1
	s.mu.Lock()
	s.round = x.round
	s.state = StateRoundActive
	s.mu.Unlock()

	s.metrics.RecordRound(s.cfg.Mode.String())
	s.logger.Debug("round started", zap.String("session_id", x.id), zap.Int("round", x.round))
	if !x.emit(ctx, Event{Type: EventRound}) {
		return ctx.Err()
	}
	return nil
}

// rotationRound 参与者按顺序发言，主持人最后发言
func (x *session) rotationRound(ctx context.Context, round int) error {
	for _, a := range x.salon.agents {
		if _, err := x.agentTurn(ctx, a, round); err != nil {
			return err
		}
	}
	_, err := x.hostTurn(ctx, round)
	return err
}

// openingAssignment 开场发言若已调用 determine_next_speaker，第一轮直接采用该指派
func (x *session) openingAssignment() (*agent.Assignment, error) {
	s := x.salon
	if !s.cfg.Mode.Assigns() {
		return nil, nil
	}
	call := s.host.LastCall()
	if call == nil || call.Name != agent.NextSpeakerToolName {
		return nil, nil
	}
	next, err := s.host.ChooseNextSpeaker(s.names)
	if err != nil {
		return nil, fmt.Errorf("opening: %w", err)
	}
	return &next, nil
}

// assignmentRound 主持人指派一位参与者，指令广播后由该参与者发言。
// pending 非空时本轮不再请求主持人，直接使用开场的指派
func (x *session) assignmentRound(ctx context.Context, round int, pending *agent.Assignment) error {
	s := x.salon
	if pending == nil {
		if _, err := x.hostTurn(ctx, round); err != nil {
			return err
		}
		if s.host.IsTaskMarkedComplete() {
			return nil
		}
		chosen, err := s.host.ChooseNextSpeaker(s.names)
		if err != nil {
			return fmt.Errorf("round %d: %w", x.round, err)
		}
		pending = &chosen
	}
	next := *pending

	if !x.emit(ctx, Event{Type: EventNextSpeaker, Speaker: next.Speaker, Reason: next.Reason}) {
		return ctx.Err()
	}

	directive := agent.Directive(s.cfg.Directive, next.Speaker, next.Reason)
	for _, a := range s.agents {
		a.Deliver(s.host.Name(), directive)
	}

	speaker, _ := lo.Find(s.agents, func(a *agent.Agent) bool { return a.Name() == next.Speaker })
	_, err := x.agentTurn(ctx, speaker, round)
	return err
}

func (x *session) agentTurn(ctx context.Context, a *agent.Agent, round int) (string, error) {
	x.salon.setState(StateAgentTurn)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !x.emit(ctx, Event{Type: EventSpeakerTurn, Speaker: a.Name()}) {
		return "", ctx.Err()
	}
	return x.turn(ctx, a, round, true)
}

func (x *session) hostTurn(ctx context.Context, round int) (string, error) {
	s := x.salon
	s.setState(StateHostTurn)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !x.emit(ctx, Event{Type: EventHostDeciding, Speaker: s.host.Name()}) {
		return "", ctx.Err()
	}
	visible := s.cfg.Mode.Assigns() || s.cfg.ShowHostUtterance
	return x.turn(ctx, s.host, round, visible)
}

// turn 驱动一次发言，visible 时转发片段；成功后把正文投递给其他所有人
func (x *session) turn(ctx context.Context, a *agent.Agent, round int, visible bool) (string, error) {
	s := x.salon
	pieces, err := a.Speak(ctx, round, s.cfg.Rounds)
	if err != nil {
		return "", fmt.Errorf("%s: %w", a.Name(), err)
	}

	var turnErr error
	for p := range pieces {
		if p.Err != nil {
			turnErr = p.Err
			continue
		}
		if !visible {
			continue
		}
		typ := EventContentPiece
		if p.Kind == agent.PieceReasoning {
			typ = EventReasoningPiece
		}
		x.emit(ctx, Event{Type: typ, Speaker: a.Name(), Text: p.Text})
	}
	if turnErr != nil {
		return "", fmt.Errorf("%s: %w", a.Name(), turnErr)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	text := a.LastUtterance()
	x.fanOut(a, text)
	return text, nil
}

// fanOut 把发言投递给除发言人外的所有人；去掉空白后为空的发言不投递
func (x *session) fanOut(speaker *agent.Agent, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	s := x.salon
	for _, a := range append(slices.Clone(s.agents), s.host) {
		if a != speaker {
			a.Deliver(speaker.Name(), text)
		}
	}
}
