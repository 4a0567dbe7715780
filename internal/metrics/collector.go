// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器。所有 Record 方法对 nil 接收者安全，未启用指标时直接传 nil。
type Collector struct {
	// LLM 指标
	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec
	llmStreamDeltas    *prometheus.CounterVec
	llmSkippedPayloads *prometheus.CounterVec
	llmPromptTokens    *prometheus.CounterVec
	gateWaitDuration   prometheus.Histogram
	gateInFlightGauge  prometheus.Gauge

	// Salon 指标
	turnsTotal         *prometheus.CounterVec
	turnDuration       *prometheus.HistogramVec
	roundsTotal        *prometheus.CounterVec
	conversationsTotal *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器并注册到默认 Registry。
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	return NewCollectorWith(prometheus.DefaultRegisterer, namespace, logger)
}

// NewCollectorWith 创建指标收集器并注册到指定 Registerer。
func NewCollectorWith(reg prometheus.Registerer, namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// LLM 指标
	c.llmRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of streaming completion requests",
		},
		[]string{"provider", "model", "status"},
	)

	c.llmRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Time from request start until the response stream ends",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "model"},
	)

	c.llmStreamDeltas = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_stream_deltas_total",
			Help:      "Total number of decoded stream deltas",
		},
		[]string{"provider"},
	)

	c.llmSkippedPayloads = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_stream_skipped_payloads_total",
			Help:      "Total number of malformed stream payloads that were skipped",
		},
		[]string{"provider"},
	)

	c.llmPromptTokens = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_prompt_tokens_total",
			Help:      "Estimated prompt tokens sent per speaker",
		},
		[]string{"speaker", "model"},
	)

	c.gateWaitDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_gate_wait_seconds",
			Help:      "Time spent waiting for a request gate slot",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
		},
	)

	c.gateInFlightGauge = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "request_gate_in_flight",
			Help:      "Number of requests currently holding a gate slot",
		},
	)

	// Salon 指标
	c.turnsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "salon_turns_total",
			Help:      "Total number of speaker turns",
		},
		[]string{"speaker", "role", "status"},
	)

	c.turnDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "salon_turn_duration_seconds",
			Help:      "Speaker turn duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"speaker"},
	)

	c.roundsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "salon_rounds_total",
			Help:      "Total number of conversation rounds started",
		},
		[]string{"mode"},
	)

	c.conversationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "salon_conversations_total",
			Help:      "Total number of finished conversations by outcome",
		},
		[]string{"mode", "outcome"},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🤖 LLM 指标
// =============================================================================

// RecordLLMRequest 记录一次流式请求的结局。status: success, error, cancelled。
func (c *Collector) RecordLLMRequest(provider, model, status string, duration time.Duration, deltas, skipped int) {
	if c == nil {
		return
	}
	c.llmRequestsTotal.WithLabelValues(provider, model, status).Inc()
	c.llmRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	if deltas > 0 {
		c.llmStreamDeltas.WithLabelValues(provider).Add(float64(deltas))
	}
	if skipped > 0 {
		c.llmSkippedPayloads.WithLabelValues(provider).Add(float64(skipped))
	}
}

// RecordPromptTokens 记录请求前估算的 prompt token 数
func (c *Collector) RecordPromptTokens(speaker, model string, tokens int) {
	if c == nil || tokens <= 0 {
		return
	}
	c.llmPromptTokens.WithLabelValues(speaker, model).Add(float64(tokens))
}

// ObserveGateWait 记录等待并发槽位的时间
func (c *Collector) ObserveGateWait(d time.Duration) {
	if c == nil {
		return
	}
	c.gateWaitDuration.Observe(d.Seconds())
}

// SetGateInFlight 更新当前占用槽位的请求数
func (c *Collector) SetGateInFlight(n int64) {
	if c == nil {
		return
	}
	c.gateInFlightGauge.Set(float64(n))
}

// =============================================================================
// 🎙️ Salon 指标
// =============================================================================

// RecordTurn 记录一次发言。role: participant, host。
func (c *Collector) RecordTurn(speaker, role, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.turnsTotal.WithLabelValues(speaker, role, status).Inc()
	c.turnDuration.WithLabelValues(speaker).Observe(duration.Seconds())
}

// RecordRound 记录新一轮开始
func (c *Collector) RecordRound(mode string) {
	if c == nil {
		return
	}
	c.roundsTotal.WithLabelValues(mode).Inc()
}

// RecordConversation 记录会话结局。outcome: completed, max_rounds, error, cancelled。
func (c *Collector) RecordConversation(mode, outcome string) {
	if c == nil {
		return
	}
	c.conversationsTotal.WithLabelValues(mode, outcome).Inc()
}
