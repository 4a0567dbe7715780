// =============================================================================
// Salon OpenAI-Compatible Streaming Provider
// =============================================================================
// One Provider per configured endpoint. Every request first takes a slot from
// the shared request gate; the slot is held until the response stream has been
// fully consumed or cancelled, then released before the delta channel closes.
// =============================================================================

package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/agentsalon/internal/metrics"
	"github.com/BaSui01/agentsalon/internal/pool"
	"github.com/BaSui01/agentsalon/internal/telemetry"
	"github.com/BaSui01/agentsalon/internal/tlsutil"
	"github.com/BaSui01/agentsalon/llm"
	"github.com/BaSui01/agentsalon/llm/providers"
	"github.com/BaSui01/agentsalon/llm/streaming"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultEndpointPath is used when Config.EndpointPath is empty.
const DefaultEndpointPath = "/v1/chat/completions"

// Config holds the configuration for an OpenAI-compatible endpoint.
type Config struct {
	// ProviderName is the unique identifier for this endpoint (e.g., "deepseek").
	ProviderName string

	// APIKey is sent as a Bearer token. Empty means no Authorization header.
	APIKey string

	// BaseURL is the base URL for the provider's API (e.g., "https://api.deepseek.com").
	BaseURL string

	// EndpointPath is the chat completions endpoint path. Defaults to "/v1/chat/completions".
	EndpointPath string

	// DialTimeout bounds connection setup.
	DialTimeout time.Duration

	// ResponseHeaderTimeout bounds the wait for response headers.
	// The body itself is unbounded; streams end via [DONE] or ctx.
	ResponseHeaderTimeout time.Duration
}

// Provider streams chat completions from one OpenAI-compatible endpoint.
type Provider struct {
	Cfg     Config
	Client  *http.Client
	Gate    *pool.Gate
	Logger  *zap.Logger
	Metrics *metrics.Collector
}

// New creates a provider. gate may be shared by several providers so the
// concurrency limit is process-wide; nil means unlimited. collector may be nil.
func New(cfg Config, gate *pool.Gate, collector *metrics.Collector, logger *zap.Logger) *Provider {
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = DefaultEndpointPath
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		Cfg: cfg,
		Client: tlsutil.StreamingHTTPClient(tlsutil.TransportOptions{
			DialTimeout:           cfg.DialTimeout,
			ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		}),
		Gate:    gate,
		Logger:  logger.With(zap.String("component", "openaicompat"), zap.String("provider", cfg.ProviderName)),
		Metrics: collector,
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return p.Cfg.ProviderName }

// endpoint builds the full URL for the chat completions path.
func (p *Provider) endpoint() string {
	return fmt.Sprintf("%s%s", strings.TrimRight(p.Cfg.BaseURL, "/"), p.Cfg.EndpointPath)
}

// buildHeaders applies headers to the HTTP request.
func (p *Provider) buildHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if p.Cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.Cfg.APIKey)
	}
}

// acquire takes a gate slot. The returned release is never nil.
func (p *Provider) acquire(ctx context.Context) (func(), error) {
	if p.Gate == nil {
		return func() {}, nil
	}
	start := time.Now()
	release, err := p.Gate.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	p.Metrics.ObserveGateWait(time.Since(start))
	p.Metrics.SetGateInFlight(p.Gate.Stats().InFlight)
	return func() {
		release()
		p.Metrics.SetGateInFlight(p.Gate.Stats().InFlight)
	}, nil
}

// Stream sends one streaming chat request and returns its delta channel.
//
// Transport failures and HTTP statuses >= 400 are returned directly as *llm.Error.
// Failures after the stream has started arrive as the final chunk with Err set.
func (p *Provider) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	payload, err := json.Marshal(providers.BuildStreamRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, span := telemetry.Tracer("llm").Start(ctx, "llm.stream", trace.WithAttributes(
		telemetry.AttrProvider.String(p.Name()),
		telemetry.AttrModel.String(req.Model),
		attribute.Int("llm.messages", len(req.Messages)),
		attribute.Int("llm.tools", len(req.Tools)),
	))

	release, err := p.acquire(ctx)
	if err != nil {
		p.fail(span, req.Model, time.Now(), err)
		return nil, err
	}
	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(), bytes.NewReader(payload))
	if err != nil {
		release()
		p.fail(span, req.Model, start, err)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq)

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		release()
		if ctx.Err() != nil {
			p.fail(span, req.Model, start, ctx.Err())
			return nil, ctx.Err()
		}
		llmErr := &llm.Error{
			Code: llm.ErrUpstreamError, Message: err.Error(),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name(),
		}
		p.fail(span, req.Model, start, llmErr)
		return nil, llmErr
	}
	if resp.StatusCode >= 400 {
		msg := providers.ReadErrorMessage(resp.Body)
		resp.Body.Close()
		release()
		llmErr := providers.MapHTTPError(resp.StatusCode, msg, p.Name())
		p.fail(span, req.Model, start, llmErr)
		return nil, llmErr
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	return streaming.Stream(ctx, resp.Body, p.Name(), p.Logger, func(sum streaming.Summary) {
		release()
		span.SetAttributes(
			attribute.Int("llm.deltas", sum.Deltas),
			attribute.Int("llm.skipped_payloads", sum.Skipped),
		)
		status := telemetry.End(span, sum.Err)
		p.Metrics.RecordLLMRequest(p.Name(), req.Model, status, time.Since(start), sum.Deltas, sum.Skipped)
		p.Logger.Debug("stream finished",
			zap.String("model", req.Model),
			zap.String("status", status),
			zap.Int("deltas", sum.Deltas),
			zap.Int("skipped", sum.Skipped),
			zap.Duration("duration", time.Since(start)))
	}), nil
}

// fail records a request that never produced a stream.
func (p *Provider) fail(span trace.Span, model string, start time.Time, err error) {
	status := telemetry.End(span, err)
	p.Metrics.RecordLLMRequest(p.Name(), model, status, time.Since(start), 0, 0)
	if status == telemetry.StatusError {
		p.Logger.Warn("stream request failed", zap.String("model", model), zap.Error(err))
	}
}
