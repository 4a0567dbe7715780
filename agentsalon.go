// Package agentsalon wires a loaded configuration into a runnable salon.
//
// Usage:
//
//	cfg, err := config.NewLoader().WithConfigPath("salon.yaml").Load()
//	rt, err := agentsalon.New(cfg, agentsalon.WithLogger(logger))
//	defer rt.Close()
//	events, err := rt.Chat(ctx, "Tonight is joke night!")
//
// One RequestGate is built per Runtime and shared by every provider, so the
// configured concurrency limit covers all agents and the host together.
package agentsalon

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/BaSui01/agentsalon/agent"
	"github.com/BaSui01/agentsalon/agent/conversation"
	"github.com/BaSui01/agentsalon/agent/persistence"
	"github.com/BaSui01/agentsalon/config"
	"github.com/BaSui01/agentsalon/internal/metrics"
	"github.com/BaSui01/agentsalon/internal/pool"
	"github.com/BaSui01/agentsalon/llm"
	"github.com/BaSui01/agentsalon/llm/providers/openaicompat"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// ProviderFactory builds the provider for one configured endpoint.
type ProviderFactory func(name string, cfg config.ProviderConfig, gate *pool.Gate, collector *metrics.Collector, logger *zap.Logger) llm.Provider

// Option configures the Runtime created by [New].
type Option func(*options)

type options struct {
	logger    *zap.Logger
	collector *metrics.Collector
	store     persistence.TranscriptStore
	storeSet  bool
	factory   ProviderFactory
}

// WithLogger sets a custom zap logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics sets the Prometheus collector. Nil disables metrics.
func WithMetrics(collector *metrics.Collector) Option {
	return func(o *options) { o.collector = collector }
}

// WithTranscriptStore overrides the store built from cfg.Transcript.
// Nil disables transcript recording.
func WithTranscriptStore(store persistence.TranscriptStore) Option {
	return func(o *options) { o.store, o.storeSet = store, true }
}

// WithProviderFactory replaces the OpenAI-compatible HTTP provider.
func WithProviderFactory(f ProviderFactory) Option {
	return func(o *options) { o.factory = f }
}

// DefaultProviderFactory builds an openaicompat.Provider.
func DefaultProviderFactory(name string, cfg config.ProviderConfig, gate *pool.Gate, collector *metrics.Collector, logger *zap.Logger) llm.Provider {
	return openaicompat.New(openaicompat.Config{
		ProviderName:          name,
		APIKey:                cfg.APIKey,
		BaseURL:               cfg.BaseURL,
		EndpointPath:          cfg.EndpointPath,
		DialTimeout:           cfg.DialTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
	}, gate, collector, logger)
}

// Runtime owns everything built from one configuration.
type Runtime struct {
	Salon     *conversation.Salon
	Gate      *pool.Gate
	Providers map[string]llm.Provider
	Store     persistence.TranscriptStore

	topic    string
	recorder *persistence.Recorder
	logger   *zap.Logger
}

// New builds providers, the shared request gate, agents, the host and the salon.
func New(cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("agentsalon: nil config")
	}
	o := &options{factory: DefaultProviderFactory}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	mode, err := conversation.ParseMode(cfg.Salon.Mode)
	if err != nil {
		return nil, err
	}

	gate := pool.NewGate(pool.GateConfig{
		MaxConcurrent:     cfg.Salon.MaxConcurrent,
		RequestsPerSecond: cfg.Salon.RequestsPerSecond,
		Burst:             cfg.Salon.Burst,
	})

	provs := make(map[string]llm.Provider, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		provs[name] = o.factory(name, pc, gate, o.collector, o.logger)
	}

	agents, host, err := buildAgents(cfg, mode, provs, o)
	if err != nil {
		gate.Close()
		return nil, err
	}
	warmTokenizers(append(slices.Clone(agents), host), o.logger)

	salon, err := conversation.New(conversation.Config{
		Mode:              mode,
		Rounds:            cfg.Salon.Rounds,
		ShowHostUtterance: cfg.Salon.ShowHostUtterance,
		Directive:         cfg.Templates.Directive,
	}, agents, host, o.collector, o.logger)
	if err != nil {
		gate.Close()
		return nil, err
	}

	store := o.store
	if !o.storeSet {
		if store, err = persistence.NewTranscriptStore(cfg.Transcript); err != nil {
			gate.Close()
			return nil, fmt.Errorf("transcript store: %w", err)
		}
	}

	rt := &Runtime{
		Salon:     salon,
		Gate:      gate,
		Providers: provs,
		Store:     store,
		topic:     cfg.Salon.Topic,
		logger:    o.logger.With(zap.String("component", "runtime")),
	}
	if store != nil {
		rt.recorder = persistence.NewRecorder(store, o.logger)
	}

	rt.logger.Info("salon ready",
		zap.String("mode", mode.String()),
		zap.Int("rounds", cfg.Salon.Rounds),
		zap.Strings("agents", salon.Participants()),
		zap.String("host", host.Name()),
		zap.Int64("max_concurrent", gate.Capacity()),
		zap.Bool("transcript", store != nil))
	return rt, nil
}

func buildAgents(cfg *config.Config, mode conversation.Mode, provs map[string]llm.Provider, o *options) ([]*agent.Agent, *agent.Agent, error) {
	profiles := lo.Map(cfg.Agents, func(a config.AgentConfig, _ int) agent.Profile {
		return agent.Profile{Name: a.Name, Persona: a.Persona}
	})
	names := lo.Map(profiles, func(p agent.Profile, _ int) string { return p.Name })
	tpl := cfg.Templates

	agents := make([]*agent.Agent, 0, len(cfg.Agents))
	for i, ac := range cfg.Agents {
		a, err := agent.New(agent.Config{
			Name:         ac.Name,
			Kind:         agent.KindParticipant,
			Params:       ac.ModelParams,
			SystemPrompt: agent.ParticipantPrompt(tpl.SystemPrompt, profiles[i], profiles),
			Inbox:        tpl.Inbox,
		}, provs[ac.Provider], o.collector, o.logger)
		if err != nil {
			return nil, nil, err
		}
		agents = append(agents, a)
	}

	suffix := ""
	if mode.Assigns() {
		suffix = tpl.HostAssignmentSuffix
	}
	hc := cfg.Host
	host, err := agent.New(agent.Config{
		Name:         hc.Name,
		Kind:         agent.KindHost,
		Params:       hc.ModelParams,
		SystemPrompt: agent.HostPrompt(tpl.HostPrompt, suffix, agent.Profile{Name: hc.Name, Persona: hc.Persona}, profiles),
		Tools:        agent.HostTools(mode.Assigns(), slices.Clone(names)),
		Inbox:        tpl.Inbox,
	}, provs[hc.Provider], o.collector, o.logger)
	if err != nil {
		return nil, nil, err
	}
	return agents, host, nil
}

// warmTokenizers loads tokenizer encodings before the first turn. Failures are logged.
func warmTokenizers(all []*agent.Agent, logger *zap.Logger) {
	type warmer interface{ Warm() error }
	for _, a := range all {
		w, ok := a.Tokenizer().(warmer)
		if !ok {
			continue
		}
		if err := w.Warm(); err != nil {
			logger.Warn("tokenizer warmup failed",
				zap.String("agent", a.Name()),
				zap.String("tokenizer", a.Tokenizer().Name()),
				zap.Error(err))
		}
	}
}

// Chat starts a conversation. An empty topic falls back to salon.topic.
// With a transcript store configured, every event is also recorded.
func (r *Runtime) Chat(ctx context.Context, topic string) (<-chan conversation.Event, error) {
	if topic == "" {
		topic = r.topic
	}
	events, err := r.Salon.Chat(ctx, topic)
	if err != nil {
		return nil, err
	}
	if r.recorder == nil {
		return events, nil
	}
	return r.recorder.Tee(ctx, events), nil
}

// Ping checks the transcript store, if any.
func (r *Runtime) Ping(ctx context.Context) error {
	if r.Store == nil {
		return nil
	}
	return r.Store.Ping(ctx)
}

// Close closes the request gate and the transcript store.
func (r *Runtime) Close() error {
	r.Gate.Close()
	if r.Store != nil {
		return r.Store.Close()
	}
	return nil
}
