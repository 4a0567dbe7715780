// =============================================================================
// AgentSalon 命令行入口
// =============================================================================
// 加载配置、组装沙龙并把对话事件渲染到终端
//
// 使用方法:
//
//	salon chat --config salon.yaml                 # 使用配置中的话题
//	salon chat --config salon.yaml --topic "..."   # 指定话题
//	salon chat --config salon.yaml --mode assignment --rounds 5
//	salon health --addr http://localhost:9091      # 查询指标服务健康状态
//	salon version                                  # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	agentsalon "github.com/BaSui01/agentsalon"
	"github.com/BaSui01/agentsalon/config"
	"github.com/BaSui01/agentsalon/internal/metrics"
	"github.com/BaSui01/agentsalon/internal/server"
	"github.com/BaSui01/agentsalon/internal/telemetry"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// errConversationFailed 对话以 error 事件结束
var errConversationFailed = errors.New("conversation failed")

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "chat":
		_ = godotenv.Load()
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		err := runChat(ctx, os.Args[2:], os.Stdout)
		stop()
		if err != nil {
			fmt.Fprintf(os.Stderr, "salon: %v\n", err)
			os.Exit(1)
		}
	case "health":
		if err := runHealthCheck(os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
			os.Exit(1)
		}
	case "version":
		printVersion(os.Stdout)
	case "help", "-h", "--help":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage(os.Stderr)
		os.Exit(1)
	}
}

// =============================================================================
// 💬 chat 命令
// =============================================================================

type chatFlags struct {
	configPath string
	topic      string
	rounds     int
	mode       string
}

func parseChatFlags(args []string) (chatFlags, error) {
	var f chatFlags
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&f.configPath, "config", "", "Path to config file")
	fs.StringVar(&f.topic, "topic", "", "Conversation topic (overrides salon.topic)")
	fs.IntVar(&f.rounds, "rounds", 0, "Maximum rounds (overrides salon.rounds)")
	fs.StringVar(&f.mode, "mode", "", "rotation, assignment or competition (overrides salon.mode)")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if fs.NArg() > 0 {
		return f, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	return f, nil
}

func loadConfig(f chatFlags) (*config.Config, error) {
	loader := config.NewLoader()
	if f.configPath != "" {
		loader = loader.WithConfigPath(f.configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if f.rounds > 0 {
		cfg.Salon.Rounds = f.rounds
	}
	if f.mode != "" {
		cfg.Salon.Mode = f.mode
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runChat(ctx context.Context, args []string, stdout io.Writer) error {
	flags, err := parseChatFlags(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting AgentSalon",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelProviders.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	var (
		registry  *prometheus.Registry
		collector *metrics.Collector
	)
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		collector = metrics.NewCollectorWith(registry, cfg.Metrics.Namespace, logger)
	}

	rt, err := agentsalon.New(cfg, agentsalon.WithLogger(logger), agentsalon.WithMetrics(collector))
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("close runtime", zap.Error(err))
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	chatCtx, stopServer := context.WithCancel(gctx)

	if cfg.Metrics.Enabled {
		handler := server.NewHandler(registry, logger, server.HealthCheck{Name: "transcript", Check: rt.Ping})
		mgr := server.NewManager(handler, server.ConfigFromMetrics(cfg.Metrics), logger)
		g.Go(func() error { return mgr.Run(chatCtx) })
	}

	var failed error
	g.Go(func() error {
		defer stopServer()
		events, err := rt.Chat(chatCtx, flags.topic)
		if err != nil {
			return err
		}
		r := newRenderer(stdout, rt.Salon.Host().Name())
		for ev := range events {
			r.render(ev)
		}
		if err := rt.Salon.Err(); err != nil && ctx.Err() == nil {
			failed = fmt.Errorf("%w: %w", errConversationFailed, err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if ctx.Err() != nil {
		logger.Info("conversation interrupted")
		return nil
	}
	return failed
}

// =============================================================================
// 🏥 健康检查命令
// =============================================================================

func runHealthCheck(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	addr := fs.String("addr", "http://localhost:9091", "Metrics server address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(*addr + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	fmt.Fprintln(stdout, "OK")
	return nil
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "AgentSalon %s\n", Version)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Module:     %s\n", telemetry.BuildVersion())
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `AgentSalon - multi-agent salon discussions

Usage:
  salon <command> [options]

Commands:
  chat      Run one conversation and print it
  health    Check the metrics server health endpoint
  version   Show version information
  help      Show this help message

Options for 'chat':
  --config <path>   Path to configuration file (YAML)
  --topic <text>    Conversation topic (default: salon.topic)
  --rounds <n>      Maximum rounds (default: salon.rounds)
  --mode <mode>     rotation, assignment or competition

Examples:
  salon chat --config salon.yaml
  salon chat --config salon.yaml --topic "Tonight is joke night!" --rounds 3
  salon health --addr http://localhost:9091
  salon version`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	// 对话输出占用 stdout，日志默认写 stderr
	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       encoding == "console",
		Encoding:          encoding,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}

	logger, err := zapConfig.Build()
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}
	return logger
}
