// PrepBot entry point.
//
// Usage:
//
//	prepbot serve                       # start the bot
//	prepbot serve --config config.yaml  # with a config file
//	prepbot version                     # show version information
//	prepbot health                      # probe a running instance
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/prepline/prepbot/bot"
	"github.com/prepline/prepbot/catalog"
	"github.com/prepline/prepbot/chat/telegram"
	"github.com/prepline/prepbot/config"
	"github.com/prepline/prepbot/gate"
	"github.com/prepline/prepbot/internal/cache"
	"github.com/prepline/prepbot/internal/metrics"
	"github.com/prepline/prepbot/internal/server"
	"github.com/prepline/prepbot/internal/store"
	"github.com/prepline/prepbot/internal/telemetry"
	"github.com/prepline/prepbot/llm/ollama"
	"github.com/prepline/prepbot/llm/tokenizer"
)

// Set at build time via -ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "version":
		printVersion()
	case "health":
		runHealthCheck(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("starting PrepBot",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("telemetry init failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.Store.DSN, logger)
	if err != nil {
		logger.Warn("store unavailable, subscriptions and analytics disabled", zap.Error(err))
		st = nil
	}

	var dedup *cache.Dedup
	if cfg.Redis.Addr != "" {
		dedup, err = cache.New(ctx, cfg.Redis.CacheConfig(), logger)
		if err != nil {
			logger.Warn("redis unavailable, update dedup disabled", zap.Error(err))
			dedup = nil
		}
	}

	var estimator tokenizer.Estimator
	if tk, err := tokenizer.NewTiktoken(""); err != nil {
		logger.Warn("tiktoken unavailable, using heuristic token estimate", zap.Error(err))
		estimator = tokenizer.Heuristic{}
	} else {
		estimator = tk
	}

	collector := metrics.NewCollector("prepbot", prometheus.DefaultRegisterer, logger)

	app := bot.New(cfg, bot.Deps{
		Logger:    logger,
		Provider:  ollama.New(cfg.Ollama, logger),
		Transport: telegram.New(cfg.Telegram.ClientConfig(), logger),
		Gate:      gate.NewEngine(gate.DefaultRuleSet(), logger),
		Catalog:   catalog.Default(),
		Store:     st,
		Dedup:     dedup,
		Metrics:   collector,
		Estimator: estimator,
	})

	webhookSrv := server.NewManager("webhook_server", app.Routes(), serverConfig(cfg, cfg.Server.Addr), logger)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := server.NewManager("metrics_server", metricsMux, serverConfig(cfg, cfg.Server.MetricsAddr), logger)

	if err := webhookSrv.Start(); err != nil {
		logger.Fatal("webhook server start failed", zap.Error(err))
	}
	if err := metricsSrv.Start(); err != nil {
		logger.Fatal("metrics server start failed", zap.Error(err))
	}

	// Block until a signal arrives or either listener dies.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-webhookSrv.Errors():
		logger.Error("webhook server failed", zap.Error(err))
	case err := <-metricsSrv.Errors():
		logger.Error("metrics server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error { return webhookSrv.Shutdown(shutdownCtx) })
	g.Go(func() error { return metricsSrv.Shutdown(shutdownCtx) })
	if err := g.Wait(); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	if dedup != nil {
		_ = dedup.Close()
	}
	if st != nil {
		_ = st.Close()
	}
	if err := otelProviders.Shutdown(shutdownCtx); err != nil {
		logger.Warn("telemetry shutdown failed", zap.Error(err))
	}

	logger.Info("PrepBot stopped")
}

func serverConfig(cfg *config.Config, addr string) server.Config {
	sc := server.DefaultConfig()
	sc.Addr = addr
	sc.ReadTimeout = cfg.Server.ReadTimeout
	sc.WriteTimeout = cfg.Server.WriteTimeout
	sc.ShutdownTimeout = cfg.Server.ShutdownTimeout
	return sc
}

func runHealthCheck(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8080", "Server address")
	fs.Parse(args)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(*addr + "/healthz")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: status %d\n", resp.StatusCode)
		os.Exit(1)
	}
	fmt.Println("OK")
}

func printVersion() {
	fmt.Printf("PrepBot %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`PrepBot - preparedness assistant for Telegram

Usage:
  prepbot <command> [options]

Commands:
  serve     Start the bot
  version   Show version information
  health    Check a running instance
  help      Show this help message

Options for 'serve':
  --config <path>   Path to configuration file (YAML)

Examples:
  prepbot serve
  prepbot serve --config /etc/prepbot/config.yaml
  prepbot health --addr http://localhost:8080`)
}

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

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
