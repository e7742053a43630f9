package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/fatty/internal/adapters/ai"
	"github.com/selivandex/fatty/internal/adapters/config"
	"github.com/selivandex/fatty/internal/adapters/price"
	"github.com/selivandex/fatty/internal/assistant"
	"github.com/selivandex/fatty/internal/health"
	"github.com/selivandex/fatty/internal/httpapi"
	"github.com/selivandex/fatty/internal/knowledge"
	"github.com/selivandex/fatty/internal/pricing"
	"github.com/selivandex/fatty/internal/toolkit"
	"github.com/selivandex/fatty/internal/workers"
	"github.com/selivandex/fatty/pkg/logger"
	"github.com/selivandex/fatty/pkg/metrics"
	"github.com/selivandex/fatty/pkg/worker"
)

// engineRetryInterval is how often a failed engine build is retried
const engineRetryInterval = time.Minute

func main() {
	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := initConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("Fatty assistant starting...",
		zap.String("port", cfg.Server.Port),
		zap.String("model", cfg.AI.Model),
	)

	oracle, err := initOracle(cfg)
	if err != nil {
		return err
	}

	usage := metrics.NewBufferedMetrics(metrics.BufferConfig{
		Writer:        metrics.NewLogWriter(logger.Log.WithOptions(zap.AddCallerSkip(-1))),
		FlushInterval: cfg.Logging.MetricsFlushInterval,
	})

	// Tools exposed to the chat model
	registry := toolkit.NewToolRegistry()
	registry.SetMetricsBuffer(usage)
	priceTools := toolkit.NewPriceTools(oracle, cfg.Pricing.Featured)
	priceTools.Register(registry)

	kb := knowledge.NewBase(cfg.Knowledge.ContextBudget)
	holder := assistant.NewHolder()

	prompts, err := assistant.LoadPrompts(cfg.AI.PromptsDir)
	if err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}

	var chat ai.ChatService
	if cfg.AI.ChatEnabled() {
		chat = ai.NewOpenAIChat(&cfg.AI)
		logger.Info("✅ chat provider initialized", zap.String("provider", chat.GetName()))
	} else {
		logger.Warn("⚠️ OPENAI_API_KEY not set - query engine will not be available")
	}

	engineCfg := assistant.EngineConfig{
		Name:          assistant.DefaultName,
		Token:         featuredToken(cfg, oracle),
		MaxToolRounds: cfg.AI.MaxToolRounds,
	}
	deps := assistant.Deps{
		Chat:       chat,
		Tools:      registry,
		PriceTools: priceTools,
		Knowledge:  kb,
		Prompts:    prompts,
		DocsDir:    cfg.Knowledge.DocsDir,
		Refresh:    cfg.Pricing.RefreshInterval,
		Metrics:    usage,
	}

	// Background workers
	group := worker.NewWorkerGroup(ctx)
	refresher := group.Add(
		workers.NewPriceRefreshWorker(oracle, priceTools, kb, cfg.Pricing.RefreshInterval),
		cfg.Pricing.RefreshInterval,
	)
	if chat != nil {
		group.Add(workers.NewEngineBuildWorker(holder, func(ctx context.Context) error {
			return assistant.Build(ctx, holder, engineCfg, deps)
		}), engineRetryInterval)
	}
	group.Start()

	checker := health.NewChecker()
	checker.AddCheck("query_engine", func(context.Context) error {
		if !holder.Ready() {
			return assistant.ErrNotReady
		}
		return nil
	})
	checker.AddCheck("prices", priceFreshnessCheck(refresher, cfg.Pricing.RefreshInterval))

	server := httpapi.NewServer(cfg, httpapi.Deps{
		Chat:   holder,
		Prices: priceTools,
		Health: checker,
	})

	if err := server.Listen(); err != nil {
		group.Stop(cfg.Server.ShutdownTimeout)
		_ = usage.Close(context.Background())
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()
	checker.SetReady(true)

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			logger.Error("http server failed", zap.Error(err))
		}
	}

	return performGracefulShutdown(cfg, checker, server, group, usage)
}

func initConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, nil
}

// initOracle wires the upstream clients into the price oracle
func initOracle(cfg *config.Config) (*pricing.Oracle, error) {
	tokens, err := pricing.ParseTokens(cfg.Pricing.Tokens)
	if err != nil {
		return nil, err
	}

	client := price.NewHTTPClient(cfg.Pricing.Timeout)
	feed := price.NewRaydiumFeed(client, cfg.Pricing.FeedURL)
	quoter := price.NewJupiterQuoter(client, cfg.Pricing.QuoteURL)

	oracle := pricing.New(pricing.Config{
		TTL:           cfg.Pricing.TTL,
		Timeout:       cfg.Pricing.Timeout,
		SwapAmount:    cfg.Pricing.SwapAmount,
		ScalingFactor: cfg.Pricing.ScalingFactor,
		Base:          pricing.Token{Symbol: cfg.Pricing.BaseSymbol, Mint: cfg.Pricing.BaseMint},
		Tokens:        tokens,
	}, feed, quoter)

	symbols := make([]string, 0, len(tokens)+1)
	for _, t := range oracle.Tokens() {
		symbols = append(symbols, t.Symbol)
	}
	logger.Info("✅ price oracle initialized",
		zap.Strings("symbols", symbols),
		zap.String("feed", feed.GetName()),
		zap.String("quoter", quoter.GetName()),
		zap.Duration("ttl", oracle.TTL()),
	)

	return oracle, nil
}

// featuredToken is the token the persona is built around
func featuredToken(cfg *config.Config, oracle *pricing.Oracle) string {
	for _, s := range cfg.Pricing.Featured {
		if t, ok := oracle.Lookup(s); ok && t.Symbol != oracle.Base().Symbol {
			return t.Symbol
		}
	}
	return oracle.Base().Symbol
}

// priceFreshnessCheck fails when prices have not been refreshed for a few intervals
func priceFreshnessCheck(pw *worker.PeriodicWorker, interval time.Duration) health.CheckFunc {
	return func(context.Context) error {
		st := pw.Status()
		if st.LastSuccess.IsZero() {
			if st.LastError != nil {
				return st.LastError
			}
			return errors.New("no successful refresh yet")
		}
		if age := time.Since(st.LastSuccess); age > 3*interval {
			return fmt.Errorf("last successful refresh %s ago", age.Round(time.Second))
		}
		return nil
	}
}

// performGracefulShutdown handles graceful shutdown of all components
func performGracefulShutdown(
	cfg *config.Config,
	checker *health.Checker,
	server *httpapi.Server,
	group *worker.WorkerGroup,
	usage metrics.Buffer,
) error {
	logger.Info("🛑 Shutdown signal received, starting graceful shutdown...")

	// Mark service as not ready (stop accepting new traffic)
	checker.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}

	group.Stop(cfg.Server.ShutdownTimeout)

	if err := usage.Close(shutdownCtx); err != nil {
		logger.Error("metrics buffer close error", zap.Error(err))
	}

	select {
	case <-shutdownCtx.Done():
		logger.Warn("⚠️ shutdown timeout exceeded")
		return fmt.Errorf("graceful shutdown timeout")
	default:
		logger.Info("✅ shutdown completed successfully")
	}

	return nil
}
