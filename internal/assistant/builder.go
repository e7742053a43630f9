package assistant

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/fatty/internal/adapters/ai"
	"github.com/selivandex/fatty/internal/knowledge"
	"github.com/selivandex/fatty/internal/toolkit"
	"github.com/selivandex/fatty/pkg/logger"
	"github.com/selivandex/fatty/pkg/metrics"
	"github.com/selivandex/fatty/pkg/templates"
)

// Deps are the collaborators needed to build an engine
type Deps struct {
	Chat       ai.ChatService
	Tools      *toolkit.ToolRegistry
	PriceTools *toolkit.PriceTools
	Knowledge  *knowledge.Base
	Prompts    templates.Renderer
	DocsDir    string
	Refresh    time.Duration  // advertised price refresh interval
	Metrics    metrics.Buffer // optional
}

// Build loads local documents, primes the price document and installs a new
// engine into the holder. Failures are logged and leave the holder untouched.
func Build(ctx context.Context, h *Holder, cfg EngineConfig, deps Deps) error {
	if err := build(ctx, h, cfg, deps); err != nil {
		logger.Error("❌ failed to initialize query engine", zap.Error(err))
		return err
	}
	return nil
}

func build(ctx context.Context, h *Holder, cfg EngineConfig, deps Deps) error {
	if deps.Chat == nil {
		return fmt.Errorf("chat service is not configured")
	}

	docs, err := knowledge.LoadDirectory(deps.DocsDir)
	if err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}

	if err := RefreshPriceDocument(ctx, deps.PriceTools, deps.Knowledge, deps.Refresh); err != nil {
		return err
	}
	deps.Knowledge.SetDocuments(docs)

	engine := NewEngine(cfg, deps.Chat, deps.Tools, deps.Knowledge, deps.Prompts)
	if deps.Metrics != nil {
		engine.SetMetricsBuffer(deps.Metrics)
	}
	h.Set(engine)

	logger.Info("✅ query engine initialized",
		zap.Int("documents", deps.Knowledge.Len()),
		zap.Int("tools", deps.Tools.GetToolCount()),
		zap.String("provider", deps.Chat.GetName()),
	)
	return nil
}

// RefreshPriceDocument quotes every tool symbol and replaces the price document.
// On failure the previous price document is kept.
func RefreshPriceDocument(ctx context.Context, pt *toolkit.PriceTools, kb *knowledge.Base, refresh time.Duration) error {
	lines, err := pt.Lines(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh prices: %w", err)
	}
	kb.SetPriceDocument(knowledge.PriceDocument(lines, refresh))
	return nil
}
