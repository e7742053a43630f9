package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/fatty/internal/assistant"
	"github.com/selivandex/fatty/internal/knowledge"
	"github.com/selivandex/fatty/internal/pricing"
	"github.com/selivandex/fatty/internal/toolkit"
	"github.com/selivandex/fatty/pkg/logger"
)

// PriceWarmer is the part of the oracle the refresh worker needs
type PriceWarmer interface {
	Tokens() []pricing.Token
	Price(ctx context.Context, symbol string) (float64, error)
}

// PriceRefreshWorker keeps the oracle cache warm for every supported token and
// rewrites the knowledge price document
type PriceRefreshWorker struct {
	oracle     PriceWarmer
	priceTools *toolkit.PriceTools
	kb         *knowledge.Base
	interval   time.Duration
}

// NewPriceRefreshWorker creates new price refresh worker
func NewPriceRefreshWorker(
	oracle PriceWarmer,
	priceTools *toolkit.PriceTools,
	kb *knowledge.Base,
	interval time.Duration,
) *PriceRefreshWorker {
	return &PriceRefreshWorker{
		oracle:     oracle,
		priceTools: priceTools,
		kb:         kb,
		interval:   interval,
	}
}

// Name returns worker name
func (w *PriceRefreshWorker) Name() string {
	return "price_refresher"
}

// Run executes one iteration
// Called periodically by pkg/worker.PeriodicWorker
func (w *PriceRefreshWorker) Run(ctx context.Context) error {
	startTime := time.Now()

	var errs []error
	refreshed := 0
	for _, t := range w.oracle.Tokens() {
		price, err := w.oracle.Price(ctx, t.Symbol)
		if err != nil {
			logger.Warn("failed to refresh price",
				zap.String("symbol", t.Symbol),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", t.Symbol, err))
			continue
		}
		refreshed++

		logger.Debug("price refreshed",
			zap.String("symbol", t.Symbol),
			zap.Float64("price", price),
		)
	}

	if err := assistant.RefreshPriceDocument(ctx, w.priceTools, w.kb, w.interval); err != nil {
		errs = append(errs, err)
	}

	logger.Info("prices refreshed",
		zap.Int("refreshed", refreshed),
		zap.Int("failed", len(errs)),
		zap.Duration("latency", time.Since(startTime)),
	)

	return errors.Join(errs...)
}

// EngineBuildWorker retries building the query engine until it is ready
type EngineBuildWorker struct {
	holder *assistant.Holder
	build  func(ctx context.Context) error
}

// NewEngineBuildWorker creates new engine build worker
func NewEngineBuildWorker(holder *assistant.Holder, build func(ctx context.Context) error) *EngineBuildWorker {
	return &EngineBuildWorker{
		holder: holder,
		build:  build,
	}
}

// Name returns worker name
func (w *EngineBuildWorker) Name() string {
	return "engine_builder"
}

// Run builds the engine once; later iterations are no-ops
func (w *EngineBuildWorker) Run(ctx context.Context) error {
	if w.holder.Ready() {
		return nil
	}
	return w.build(ctx)
}
