package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/selivandex/fatty/pkg/logger"
)

const (
	DefaultTTL           = 5 * time.Minute
	DefaultTimeout       = 10 * time.Second
	DefaultSwapAmount    = 1_000_000
	DefaultScalingFactor = 1e9

	SOLMint    = "So11111111111111111111111111111111111111112"
	FATCATMint = "AHdVQs56QpEEkRx6m8yiYYEiqM2sKjQxVd6mGH12pump"
)

// PriceFeed returns direct quotes keyed by on-chain mint.
type PriceFeed interface {
	FetchPrices(ctx context.Context) (map[string]float64, error)
}

// SwapQuoter returns the output amount, in base units of outputMint, for
// swapping amount base units of inputMint.
type SwapQuoter interface {
	Quote(ctx context.Context, inputMint, outputMint string, amount int64) (string, error)
}

// Token identifies a priced asset.
type Token struct {
	Symbol string `json:"symbol"`
	Mint   string `json:"mint"`
}

// CacheEntry is the last successfully computed price of a symbol.
type CacheEntry struct {
	Price       float64   `json:"price"`
	LastUpdated time.Time `json:"last_updated"`
}

// Config holds oracle tuning parameters.
type Config struct {
	TTL     time.Duration
	Timeout time.Duration
	// SwapAmount is the nominal input, in base units, sent with every swap quote.
	SwapAmount int64
	// ScalingFactor converts the quoted outAmount from base units to whole tokens.
	ScalingFactor float64
	Base          Token
	Tokens        []Token
}

// DefaultConfig returns the SOL / FATCAT setup.
func DefaultConfig() Config {
	return Config{
		TTL:           DefaultTTL,
		Timeout:       DefaultTimeout,
		SwapAmount:    DefaultSwapAmount,
		ScalingFactor: DefaultScalingFactor,
		Base:          Token{Symbol: "SOL", Mint: SOLMint},
		Tokens:        []Token{{Symbol: "FATCAT", Mint: FATCATMint}},
	}
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Oracle) {
		o.now = now
	}
}

// Oracle serves token prices from a TTL cache, fetching from the price feed
// for the base symbol and from swap quotes for every other token.
type Oracle struct {
	cfg    Config
	feed   PriceFeed
	quoter SwapQuoter
	now    func() time.Time

	tokens map[string]Token

	mu    sync.RWMutex
	cache map[string]CacheEntry

	inflight singleflight.Group
}

// New creates a price oracle
func New(cfg Config, feed PriceFeed, quoter SwapQuoter, opts ...Option) *Oracle {
	defaults := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = defaults.TTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.SwapAmount <= 0 {
		cfg.SwapAmount = defaults.SwapAmount
	}
	if cfg.ScalingFactor <= 0 {
		cfg.ScalingFactor = defaults.ScalingFactor
	}
	if cfg.Base.Symbol == "" {
		cfg.Base = defaults.Base
	}
	cfg.Base.Symbol = NormalizeSymbol(cfg.Base.Symbol)

	o := &Oracle{
		cfg:    cfg,
		feed:   feed,
		quoter: quoter,
		now:    time.Now,
		tokens: make(map[string]Token, len(cfg.Tokens)+1),
		cache:  make(map[string]CacheEntry),
	}
	o.tokens[cfg.Base.Symbol] = cfg.Base
	for _, t := range cfg.Tokens {
		t.Symbol = NormalizeSymbol(t.Symbol)
		o.tokens[t.Symbol] = t
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// NormalizeSymbol upper-cases a symbol and drops a leading "$".
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(symbol), "$"))
}

// ParseTokens parses SYMBOL:MINT pairs.
func ParseTokens(pairs []string) ([]Token, error) {
	tokens := make([]Token, 0, len(pairs))
	for _, pair := range pairs {
		symbol, mint, ok := strings.Cut(pair, ":")
		symbol, mint = NormalizeSymbol(symbol), strings.TrimSpace(mint)
		if !ok || symbol == "" || mint == "" {
			return nil, fmt.Errorf("invalid token %q, expected SYMBOL:MINT", pair)
		}
		tokens = append(tokens, Token{Symbol: symbol, Mint: mint})
	}
	return tokens, nil
}

// Base returns the settlement token every other price is quoted against.
func (o *Oracle) Base() Token {
	return o.cfg.Base
}

// TTL returns how long a cached price stays fresh.
func (o *Oracle) TTL() time.Duration {
	return o.cfg.TTL
}

// Lookup returns the configured token for a symbol.
func (o *Oracle) Lookup(symbol string) (Token, bool) {
	t, ok := o.tokens[NormalizeSymbol(symbol)]
	return t, ok
}

// Supported reports whether symbol can be priced.
func (o *Oracle) Supported(symbol string) bool {
	_, ok := o.Lookup(symbol)
	return ok
}

// Tokens returns all supported tokens, base first, the rest sorted by symbol.
func (o *Oracle) Tokens() []Token {
	out := make([]Token, 0, len(o.tokens))
	for sym, t := range o.tokens {
		if sym != o.cfg.Base.Symbol {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return append([]Token{o.cfg.Base}, out...)
}

// Snapshot returns a copy of the cache.
func (o *Oracle) Snapshot() map[string]CacheEntry {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make(map[string]CacheEntry, len(o.cache))
	for k, v := range o.cache {
		out[k] = v
	}
	return out
}

// Price returns the price of a supported symbol using its configured mint.
func (o *Oracle) Price(ctx context.Context, symbol string) (float64, error) {
	t, ok := o.Lookup(symbol)
	if !ok {
		return 0, unsupported(symbol)
	}
	return o.GetPrice(ctx, t.Symbol, t.Mint)
}

// GetPrice returns the price of symbol in the base symbol's reference currency.
// mint is only used on a cache miss; an empty mint falls back to the configured one.
func (o *Oracle) GetPrice(ctx context.Context, symbol, mint string) (float64, error) {
	symbol = NormalizeSymbol(symbol)
	t, ok := o.tokens[symbol]
	if !ok {
		return 0, unsupported(symbol)
	}
	if mint == "" {
		mint = t.Mint
	}

	if price, ok := o.fresh(symbol); ok {
		return price, nil
	}

	ch := o.inflight.DoChan(symbol, func() (interface{}, error) {
		// Another flight may have filled the entry while this one was queued.
		if price, ok := o.fresh(symbol); ok {
			return price, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.Timeout)
		defer cancel()
		return o.fetch(fetchCtx, symbol, mint)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return 0, res.Err
		}
		return res.Val.(float64), nil
	case <-ctx.Done():
		return 0, upstream(symbol, ctx.Err())
	}
}

func (o *Oracle) fresh(symbol string) (float64, bool) {
	o.mu.RLock()
	entry, ok := o.cache[symbol]
	o.mu.RUnlock()

	if ok && o.now().Sub(entry.LastUpdated) < o.cfg.TTL {
		return entry.Price, true
	}
	return 0, false
}

func (o *Oracle) store(symbol string, price float64, at time.Time) {
	o.mu.Lock()
	o.cache[symbol] = CacheEntry{Price: price, LastUpdated: at}
	o.mu.Unlock()
}

func (o *Oracle) fetch(ctx context.Context, symbol, mint string) (float64, error) {
	startedAt := o.now()

	var (
		price float64
		err   error
	)
	if symbol == o.cfg.Base.Symbol {
		price, err = o.fetchBasePrice(ctx, mint)
	} else {
		price, err = o.fetchQuotedPrice(ctx, mint)
	}
	if err != nil {
		logger.Warn("price fetch failed",
			zap.String("symbol", symbol),
			zap.Error(err),
		)
		return 0, err
	}

	o.store(symbol, price, startedAt)

	logger.Debug("price refreshed",
		zap.String("symbol", symbol),
		zap.Float64("price", price),
		zap.Duration("latency", o.now().Sub(startedAt)),
	)

	return price, nil
}

func (o *Oracle) fetchBasePrice(ctx context.Context, mint string) (float64, error) {
	prices, err := o.feed.FetchPrices(ctx)
	if err != nil {
		return 0, upstream("price feed", err)
	}

	price, ok := prices[mint]
	if !ok {
		return 0, upstream("price feed", fmt.Errorf("no price for mint %s", mint))
	}
	if err := validPrice(price); err != nil {
		return 0, upstream("price feed", err)
	}

	return price, nil
}

// fetchQuotedPrice prices a token as exchange rate × base price.
func (o *Oracle) fetchQuotedPrice(ctx context.Context, mint string) (float64, error) {
	rate, err := o.exchangeRate(ctx, mint)
	if err != nil {
		return 0, err
	}

	basePrice, err := o.basePrice(ctx)
	if err != nil {
		return 0, err
	}

	price := rate * basePrice
	if err := validPrice(price); err != nil {
		return 0, upstream("swap quote", err)
	}
	return price, nil
}

// exchangeRate returns how many base tokens SwapAmount units of mint buy,
// normalized by ScalingFactor.
func (o *Oracle) exchangeRate(ctx context.Context, mint string) (float64, error) {
	outAmount, err := o.quoter.Quote(ctx, mint, o.cfg.Base.Mint, o.cfg.SwapAmount)
	if err != nil {
		return 0, upstream("swap quote", err)
	}

	out, err := strconv.ParseFloat(strings.TrimSpace(outAmount), 64)
	if err != nil {
		return 0, upstream("swap quote", fmt.Errorf("invalid outAmount %q: %w", outAmount, err))
	}

	rate := out / o.cfg.ScalingFactor
	if err := validPrice(rate); err != nil {
		return 0, upstream("swap quote", err)
	}
	return rate, nil
}

// basePrice resolves the base symbol through the cache.
func (o *Oracle) basePrice(ctx context.Context) (float64, error) {
	price, err := o.GetPrice(ctx, o.cfg.Base.Symbol, o.cfg.Base.Mint)
	if err != nil {
		if errors.Is(err, ErrUpstreamUnavailable) {
			return 0, err
		}
		return 0, upstream("price feed", err)
	}
	return price, nil
}

func validPrice(p float64) error {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return fmt.Errorf("non-finite price %v", p)
	}
	if p <= 0 {
		return fmt.Errorf("non-positive price %v", p)
	}
	return nil
}
