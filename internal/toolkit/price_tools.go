package toolkit

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/selivandex/fatty/internal/pricing"
)

// Decimal places used when quoting prices to the user.
const (
	BaseDecimals  = 4
	TokenDecimals = 6
)

// PriceSource is the read side of the price oracle
type PriceSource interface {
	Price(ctx context.Context, symbol string) (float64, error)
	Lookup(symbol string) (pricing.Token, bool)
	Base() pricing.Token
}

// PriceTools exposes oracle prices as assistant tools
type PriceTools struct {
	src      PriceSource
	featured []string
}

// NewPriceTools creates price tools. Every featured symbol gets its own
// get_<symbol>_price tool next to the base symbol's.
func NewPriceTools(src PriceSource, featured []string) *PriceTools {
	normalized := make([]string, 0, len(featured))
	for _, s := range featured {
		if s = pricing.NormalizeSymbol(s); s != "" {
			normalized = append(normalized, s)
		}
	}
	return &PriceTools{src: src, featured: normalized}
}

// Register adds all price tools to the registry
func (p *PriceTools) Register(r *ToolRegistry) {
	for _, symbol := range p.Symbols() {
		symbol := symbol
		display := p.Display(symbol)
		r.Register(ToolMetadata{
			Name:        PriceToolName(symbol),
			Description: fmt.Sprintf("Returns the current price of %s in USD.", display),
			ReturnType:  "string",
		}, func(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
			return p.Quote(ctx, symbol)
		})
	}

	r.Register(ToolMetadata{
		Name:        "get_token_price",
		Description: "Returns the current USD price of a supported token by its symbol.",
		ParamTypes:  map[string]string{"token": "string"},
		ParamDocs:   map[string]string{"token": "Token symbol, e.g. SOL or FATCAT"},
		Required:    []string{"token"},
		ReturnType:  "string",
	}, func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		token, err := getString(params, "token")
		if err != nil {
			return nil, err
		}
		return p.Quote(ctx, token)
	})

	r.Register(ToolMetadata{
		Name:        "get_token_address",
		Description: "Returns the on-chain mint address of a supported token.",
		ParamTypes:  map[string]string{"token": "string"},
		ParamDocs:   map[string]string{"token": "Token symbol, e.g. SOL or FATCAT"},
		Required:    []string{"token"},
		ReturnType:  "string",
	}, func(_ context.Context, params map[string]interface{}) (interface{}, error) {
		token, err := getString(params, "token")
		if err != nil {
			return nil, err
		}
		t, ok := p.src.Lookup(token)
		if !ok {
			return nil, fmt.Errorf("%w: %q", pricing.ErrUnsupportedSymbol, token)
		}
		return fmt.Sprintf("%s address: %s", p.Display(t.Symbol), t.Mint), nil
	})
}

// Symbols returns the base symbol followed by the featured ones
func (p *PriceTools) Symbols() []string {
	base := p.src.Base().Symbol
	out := []string{base}
	for _, s := range p.featured {
		if s != base {
			out = append(out, s)
		}
	}
	return out
}

// PriceQuote is a resolved price with its display line
type PriceQuote struct {
	Symbol string  `json:"symbol"`
	Mint   string  `json:"mint"`
	Price  float64 `json:"price"`
	Text   string  `json:"text"`
}

// Quote returns a one-line price such as "1 SOL = $150.0000"
func (p *PriceTools) Quote(ctx context.Context, symbol string) (string, error) {
	q, err := p.QuoteDetail(ctx, symbol)
	if err != nil {
		return "", err
	}
	return q.Text, nil
}

// QuoteDetail resolves the price of symbol
func (p *PriceTools) QuoteDetail(ctx context.Context, symbol string) (PriceQuote, error) {
	t, ok := p.src.Lookup(symbol)
	if !ok {
		return PriceQuote{}, fmt.Errorf("%w: %q", pricing.ErrUnsupportedSymbol, symbol)
	}

	price, err := p.src.Price(ctx, t.Symbol)
	if err != nil {
		return PriceQuote{}, err
	}

	return PriceQuote{
		Symbol: t.Symbol,
		Mint:   t.Mint,
		Price:  price,
		Text:   FormatPrice(p.Display(t.Symbol), price, p.decimals(t.Symbol)),
	}, nil
}

// Lines quotes every tool symbol, base first
func (p *PriceTools) Lines(ctx context.Context) ([]string, error) {
	symbols := p.Symbols()
	lines := make([]string, 0, len(symbols))
	for _, s := range symbols {
		line, err := p.Quote(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("failed to quote %s: %w", s, err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Display returns the user-facing name: the base symbol bare, others with a "$" prefix
func (p *PriceTools) Display(symbol string) string {
	symbol = pricing.NormalizeSymbol(symbol)
	if symbol == p.src.Base().Symbol {
		return symbol
	}
	return "$" + symbol
}

func (p *PriceTools) decimals(symbol string) int {
	if symbol == p.src.Base().Symbol {
		return BaseDecimals
	}
	return TokenDecimals
}

// PriceToolName returns the dedicated tool name for a symbol, e.g. get_sol_price
func PriceToolName(symbol string) string {
	return "get_" + strings.ToLower(pricing.NormalizeSymbol(symbol)) + "_price"
}

// FormatPrice renders "1 <display> = $<price>" with a fixed number of decimals.
// Rounding is applied to the exact binary value of price, so 2.675 at two
// decimals is 2.67.
func FormatPrice(display string, price float64, decimals int) string {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return fmt.Sprintf("1 %s = $%v", display, price)
	}
	exact := decimal.NewFromFloatWithExponent(price, math.MinInt32)
	return fmt.Sprintf("1 %s = $%s", display, exact.StringFixed(int32(decimals)))
}
