package toolkit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selivandex/fatty/internal/pricing"
)

type stubPrices struct {
	prices map[string]float64
	err    error
	calls  []string
}

func (s *stubPrices) Price(_ context.Context, symbol string) (float64, error) {
	s.calls = append(s.calls, symbol)
	if s.err != nil {
		return 0, s.err
	}
	return s.prices[symbol], nil
}

func (s *stubPrices) Lookup(symbol string) (pricing.Token, bool) {
	switch pricing.NormalizeSymbol(symbol) {
	case "SOL":
		return pricing.Token{Symbol: "SOL", Mint: pricing.SOLMint}, true
	case "FATCAT":
		return pricing.Token{Symbol: "FATCAT", Mint: pricing.FATCATMint}, true
	}
	return pricing.Token{}, false
}

func (s *stubPrices) Base() pricing.Token {
	return pricing.Token{Symbol: "SOL", Mint: pricing.SOLMint}
}

func newStubTools() (*ToolRegistry, *stubPrices) {
	src := &stubPrices{prices: map[string]float64{"SOL": 150, "FATCAT": 7.5}}
	r := NewToolRegistry()
	NewPriceTools(src, []string{"fatcat"}).Register(r)
	return r, src
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "1 SOL = $150.0000", FormatPrice("SOL", 150, 4))
	assert.Equal(t, "1 $FATCAT = $7.500000", FormatPrice("$FATCAT", 7.5, 6))
	assert.Equal(t, "1 $FATCAT = $0.000123", FormatPrice("$FATCAT", 0.0001234, 6))
	assert.Equal(t, "1 SOL = $142.1235", FormatPrice("SOL", 142.12345678, 4))

	// Halfway-looking values round on their exact binary value.
	assert.Equal(t, "1 SOL = $150.0000", FormatPrice("SOL", 150.00005, 4))
	assert.Equal(t, "1 X = $2.67", FormatPrice("X", 2.675, 2))
	assert.Equal(t, "1 X = $0.13", FormatPrice("X", 0.125, 2))
}

func TestPriceTools_Register(t *testing.T) {
	r, _ := newStubTools()

	names := make([]string, 0)
	for _, meta := range r.List() {
		names = append(names, meta.Name)
	}
	assert.Equal(t, []string{"get_fatcat_price", "get_sol_price", "get_token_address", "get_token_price"}, names)

	meta, ok := r.GetMetadata("get_fatcat_price")
	require.True(t, ok)
	assert.Equal(t, "Returns the current price of $FATCAT in USD.", meta.Description)
}

func TestPriceTools_Execute(t *testing.T) {
	r, src := newStubTools()
	ctx := context.Background()

	tests := []struct {
		tool   string
		params map[string]interface{}
		want   string
	}{
		{tool: "get_sol_price", want: "1 SOL = $150.0000"},
		{tool: "get_fatcat_price", want: "1 $FATCAT = $7.500000"},
		{tool: "get_token_price", params: map[string]interface{}{"token": "$fatcat"}, want: "1 $FATCAT = $7.500000"},
		{tool: "get_token_address", params: map[string]interface{}{"token": "sol"}, want: "SOL address: " + pricing.SOLMint},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			got, err := r.Execute(ctx, tt.tool, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, []string{"SOL", "FATCAT", "FATCAT"}, src.calls)
}

func TestPriceTools_Errors(t *testing.T) {
	r, src := newStubTools()
	ctx := context.Background()

	_, err := r.Execute(ctx, "get_token_price", map[string]interface{}{"token": "DOGE"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, pricing.ErrUnsupportedSymbol))

	_, err = r.Execute(ctx, "get_token_price", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required parameter: token")

	_, err = r.Execute(ctx, "get_weather", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tool")

	src.err = pricing.ErrUpstreamUnavailable
	_, err = r.Execute(ctx, "get_sol_price", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, pricing.ErrUpstreamUnavailable))
}

func TestPriceTools_Lines(t *testing.T) {
	src := &stubPrices{prices: map[string]float64{"SOL": 150, "FATCAT": 7.5}}
	pt := NewPriceTools(src, []string{"FATCAT", "SOL"})

	lines, err := pt.Lines(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1 SOL = $150.0000", "1 $FATCAT = $7.500000"}, lines)

	src.err = errors.New("boom")
	_, err = pt.Lines(context.Background())
	assert.Error(t, err)
}

func TestPriceTools_QuoteDetail(t *testing.T) {
	src := &stubPrices{prices: map[string]float64{"SOL": 150, "FATCAT": 7.5}}
	pt := NewPriceTools(src, []string{"FATCAT"})

	q, err := pt.QuoteDetail(context.Background(), "$fatcat")
	require.NoError(t, err)
	assert.Equal(t, PriceQuote{
		Symbol: "FATCAT",
		Mint:   pricing.FATCATMint,
		Price:  7.5,
		Text:   "1 $FATCAT = $7.500000",
	}, q)

	_, err = pt.QuoteDetail(context.Background(), "DOGE")
	assert.ErrorIs(t, err, pricing.ErrUnsupportedSymbol)
}

func TestPriceToolName(t *testing.T) {
	assert.Equal(t, "get_sol_price", PriceToolName("SOL"))
	assert.Equal(t, "get_fatcat_price", PriceToolName("$FatCat"))
}
