package pricing

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedSymbol is returned for symbols the oracle does not know how to price.
	ErrUnsupportedSymbol = errors.New("unsupported symbol")

	// ErrUpstreamUnavailable covers transport failures, non-success responses,
	// malformed payloads, timeouts and non-positive quotes.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

func unsupported(symbol string) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedSymbol, symbol)
}

func upstream(source string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUpstreamUnavailable, source, err)
}
