package price

import (
	"context"
)

const raydiumPriceURL = "https://api.raydium.io/v2/main/price"

// RaydiumFeed fetches direct USD quotes for every listed mint (free, no API key needed)
type RaydiumFeed struct {
	client HTTPClient
	url    string
}

// NewRaydiumFeed creates new Raydium price feed. An empty url uses the public endpoint.
func NewRaydiumFeed(client HTTPClient, url string) *RaydiumFeed {
	if client == nil {
		client = NewHTTPClient(DefaultTimeout)
	}
	if url == "" {
		url = raydiumPriceURL
	}
	return &RaydiumFeed{client: client, url: url}
}

func (r *RaydiumFeed) GetName() string {
	return "Raydium"
}

// FetchPrices returns the mint -> price map
func (r *RaydiumFeed) FetchPrices(ctx context.Context) (map[string]float64, error) {
	var prices map[string]float64
	if err := getJSON(ctx, r.client, r.url, &prices); err != nil {
		return nil, err
	}
	return prices, nil
}
