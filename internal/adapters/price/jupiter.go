package price

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

const jupiterQuoteURL = "https://quote-api.jup.ag/v6/quote"

// JupiterQuoter asks the Jupiter aggregator how much outputMint a swap would return
type JupiterQuoter struct {
	client HTTPClient
	url    string
}

type quoteResponse struct {
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
}

// NewJupiterQuoter creates new Jupiter swap quoter. An empty url uses the public endpoint.
func NewJupiterQuoter(client HTTPClient, url string) *JupiterQuoter {
	if client == nil {
		client = NewHTTPClient(DefaultTimeout)
	}
	if url == "" {
		url = jupiterQuoteURL
	}
	return &JupiterQuoter{client: client, url: url}
}

func (j *JupiterQuoter) GetName() string {
	return "Jupiter"
}

// Quote returns the raw outAmount, in base units of outputMint
func (j *JupiterQuoter) Quote(ctx context.Context, inputMint, outputMint string, amount int64) (string, error) {
	u, err := url.Parse(j.url)
	if err != nil {
		return "", fmt.Errorf("invalid quote url: %w", err)
	}
	q := u.Query()
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", strconv.FormatInt(amount, 10))
	u.RawQuery = q.Encode()

	var result quoteResponse
	if err := getJSON(ctx, j.client, u.String(), &result); err != nil {
		return "", err
	}

	if result.OutAmount == "" {
		return "", fmt.Errorf("quote for %s has no outAmount", inputMint)
	}

	return result.OutAmount, nil
}
