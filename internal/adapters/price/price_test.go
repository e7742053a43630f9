package price

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const solMint = "So11111111111111111111111111111111111111112"

func TestRaydiumFeed_FetchPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"` + solMint + `": 150.25, "other": 0.5}`))
	}))
	defer srv.Close()

	feed := NewRaydiumFeed(srv.Client(), srv.URL)
	prices, err := feed.FetchPrices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 150.25, prices[solMint])
	assert.Len(t, prices, 2)
}

func TestRaydiumFeed_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "server error", status: http.StatusBadGateway, body: "bad gateway", wantErr: "API error 502"},
		{name: "malformed json", status: http.StatusOK, body: "{not json", wantErr: "failed to decode"},
		{name: "non-numeric price", status: http.StatusOK, body: `{"x": "abc"}`, wantErr: "failed to decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewRaydiumFeed(srv.Client(), srv.URL).FetchPrices(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestJupiterQuoter_Quote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "fatcat-mint", q.Get("inputMint"))
		assert.Equal(t, solMint, q.Get("outputMint"))
		assert.Equal(t, "1000000", q.Get("amount"))
		_, _ = w.Write([]byte(`{"inputMint":"fatcat-mint","outputMint":"` + solMint + `","inAmount":"1000000","outAmount":"50000000"}`))
	}))
	defer srv.Close()

	out, err := NewJupiterQuoter(srv.Client(), srv.URL).Quote(context.Background(), "fatcat-mint", solMint, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, "50000000", out)
}

func TestJupiterQuoter_MissingOutAmount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"no route"}`))
	}))
	defer srv.Close()

	_, err := NewJupiterQuoter(srv.Client(), srv.URL).Quote(context.Background(), "a", "b", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no outAmount")
}

func TestJupiterQuoter_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewJupiterQuoter(srv.Client(), srv.URL).Quote(context.Background(), "a", "b", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error 404")
}

func TestDefaults(t *testing.T) {
	assert.Equal(t, raydiumPriceURL, NewRaydiumFeed(nil, "").url)
	assert.Equal(t, jupiterQuoteURL, NewJupiterQuoter(nil, "").url)
	assert.Equal(t, "Raydium", NewRaydiumFeed(nil, "").GetName())
	assert.Equal(t, "Jupiter", NewJupiterQuoter(nil, "").GetName())
}
