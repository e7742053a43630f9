package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selivandex/fatty/internal/adapters/config"
	"github.com/selivandex/fatty/internal/assistant"
	"github.com/selivandex/fatty/internal/health"
	"github.com/selivandex/fatty/internal/pricing"
	"github.com/selivandex/fatty/internal/toolkit"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeChat struct {
	reply string
	err   error
	got   []string
}

func (f *fakeChat) Chat(_ context.Context, message string) (string, error) {
	f.got = append(f.got, message)
	return f.reply, f.err
}

type fakeQuoter struct {
	err error
}

func (f *fakeQuoter) QuoteDetail(_ context.Context, symbol string) (toolkit.PriceQuote, error) {
	if f.err != nil {
		return toolkit.PriceQuote{}, f.err
	}
	if pricing.NormalizeSymbol(symbol) != "SOL" {
		return toolkit.PriceQuote{}, pricing.ErrUnsupportedSymbol
	}
	return toolkit.PriceQuote{Symbol: "SOL", Mint: pricing.SOLMint, Price: 150, Text: "1 SOL = $150.0000"}, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.MaxBodyBytes = 1 << 10
	cfg.Server.MaxMessageChars = 50
	cfg.RateLimit.RequestsPerSecond = 1000
	cfg.RateLimit.Burst = 1000
	return cfg
}

func newTestRouter(t *testing.T, chat Chatter, quoter Quoter, limiter *RateLimiter) *gin.Engine {
	t.Helper()
	checker := health.NewChecker()
	checker.SetReady(true)
	return NewRouter(testConfig(), Deps{Chat: chat, Prices: quoter, Health: checker}, limiter)
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRoot(t *testing.T) {
	router := newTestRouter(t, &fakeChat{}, &fakeQuoter{}, nil)

	rec := do(router, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, Banner, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestChatResponse(t *testing.T) {
	chat := &fakeChat{reply: "Meow!"}
	router := newTestRouter(t, chat, &fakeQuoter{}, nil)

	rec := do(router, http.MethodPost, "/ai/response", `{"message":"  <b>hi</b> fatty  "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"reply": "Meow!"}, decode(t, rec))
	assert.Equal(t, []string{"hi fatty"}, chat.got)

	rec = do(router, http.MethodPost, "/ai/response", `{"question":"what is fatcat?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"response": "Meow!"}, decode(t, rec))

	rec = do(router, http.MethodPost, "/ai/response", `{"message":"  ","question":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"response": "Meow!"}, decode(t, rec))
	assert.Equal(t, "hi", chat.got[len(chat.got)-1])
}

func TestChatResponse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		chatErr error
		body    string
		code    int
		message string
	}{
		{name: "missing message", body: `{}`, code: http.StatusBadRequest, message: "Missing message"},
		{name: "blank after sanitizing", body: `{"message":"<br/> \u0000 "}`, code: http.StatusBadRequest, message: "Missing message"},
		{name: "invalid json", body: `{"message":`, code: http.StatusBadRequest, message: "Invalid JSON body"},
		{name: "too large", body: `{"message":"` + strings.Repeat("a", 2048) + `"}`, code: http.StatusRequestEntityTooLarge, message: "Request body too large"},
		{name: "not ready", chatErr: assistant.ErrNotReady, body: `{"message":"hi"}`, code: http.StatusInternalServerError, message: "Query engine not ready"},
		{name: "chat failure", chatErr: errors.New("openai: 500"), body: `{"message":"hi"}`, code: http.StatusInternalServerError, message: "Failed to get response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, &fakeChat{err: tt.chatErr}, &fakeQuoter{}, nil)

			rec := do(router, http.MethodPost, "/ai/response", tt.body)
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.message, decode(t, rec)["error"])
		})
	}
}

func TestChatResponse_TruncatesLongMessages(t *testing.T) {
	chat := &fakeChat{reply: "ok"}
	router := newTestRouter(t, chat, &fakeQuoter{}, nil)

	rec := do(router, http.MethodPost, "/ai/response", `{"message":"`+strings.Repeat("x", 80)+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, chat.got, 1)
	assert.Len(t, chat.got[0], 50)
}

func TestPrice(t *testing.T) {
	router := newTestRouter(t, &fakeChat{}, &fakeQuoter{}, nil)

	rec := do(router, http.MethodGet, "/prices/sol", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "SOL", body["symbol"])
	assert.Equal(t, 150.0, body["price"])
	assert.Equal(t, "1 SOL = $150.0000", body["text"])

	rec = do(router, http.MethodGet, "/prices/DOGE", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	router = newTestRouter(t, &fakeChat{}, &fakeQuoter{err: pricing.ErrUpstreamUnavailable}, nil)
	rec = do(router, http.MethodGet, "/prices/SOL", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Price unavailable", decode(t, rec)["error"])
}

func TestHealthRoutes(t *testing.T) {
	router := newTestRouter(t, &fakeChat{}, &fakeQuoter{}, nil)

	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/ready", "").Code)
}

func TestCORS(t *testing.T) {
	router := newTestRouter(t, &fakeChat{}, &fakeQuoter{}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/ai/response", nil)
	req.Header.Set("Origin", "https://fatcat.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://fatcat.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2)
	defer limiter.Close()
	router := newTestRouter(t, &fakeChat{}, &fakeQuoter{}, limiter)

	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/", "").Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/", "").Code)

	rec := do(router, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// probes are never limited
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/health", "").Code)
}

func TestSanitizeMessage(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{in: "  hello  ", max: 100, want: "hello"},
		{in: "<script>alert(1)</script>hi", max: 100, want: "alert(1)hi"},
		{in: "a\x00b\x07c", max: 100, want: "abc"},
		{in: "line1\nline2", max: 100, want: "line1\nline2"},
		{in: "héllo wörld", max: 5, want: "héllo"},
		{in: "", max: 10, want: ""},
		{in: "is SOL < $200 or > $100 today?", max: 4000, want: "is SOL < $200 or > $100 today?"},
		{in: "1 < 2 and <div class=\"x\">3</div> > 0", max: 100, want: "1 < 2 and 3 > 0"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeMessage(tt.in, tt.max), tt.in)
	}
}

func TestServer_ListenBeforeServe(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Port = "0"
	checker := health.NewChecker()

	srv := NewServer(cfg, Deps{Chat: &fakeChat{}, Prices: &fakeQuoter{}, Health: checker})
	require.NoError(t, srv.Listen())

	_, port, err := net.SplitHostPort(srv.Addr())
	require.NoError(t, err)
	require.NotEqual(t, "0", port)

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	resp, err := http.Get("http://127.0.0.1:" + port + "/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// A second server on the same port fails at Listen, before it could report ready.
	cfg2 := testConfig()
	cfg2.Server.Port = port
	busy := NewServer(cfg2, Deps{Chat: &fakeChat{}, Prices: &fakeQuoter{}, Health: checker})
	assert.Error(t, busy.Listen())
	busy.limiter.Close()

	require.NoError(t, srv.Shutdown(context.Background()))
	assert.NoError(t, <-done)
}
