package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/selivandex/fatty/internal/assistant"
	"github.com/selivandex/fatty/internal/pricing"
	"github.com/selivandex/fatty/internal/toolkit"
	"github.com/selivandex/fatty/pkg/logger"
)

// Banner is served on GET /
const Banner = "🧠 FatCat AI Query Engine is running!"

// Chatter answers user messages
type Chatter interface {
	Chat(ctx context.Context, message string) (string, error)
}

// Quoter resolves prices for the REST surface
type Quoter interface {
	QuoteDetail(ctx context.Context, symbol string) (toolkit.PriceQuote, error)
}

// chatRequest accepts either {"message": ...} or {"question": ...}
type chatRequest struct {
	Message  *string `json:"message"`
	Question *string `json:"question"`
}

type handlers struct {
	chat            Chatter
	prices          Quoter
	maxMessageChars int
}

func (h *handlers) root(c *gin.Context) {
	c.String(http.StatusOK, Banner)
}

// chatResponse handles POST /ai/response
func (h *handlers) chatResponse(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if isBodyTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}

	message, replyKey := "", "reply"
	if req.Message != nil {
		message = SanitizeMessage(*req.Message, h.maxMessageChars)
	}
	if message == "" && req.Question != nil {
		message, replyKey = SanitizeMessage(*req.Question, h.maxMessageChars), "response"
	}
	if message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing message"})
		return
	}

	reply, err := h.chat.Chat(c.Request.Context(), message)
	if err != nil {
		if errors.Is(err, assistant.ErrNotReady) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Query engine not ready"})
			return
		}

		logger.Error("❌ error in /ai/response",
			zap.String("request_id", GetRequestID(c)),
			zap.Error(err),
		)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get response"})
		return
	}

	c.JSON(http.StatusOK, gin.H{replyKey: reply})
}

// price handles GET /prices/:symbol
func (h *handlers) price(c *gin.Context) {
	symbol := c.Param("symbol")

	quote, err := h.prices.QuoteDetail(c.Request.Context(), symbol)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, quote)
	case errors.Is(err, pricing.ErrUnsupportedSymbol):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported symbol"})
	case errors.Is(err, pricing.ErrUpstreamUnavailable):
		logger.Warn("price unavailable",
			zap.String("symbol", symbol),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Price unavailable"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get price"})
	}
}
