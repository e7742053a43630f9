package assistant

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrNotReady is returned while no engine has been built
var ErrNotReady = errors.New("query engine not ready")

// Holder keeps the engine currently serving requests
type Holder struct {
	engine atomic.Pointer[Engine]
}

// NewHolder creates an empty holder
func NewHolder() *Holder {
	return &Holder{}
}

// Set installs the engine
func (h *Holder) Set(e *Engine) {
	h.engine.Store(e)
}

// Ready returns true once an engine is installed
func (h *Holder) Ready() bool {
	return h.engine.Load() != nil
}

// Chat answers a message with the current engine
func (h *Holder) Chat(ctx context.Context, message string) (string, error) {
	e := h.engine.Load()
	if e == nil {
		return "", ErrNotReady
	}
	return e.Chat(ctx, message)
}
