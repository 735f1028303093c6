package logging

import (
	"log/slog"
	"sync/atomic"
)

// atomicHandler stores a slog.Handler for lock-free reads across goroutines.
type atomicHandler struct {
	p atomic.Pointer[slog.Handler]
}

func (a *atomicHandler) Store(h slog.Handler) {
	a.p.Store(&h)
}

func (a *atomicHandler) Load() slog.Handler {
	return *a.p.Load()
}
