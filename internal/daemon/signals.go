package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SignalHandler turns SIGINT, SIGTERM and SIGHUP into a daemon shutdown.
type SignalHandler struct {
	signals chan os.Signal
}

// NewSignalHandler creates a new signal handler.
func NewSignalHandler() *SignalHandler {
	return &SignalHandler{signals: make(chan os.Signal, 1)}
}

// Setup registers for shutdown signals.
func (h *SignalHandler) Setup() {
	signal.Notify(h.signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
}

// Wait blocks until a shutdown signal arrives or ctx is done. It returns nil
// when ctx ended the wait.
func (h *SignalHandler) Wait(ctx context.Context) os.Signal {
	select {
	case sig := <-h.signals:
		return sig
	case <-ctx.Done():
		return nil
	}
}

// Cleanup unregisters the handler.
func (h *SignalHandler) Cleanup() {
	signal.Stop(h.signals)
}
