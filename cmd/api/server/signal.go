package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// ShutdownSignals end the process gracefully.
var ShutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// WithSignal returns a context canceled on the first shutdown signal. The returned
// stop func releases the signal handler and cancels the context; after it a second
// signal kills the process the default way.
func WithSignal(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, ShutdownSignals...)
}
