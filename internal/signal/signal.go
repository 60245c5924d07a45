// Package signal adapts process termination signals into context
// cancellation for the collect and ingest command roots.
package signal

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalContext returns a context canceled on the first SIGINT or
// SIGTERM. A second signal is left to the default Go runtime behavior
// (immediate termination), since graceful shutdown already had its chance.
func SetupSignalContext() context.Context {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ctx
}
