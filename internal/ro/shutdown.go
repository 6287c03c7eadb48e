package ro

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/ro"
)

// shutdownSignals are the OS signals that trigger graceful shutdown.
var shutdownSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}

// gracefulShutdown creates an Observable that emits once a shutdown
// signal is received, or errors with ctx.Err() if ctx is canceled
// first.
func gracefulShutdown(ctx context.Context) ro.Observable[os.Signal] {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, shutdownSignals...)

	return ro.NewObservableWithContext(func(ctx context.Context, observer ro.Observer[os.Signal]) ro.Teardown {
		go func() {
			select {
			case sig := <-ch:
				observer.NextWithContext(ctx, sig)
				observer.CompleteWithContext(ctx)
			case <-ctx.Done():
				observer.ErrorWithContext(ctx, ctx.Err())
			}
		}()

		return func() {
			signal.Stop(ch)
			close(ch)
		}
	})
}

// WaitForShutdown blocks until a shutdown signal is received or the
// context is canceled. Returns the received signal, or an error if the
// context was canceled first.
func WaitForShutdown(ctx context.Context) (os.Signal, error) {
	results, _, err := ro.CollectWithContext(ctx, gracefulShutdown(ctx))
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ctx.Err()
	}
	return results[0], nil
}
