// Package signal turns OS interrupt/termination signals into pipeline
// cancellation: the first signal cancels the run's context so the
// orchestrator can shut down every writer gracefully, a second (or a
// run that fails to finish within the grace period) forces an
// immediate exit.
package signal

import (
	"context"
	"os"
	gosignal "os/signal"
	"syscall"
	"time"

	"github.com/lbloecher/chatload/internal/constants"
)

// NotifyCancel derives a cancellable context from parent that is
// cancelled on the first SIGINT/SIGHUP/SIGTERM/SIGQUIT. From that point
// a second signal, or the process simply failing to exit on its own
// within InterruptGraceTimeout, forces os.Exit(1).
func NotifyCancel(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 4)
	gosignal.Notify(sigCh, os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
			gosignal.Stop(sigCh)
			return
		}

		cancel()
		go func() {
			select {
			case <-sigCh:
			case <-time.After(constants.InterruptGraceTimeout):
			}
			os.Exit(1)
		}()
	}()

	return ctx, cancel
}
