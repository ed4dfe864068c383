package lifecycle

import (
	"context"
	"os"
	"os/signal"

	"github.com/edaniels/golog"
	"go.viam.com/utils"
)

// HandleSignals routes shutdownSignals to Interrupt and toggleSignals to Toggle
// until ctx is done or the returned stop function is called. The handler does
// nothing but the state write.
func (c *Controller) HandleSignals(ctx context.Context, logger golog.Logger) (stop func()) {
	sigs := make(chan os.Signal, 4)
	signal.Notify(sigs, append(append([]os.Signal{}, shutdownSignals...), toggleSignals...)...)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	utils.PanicCapturingGo(func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigs:
				c.handle(sig)
			}
		}
	})
	logger.Debugw("handling signals", "shutdown", shutdownSignals, "toggle", toggleSignals)
	return func() {
		signal.Stop(sigs)
		cancel()
		<-done
	}
}

func (c *Controller) handle(sig os.Signal) {
	for _, s := range toggleSignals {
		if sig == s {
			c.Toggle()
			return
		}
	}
	c.Interrupt()
}
