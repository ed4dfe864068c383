//go:build !windows

package lifecycle

import (
	"os"
	"syscall"
)

var (
	shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	toggleSignals   = []os.Signal{syscall.SIGUSR1}
)
