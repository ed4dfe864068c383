package lifecycle

import (
	"os"
	"syscall"
)

var (
	shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	// no user signal exists to toggle pause on windows
	toggleSignals []os.Signal
)
