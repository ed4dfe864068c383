// Package lifecycle tracks whether acquisition should run, pause or shut down,
// and keeps a device's streaming state in line with it.
package lifecycle

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// State is the acquisition state requested by the operator.
type State int32

// Known states. ShuttingDown is terminal.
const (
	Running State = iota
	Paused
	ShuttingDown
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	case ShuttingDown:
		return "shutting down"
	default:
		return "unknown"
	}
}

// A Controller holds the requested state as a single atomic token. Every
// transition is one load-and-swap, so it may be driven from a signal handler.
type Controller struct {
	state *atomic.Int32
}

// NewController returns a controller in the Running state.
func NewController() *Controller {
	return &Controller{state: atomic.NewInt32(int32(Running))}
}

// State returns the current state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Pause moves Running to Paused and reports whether it did.
func (c *Controller) Pause() bool {
	return c.state.CompareAndSwap(int32(Running), int32(Paused))
}

// Resume moves Paused to Running and reports whether it did.
func (c *Controller) Resume() bool {
	return c.state.CompareAndSwap(int32(Paused), int32(Running))
}

// Toggle flips between Running and Paused. It does nothing once shutting down.
func (c *Controller) Toggle() bool {
	for {
		cur := State(c.state.Load())
		var next State
		switch cur {
		case Running:
			next = Paused
		case Paused:
			next = Running
		case ShuttingDown:
			return false
		default:
			return false
		}
		if c.state.CompareAndSwap(int32(cur), int32(next)) {
			return true
		}
	}
}

// Interrupt requests shutdown from any state.
func (c *Controller) Interrupt() {
	c.state.Store(int32(ShuttingDown))
}

// Streamer is the part of a device a Gate drives.
type Streamer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// A Gate starts and stops a device so that it streams exactly when the
// controller is Running. Only the acquisition loop may call Sync.
type Gate struct {
	ctrl      *Controller
	dev       Streamer
	logger    golog.Logger
	streaming bool
}

// NewGate returns a gate for a device whose current streaming state is given.
func NewGate(ctrl *Controller, dev Streamer, streaming bool, logger golog.Logger) *Gate {
	return &Gate{ctrl: ctrl, dev: dev, streaming: streaming, logger: logger}
}

// Streaming reports whether the gate believes the device is streaming.
func (g *Gate) Streaming() bool {
	return g.streaming
}

// Sync observes the controller once and issues at most one Start or Stop to
// bring the device in line. It returns the observed state.
func (g *Gate) Sync(ctx context.Context) (State, error) {
	state := g.ctrl.State()
	switch {
	case state == Paused && g.streaming:
		if err := g.dev.Stop(ctx); err != nil {
			return state, errors.Wrap(err, "error stopping device")
		}
		g.streaming = false
		g.logger.Info("acquisition paused")
	case state == Running && !g.streaming:
		if err := g.dev.Start(ctx); err != nil {
			return state, errors.Wrap(err, "error starting device")
		}
		g.streaming = true
		g.logger.Info("acquisition resumed")
	}
	return state, nil
}
