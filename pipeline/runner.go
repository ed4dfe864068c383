package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/sfsprep/config"
	"go.viam.com/sfsprep/export"
	"go.viam.com/sfsprep/framesource"
	"go.viam.com/sfsprep/lifecycle"
	"go.viam.com/sfsprep/rimage"
	"go.viam.com/sfsprep/rimage/transform"
	"go.viam.com/sfsprep/solver"
)

// Export base names.
const (
	InitDepthBase   = "sfsInitDepth"
	SolverOutBase   = "sfsOutput"
	RawDepthImage   = "sfsRawDepth.png"
	StackedMaskFile = "sfsMask.png"

	initDepthImageScale = 255
	solverImageScale    = 150
)

// RunStats counts what happened to the frames a Runner received.
type RunStats struct {
	Received  int
	Processed int
	Skipped   int
}

// A Runner owns one device and the acquisition loop around it.
type Runner struct {
	conf   *config.Config
	driver framesource.Driver
	ctrl   *lifecycle.Controller
	clock  clock.Clock
	logger golog.Logger

	pre    *Preprocessor
	solver solver.Solver
	params solver.NamedParameters
	perf   *PerfStats

	dev   framesource.Device
	gate  *lifecycle.Gate
	stats RunStats
}

// NewRunner builds the preprocessing chain described by conf.
func NewRunner(
	conf *config.Config,
	driver framesource.Driver,
	ctrl *lifecycle.Controller,
	clk clock.Clock,
	logger golog.Logger,
) (*Runner, error) {
	if clk == nil {
		clk = clock.New()
	}
	policy, err := rimage.ParseMaskPolicy(conf.MaskPolicy)
	if err != nil {
		return nil, err
	}
	reg, err := transform.ParseRegistration(conf.Registration)
	if err != nil {
		return nil, err
	}
	pre, err := NewPreprocessor(PreprocessConfig{
		Filter:         conf.FilterConfig,
		MaskPolicy:     policy,
		NormalizeUpper: conf.NormalizeUpper,
		Registration:   reg,
		Clock:          clk,
	})
	if err != nil {
		return nil, err
	}
	r := &Runner{
		conf:   conf,
		driver: driver,
		ctrl:   ctrl,
		clock:  clk,
		logger: logger,
		pre:    pre,
	}
	if conf.Solve {
		if r.solver, err = solver.New(conf.Solver); err != nil {
			return nil, err
		}
		r.params = conf.SolverParameters()
	}
	if conf.Perf {
		r.perf = NewPerfStats()
	}
	return r, nil
}

// Stats returns the frame counters.
func (r *Runner) Stats() RunStats {
	return r.stats
}

// Perf returns the timing collector, or nil when not measuring.
func (r *Runner) Perf() *PerfStats {
	return r.perf
}

// Open opens and starts the device.
func (r *Runner) Open(ctx context.Context) error {
	dev, err := framesource.OpenDevice(ctx, r.driver, r.conf.Serial)
	if err != nil {
		return err
	}
	if err := dev.Start(ctx); err != nil {
		return multierr.Combine(errors.Wrap(err, "error starting device"), dev.Close(ctx))
	}
	r.dev = dev
	r.gate = lifecycle.NewGate(r.ctrl, dev, true, r.logger)
	r.logger.Infow("device started", "serial", dev.Serial(), "firmware", dev.Firmware())
	return nil
}

// Close stops the device if it is streaming and then closes it.
func (r *Runner) Close(ctx context.Context) error {
	if r.dev == nil {
		return nil
	}
	var err error
	if r.gate.Streaming() {
		err = errors.Wrap(r.dev.Stop(ctx), "error stopping device")
	}
	err = multierr.Combine(err, errors.Wrap(r.dev.Close(ctx), "error closing device"))
	r.dev = nil
	if r.perf != nil {
		r.perf.Log(r.logger)
	}
	r.logger.Infow("device closed", "received", r.stats.Received, "processed", r.stats.Processed, "skipped", r.stats.Skipped)
	return err
}

// Run opens the device, loops until shutdown, the frame limit, the end of the
// stream or a fatal error, and closes the device.
func (r *Runner) Run(ctx context.Context) (err error) {
	if err := r.Open(ctx); err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, r.Close(context.Background()))
	}()
	for {
		more, err := r.Step(ctx)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// Step performs one loop iteration: observe the lifecycle state, bring the
// device in line with it, and if running wait for and process one frame pair.
// It reports whether the loop should continue.
func (r *Runner) Step(ctx context.Context) (bool, error) {
	if r.dev == nil {
		return false, errors.New("runner is not open")
	}
	if ctx.Err() != nil {
		r.ctrl.Interrupt()
	}
	if r.conf.MaxFramesReached(r.stats.Received) {
		r.logger.Infow("frame limit reached", "max_frames", r.conf.MaxFrames)
		return false, nil
	}
	state, err := r.gate.Sync(ctx)
	if err != nil {
		return false, err
	}
	switch state {
	case lifecycle.ShuttingDown:
		r.logger.Info("shutting down")
		return false, nil
	case lifecycle.Paused:
		select {
		case <-ctx.Done():
		case <-r.clock.After(time.Duration(r.conf.PausePollInterval)):
		}
		return true, nil
	case lifecycle.Running:
	}

	pair, err := r.waitForFramePair(ctx)
	if err != nil {
		switch {
		case errors.Is(err, framesource.ErrEndOfStream):
			r.logger.Info("frame stream ended")
			return false, nil
		case ctx.Err() != nil:
			r.ctrl.Interrupt()
			return false, nil
		default:
			return false, err
		}
	}
	defer r.dev.Release(pair)
	r.stats.Received++
	r.processPair(ctx, pair)
	return true, nil
}

func (r *Runner) waitForFramePair(ctx context.Context) (*framesource.FramePair, error) {
	timeout := time.Duration(r.conf.FrameTimeout)
	for attempt := 0; ; attempt++ {
		pair, err := r.dev.WaitForNextFramePair(ctx, timeout)
		if err == nil {
			return pair, nil
		}
		if !errors.Is(err, framesource.ErrFrameTimeout) || attempt >= r.conf.FrameWaitRetries ||
			r.ctrl.State() == lifecycle.ShuttingDown {
			return nil, err
		}
		r.logger.Warnw("timed out waiting for frame pair, retrying",
			"timeout", timeout, "attempt", attempt+1, "retries", r.conf.FrameWaitRetries)
	}
}

// processPair handles one frame. Problems with a single frame are logged and
// the frame is skipped.
func (r *Runner) processPair(ctx context.Context, pair *framesource.FramePair) {
	res, err := r.pre.Process(pair)
	if err != nil {
		r.stats.Skipped++
		switch {
		case errors.Is(err, rimage.ErrDegenerateFrame):
			r.logger.Warnw("skipping frame without valid depth", "seq", pair.Sequence)
		case errors.Is(err, solver.ErrDimensionMismatch):
			r.logger.Warnw("skipping frame with mismatched fields", "seq", pair.Sequence, "error", err)
		default:
			r.logger.Warnw("skipping frame", "seq", pair.Sequence, "error", err)
		}
		return
	}
	r.logger.Debugw("preprocessed frame",
		"seq", res.Sequence, "valid", rimage.CountValid(res.ErodedMask), "total", res.Timings[StageTotal])

	if r.conf.Export {
		exportStart := r.clock.Now()
		r.exportInitial(res)
		res.Timings[StageExport] = r.clock.Now().Sub(exportStart)
	}
	if r.solver != nil {
		solveStart := r.clock.Now()
		result, err := r.solver.Solve(ctx, res.Input, r.params)
		res.Timings[StageSolve] = r.clock.Now().Sub(solveStart)
		if err != nil {
			r.stats.Skipped++
			r.logger.Warnw("solver failed", "seq", res.Sequence, "error", err)
			return
		}
		if r.conf.Export {
			if _, err := result.Save(r.conf.OutputDir, SolverOutBase, solverImageScale); err != nil {
				r.logger.Errorw("error saving solver output", "error", err)
			}
		}
	}
	r.stats.Processed++
	if r.perf != nil {
		r.perf.Record(res.Timings)
	}
}

func (r *Runner) exportInitial(res *FrameResult) {
	surface := export.Surface{Field: res.Surface, Mask: res.ErodedMask}
	if _, err := surface.SaveAll(r.conf.OutputDir, InitDepthBase, initDepthImageScale); err != nil {
		r.logger.Errorw("error saving initial depth", "error", err)
	}
	err := multierr.Combine(
		export.WriteDepthPreview(filepath.Join(r.conf.OutputDir, RawDepthImage), res.Depth),
		export.WriteImageFile(filepath.Join(r.conf.OutputDir, StackedMaskFile), res.StackedMask, 255),
	)
	if err != nil {
		r.logger.Errorw("error saving previews", "error", err)
	}
}
