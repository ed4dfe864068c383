// Package pipeline turns frame pairs into solver inputs and drives acquisition.
package pipeline

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/sfsprep/framesource"
	"go.viam.com/sfsprep/rimage"
	"go.viam.com/sfsprep/rimage/transform"
	"go.viam.com/sfsprep/solver"
)

// Stage names used in FrameResult.Timings.
const (
	StageRegister  = "register"
	StageMask      = "mask"
	StageFilter    = "filter"
	StageNormalize = "normalize"
	StageAssemble  = "assemble"
	StageSolve     = "solve"
	StageExport    = "export"
	StageTotal     = "total"
)

// PreprocessConfig configures a Preprocessor.
type PreprocessConfig struct {
	Filter         rimage.FilterConfig
	MaskPolicy     rimage.MaskPolicy
	NormalizeUpper float64
	Registration   transform.Registration
	Clock          clock.Clock
}

// FrameResult holds every intermediate field for one frame pair.
type FrameResult struct {
	Sequence  uint64
	Depth     *mat.Dense
	Intensity *mat.Dense
	Mask      *mat.Dense
	// StackedMask is the eroded double height mask for side by side display.
	StackedMask *mat.Dense
	ErodedMask  *mat.Dense
	Filtered    *mat.Dense
	Surface     *mat.Dense
	Input       *solver.Input
	Timings     map[string]time.Duration
}

// A Preprocessor converts frame pairs into solver inputs. It keeps no state
// between frames.
type Preprocessor struct {
	conf   PreprocessConfig
	filter *rimage.DepthFilter
}

// NewPreprocessor validates conf and returns a preprocessor.
func NewPreprocessor(conf PreprocessConfig) (*Preprocessor, error) {
	filter, err := rimage.NewDepthFilter(conf.Filter)
	if err != nil {
		return nil, err
	}
	if conf.NormalizeUpper <= 0 {
		return nil, errors.Errorf("normalization upper bound must be positive, got %v", conf.NormalizeUpper)
	}
	if conf.Registration == nil {
		conf.Registration = transform.PassThrough{}
	}
	if conf.Clock == nil {
		conf.Clock = clock.New()
	}
	return &Preprocessor{conf: conf, filter: filter}, nil
}

// Process runs registration, masking, filtering, normalization and assembly on
// pair. On rimage.ErrDegenerateFrame or solver.ErrDimensionMismatch the partial
// result is returned along with the error.
func (p *Preprocessor) Process(pair *framesource.FramePair) (*FrameResult, error) {
	res := &FrameResult{Sequence: pair.Sequence, Timings: map[string]time.Duration{}}
	start := p.conf.Clock.Now()
	last := start
	lap := func(stage string) {
		now := p.conf.Clock.Now()
		res.Timings[stage] = now.Sub(last)
		last = now
	}

	undistorted, registered, err := p.conf.Registration.Apply(pair.Color, pair.Depth)
	if err != nil {
		return nil, errors.Wrap(err, "registration failed")
	}
	res.Depth, err = rimage.DepthFromFrame(undistorted)
	if err != nil {
		return nil, err
	}
	res.Intensity, err = rimage.IntensityFromFrame(registered)
	if err != nil {
		return nil, err
	}
	lap(StageRegister)

	res.Mask = rimage.BuildMask(res.Depth, p.conf.MaskPolicy)
	lap(StageMask)

	res.Filtered, res.ErodedMask = p.filter.Apply(res.Depth, res.Mask)
	res.StackedMask = p.filter.ErodeMask(rimage.StackMask(res.Mask))
	lap(StageFilter)

	res.Surface, err = rimage.Normalize(res.Filtered, res.ErodedMask, p.conf.NormalizeUpper)
	lap(StageNormalize)
	if err != nil {
		return res, err
	}

	res.Input, err = solver.Assemble(res.Intensity, res.Surface, mat.DenseCopyOf(res.Surface), res.ErodedMask)
	lap(StageAssemble)
	res.Timings[StageTotal] = p.conf.Clock.Now().Sub(start)
	if err != nil {
		return res, err
	}
	return res, nil
}
