package solver

import (
	"context"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/sfsprep/export"
)

// A Solver refines Input.InitialUnknown into a result surface.
type Solver interface {
	Solve(ctx context.Context, in *Input, params NamedParameters) (*Result, error)
}

// Result is a solved surface, defined where Mask is non-zero.
type Result struct {
	Surface    *mat.Dense
	Mask       *mat.Dense
	Iterations uint
}

// Save writes the result as a mesh, an image scaled by imageScale and a raw
// dump under dir/base.
func (r *Result) Save(dir, base string, imageScale float64) ([]string, error) {
	return export.Surface{Field: r.Surface, Mask: r.Mask}.SaveAll(dir, base, imageScale)
}

// New returns the named solver backend. Only "identity" is built in; other
// backends are expected to be supplied by the caller.
func New(name string) (Solver, error) {
	switch name {
	case "", "identity":
		return Identity{}, nil
	default:
		return nil, errors.Errorf("unknown solver backend %q", name)
	}
}

// Identity is a backend that performs no refinement and returns the initial
// unknown unchanged. It exercises the solver plumbing end to end.
type Identity struct{}

// Solve implements Solver.
func (Identity) Solve(ctx context.Context, in *Input, params NamedParameters) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in == nil {
		return nil, errors.New("nil solver input")
	}
	if _, err := params.Uint(ParamNonLinearIterations); err != nil {
		return nil, err
	}
	if _, err := params.Uint(ParamLinearIterations); err != nil {
		return nil, err
	}
	return &Result{
		Surface: mat.DenseCopyOf(in.InitialUnknown),
		Mask:    mat.DenseCopyOf(in.Mask),
	}, nil
}
