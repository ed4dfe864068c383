// Package solver packages preprocessed fields for a shape-from-shading solver
// and defines the contract such a solver satisfies.
package solver

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrDimensionMismatch is wrapped by every DimensionMismatchError.
var ErrDimensionMismatch = errors.New("solver input dimension mismatch")

// DimensionMismatchError names the first field whose dimensions disagree with
// the intensity field.
type DimensionMismatchError struct {
	Field                 string
	Width, Height         int
	WantWidth, WantHeight int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%v: %s is %dx%d but intensity is %dx%d",
		ErrDimensionMismatch, e.Field, e.Width, e.Height, e.WantWidth, e.WantHeight)
}

// Unwrap allows errors.Is(err, ErrDimensionMismatch).
func (e *DimensionMismatchError) Unwrap() error {
	return ErrDimensionMismatch
}

// Input is the co-registered bundle handed to a solver for one frame. All fields
// have the same dimensions. An Input must not be modified after Assemble.
type Input struct {
	// Intensity is grayscale color in [0, 1].
	Intensity *mat.Dense
	// TargetDepth is the depth the solver's data term pulls towards.
	TargetDepth *mat.Dense
	// InitialUnknown is the starting surface for the iteration.
	InitialUnknown *mat.Dense
	// Mask is 1 where depth is trusted and 0 elsewhere.
	Mask *mat.Dense
}

// Width returns the bundle's width in pixels.
func (in *Input) Width() int {
	_, c := in.Intensity.Dims()
	return c
}

// Height returns the bundle's height in pixels.
func (in *Input) Height() int {
	r, _ := in.Intensity.Dims()
	return r
}

// Assemble checks that every field shares the intensity's dimensions and
// returns the bundle. Fields are never resized to fit.
func Assemble(intensity, targetDepth, initialUnknown, mask *mat.Dense) (*Input, error) {
	if intensity == nil {
		return nil, errors.New("intensity field is required")
	}
	wantH, wantW := intensity.Dims()
	for _, f := range []struct {
		name string
		m    *mat.Dense
	}{
		{"target depth", targetDepth},
		{"initial unknown", initialUnknown},
		{"mask", mask},
	} {
		if f.m == nil {
			return nil, errors.Errorf("%s field is required", f.name)
		}
		h, w := f.m.Dims()
		if h != wantH || w != wantW {
			return nil, &DimensionMismatchError{
				Field: f.name, Width: w, Height: h, WantWidth: wantW, WantHeight: wantH,
			}
		}
	}
	return &Input{
		Intensity:      intensity,
		TargetDepth:    targetDepth,
		InitialUnknown: initialUnknown,
		Mask:           mask,
	}, nil
}
