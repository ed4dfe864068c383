package rimage

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrDegenerateFrame is returned when a frame has no positive valid depth to
// normalize against.
var ErrDegenerateFrame = errors.New("degenerate frame: no valid depth")

// MaskedMax returns the largest finite value of m where mask is non-zero, and
// false if there is no such value. A nil mask considers every entry.
func MaskedMax(m, mask *mat.Dense) (float64, bool) {
	if mask != nil {
		mustSameDims("field", m, "mask", mask)
	}
	rows, _ := m.Dims()
	best := math.Inf(-1)
	found := false
	for y := 0; y < rows; y++ {
		vals := m.RawRowView(y)
		var mrow []float64
		if mask != nil {
			mrow = mask.RawRowView(y)
		}
		for x, v := range vals {
			if mrow != nil && mrow[x] == 0 {
				continue
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			if v > best {
				best = v
			}
			found = true
		}
	}
	return best, found
}

// Normalize linearly rescales depth so that its maximum over the mask maps to
// upper, giving [0, max] -> [0, upper]. Results are clamped to [0, upper] and
// are 0 wherever the mask is 0. If the maximum is not positive it returns an
// all-zero field and ErrDegenerateFrame.
func Normalize(depth, mask *mat.Dense, upper float64) (*mat.Dense, error) {
	if upper <= 0 {
		return nil, errors.Errorf("normalization upper bound must be positive, got %v", upper)
	}
	rows, cols := depth.Dims()
	out := mat.NewDense(rows, cols, nil)

	maxVal, ok := MaskedMax(depth, mask)
	if !ok || maxVal <= 0 {
		return out, ErrDegenerateFrame
	}

	for y := 0; y < rows; y++ {
		in := depth.RawRowView(y)
		dst := out.RawRowView(y)
		var mrow []float64
		if mask != nil {
			mrow = mask.RawRowView(y)
		}
		for x, v := range in {
			if (mrow != nil && mrow[x] == 0) || math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			dst[x] = math.Min(math.Max(v/maxVal*upper, 0), upper)
		}
	}
	return out, nil
}
