package rimage

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// MaskPolicy decides which depth samples count as valid.
type MaskPolicy int

const (
	// MaskNonPositive treats zero, negative and non-finite depth as invalid.
	MaskNonPositive MaskPolicy = iota
	// MaskZeroOnly treats only the exact zero dropout value as invalid.
	MaskZeroOnly
)

// ParseMaskPolicy parses "non_positive" or "zero_only"; empty means MaskNonPositive.
func ParseMaskPolicy(s string) (MaskPolicy, error) {
	switch s {
	case "", "non_positive":
		return MaskNonPositive, nil
	case "zero_only":
		return MaskZeroOnly, nil
	default:
		return 0, errors.Errorf("unknown mask policy %q", s)
	}
}

func (p MaskPolicy) String() string {
	switch p {
	case MaskNonPositive:
		return "non_positive"
	case MaskZeroOnly:
		return "zero_only"
	default:
		return fmt.Sprintf("MaskPolicy(%d)", int(p))
	}
}

// Valid reports whether a depth sample is usable under the policy.
func (p MaskPolicy) Valid(d float64) bool {
	if p == MaskZeroOnly {
		return d != 0
	}
	return d > 0 && !math.IsInf(d, 1)
}

// BuildMask returns a mask the size of depth holding 1 for valid samples and 0
// for invalid ones.
func BuildMask(depth *mat.Dense, policy MaskPolicy) *mat.Dense {
	rows, cols := depth.Dims()
	mask := mat.NewDense(rows, cols, nil)
	FillMask(mask, depth, policy)
	return mask
}

// FillMask writes the validity of depth into mask. The two must have the same
// dimensions.
func FillMask(mask, depth *mat.Dense, policy MaskPolicy) {
	mustSameDims("mask", mask, "depth", depth)
	rows, _ := depth.Dims()
	for y := 0; y < rows; y++ {
		in := depth.RawRowView(y)
		out := mask.RawRowView(y)
		for x, d := range in {
			out[x] = 1
			if !policy.Valid(d) {
				out[x] = 0
			}
		}
	}
}

// StackMask returns a mask twice as tall as mask whose top and bottom halves
// are both copies of it, for layouts that place two views one above the other.
func StackMask(mask *mat.Dense) *mat.Dense {
	rows, cols := mask.Dims()
	stacked := mat.NewDense(2*rows, cols, nil)
	stacked.Slice(0, rows, 0, cols).(*mat.Dense).Copy(mask)
	stacked.Slice(rows, 2*rows, 0, cols).(*mat.Dense).Copy(mask)
	return stacked
}

// CountValid returns the number of non-zero mask entries.
func CountValid(mask *mat.Dense) int {
	rows, _ := mask.Dims()
	n := 0
	for y := 0; y < rows; y++ {
		for _, v := range mask.RawRowView(y) {
			if v != 0 {
				n++
			}
		}
	}
	return n
}

// SameDims reports whether two fields have identical dimensions.
func SameDims(a, b mat.Matrix) bool {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	return ar == br && ac == bc
}

func mustSameDims(aName string, a mat.Matrix, bName string, b mat.Matrix) {
	if !SameDims(a, b) {
		ar, ac := a.Dims()
		br, bc := b.Dims()
		panic(fmt.Errorf("%s is %dx%d but %s is %dx%d", aName, ac, ar, bName, bc, br))
	}
}
