package rimage

import (
	"math"
	"math/rand"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func randomDepth(r *rand.Rand, rows, cols int, zeroFrac float64) *mat.Dense {
	m := mat.NewDense(rows, cols, nil)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if r.Float64() < zeroFrac {
				continue
			}
			m.Set(y, x, 0.5+4*r.Float64())
		}
	}
	return m
}

func TestBuildMaskZeroOnly(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		depth := randomDepth(r, 1+r.Intn(20), 1+r.Intn(20), 0.3)
		// negative and non-finite samples are still valid under the observed behavior
		depth.Set(0, 0, -1)
		mask := BuildMask(depth, MaskZeroOnly)
		rows, cols := depth.Dims()
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				if depth.At(y, x) == 0 {
					test.That(t, mask.At(y, x), test.ShouldEqual, 0)
				} else {
					test.That(t, mask.At(y, x), test.ShouldEqual, 1)
				}
			}
		}
	}

	depth := mat.NewDense(1, 3, []float64{math.NaN(), math.Inf(1), 0})
	mask := BuildMask(depth, MaskZeroOnly)
	test.That(t, mask.RawRowView(0), test.ShouldResemble, []float64{1, 1, 0})
}

func TestBuildMaskNonPositive(t *testing.T) {
	depth := mat.NewDense(2, 4, []float64{
		1.5, 0, -0.2, math.NaN(),
		math.Inf(1), math.Inf(-1), 0.001, 3,
	})
	mask := BuildMask(depth, MaskNonPositive)
	test.That(t, mask.RawRowView(0), test.ShouldResemble, []float64{1, 0, 0, 0})
	test.That(t, mask.RawRowView(1), test.ShouldResemble, []float64{0, 0, 1, 1})
	test.That(t, CountValid(mask), test.ShouldEqual, 3)
}

func TestBuildMaskDimensionMismatch(t *testing.T) {
	depth := mat.NewDense(2, 2, nil)
	mask := mat.NewDense(2, 3, nil)
	test.That(t, func() { FillMask(mask, depth, MaskZeroOnly) }, test.ShouldPanic)
}

func TestStackMask(t *testing.T) {
	depth := mat.NewDense(2, 3, []float64{
		1, 0, 1,
		2, 2, 0,
	})
	mask := BuildMask(depth, MaskZeroOnly)
	stacked := StackMask(mask)
	rows, cols := stacked.Dims()
	test.That(t, rows, test.ShouldEqual, 4)
	test.That(t, cols, test.ShouldEqual, 3)
	for y := 0; y < 2; y++ {
		test.That(t, stacked.RawRowView(y), test.ShouldResemble, mask.RawRowView(y))
		test.That(t, stacked.RawRowView(y+2), test.ShouldResemble, mask.RawRowView(y))
	}
}

func TestParseMaskPolicy(t *testing.T) {
	p, err := ParseMaskPolicy("")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p, test.ShouldEqual, MaskNonPositive)

	p, err = ParseMaskPolicy("zero_only")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p, test.ShouldEqual, MaskZeroOnly)
	test.That(t, p.String(), test.ShouldEqual, "zero_only")

	_, err = ParseMaskPolicy("negative")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown mask policy")
}
