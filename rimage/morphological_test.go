package rimage

import (
	"math/rand"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestErodeSquareSinglePixel(t *testing.T) {
	// 4x4 with one invalid sample at x=2, y=2
	mask := mat.NewDense(4, 4, nil)
	mask.Apply(func(_, _ int, _ float64) float64 { return 1 }, mask)
	mask.Set(2, 2, 0)

	eroded := ErodeSquare(mask, 3)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			expected := 1.0
			if x >= 1 && x <= 3 && y >= 1 && y <= 3 {
				expected = 0
			}
			test.That(t, eroded.At(y, x), test.ShouldEqual, expected)
		}
	}
}

func TestErodeSquareBorderDoesNotErode(t *testing.T) {
	mask := mat.NewDense(3, 5, []float64{
		1, 1, 1, 1, 1,
		1, 1, 1, 1, 1,
		1, 1, 1, 1, 1,
	})
	eroded := ErodeSquare(mask, 7)
	test.That(t, mat.Equal(eroded, mask), test.ShouldBeTrue)
}

func TestErodeSquareSizeOneIsIdentity(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	mask := BuildMask(randomDepth(r, 9, 11, 0.2), MaskZeroOnly)
	test.That(t, mat.Equal(ErodeSquare(mask, 1), mask), test.ShouldBeTrue)
}

func TestErodeSquareNeverGrows(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 30; i++ {
		mask := BuildMask(randomDepth(r, 1+r.Intn(25), 1+r.Intn(25), 0.1), MaskZeroOnly)
		size := 1 + 2*r.Intn(5)
		eroded := ErodeSquare(mask, size)
		rows, cols := mask.Dims()
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				test.That(t, eroded.At(y, x), test.ShouldBeLessThanOrEqualTo, mask.At(y, x))
			}
		}
		// eroding further keeps shrinking
		test.That(t, CountValid(ErodeSquare(mask, size+2)), test.ShouldBeLessThanOrEqualTo, CountValid(eroded))
	}
}

func TestErodeSquareBadSize(t *testing.T) {
	mask := mat.NewDense(2, 2, nil)
	test.That(t, func() { ErodeSquare(mask, 4) }, test.ShouldPanic)
	test.That(t, func() { ErodeSquare(mask, 0) }, test.ShouldPanic)
}
