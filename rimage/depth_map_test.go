package rimage

import (
	"math"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/sfsprep/framesource"
)

func TestDepthFrameRoundTrip(t *testing.T) {
	depth := mat.NewDense(2, 3, []float64{
		0, 0.5, 1.25,
		2, -1, 3.75,
	})
	f := DepthToFrame(depth)
	test.That(t, f.Width, test.ShouldEqual, 3)
	test.That(t, f.Height, test.ShouldEqual, 2)
	test.That(t, f.Format, test.ShouldEqual, framesource.FormatFloat)
	test.That(t, f.DepthAt(2, 1), test.ShouldEqual, float32(3.75))

	back, err := DepthFromFrame(f)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mat.Equal(back, depth), test.ShouldBeTrue)
}

func TestDepthFromFrameWrongFormat(t *testing.T) {
	_, err := DepthFromFrame(framesource.NewFrame(4, 4, framesource.FormatBGRX))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "expected float depth frame")
}

func TestToGray(t *testing.T) {
	m := mat.NewDense(1, 5, []float64{-1, 0.5, 1, 3, math.NaN()})
	img := ToGray(m, 150)
	test.That(t, img.GrayAt(0, 0).Y, test.ShouldEqual, 0)
	test.That(t, img.GrayAt(1, 0).Y, test.ShouldEqual, 75)
	test.That(t, img.GrayAt(2, 0).Y, test.ShouldEqual, 150)
	test.That(t, img.GrayAt(3, 0).Y, test.ShouldEqual, 255)
	test.That(t, img.GrayAt(4, 0).Y, test.ShouldEqual, 0)
}
