package transform

import (
	"testing"

	"go.viam.com/test"

	"go.viam.com/sfsprep/framesource"
	"go.viam.com/sfsprep/framesource/fake"
)

func TestResizeRegistration(t *testing.T) {
	pair := fake.Render(32, 24, 64, 48, 1)
	reg, err := ParseRegistration("resize")
	test.That(t, err, test.ShouldBeNil)

	undistorted, registered, err := reg.Apply(pair.Color, pair.Depth)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, registered.Width, test.ShouldEqual, 32)
	test.That(t, registered.Height, test.ShouldEqual, 24)
	test.That(t, registered.Format, test.ShouldEqual, framesource.FormatBGRX)
	test.That(t, registered.Sequence, test.ShouldEqual, uint64(1))
	test.That(t, registered.Validate(), test.ShouldBeNil)
	test.That(t, undistorted.Data, test.ShouldResemble, pair.Depth.Data)

	// outputs are copies
	undistorted.Data[0] = 0xff
	test.That(t, pair.Depth.Data[0], test.ShouldNotEqual, 0xff)
}

func TestResizeRegistrationSameSize(t *testing.T) {
	pair := fake.Render(16, 12, 16, 12, 2)
	reg := &ResizeRegistration{}
	_, registered, err := reg.Apply(pair.Color, pair.Depth)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, registered.Data, test.ShouldResemble, pair.Color.Data)

	bad := pair.Depth.Clone()
	bad.Data = bad.Data[:10]
	_, _, err = reg.Apply(pair.Color, bad)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "invalid depth frame")
}

func TestPassThroughRegistration(t *testing.T) {
	pair := fake.Render(16, 12, 32, 24, 3)
	reg, err := ParseRegistration("none")
	test.That(t, err, test.ShouldBeNil)
	_, registered, err := reg.Apply(pair.Color, pair.Depth)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, registered.Width, test.ShouldEqual, 32)

	_, err = ParseRegistration("homography")
	test.That(t, err, test.ShouldNotBeNil)
}
