package fake

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/sfsprep/framesource"
)

func TestOpenDevice(t *testing.T) {
	logger := golog.NewTestLogger(t)
	ctx := context.Background()

	_, err := framesource.OpenDevice(ctx, NewDriver(Config{}, logger), "")
	test.That(t, errors.Is(err, framesource.ErrNoDevice), test.ShouldBeTrue)

	_, err = framesource.OpenDevice(ctx, NewDriver(Config{NumDevices: 1, FailOpen: true}, logger), "")
	test.That(t, errors.Is(err, framesource.ErrOpenFailed), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "usb transfer failed")

	_, err = framesource.OpenDevice(ctx, NewDriver(Config{NumDevices: 1}, logger), "other")
	test.That(t, errors.Is(err, framesource.ErrOpenFailed), test.ShouldBeTrue)

	dev, err := framesource.OpenDevice(ctx, NewDriver(Config{NumDevices: 2, Serial: "abc"}, logger), "")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dev.Serial(), test.ShouldEqual, "abc")
	test.That(t, dev.Firmware(), test.ShouldNotBeEmpty)
}

func TestFramePairs(t *testing.T) {
	logger := golog.NewTestLogger(t)
	ctx := context.Background()
	dev := NewDevice(Config{DepthWidth: 64, DepthHeight: 48, ColorWidth: 128, ColorHeight: 96}, logger)
	test.That(t, dev.Start(ctx), test.ShouldBeNil)

	pair, err := dev.WaitForNextFramePair(ctx, time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pair.Sequence, test.ShouldEqual, uint64(1))
	test.That(t, pair.Depth.Validate(), test.ShouldBeNil)
	test.That(t, pair.Color.Validate(), test.ShouldBeNil)
	test.That(t, pair.Depth.Width, test.ShouldEqual, 64)
	test.That(t, pair.Color.Width, test.ShouldEqual, 128)
	// dropout columns and the hole report zero, the wall does not
	test.That(t, pair.Depth.DepthAt(0, 10), test.ShouldEqual, float32(0))
	test.That(t, pair.Depth.DepthAt(48+1, 9+1), test.ShouldEqual, float32(0))
	test.That(t, pair.Depth.DepthAt(10, 2), test.ShouldEqual, float32(wallDepth))
	test.That(t, pair.Depth.DepthAt(32, 24), test.ShouldBeLessThan, float32(wallDepth))

	_, err = dev.WaitForNextFramePair(ctx, time.Second)
	test.That(t, err, test.ShouldNotBeNil)

	dev.Release(pair)
	pair, err = dev.WaitForNextFramePair(ctx, time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pair.Sequence, test.ShouldEqual, uint64(2))
	dev.Release(pair)

	test.That(t, dev.Close(ctx), test.ShouldBeNil)
	_, err = dev.WaitForNextFramePair(ctx, time.Second)
	test.That(t, errors.Is(err, framesource.ErrNotStreaming), test.ShouldBeTrue)
	test.That(t, dev.Start(ctx), test.ShouldNotBeNil)
}

func TestStallTimesOut(t *testing.T) {
	logger := golog.NewTestLogger(t)
	ctx := context.Background()
	mock := clock.NewMock()
	dev := NewDevice(Config{DepthWidth: 8, DepthHeight: 8, StallAfter: 1, Clock: mock}, logger)
	test.That(t, dev.Start(ctx), test.ShouldBeNil)

	pair, err := dev.WaitForNextFramePair(ctx, time.Second)
	test.That(t, err, test.ShouldBeNil)
	dev.Release(pair)

	errCh := make(chan error, 1)
	go func() {
		_, err := dev.WaitForNextFramePair(ctx, 10*time.Second)
		errCh <- err
	}()
	// keep advancing until the waiter has registered its timer
	for {
		mock.Add(time.Second)
		select {
		case err := <-errCh:
			test.That(t, errors.Is(err, framesource.ErrFrameTimeout), test.ShouldBeTrue)
			return
		case <-time.After(time.Millisecond):
		}
	}
}

func TestStoppedDeviceHonorsContext(t *testing.T) {
	logger := golog.NewTestLogger(t)
	dev := NewDevice(Config{DepthWidth: 8, DepthHeight: 8}, logger)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := dev.WaitForNextFramePair(ctx, time.Hour)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)

	test.That(t, dev.Start(context.Background()), test.ShouldBeNil)
	test.That(t, dev.Stop(context.Background()), test.ShouldBeNil)
	test.That(t, dev.StartCount(), test.ShouldEqual, 1)
	test.That(t, dev.StopCount(), test.ShouldEqual, 1)
	test.That(t, dev.Streaming(), test.ShouldBeFalse)
}

func TestRenderDeterministic(t *testing.T) {
	a := Render(32, 24, 32, 24, 5)
	b := Render(32, 24, 32, 24, 5)
	test.That(t, a.Depth.Data, test.ShouldResemble, b.Depth.Data)
	test.That(t, a.Color.Data, test.ShouldResemble, b.Color.Data)
	c := Render(32, 24, 32, 24, 40)
	test.That(t, c.Depth.Data, test.ShouldNotResemble, a.Depth.Data)
}
