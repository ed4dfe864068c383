// Package fake implements a synthetic frame source that renders a sphere in
// front of a wall, with sensor-style depth dropouts.
package fake

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"go.viam.com/sfsprep/framesource"
)

const (
	// DefaultWidth and DefaultHeight match the native depth resolution of the sensor.
	DefaultWidth  = 512
	DefaultHeight = 424

	wallDepth    = 2.0
	sphereBulge  = 0.35
	firmwareName = "synthetic-1.0"
)

// Config describes the synthetic scene and fault injection.
type Config struct {
	Serial      string
	NumDevices  int
	DepthWidth  int
	DepthHeight int
	ColorWidth  int
	ColorHeight int
	// FrameRate paces delivery; zero delivers as fast as frames are requested.
	FrameRate float64
	// StallAfter stops delivering frames after this many pairs; zero never stalls.
	StallAfter int
	// Stalled never delivers a frame.
	Stalled bool
	// FailOpen makes Open return an error.
	FailOpen bool
	Clock    clock.Clock
}

func (c *Config) setDefaults() {
	if c.Serial == "" {
		c.Serial = "fake-000000"
	}
	if c.DepthWidth == 0 {
		c.DepthWidth = DefaultWidth
	}
	if c.DepthHeight == 0 {
		c.DepthHeight = DefaultHeight
	}
	if c.ColorWidth == 0 {
		c.ColorWidth = c.DepthWidth
	}
	if c.ColorHeight == 0 {
		c.ColorHeight = c.DepthHeight
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
}

// Driver enumerates NumDevices synthetic devices sharing one Config.
type Driver struct {
	conf   Config
	logger golog.Logger

	mu   sync.Mutex
	last *Device
}

// NewDriver returns a synthetic driver.
func NewDriver(conf Config, logger golog.Logger) *Driver {
	conf.setDefaults()
	return &Driver{conf: conf, logger: logger}
}

// Enumerate returns the configured number of devices.
func (d *Driver) Enumerate(ctx context.Context) (int, error) {
	return d.conf.NumDevices, nil
}

// DefaultSerial returns the serial of the first device.
func (d *Driver) DefaultSerial(ctx context.Context) (string, error) {
	if d.conf.NumDevices == 0 {
		return "", framesource.ErrNoDevice
	}
	return d.conf.Serial, nil
}

// Open returns a new stopped device.
func (d *Driver) Open(ctx context.Context, serial string) (framesource.Device, error) {
	if d.conf.FailOpen {
		return nil, errors.New("usb transfer failed")
	}
	if serial != d.conf.Serial {
		return nil, errors.Errorf("no device with serial %q", serial)
	}
	dev := NewDevice(d.conf, d.logger)
	d.mu.Lock()
	d.last = dev
	d.mu.Unlock()
	return dev, nil
}

// LastOpened returns the most recently opened device, or nil.
func (d *Driver) LastOpened() *Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// Device is a synthetic device. It records Start and Stop calls so that callers
// can verify streaming control.
type Device struct {
	conf   Config
	logger golog.Logger

	mu          sync.Mutex
	streaming   bool
	closed      bool
	outstanding bool
	seq         uint64
	last        time.Time
	starts      int
	stops       int
}

// NewDevice returns a stopped device.
func NewDevice(conf Config, logger golog.Logger) *Device {
	conf.setDefaults()
	return &Device{conf: conf, logger: logger}
}

// Serial returns the device serial number.
func (d *Device) Serial() string {
	return d.conf.Serial
}

// Firmware returns a fixed firmware string.
func (d *Device) Firmware() string {
	return firmwareName
}

// Start begins streaming.
func (d *Device) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.New("device closed")
	}
	d.streaming = true
	d.starts++
	d.logger.Debugw("synthetic device started", "serial", d.conf.Serial)
	return nil
}

// Stop halts streaming.
func (d *Device) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.New("device closed")
	}
	d.streaming = false
	d.stops++
	d.logger.Debugw("synthetic device stopped", "serial", d.conf.Serial)
	return nil
}

// Close releases the device; it cannot be restarted.
func (d *Device) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.streaming = false
	d.closed = true
	return nil
}

// StartCount returns how many times Start was called.
func (d *Device) StartCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.starts
}

// StopCount returns how many times Stop was called.
func (d *Device) StopCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stops
}

// Closed reports whether Close was called.
func (d *Device) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Streaming reports whether the device is started.
func (d *Device) Streaming() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.streaming
}

// WaitForNextFramePair renders the next pair, or blocks until timeout when the
// device is stalled or stopped.
func (d *Device) WaitForNextFramePair(ctx context.Context, timeout time.Duration) (*framesource.FramePair, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, framesource.ErrNotStreaming
	}
	if d.outstanding {
		d.mu.Unlock()
		return nil, errors.New("previous frame pair was not released")
	}
	stalled := !d.streaming || d.conf.Stalled || (d.conf.StallAfter > 0 && d.seq >= uint64(d.conf.StallAfter))
	last := d.last
	d.mu.Unlock()

	if stalled {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-d.conf.Clock.After(timeout):
			return nil, framesource.ErrFrameTimeout
		}
	}

	if d.conf.FrameRate > 0 && !last.IsZero() {
		period := time.Duration(float64(time.Second) / d.conf.FrameRate)
		if wait := last.Add(period).Sub(d.conf.Clock.Now()); wait > 0 {
			if wait > timeout {
				return nil, framesource.ErrFrameTimeout
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-d.conf.Clock.After(wait):
			}
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	d.last = d.conf.Clock.Now()
	d.outstanding = true
	pair := Render(d.conf.DepthWidth, d.conf.DepthHeight, d.conf.ColorWidth, d.conf.ColorHeight, d.seq)
	pair.Color.Timestamp = d.last
	pair.Depth.Timestamp = d.last
	return pair, nil
}

// Release returns ownership of a pair to the device.
func (d *Device) Release(pair *framesource.FramePair) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if pair == nil {
		return
	}
	d.outstanding = false
}

func (d *Device) String() string {
	return fmt.Sprintf("fake device %s", d.conf.Serial)
}

// Render draws the synthetic scene for the given sequence number. Depth is a
// wall at 2m with a sphere bulging towards the sensor; the leftmost columns and
// a square hole report zero depth, as a structured-light sensor does at its
// field-of-view edge and on absorbent surfaces.
func Render(depthW, depthH, colorW, colorH int, seq uint64) *framesource.FramePair {
	depth := framesource.NewFrame(depthW, depthH, framesource.FormatFloat)
	color := framesource.NewFrame(colorW, colorH, framesource.FormatBGRX)
	depth.Sequence, color.Sequence = seq, seq

	// the sphere drifts slowly so consecutive frames differ
	cu := 0.5 + 0.05*math.Sin(float64(seq)/10)
	cv := 0.5
	radius := 0.25

	dropCols := depthW / 32
	holeX0, holeY0 := depthW*3/4, depthH/5
	holeSize := depthW / 16

	for y := 0; y < depthH; y++ {
		for x := 0; x < depthW; x++ {
			if x < dropCols || (x >= holeX0 && x < holeX0+holeSize && y >= holeY0 && y < holeY0+holeSize) {
				continue
			}
			u := (float64(x) + 0.5) / float64(depthW)
			v := (float64(y) + 0.5) / float64(depthH)
			z, _ := sceneAt(u, v, cu, cv, radius)
			depth.SetDepth(x, y, float32(z))
		}
	}

	for y := 0; y < colorH; y++ {
		for x := 0; x < colorW; x++ {
			u := (float64(x) + 0.5) / float64(colorW)
			v := (float64(y) + 0.5) / float64(colorH)
			_, shade := sceneAt(u, v, cu, cv, radius)
			i := 4 * (y*colorW + x)
			g := uint8(math.Round(255 * shade))
			color.Data[i] = g
			color.Data[i+1] = g
			color.Data[i+2] = g
			color.Data[i+3] = 255
		}
	}
	return &framesource.FramePair{Color: color, Depth: depth, Sequence: seq}
}

// sceneAt returns the depth and a Lambertian shade in [0, 1] at normalized
// image coordinates.
func sceneAt(u, v, cu, cv, radius float64) (float64, float64) {
	du, dv := (u-cu)/radius, (v-cv)/radius
	r2 := du*du + dv*dv
	if r2 >= 1 {
		// faint vertical stripes give the wall some texture
		return wallDepth, 0.35 + 0.05*math.Sin(40*u)
	}
	nz := math.Sqrt(1 - r2)
	return wallDepth - sphereBulge*nz, 0.15 + 0.8*nz
}
