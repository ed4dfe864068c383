// Package framesource defines the contract for devices that deliver synchronized
// color and depth frame pairs.
package framesource

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrNoDevice is returned when enumeration finds no connected sensor.
	ErrNoDevice = errors.New("no device connected")
	// ErrOpenFailed is returned when a sensor is enumerated but cannot be opened.
	ErrOpenFailed = errors.New("failure opening device")
	// ErrFrameTimeout is returned when no frame pair arrives within the wait timeout.
	ErrFrameTimeout = errors.New("timed out waiting for frame pair")
	// ErrNotStreaming is returned when waiting on a device that has been stopped or closed.
	ErrNotStreaming = errors.New("device is not streaming")
	// ErrEndOfStream is returned by finite sources once every frame pair has been delivered.
	ErrEndOfStream = errors.New("end of frame stream")
)

// Format describes the per-pixel layout of a Frame's data.
type Format int

// Known frame formats.
const (
	FormatInvalid Format = iota
	// FormatFloat is one little-endian float32 per pixel, depth in meters.
	FormatFloat
	// FormatBGRX is 8-bit blue, green, red, padding.
	FormatBGRX
	// FormatRGBX is 8-bit red, green, blue, padding.
	FormatRGBX
	// FormatGray is one 8-bit intensity per pixel.
	FormatGray
)

// BytesPerPixel returns the size of one pixel in the given format.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatFloat, FormatBGRX, FormatRGBX:
		return 4
	case FormatGray:
		return 1
	case FormatInvalid:
		fallthrough
	default:
		return 0
	}
}

func (f Format) String() string {
	switch f {
	case FormatFloat:
		return "float"
	case FormatBGRX:
		return "bgrx"
	case FormatRGBX:
		return "rgbx"
	case FormatGray:
		return "gray"
	case FormatInvalid:
		fallthrough
	default:
		return "invalid"
	}
}

// A Frame is a raw sample buffer handed out by a Device. Data is only valid until
// the owning FramePair is released.
type Frame struct {
	Width     int
	Height    int
	Format    Format
	Data      []byte
	Sequence  uint64
	Timestamp time.Time
}

// NewFrame allocates a zeroed frame.
func NewFrame(width, height int, format Format) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Format: format,
		Data:   make([]byte, width*height*format.BytesPerPixel()),
	}
}

// Validate checks the buffer length against the declared shape.
func (f *Frame) Validate() error {
	if f == nil {
		return errors.New("nil frame")
	}
	if f.Width <= 0 || f.Height <= 0 {
		return errors.Errorf("bad frame dimensions %dx%d", f.Width, f.Height)
	}
	bpp := f.Format.BytesPerPixel()
	if bpp == 0 {
		return errors.Errorf("unsupported frame format %v", f.Format)
	}
	if len(f.Data) != f.Width*f.Height*bpp {
		return errors.Errorf("frame %dx%d %v expects %d bytes but has %d",
			f.Width, f.Height, f.Format, f.Width*f.Height*bpp, len(f.Data))
	}
	return nil
}

// DepthAt returns the depth sample at x, y of a FormatFloat frame.
func (f *Frame) DepthAt(x, y int) float32 {
	i := 4 * (y*f.Width + x)
	return math.Float32frombits(binary.LittleEndian.Uint32(f.Data[i:]))
}

// SetDepth stores the depth sample at x, y of a FormatFloat frame.
func (f *Frame) SetDepth(x, y int, v float32) {
	i := 4 * (y*f.Width + x)
	binary.LittleEndian.PutUint32(f.Data[i:], math.Float32bits(v))
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	cp := *f
	cp.Data = append([]byte(nil), f.Data...)
	return &cp
}

func (f *Frame) String() string {
	return fmt.Sprintf("%dx%d %v #%d", f.Width, f.Height, f.Format, f.Sequence)
}

// A FramePair is one synchronized color and depth capture.
type FramePair struct {
	Color    *Frame
	Depth    *Frame
	Sequence uint64
}

// A Device streams frame pairs once started. Frames returned by
// WaitForNextFramePair must be released before the next wait.
type Device interface {
	Serial() string
	Firmware() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Close(ctx context.Context) error
	WaitForNextFramePair(ctx context.Context, timeout time.Duration) (*FramePair, error)
	Release(pair *FramePair)
}

// A Driver discovers and opens devices.
type Driver interface {
	Enumerate(ctx context.Context) (int, error)
	DefaultSerial(ctx context.Context) (string, error)
	Open(ctx context.Context, serial string) (Device, error)
}

// OpenDevice opens the device with the given serial, or the driver's default
// device when serial is empty.
func OpenDevice(ctx context.Context, driver Driver, serial string) (Device, error) {
	n, err := driver.Enumerate(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "error enumerating devices")
	}
	if n == 0 {
		return nil, ErrNoDevice
	}
	if serial == "" {
		serial, err = driver.DefaultSerial(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "error getting default device serial")
		}
	}
	dev, err := driver.Open(ctx, serial)
	if err != nil {
		return nil, errors.Wrapf(ErrOpenFailed, "serial %q: %v", serial, err)
	}
	if dev == nil {
		return nil, errors.Wrapf(ErrOpenFailed, "serial %q", serial)
	}
	return dev, nil
}
