// Package replay implements a frame source that plays back a color image and a
// depth dump recorded on disk.
package replay

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/edaniels/golog"
	_ "github.com/lmittmann/ppm" // register ppm
	"github.com/pkg/errors"

	"go.viam.com/sfsprep/framesource"
	"go.viam.com/sfsprep/rimage"
)

// Suffixes appended to the input prefix to locate recorded frames, in lookup order.
var (
	ColorSuffixes = []string{"_color.png", "_color.jpg", "_color.ppm"}
	DepthSuffixes = []string{"_depth.dump", "_depth.dump.gz"}
)

const firmwareName = "replay"

// Config selects the recording to play.
type Config struct {
	Prefix string
	// Repeat is how many times the pair is delivered; zero repeats forever.
	Repeat int
}

// Files resolves the color and depth files for prefix.
func Files(prefix string) (colorFile, depthFile string, err error) {
	colorFile, err = firstExisting(prefix, ColorSuffixes)
	if err != nil {
		return "", "", err
	}
	depthFile, err = firstExisting(prefix, DepthSuffixes)
	if err != nil {
		return "", "", err
	}
	return colorFile, depthFile, nil
}

func firstExisting(prefix string, suffixes []string) (string, error) {
	for _, s := range suffixes {
		fn := prefix + s
		if _, err := os.Stat(fn); err == nil {
			return fn, nil
		}
	}
	return "", errors.Errorf("no file found for %s%v", prefix, suffixes)
}

// Driver exposes one device when the recording exists.
type Driver struct {
	conf   Config
	logger golog.Logger
}

// NewDriver returns a replay driver.
func NewDriver(conf Config, logger golog.Logger) *Driver {
	return &Driver{conf: conf, logger: logger}
}

// Enumerate reports one device if the recording's files are present.
func (d *Driver) Enumerate(ctx context.Context) (int, error) {
	if _, _, err := Files(d.conf.Prefix); err != nil {
		d.logger.Debugw("no recording found", "prefix", d.conf.Prefix, "error", err)
		return 0, nil
	}
	return 1, nil
}

// DefaultSerial names the device after the recording.
func (d *Driver) DefaultSerial(ctx context.Context) (string, error) {
	return filepath.Base(d.conf.Prefix), nil
}

// Open loads the recording.
func (d *Driver) Open(ctx context.Context, serial string) (framesource.Device, error) {
	if serial != filepath.Base(d.conf.Prefix) {
		return nil, errors.Errorf("no recording named %q", serial)
	}
	return Load(d.conf, d.logger)
}

// Device delivers a recorded pair while started.
type Device struct {
	conf   Config
	logger golog.Logger
	color  *framesource.Frame
	depth  *framesource.Frame

	mu          sync.Mutex
	streaming   bool
	closed      bool
	outstanding bool
	delivered   int
}

// Load reads the recording named by conf.Prefix.
func Load(conf Config, logger golog.Logger) (*Device, error) {
	colorFile, depthFile, err := Files(conf.Prefix)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Open(colorFile)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading color image %s", colorFile)
	}
	depth, err := rimage.ReadDumpFile(depthFile)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading depth dump %s", depthFile)
	}
	logger.Debugw("loaded recording", "color", colorFile, "depth", depthFile)
	return &Device{
		conf:   conf,
		logger: logger,
		color:  rimage.ImageToFrame(img),
		depth:  rimage.DepthToFrame(depth),
	}, nil
}

// Serial returns the recording's name.
func (d *Device) Serial() string {
	return filepath.Base(d.conf.Prefix)
}

// Firmware returns a fixed string.
func (d *Device) Firmware() string {
	return firmwareName
}

// Start begins playback.
func (d *Device) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.New("device closed")
	}
	d.streaming = true
	return nil
}

// Stop pauses playback.
func (d *Device) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.New("device closed")
	}
	d.streaming = false
	return nil
}

// Close releases the recording.
func (d *Device) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.streaming = false
	d.closed = true
	return nil
}

// WaitForNextFramePair returns a copy of the recorded pair. It times out while
// stopped and returns framesource.ErrEndOfStream after Repeat deliveries.
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
	if d.conf.Repeat > 0 && d.delivered >= d.conf.Repeat {
		d.mu.Unlock()
		return nil, framesource.ErrEndOfStream
	}
	streaming := d.streaming
	d.mu.Unlock()

	if !streaming {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, framesource.ErrFrameTimeout
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.delivered++
	d.outstanding = true
	seq := uint64(d.delivered)
	now := time.Now()
	color, depth := d.color.Clone(), d.depth.Clone()
	color.Sequence, depth.Sequence = seq, seq
	color.Timestamp, depth.Timestamp = now, now
	return &framesource.FramePair{Color: color, Depth: depth, Sequence: seq}, nil
}

// Release returns ownership of a pair to the device.
func (d *Device) Release(pair *framesource.FramePair) {
	if pair == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outstanding = false
}
