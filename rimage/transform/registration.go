// Package transform maps color frames onto the depth sensor's pixel grid.
package transform

import (
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"go.viam.com/sfsprep/framesource"
	"go.viam.com/sfsprep/rimage"
)

// A Registration aligns a color frame to the depth plane. Both outputs are
// sized to the depth frame's native resolution unless the implementation says
// otherwise.
type Registration interface {
	Apply(color, depth *framesource.Frame) (undistorted, registered *framesource.Frame, err error)
}

// ParseRegistration returns the registration named by s: "resize" (the default)
// or "none".
func ParseRegistration(s string) (Registration, error) {
	switch s {
	case "", "resize":
		return &ResizeRegistration{Filter: imaging.Linear}, nil
	case "none":
		return PassThrough{}, nil
	default:
		return nil, errors.Errorf("unknown registration %q", s)
	}
}

// ResizeRegistration resamples the color frame onto the depth grid, assuming
// both sensors share the same field of view. Depth passes through unchanged.
type ResizeRegistration struct {
	Filter imaging.ResampleFilter
}

// Apply implements Registration.
func (r *ResizeRegistration) Apply(color, depth *framesource.Frame) (*framesource.Frame, *framesource.Frame, error) {
	if err := depth.Validate(); err != nil {
		return nil, nil, errors.Wrap(err, "invalid depth frame")
	}
	undistorted := depth.Clone()
	if color.Width == depth.Width && color.Height == depth.Height {
		if err := color.Validate(); err != nil {
			return nil, nil, errors.Wrap(err, "invalid color frame")
		}
		return undistorted, color.Clone(), nil
	}
	img, err := rimage.FrameToImage(color)
	if err != nil {
		return nil, nil, err
	}
	resized := imaging.Resize(img, depth.Width, depth.Height, r.Filter)
	registered := rimage.ImageToFrame(resized)
	registered.Sequence = color.Sequence
	registered.Timestamp = color.Timestamp
	return undistorted, registered, nil
}

// PassThrough leaves both frames as delivered, so the color frame keeps its own
// resolution.
type PassThrough struct{}

// Apply implements Registration.
func (PassThrough) Apply(color, depth *framesource.Frame) (*framesource.Frame, *framesource.Frame, error) {
	return depth, color, nil
}
