package rimage

import (
	"image"
	"image/color"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/sfsprep/framesource"
)

// DepthFromFrame copies a float depth frame into a field with one row per image
// row, in meters.
func DepthFromFrame(f *framesource.Frame) (*mat.Dense, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if f.Format != framesource.FormatFloat {
		return nil, errors.Errorf("expected float depth frame but got %v", f.Format)
	}
	data := make([]float64, f.Width*f.Height)
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			data[y*f.Width+x] = float64(f.DepthAt(x, y))
		}
	}
	return mat.NewDense(f.Height, f.Width, data), nil
}

// DepthToFrame converts a field back into a float depth frame.
func DepthToFrame(m *mat.Dense) *framesource.Frame {
	rows, cols := m.Dims()
	f := framesource.NewFrame(cols, rows, framesource.FormatFloat)
	for y := 0; y < rows; y++ {
		for x, v := range m.RawRowView(y) {
			f.SetDepth(x, y, float32(v))
		}
	}
	return f
}

// ToGray renders a field as an 8-bit image, multiplying each value by scale and
// saturating to [0, 255]. Non-finite values render black.
func ToGray(m *mat.Dense, scale float64) *image.Gray {
	rows, cols := m.Dims()
	img := image.NewGray(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows; y++ {
		for x, v := range m.RawRowView(y) {
			img.SetGray(x, y, color.Gray{saturate8(v * scale)})
		}
	}
	return img
}

// DisplayDepth renders raw depth for viewing with its maximum mapped to white.
func DisplayDepth(depth *mat.Dense) *image.Gray {
	maxVal, ok := MaskedMax(depth, nil)
	if !ok || maxVal <= 0 {
		rows, cols := depth.Dims()
		return image.NewGray(image.Rect(0, 0, cols, rows))
	}
	return ToGray(depth, 255/maxVal)
}

func saturate8(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}
