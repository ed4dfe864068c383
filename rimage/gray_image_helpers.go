package rimage

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/sfsprep/framesource"
)

// fixed point luma weights 0.299, 0.587 and 0.114 scaled by 2^14.
const (
	lumaR     = 4899
	lumaG     = 9617
	lumaB     = 1868
	lumaShift = 14
)

// Luma returns the 8-bit luma of an 8-bit RGB triple, rounded.
func Luma(r, g, b uint8) uint8 {
	return uint8((int(r)*lumaR + int(g)*lumaG + int(b)*lumaB + 1<<(lumaShift-1)) >> lumaShift)
}

// IntensityFromFrame converts a color or gray frame to a field of intensities
// in [0, 1]. Color is first reduced to 8-bit luma so the result only takes
// values k/255.
func IntensityFromFrame(f *framesource.Frame) (*mat.Dense, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	out := mat.NewDense(f.Height, f.Width, nil)
	for y := 0; y < f.Height; y++ {
		row := out.RawRowView(y)
		for x := range row {
			var g uint8
			switch f.Format {
			case framesource.FormatBGRX:
				i := 4 * (y*f.Width + x)
				g = Luma(f.Data[i+2], f.Data[i+1], f.Data[i])
			case framesource.FormatRGBX:
				i := 4 * (y*f.Width + x)
				g = Luma(f.Data[i], f.Data[i+1], f.Data[i+2])
			case framesource.FormatGray:
				g = f.Data[y*f.Width+x]
			case framesource.FormatFloat, framesource.FormatInvalid:
				fallthrough
			default:
				return nil, errors.Errorf("cannot take intensity of %v frame", f.Format)
			}
			row[x] = float64(g) / 255
		}
	}
	return out, nil
}
