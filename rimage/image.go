package rimage

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/pkg/errors"

	"go.viam.com/sfsprep/framesource"
)

// FrameToImage wraps a color frame's pixels in an image.NRGBA, dropping the
// padding channel.
func FrameToImage(f *framesource.Frame) (*image.NRGBA, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			i := 4 * (y*f.Width + x)
			var c color.NRGBA
			switch f.Format {
			case framesource.FormatBGRX:
				c = color.NRGBA{f.Data[i+2], f.Data[i+1], f.Data[i], 255}
			case framesource.FormatRGBX:
				c = color.NRGBA{f.Data[i], f.Data[i+1], f.Data[i+2], 255}
			case framesource.FormatGray, framesource.FormatFloat, framesource.FormatInvalid:
				fallthrough
			default:
				return nil, errors.Errorf("cannot convert %v frame to a color image", f.Format)
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img, nil
}

// ImageToFrame converts any image into a BGRX frame.
func ImageToFrame(img image.Image) *framesource.Frame {
	b := img.Bounds()
	nrgba, ok := img.(*image.NRGBA)
	if !ok || b.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	}
	f := framesource.NewFrame(b.Dx(), b.Dy(), framesource.FormatBGRX)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := nrgba.NRGBAAt(x, y)
			i := 4 * (y*b.Dx() + x)
			f.Data[i] = c.B
			f.Data[i+1] = c.G
			f.Data[i+2] = c.R
			f.Data[i+3] = 255
		}
	}
	return f
}
