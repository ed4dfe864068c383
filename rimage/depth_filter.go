package rimage

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// FilterConfig couples the blur window and the mask erosion. The erosion element
// is always KernelSize + 2*ErosionMargin wide, so it covers at least every
// pixel the blur could have mixed an invalid sample into.
type FilterConfig struct {
	KernelSize    int `json:"kernel_size"`
	ErosionMargin int `json:"erosion_margin,omitempty"`
}

// DefaultFilterConfig is a 7x7 blur with an erosion of the same size.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{KernelSize: 7}
}

// Validate ensures the kernel is positive and odd and the margin non-negative.
func (c FilterConfig) Validate() error {
	if c.KernelSize <= 0 || c.KernelSize%2 == 0 {
		return errors.Errorf("kernel size must be positive and odd, got %d", c.KernelSize)
	}
	if c.ErosionMargin < 0 {
		return errors.Errorf("erosion margin must be non-negative, got %d", c.ErosionMargin)
	}
	return nil
}

// Sigma is the blur standard deviation; a 7 wide window blurs with sigma 3.
func (c FilterConfig) Sigma() float64 {
	return float64(c.KernelSize-1) / 2
}

// ErosionSize is the side of the square erosion element.
func (c FilterConfig) ErosionSize() int {
	return c.KernelSize + 2*c.ErosionMargin
}

// DepthFilter smooths raw depth and removes the band around invalid samples
// that the smoothing contaminated.
type DepthFilter struct {
	conf   FilterConfig
	kernel []float64
}

// NewDepthFilter validates the config and precomputes the blur kernel.
func NewDepthFilter(conf FilterConfig) (*DepthFilter, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &DepthFilter{conf: conf, kernel: GaussianKernel1D(conf.KernelSize, conf.Sigma())}, nil
}

// Config returns the filter configuration.
func (f *DepthFilter) Config() FilterConfig {
	return f.conf
}

// ErodeMask erodes a mask by the filter's erosion element.
func (f *DepthFilter) ErodeMask(mask *mat.Dense) *mat.Dense {
	return ErodeSquare(mask, f.conf.ErosionSize())
}

// Apply blurs the unmasked depth, erodes the mask and zeroes every blurred
// sample outside the eroded mask. It returns the filtered depth and the eroded
// mask. Non-finite samples enter the blur as zero.
func (f *DepthFilter) Apply(depth, mask *mat.Dense) (*mat.Dense, *mat.Dense) {
	mustSameDims("depth", depth, "mask", mask)

	src := depth
	if hasNonFinite(depth) {
		src = mat.DenseCopyOf(depth)
		src.Apply(func(_, _ int, v float64) float64 {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0
			}
			return v
		}, src)
	}

	blurred := GaussianBlur(src, f.kernel)
	eroded := f.ErodeMask(mask)

	rows, _ := blurred.Dims()
	for y := 0; y < rows; y++ {
		b := blurred.RawRowView(y)
		m := eroded.RawRowView(y)
		for x := range b {
			if m[x] == 0 {
				b[x] = 0
			}
		}
	}
	return blurred, eroded
}

func hasNonFinite(m *mat.Dense) bool {
	rows, _ := m.Dims()
	for y := 0; y < rows; y++ {
		for _, v := range m.RawRowView(y) {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return true
			}
		}
	}
	return false
}
