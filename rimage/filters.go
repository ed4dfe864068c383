package rimage

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Helper function for convolving a field with a kernel, When used with i, dx := range makeRangeArray(n)
// i is the position within the kernel and dx gives the offset within the field.
// if length is even, then the origin is to the right of middle i.e. 4 -> {-2, -1, 0, 1}.
func makeRangeArray(length int) []int {
	if length <= 0 {
		return make([]int, 0)
	}
	rangeArray := make([]int, length)
	var span int
	if length%2 == 0 {
		oddArr := makeRangeArray(length - 1)
		span = length / 2
		rangeArray = append([]int{-span}, oddArr...)
	} else {
		span = (length - 1) / 2
		for i := 0; i < span; i++ {
			rangeArray[length-1-i] = span - i
			rangeArray[i] = -span + i
		}
	}
	return rangeArray
}

// GaussianFunction1D takes in a sigma and returns a gaussian function useful for weighing averages or blurring.
func GaussianFunction1D(sigma float64) func(p float64) float64 {
	if sigma <= 0. {
		return func(p float64) float64 {
			return 1.
		}
	}
	return func(p float64) float64 {
		return math.Exp(-0.5*math.Pow(p, 2)/math.Pow(sigma, 2)) / (sigma * math.Sqrt(2.*math.Pi))
	}
}

// GaussianKernel1D returns a normalized gaussian kernel of the given odd size. A
// non-positive sigma yields the identity kernel of that size.
func GaussianKernel1D(size int, sigma float64) []float64 {
	if size <= 0 || size%2 == 0 {
		panic(fmt.Errorf("gaussian kernel size must be positive and odd, got %d", size))
	}
	kernel := make([]float64, size)
	if sigma <= 0 {
		kernel[size/2] = 1
		return kernel
	}
	gaus := GaussianFunction1D(sigma)
	for i, dx := range makeRangeArray(size) {
		kernel[i] = gaus(float64(dx))
	}
	floats.Scale(1/floats.Sum(kernel), kernel)
	return kernel
}

// reflect101 maps an out-of-range index back into [0, n) by mirroring about the
// edge samples without repeating them (dcb|abcd|cba).
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

// GaussianBlur convolves src with the separable kernel along rows and then
// columns. Borders are reflected (reflect-101). src is not modified.
func GaussianBlur(src *mat.Dense, kernel []float64) *mat.Dense {
	rows, cols := src.Dims()
	offsets := makeRangeArray(len(kernel))

	tmp := mat.NewDense(rows, cols, nil)
	for y := 0; y < rows; y++ {
		in := src.RawRowView(y)
		out := tmp.RawRowView(y)
		for x := 0; x < cols; x++ {
			sum := 0.0
			for i, dx := range offsets {
				sum += kernel[i] * in[reflect101(x+dx, cols)]
			}
			out[x] = sum
		}
	}

	dst := mat.NewDense(rows, cols, nil)
	for y := 0; y < rows; y++ {
		out := dst.RawRowView(y)
		for i, dy := range offsets {
			in := tmp.RawRowView(reflect101(y+dy, rows))
			floats.AddScaled(out, kernel[i], in)
		}
	}
	return dst
}
