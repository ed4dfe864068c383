package rimage

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErodeSquare erodes a field with a size x size square structuring element
// anchored at its center. Each output value is the minimum over the element;
// neighbours that fall outside the field are ignored, so the image border by
// itself never erodes anything.
func ErodeSquare(src *mat.Dense, size int) *mat.Dense {
	if size <= 0 || size%2 == 0 {
		panic(fmt.Errorf("erosion element size must be positive and odd, got %d", size))
	}
	rows, cols := src.Dims()
	r := size / 2

	// a square element is separable: min along rows, then along columns
	tmp := mat.NewDense(rows, cols, nil)
	for y := 0; y < rows; y++ {
		in := src.RawRowView(y)
		out := tmp.RawRowView(y)
		for x := 0; x < cols; x++ {
			out[x] = windowMin(in, x-r, x+r)
		}
	}

	dst := mat.NewDense(rows, cols, nil)
	col := make([]float64, rows)
	for x := 0; x < cols; x++ {
		mat.Col(col, x, tmp)
		for y := 0; y < rows; y++ {
			dst.Set(y, x, windowMin(col, y-r, y+r))
		}
	}
	return dst
}

func windowMin(vals []float64, from, to int) float64 {
	if from < 0 {
		from = 0
	}
	if to > len(vals)-1 {
		to = len(vals) - 1
	}
	m := vals[from]
	for i := from + 1; i <= to; i++ {
		if vals[i] < m {
			m = vals[i]
		}
	}
	return m
}
