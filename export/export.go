// Package export writes depth surfaces to disk as meshes, images and raw dumps.
package export

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/sfsprep/rimage"
)

// File suffixes used by Surface.
const (
	MeshExt  = ".ply"
	ImageExt = ".png"
	DumpExt  = ".imagedump"
)

// WritePLY writes surface as an ASCII PLY triangle mesh. Each pixel that is
// finite and inside mask (if given) becomes a vertex at (x, y, value); every 2x2
// block of such vertices contributes two faces.
func WritePLY(out io.Writer, surface, mask *mat.Dense) error {
	rows, cols := surface.Dims()
	if mask != nil && !rimage.SameDims(surface, mask) {
		return errors.New("surface and mask dimensions differ")
	}
	index := make([]int, rows*cols)
	numVerts := 0
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := surface.At(y, x)
			if math.IsNaN(v) || math.IsInf(v, 0) || (mask != nil && mask.At(y, x) == 0) {
				index[y*cols+x] = -1
				continue
			}
			index[y*cols+x] = numVerts
			numVerts++
		}
	}
	var faces [][3]int
	for y := 0; y+1 < rows; y++ {
		for x := 0; x+1 < cols; x++ {
			a, b := index[y*cols+x], index[y*cols+x+1]
			c, d := index[(y+1)*cols+x], index[(y+1)*cols+x+1]
			if a < 0 || b < 0 || c < 0 || d < 0 {
				continue
			}
			faces = append(faces, [3]int{a, c, b}, [3]int{b, c, d})
		}
	}

	w := bufio.NewWriter(out)
	fmt.Fprintf(w, "ply\nformat ascii 1.0\n")
	fmt.Fprintf(w, "element vertex %d\nproperty float x\nproperty float y\nproperty float z\n", numVerts)
	fmt.Fprintf(w, "element face %d\nproperty list uchar int vertex_indices\nend_header\n", len(faces))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if index[y*cols+x] < 0 {
				continue
			}
			fmt.Fprintf(w, "%d %d %g\n", x, y, float32(surface.At(y, x)))
		}
	}
	for _, f := range faces {
		fmt.Fprintf(w, "3 %d %d %d\n", f[0], f[1], f[2])
	}
	return w.Flush()
}

// WritePLYFile writes a PLY mesh to fn.
func WritePLYFile(fn string, surface, mask *mat.Dense) (err error) {
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return WritePLY(f, surface, mask)
}

// WriteImageFile writes surface as an 8-bit grayscale image whose pixels are
// value*scale; the format follows fn's extension.
func WriteImageFile(fn string, surface *mat.Dense, scale float64) error {
	return imaging.Save(rimage.ToGray(surface, scale), fn)
}

// WriteDepthPreview writes raw depth as an 8-bit image with the deepest sample
// white.
func WriteDepthPreview(fn string, depth *mat.Dense) error {
	return imaging.Save(rimage.DisplayDepth(depth), fn)
}

// Surface names a field plus the mask that marks where it is defined.
type Surface struct {
	Field *mat.Dense
	Mask  *mat.Dense
}

// SaveAll writes base+".ply", base+".png" and base+".imagedump" into dir and
// returns the paths written. Failures do not stop the remaining writes.
func (s Surface) SaveAll(dir, base string, imageScale float64) ([]string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	prefix := filepath.Join(dir, base)
	var written []string
	var errs error
	record := func(fn string, err error) {
		if err != nil {
			errs = multierr.Combine(errs, errors.Wrapf(err, "error writing %s", fn))
			return
		}
		written = append(written, fn)
	}
	record(prefix+MeshExt, WritePLYFile(prefix+MeshExt, s.Field, s.Mask))
	record(prefix+ImageExt, WriteImageFile(prefix+ImageExt, s.Field, imageScale))
	record(prefix+DumpExt, rimage.WriteDumpFile(prefix+DumpExt, s.Field))
	return written, errs
}
