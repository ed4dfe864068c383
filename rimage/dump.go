package rimage

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"
)

// maxDumpSide bounds dump dimensions so a corrupt header cannot trigger a huge
// allocation.
const maxDumpSide = 100000

// WriteDump writes a single channel field as little-endian uint32 width,
// height and channel count followed by row-major float32 samples.
func WriteDump(out io.Writer, m *mat.Dense) error {
	rows, cols := m.Dims()
	header := []uint32{uint32(cols), uint32(rows), 1}
	if err := binary.Write(out, binary.LittleEndian, header); err != nil {
		return err
	}
	buf := make([]byte, 4*cols)
	for y := 0; y < rows; y++ {
		for x, v := range m.RawRowView(y) {
			binary.LittleEndian.PutUint32(buf[4*x:], math.Float32bits(float32(v)))
		}
		if _, err := out.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// ReadDump reads a field written by WriteDump.
func ReadDump(r io.Reader) (*mat.Dense, error) {
	var header [3]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, errors.Wrap(err, "error reading dump header")
	}
	cols, rows, channels := int(header[0]), int(header[1]), int(header[2])
	if cols <= 0 || cols >= maxDumpSide || rows <= 0 || rows >= maxDumpSide {
		return nil, errors.Errorf("bad width or height for dump %v %v", cols, rows)
	}
	if channels != 1 {
		return nil, errors.Errorf("only single channel dumps are supported, got %d", channels)
	}
	data := make([]float64, rows*cols)
	buf := make([]byte, 4*cols)
	for y := 0; y < rows; y++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, errors.Wrapf(err, "error reading dump row %d", y)
		}
		for x := 0; x < cols; x++ {
			data[y*cols+x] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[4*x:])))
		}
	}
	return mat.NewDense(rows, cols, data), nil
}

// WriteDumpFile writes a dump to fn, gzip compressed if fn ends in .gz.
func WriteDumpFile(fn string, m *mat.Dense) (err error) {
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	var out io.Writer = f
	var gout *gzip.Writer
	if filepath.Ext(fn) == ".gz" {
		gout = gzip.NewWriter(f)
		out = gout
	}
	bout := bufio.NewWriter(out)
	if err := WriteDump(bout, m); err != nil {
		return err
	}
	if err := bout.Flush(); err != nil {
		return err
	}
	if gout != nil {
		if err := gout.Close(); err != nil {
			return err
		}
	}
	return f.Sync()
}

// ReadDumpFile reads a dump from fn, decompressing if fn ends in .gz.
func ReadDumpFile(fn string) (m *mat.Dense, err error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	var in io.Reader = bufio.NewReader(f)
	if filepath.Ext(fn) == ".gz" {
		gin, gerr := gzip.NewReader(in)
		if gerr != nil {
			return nil, gerr
		}
		defer func() {
			err = multierr.Combine(err, gin.Close())
		}()
		in = gin
	}
	return ReadDump(in)
}
