package main

import (
	"fmt"
	"os"

	"github.com/sbinet/npyio/npy"
	"gonum.org/v1/gonum/mat"
)

// loadMatrix reads a 1-D or 2-D float array from an .npy file.  Rows are
// samples; a 1-D array is a single sample.
func loadMatrix(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("while opening %s: %w", path, err)
	}
	defer f.Close()

	r, err := npy.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("while reading npy header of %s: %w", path, err)
	}

	// numpy writes C-style layouts (row-major / last index stored
	// contiguously) even though the format allows Fortran order.
	if r.Header.Descr.Fortran {
		return nil, fmt.Errorf("%s: fortran-ordered arrays are not supported", path)
	}

	var rows, cols int
	switch shape := r.Header.Descr.Shape; len(shape) {
	case 1:
		rows, cols = 1, shape[0]
	case 2:
		rows, cols = shape[0], shape[1]
	default:
		return nil, fmt.Errorf("%s: unsupported shape %v", path, shape)
	}
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%s: empty array of shape %v", path, r.Header.Descr.Shape)
	}

	var raw []float64
	if err := r.Read(&raw); err != nil {
		return nil, fmt.Errorf("while reading values of %s: %w", path, err)
	}
	if len(raw) != rows*cols {
		return nil, fmt.Errorf("%s: got %d values for shape %v", path, len(raw), r.Header.Descr.Shape)
	}

	return mat.NewDense(rows, cols, raw), nil
}

// saveMatrix writes m to an .npy file as a 2-D float64 array.
func saveMatrix(path string, m *mat.Dense) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("while creating %s: %w", path, err)
	}
	defer f.Close()

	if err := npy.Write(f, m); err != nil {
		return fmt.Errorf("while writing %s: %w", path, err)
	}
	return f.Close()
}
