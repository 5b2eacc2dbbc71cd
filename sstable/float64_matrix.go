package sstable

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// internal Float64 matrix representation used for posterior
// distributions and other real-valued tables
type Float64Matrix struct {
	nrow uint32
	ncol uint32
	data []float64
}

// NewFloat64Matrix creates a new Float64Matrix with r rows and c columns
func NewFloat64Matrix(r, c uint32) *Float64Matrix {
	if r*c <= 0 {
		panic(ErrBadShape)
	}
	return &Float64Matrix{
		nrow: r,
		ncol: c,
		data: make([]float64, r*c),
	}
}

// get the shape of the matrix
func (m *Float64Matrix) Shape() (uint32, uint32) {
	return m.nrow, m.ncol
}

// get the [r, c]-th element of the matrix
func (m *Float64Matrix) Get(r, c uint32) float64 {
	if r >= m.nrow || c >= m.ncol {
		panic(ErrIndexOutOfRange)
	}
	return m.data[r*m.ncol+c]
}

// set val to the [r, c]-th element of the matrix
func (m *Float64Matrix) Set(r, c uint32, val float64) {
	if r >= m.nrow || c >= m.ncol {
		panic(ErrIndexOutOfRange)
	}
	m.data[r*m.ncol+c] = val
}

// Row returns the r-th row of the matrix as a view into the
// underlying storage.
func (m *Float64Matrix) Row(r uint32) []float64 {
	if r >= m.nrow {
		panic(ErrIndexOutOfRange)
	}
	return m.data[r*m.ncol : (r+1)*m.ncol]
}

// Serialize writes the matrix as dense text, one row per line with
// space-separated values.
func (m *Float64Matrix) Serialize(fn string) (err error) {
	out, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(out)
	for r := uint32(0); r < m.nrow; r += 1 {
		for c := uint32(0); c < m.ncol; c += 1 {
			if c > 0 {
				if _, err := w.WriteString(" "); err != nil {
					return err
				}
			}
			if _, err := w.WriteString(strconv.FormatFloat(m.Get(r, c), 'g', -1, 64)); err != nil {
				return err
			}
		}
		if _, err := w.WriteString("\n"); err != nil {
			return err
		}
	}
	return w.Flush()
}

// LoadFloat64Matrix reads a matrix back from the dense text format
// produced by Serialize. All rows must have the same width.
func LoadFloat64Matrix(fn string) (*Float64Matrix, error) {
	file, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var rows [][]float64
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		txt := strings.TrimSpace(scanner.Text())
		if len(txt) == 0 {
			continue
		}
		fields := strings.Fields(txt)
		row := make([]float64, 0, len(fields))
		for _, f := range fields {
			val, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("matrix: line %d: %w", len(rows)+1, err)
			}
			row = append(row, val)
		}
		if len(rows) > 0 && len(row) != len(rows[0]) {
			return nil, fmt.Errorf("matrix: line %d has %d values, want %d",
				len(rows)+1, len(row), len(rows[0]))
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("matrix: %s is empty", fn)
	}

	m := NewFloat64Matrix(uint32(len(rows)), uint32(len(rows[0])))
	for r, row := range rows {
		copy(m.Row(uint32(r)), row)
	}
	return m, nil
}
