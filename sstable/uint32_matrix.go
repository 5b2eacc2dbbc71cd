package sstable

import (
	"errors"
)

var (
	ErrIndexOutOfRange = errors.New("matrix: index out of range")
	ErrBadShape        = errors.New("matrix: non-positive dimension not allowed")
)

// internal Uint32 matrix representation
type Uint32Matrix struct {
	nrow uint32
	ncol uint32
	data []uint32
}

// NewUint32Matrix creates a new Uint32Matrix with r rows and c columns.
// if r*c <= 0, it will panic. A uint32 slice is used as the underlying
// storage and the data layout is in row major order, i.e. the (i*c + j)-th
// element in the data slice is the [i, j]-th element in the matrix.
// Vector is defined as a matrix with one column, i.e. a column vector.
func NewUint32Matrix(r, c uint32) *Uint32Matrix {
	if r*c <= 0 {
		panic(ErrBadShape)
	}
	return &Uint32Matrix{
		nrow: r,
		ncol: c,
		data: make([]uint32, r*c),
	}
}

// get the shape of the matrix
func (m *Uint32Matrix) Shape() (uint32, uint32) {
	return m.nrow, m.ncol
}

// get the [r, c]-th element of the matrix
func (m *Uint32Matrix) Get(r, c uint32) uint32 {
	if r >= m.nrow || c >= m.ncol {
		panic(ErrIndexOutOfRange)
	}
	return m.data[r*m.ncol+c]
}

// Row returns the r-th row of the matrix as a view into the
// underlying storage, so count updates through Incr/Decr are
// visible to holders of the slice.
func (m *Uint32Matrix) Row(r uint32) []uint32 {
	if r >= m.nrow {
		panic(ErrIndexOutOfRange)
	}
	return m.data[r*m.ncol : (r+1)*m.ncol]
}

// set val to the [r, c]-th element of the matrix
func (m *Uint32Matrix) Set(r, c uint32, val uint32) {
	if r >= m.nrow || c >= m.ncol {
		panic(ErrIndexOutOfRange)
	}
	m.data[r*m.ncol+c] = val
}

// increment the [r, c]-th element of the matrix by val
func (m *Uint32Matrix) Incr(r, c uint32, val uint32) {
	if r >= m.nrow || c >= m.ncol {
		panic(ErrIndexOutOfRange)
	}
	m.data[r*m.ncol+c] += val
}

// decrement the [r, c]-th element of the matrix by val
func (m *Uint32Matrix) Decr(r, c uint32, val uint32) {
	if r >= m.nrow || c >= m.ncol {
		panic(ErrIndexOutOfRange)
	}
	m.data[r*m.ncol+c] -= val
}

// Clone returns a deep copy of the matrix.
func (m *Uint32Matrix) Clone() *Uint32Matrix {
	clone := NewUint32Matrix(m.nrow, m.ncol)
	copy(clone.data, m.data)
	return clone
}

// Equal reports whether two matrices have the same shape and data.
func (m *Uint32Matrix) Equal(o *Uint32Matrix) bool {
	if m.nrow != o.nrow || m.ncol != o.ncol {
		return false
	}
	for i, v := range m.data {
		if o.data[i] != v {
			return false
		}
	}
	return true
}
