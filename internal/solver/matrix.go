package solver

import (
	"fmt"
	"math/rand"
)

// Matrix is a dense square interaction matrix stored row-major.
type Matrix struct {
	N    int
	Data []float64
}

func NewMatrix(n int) *Matrix {
	return &Matrix{N: n, Data: make([]float64, n*n)}
}

// MatrixFromRows builds a Matrix from explicit rows, rejecting ragged
// or non-square input.
func MatrixFromRows(rows [][]float64) (*Matrix, error) {
	n := len(rows)
	m := NewMatrix(n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("solver: row %d has %d entries, expected %d", i, len(row), n)
		}
		copy(m.Data[i*n:(i+1)*n], row)
	}
	return m, nil
}

// RandomMatrix fills an n×n matrix with uniform entries in [lo, hi).
func RandomMatrix(n int, lo, hi float64, rng *rand.Rand) *Matrix {
	m := NewMatrix(n)
	for i := range m.Data {
		m.Data[i] = lo + (hi-lo)*rng.Float64()
	}
	return m
}

func (m *Matrix) At(i, j int) float64 {
	return m.Data[i*m.N+j]
}

func (m *Matrix) Set(i, j int, v float64) {
	m.Data[i*m.N+j] = v
}
