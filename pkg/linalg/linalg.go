// Package linalg provides the constructors, chained products and
// Gauss-Seidel solve the constraint solver needs on top of mgl64's
// arbitrary-size VecN and MatMxN types. Element-wise vector arithmetic and
// matrix-vector products use mgl64 directly.
package linalg

import (
	"github.com/go-gl/mathgl/mgl64"
)

// NewVec returns a VecN holding a copy of values.
func NewVec(values ...float64) *mgl64.VecN {
	data := make([]float64, len(values))
	copy(data, values)
	return mgl64.NewVecNFromData(data)
}

// ZeroVec returns an n-length VecN filled with zeros.
func ZeroVec(n int) *mgl64.VecN {
	return mgl64.NewVecNFromData(make([]float64, n))
}

// ZeroMat returns an m x n matrix with every entry explicitly set to zero.
func ZeroMat(m, n int) *mgl64.MatMxN {
	mat := mgl64.NewMatrix(m, n)
	for r := 0; r < m; r++ {
		for c := 0; c < n; c++ {
			mat.Set(r, c, 0)
		}
	}
	return mat
}

// Diag returns a square matrix with values on its diagonal.
func Diag(values ...float64) *mgl64.MatMxN {
	mat := ZeroMat(len(values), len(values))
	for i, v := range values {
		mat.Set(i, i, v)
	}
	return mat
}

// Mul returns the matrix product of all factors, left to right.
// It returns nil if any pair of dimensions does not agree.
func Mul(factors ...*mgl64.MatMxN) *mgl64.MatMxN {
	if len(factors) == 0 {
		return nil
	}
	result := factors[0]
	for _, f := range factors[1:] {
		if result == nil || f == nil || result.NumCols() != f.NumRows() {
			return nil
		}
		result = result.MulMxN(nil, f)
	}
	return result
}

// SolveGaussSeidel approximates x in A*x = b with Gauss-Seidel relaxation,
// running one sweep per unknown. Rows with a zero diagonal are skipped and
// leave their unknown at zero.
func SolveGaussSeidel(a *mgl64.MatMxN, b *mgl64.VecN) *mgl64.VecN {
	rhs := b.Raw()
	n := len(rhs)
	x := make([]float64, n)
	if a == nil || a.NumRows() != n || a.NumCols() != n {
		return mgl64.NewVecNFromData(x)
	}

	for iter := 0; iter < n; iter++ {
		for i := 0; i < n; i++ {
			diag := a.At(i, i)
			if diag == 0 {
				continue
			}
			var dx float64
			for j := 0; j < n; j++ {
				dx += a.At(i, j) * x[j]
			}
			x[i] += rhs[i]/diag - dx/diag
		}
	}
	return mgl64.NewVecNFromData(x)
}
