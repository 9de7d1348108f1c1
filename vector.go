package vctrace

import (
	"fmt"
	"math"
)

// FixedVector is a 1D float32 vector whose length is fixed at construction.
// Element access is bounds-checked; an out-of-range index is reported as an
// *IndexError and never clamped.
type FixedVector struct {
	data []float32
}

// NewFixedVector allocates a vector of dim zeros. A zero dim yields an empty vector.
func NewFixedVector(dim int) FixedVector {
	if dim < 0 {
		panic(fmt.Sprintf("vctrace: negative vector dimension %d", dim))
	}
	return FixedVector{data: make([]float32, dim)}
}

// VectorOf returns a vector holding a copy of values.
func VectorOf(values ...float32) FixedVector {
	data := make([]float32, len(values))
	copy(data, values)
	return FixedVector{data: data}
}

// Dim returns the number of elements.
func (v FixedVector) Dim() int { return len(v.data) }

// At returns the element at index i.
func (v FixedVector) At(i int) (float32, error) {
	if i < 0 || i >= len(v.data) {
		return 0, &IndexError{Index: i, Dim: len(v.data)}
	}
	return v.data[i], nil
}

// Set stores x at index i.
func (v FixedVector) Set(i int, x float32) error {
	if i < 0 || i >= len(v.data) {
		return &IndexError{Index: i, Dim: len(v.data)}
	}
	v.data[i] = x
	return nil
}

// Values returns the backing slice. Writes through it are visible in the
// vector; its length is the vector's dimension.
func (v FixedVector) Values() []float32 { return v.data }

// Clone returns a deep copy.
func (v FixedVector) Clone() FixedVector { return VectorOf(v.data...) }

// Clear sets every element to zero.
func (v FixedVector) Clear() {
	for i := range v.data {
		v.data[i] = 0
	}
}

// Norm returns the Euclidean norm, accumulated in float64.
func (v FixedVector) Norm() float64 {
	return math.Sqrt(v.sumSquares())
}

// NormalizeL2 rescales the vector to unit Euclidean norm. The sum of squares
// is accumulated in float64; a vector whose sum is not positive (all zeros,
// or empty) is left unchanged.
func (v FixedVector) NormalizeL2() {
	acc := v.sumSquares()
	if acc <= 0 {
		return
	}
	inv := float32(1 / math.Sqrt(acc))
	for i := range v.data {
		v.data[i] *= inv
	}
}

func (v FixedVector) sumSquares() float64 {
	var acc float64
	for _, x := range v.data {
		acc += float64(x) * float64(x)
	}
	return acc
}
