package vctrace

import (
	"errors"
	"math"
	"testing"
)

func TestNewFixedVectorZeroed(t *testing.T) {
	for _, dim := range []int{0, 1, 4, TraceVectorDim, VisualEmbeddingDim} {
		v := NewFixedVector(dim)
		if v.Dim() != dim {
			t.Fatalf("Dim() = %d, want %d", v.Dim(), dim)
		}
		for i, x := range v.Values() {
			if x != 0 {
				t.Fatalf("element %d = %v, want 0", i, x)
			}
		}
	}
}

func TestNewFixedVectorNegativePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for negative dimension")
		}
	}()
	NewFixedVector(-1)
}

func TestFixedVectorBoundsChecked(t *testing.T) {
	v := NewFixedVector(3)
	if err := v.Set(2, 1.5); err != nil {
		t.Fatalf("Set(2) unexpected error: %v", err)
	}
	got, err := v.At(2)
	if err != nil || got != 1.5 {
		t.Fatalf("At(2) = %v, %v; want 1.5, nil", got, err)
	}

	for _, i := range []int{3, 4, -1} {
		if _, err := v.At(i); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("At(%d) error = %v, want ErrIndexOutOfRange", i, err)
		}
		if err := v.Set(i, 1); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Set(%d) error = %v, want ErrIndexOutOfRange", i, err)
		}
	}

	var ie *IndexError
	_, err = v.At(7)
	if !errors.As(err, &ie) {
		t.Fatalf("expected *IndexError, got %T", err)
	}
	if ie.Index != 7 || ie.Dim != 3 {
		t.Errorf("IndexError = %+v, want index 7 dim 3", ie)
	}
	// Out-of-range writes must not touch the data.
	if got, _ := v.At(2); got != 1.5 {
		t.Errorf("element 2 changed to %v after failed writes", got)
	}
}

func TestFixedVectorEmptyAccess(t *testing.T) {
	v := NewFixedVector(0)
	if _, err := v.At(0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("At(0) on empty vector: got %v", err)
	}
	v.Clear()
	v.NormalizeL2()
	if v.Dim() != 0 {
		t.Errorf("empty vector changed dim to %d", v.Dim())
	}
}

func TestFixedVectorClear(t *testing.T) {
	v := VectorOf(1, -2, 3)
	v.Clear()
	for i, x := range v.Values() {
		if x != 0 {
			t.Errorf("element %d = %v after Clear", i, x)
		}
	}
}

func TestVectorOfCopies(t *testing.T) {
	src := []float32{1, 2, 3}
	v := VectorOf(src...)
	src[0] = 9
	if got, _ := v.At(0); got != 1 {
		t.Errorf("VectorOf aliased its input: element 0 = %v", got)
	}

	c := v.Clone()
	c.Values()[1] = 42
	if got, _ := v.At(1); got != 2 {
		t.Errorf("Clone aliased the original: element 1 = %v", got)
	}
}

func TestNormalizeL2UnitNorm(t *testing.T) {
	v := VectorOf(1, 2, 2, 1)
	v.NormalizeL2()
	if n := v.Norm(); math.Abs(n-1) > 1e-6 {
		t.Errorf("norm after normalize = %v, want 1", n)
	}
	want := []float64{1 / math.Sqrt(10), 2 / math.Sqrt(10), 2 / math.Sqrt(10), 1 / math.Sqrt(10)}
	for i, x := range v.Values() {
		if math.Abs(float64(x)-want[i]) > 1e-6 {
			t.Errorf("element %d = %v, want %v", i, x, want[i])
		}
	}
}

func TestNormalizeL2Idempotent(t *testing.T) {
	tests := []struct {
		name string
		vec  FixedVector
	}{
		{"small", VectorOf(3, 4)},
		{"negative", VectorOf(-1, 0.5, -0.25, 8)},
		{"single", VectorOf(-7)},
		{"large dim", rampVector(VisualEmbeddingDim)},
		{"large values", VectorOf(3e20, 4e20)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.vec.NormalizeL2()
			once := tt.vec.Clone()
			tt.vec.NormalizeL2()

			if n := tt.vec.Norm(); math.Abs(n-1) > 1e-5 {
				t.Errorf("norm = %v, want 1", n)
			}
			for i, x := range tt.vec.Values() {
				if math.Abs(float64(x-once.Values()[i])) > 1e-6 {
					t.Errorf("element %d moved from %v to %v on second normalize", i, once.Values()[i], x)
				}
			}
		})
	}
}

func TestNormalizeL2ZeroVectorUnchanged(t *testing.T) {
	for _, dim := range []int{1, 4, TraceVectorDim} {
		v := NewFixedVector(dim)
		v.NormalizeL2()
		for i, x := range v.Values() {
			if x != 0 || math.IsNaN(float64(x)) {
				t.Fatalf("dim %d: element %d = %v after normalizing zero vector", dim, i, x)
			}
		}
	}
}

func TestNormalizeL2SmallValues(t *testing.T) {
	// Squares underflow float32 but not float64.
	v := VectorOf(1e-30, 1e-30)
	v.NormalizeL2()
	if n := v.Norm(); math.Abs(n-1) > 1e-5 {
		t.Errorf("norm = %v, want 1", n)
	}
}

func rampVector(n int) FixedVector {
	v := NewFixedVector(n)
	for i := range v.Values() {
		v.Values()[i] = float32(i%17) - 8
	}
	return v
}
