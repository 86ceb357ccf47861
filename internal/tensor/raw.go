package tensor

import (
	"fmt"
	"math/rand"
)

// RawTensor is a dense float32 buffer with a shape. Buffer identity is the
// *RawTensor pointer: two storage slots holding the same pointer alias the
// same memory, which is the contract the in-place graph optimizer relies on.
type RawTensor struct {
	data  []float32
	shape Shape
}

// NewRaw allocates a zero-filled tensor with the given shape.
func NewRaw(shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	return &RawTensor{
		data:  make([]float32, shape.NumElements()),
		shape: shape.Clone(),
	}, nil
}

// FromSlice creates a tensor backed by a copy of data.
func FromSlice(data []float32, shape Shape) (*RawTensor, error) {
	t, err := NewRaw(shape)
	if err != nil {
		return nil, err
	}
	if len(data) != len(t.data) {
		return nil, fmt.Errorf("data length %d does not match shape %s (%d elements)",
			len(data), shape, shape.NumElements())
	}
	copy(t.data, data)
	return t, nil
}

// Data returns the underlying buffer. Mutations are visible to every holder
// of this tensor.
func (t *RawTensor) Data() []float32 {
	return t.data
}

// Shape returns the tensor's shape. The returned slice must not be mutated.
func (t *RawTensor) Shape() Shape {
	return t.shape
}

// NumElements returns the element count of the buffer.
func (t *RawTensor) NumElements() int {
	return len(t.data)
}

// SizeBytes returns the buffer size in bytes.
func (t *RawTensor) SizeBytes() int {
	return len(t.data) * 4
}

// Fill sets every element to v.
func (t *RawTensor) Fill(v float32) {
	for i := range t.data {
		t.data[i] = v
	}
}

// Zero resets every element to zero.
func (t *RawTensor) Zero() {
	t.Fill(0)
}

// Randomize fills the tensor with uniform values in [-scale, scale).
func (t *RawTensor) Randomize(scale float32) {
	for i := range t.data {
		t.data[i] = (rand.Float32()*2 - 1) * scale
	}
}

// CopyFrom copies src's contents into t. Shapes must describe the same
// number of elements.
func (t *RawTensor) CopyFrom(src *RawTensor) error {
	if len(src.data) != len(t.data) {
		return fmt.Errorf("cannot copy %s into %s: element count mismatch", src.shape, t.shape)
	}
	copy(t.data, src.data)
	return nil
}

// Clone returns a deep copy with its own buffer.
func (t *RawTensor) Clone() *RawTensor {
	clone := &RawTensor{
		data:  make([]float32, len(t.data)),
		shape: t.shape.Clone(),
	}
	copy(clone.data, t.data)
	return clone
}
