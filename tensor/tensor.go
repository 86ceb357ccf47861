// Copyright 2026 Lattice ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor is the public surface of the tensor engine: shapes and
// raw float32 buffers.
package tensor

import "github.com/lattice-ml/lattice/internal/tensor"

// Shape describes tensor dimensions, outermost axis first. A Shape built
// from a network description omits the batch axis; the graph prepends it
// during finalization.
type Shape = tensor.Shape

// RawTensor is a dense float32 buffer plus its shape. Two RawTensors
// denote the same storage exactly when their data pointers are equal.
type RawTensor = tensor.RawTensor

// NewRaw allocates a zero-filled tensor of the given shape.
func NewRaw(shape Shape) (*RawTensor, error) {
	return tensor.NewRaw(shape)
}

// FromSlice creates a tensor of the given shape backed by a copy of data.
func FromSlice(data []float32, shape Shape) (*RawTensor, error) {
	return tensor.FromSlice(data, shape)
}
