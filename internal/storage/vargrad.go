// Package storage provides the value/gradient storage slots shared between
// graph nodes and the manager that tracks their memory.
package storage

import (
	"fmt"

	"github.com/lattice-ml/lattice/internal/tensor"
)

// VarGrad is a named pair of buffers: the value a node produces (or consumes)
// and the gradient flowing through the same slot during the backward pass.
//
// A producer's output slot and its consumer's input slot are the same
// *VarGrad object, so rewiring the producer side is immediately visible to
// the consumer. The in-place optimizer exploits this by swapping which
// RawTensor a slot points at.
type VarGrad struct {
	name     string
	variable *tensor.RawTensor
	gradient *tensor.RawTensor
}

// NewVarGrad allocates a slot with fresh value and gradient buffers.
func NewVarGrad(name string, shape tensor.Shape) (*VarGrad, error) {
	variable, err := tensor.NewRaw(shape)
	if err != nil {
		return nil, fmt.Errorf("slot %q: %w", name, err)
	}
	gradient, err := tensor.NewRaw(shape)
	if err != nil {
		return nil, fmt.Errorf("slot %q: %w", name, err)
	}
	return &VarGrad{name: name, variable: variable, gradient: gradient}, nil
}

// Name returns the slot name.
func (v *VarGrad) Name() string { return v.name }

// Variable returns the value buffer.
func (v *VarGrad) Variable() *tensor.RawTensor { return v.variable }

// Gradient returns the gradient buffer.
func (v *VarGrad) Gradient() *tensor.RawTensor { return v.gradient }

// UpdateVariableBy makes the value slot an alias of t. The previous buffer
// is dropped.
func (v *VarGrad) UpdateVariableBy(t *tensor.RawTensor) {
	v.variable = t
}

// UpdateGradientBy makes the gradient slot an alias of t.
func (v *VarGrad) UpdateGradientBy(t *tensor.RawTensor) {
	v.gradient = t
}

// SizeBytes returns the total bytes held by both buffers. Aliased buffers
// are counted once per holder; the Manager's untrack bookkeeping corrects
// for absorption.
func (v *VarGrad) SizeBytes() int {
	n := 0
	if v.variable != nil {
		n += v.variable.SizeBytes()
	}
	if v.gradient != nil {
		n += v.gradient.SizeBytes()
	}
	return n
}
