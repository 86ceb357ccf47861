// Copyright 2026 Lattice ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package layer is the public surface of the operator library: the
// Operator interface, the built-in layer types, and the registry that
// maps type tags to constructors.
package layer

import (
	"github.com/lattice-ml/lattice/internal/layer"
	"github.com/lattice-ml/lattice/internal/tensor"
)

// Operator is one network layer as the graph compiler sees it: identity,
// connectivity, shapes, storage slots and compute.
type Operator = layer.Operator

// Registry maps layer type tags to constructors.
type Registry = layer.Registry

// NewRegistry returns an empty registry.
func NewRegistry() *Registry { return layer.NewRegistry() }

// BuiltinRegistry returns a registry with every built-in layer type.
func BuiltinRegistry() *Registry { return layer.BuiltinRegistry() }

// Type tags of the built-in layers.
const (
	TypeInput          = layer.TypeInput
	TypeFullyConnected = layer.TypeFullyConnected
	TypeConv2D         = layer.TypeConv2D
	TypeBatchNorm      = layer.TypeBatchNorm
	TypeActivation     = layer.TypeActivation
	TypeFlatten        = layer.TypeFlatten
	TypeAddition       = layer.TypeAddition
	TypeConcat         = layer.TypeConcat
	TypeOutput         = layer.TypeOutput
	TypeLoss           = layer.TypeLoss
)

// ActivationKind identifies an element-wise nonlinearity.
type ActivationKind = layer.ActivationKind

const (
	ActNone    = layer.ActNone
	ActSigmoid = layer.ActSigmoid
	ActSoftmax = layer.ActSoftmax
	ActReLU    = layer.ActReLU
	ActTanh    = layer.ActTanh
	ActUnknown = layer.ActUnknown
)

// ParseActivation maps a name to its activation kind, case-insensitively.
func ParseActivation(name string) ActivationKind { return layer.ParseActivation(name) }

// LossKind identifies the terminal loss attached during graph build.
type LossKind = layer.LossKind

const (
	LossNone                = layer.LossNone
	LossMSE                 = layer.LossMSE
	LossCrossEntropy        = layer.LossCrossEntropy
	LossCrossEntropySigmoid = layer.LossCrossEntropySigmoid
	LossCrossEntropySoftmax = layer.LossCrossEntropySoftmax
	LossUnknown             = layer.LossUnknown
)

// ParseLoss maps a name to its loss kind, case-insensitively.
func ParseLoss(name string) LossKind { return layer.ParseLoss(name) }

// Layer constructors.

// NewInput builds an input layer carrying external data of the given
// per-sample shape.
func NewInput(shape tensor.Shape) *layer.Input { return layer.NewInput(shape) }

// NewFullyConnected builds a dense layer with the given output width.
func NewFullyConnected(units int) *layer.FullyConnected { return layer.NewFullyConnected(units) }

// NewConv2D builds a 2D convolution layer.
func NewConv2D(filters, kernelH, kernelW, stride, padding int) *layer.Conv2D {
	return layer.NewConv2D(filters, kernelH, kernelW, stride, padding)
}

// NewBatchNorm builds a batch normalization layer.
func NewBatchNorm(epsilon, momentum float32) *layer.BatchNorm {
	return layer.NewBatchNorm(epsilon, momentum)
}

// NewActivation builds a standalone activation layer.
func NewActivation(kind ActivationKind) *layer.Activation { return layer.NewActivation(kind) }

// NewFlatten builds a layer that collapses each sample to one axis.
func NewFlatten() *layer.Flatten { return layer.NewFlatten() }

// NewAddition builds an element-wise fan-in combiner.
func NewAddition() *layer.Addition { return layer.NewAddition() }

// NewConcat builds a leading-axis fan-in combiner.
func NewConcat() *layer.Concat { return layer.NewConcat() }

// NewOutput builds a fan-out duplicator.
func NewOutput() *layer.Output { return layer.NewOutput() }

// NewLoss builds a terminal loss layer.
func NewLoss(kind LossKind) *layer.Loss { return layer.NewLoss(kind) }
