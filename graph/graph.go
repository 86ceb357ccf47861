// Copyright 2026 Lattice ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package graph is the public surface of the graph compiler. Build takes
// a flat operator list, realizes adapters, sorts, finalizes storage and
// merges buffers in place; the result runs forward passes.
//
// Example:
//
//	ops, _ := net.Operators()
//	g, err := graph.Build(ops, layer.LossCrossEntropy)
//	if err != nil {
//	    return err
//	}
//	g.SetInput(batch)
//	out, err := g.Forward(false)
package graph

import (
	"go.uber.org/zap"

	"github.com/lattice-ml/lattice/internal/graph"
	"github.com/lattice-ml/lattice/internal/layer"
)

// Sentinel connection names.
const (
	ExternalInput  = graph.ExternalInput
	ExternalOutput = graph.ExternalOutput
)

// Error categories returned by graph operations, matched with errors.Is.
var (
	ErrConfiguration = graph.ErrConfiguration
	ErrLookup        = graph.ErrLookup
	ErrNotSupported  = graph.ErrNotSupported
	ErrNumeric       = graph.ErrNumeric
)

// Graph is a compiled, executable network.
type Graph = graph.Graph

// Node is one graph entry: a stable ID plus its operator.
type Node = graph.Node

// Option adjusts graph construction.
type Option = graph.Option

// AliasRecord documents one buffer-merge decision.
type AliasRecord = graph.AliasRecord

// Profiler receives per-node forward timings.
type Profiler = graph.Profiler

// Build compiles a flat operator list into an executable graph.
func Build(ops []layer.Operator, loss layer.LossKind, opts ...Option) (*Graph, error) {
	return graph.Build(ops, loss, opts...)
}

// WithLogger sets the construction and execution logger.
func WithLogger(l *zap.Logger) Option { return graph.WithLogger(l) }

// WithRegistry sets the layer registry used to create adapter nodes.
func WithRegistry(r *layer.Registry) Option { return graph.WithRegistry(r) }

// WithProfiler attaches a forward-timing profiler.
func WithProfiler(p Profiler) Option { return graph.WithProfiler(p) }

// WithBatchSize sets the initial batch size. Defaults to 1.
func WithBatchSize(n int) Option { return graph.WithBatchSize(n) }
