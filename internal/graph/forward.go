package graph

import (
	"fmt"
	"time"

	"github.com/lattice-ml/lattice/internal/tensor"
)

// Profiler receives the duration of each node's forward computation.
// Implementations must be cheap; observation happens on the hot path.
type Profiler interface {
	ObserveForward(node, typeTag string, d time.Duration)
}

// Forward runs one forward pass: every node in sorted order, each reading
// the storage slots wired during finalization. The returned tensors are
// views over the last node's output storage and must be treated as
// read-only; they are overwritten by the next pass.
//
// A node failure aborts the pass and is propagated unchanged, wrapped
// with the failing node's identity. The driver performs no recovery.
func (g *Graph) Forward(training bool) ([]*tensor.RawTensor, error) {
	if !g.finalized {
		return nil, fmt.Errorf("%w: graph is not finalized", ErrConfiguration)
	}

	for _, n := range g.sorted {
		var start time.Time
		if g.profiler != nil {
			start = time.Now()
		}
		if err := n.Op.Forward(training); err != nil {
			return nil, fmt.Errorf("forward pass at node %q (%s): %w", n.Op.Name(), n.Op.Type(), err)
		}
		if g.profiler != nil {
			g.profiler.ObserveForward(n.Op.Name(), n.Op.Type(), time.Since(start))
		}
	}

	last := g.sorted[len(g.sorted)-1].Op
	out := make([]*tensor.RawTensor, 0, len(last.NetHidden()))
	for _, h := range last.NetHidden() {
		out = append(out, h.Variable())
	}
	return out, nil
}
