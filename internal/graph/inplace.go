package graph

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/lattice-ml/lattice/internal/layer"
)

// AliasRecord documents one buffer-merge decision: which slot of which
// node now denotes the same underlying buffer as a slot on its producer.
// Records are invalidated whenever the graph is re-finalized.
type AliasRecord struct {
	NodeID       int
	NodeName     string
	ProducerID   int
	ProducerName string
	ProducerSlot int
	Kind         layer.InPlaceKind
}

// optimizeInPlace merges storage between eligible adjacent nodes so they
// stop allocating independent buffers. Runs strictly after sorting (order
// decides who the producer is) and strictly before the first forward pass.
//
// An eligible node must have exactly one input. It is skipped, not failed,
// when its producer is the external-input node or is itself in-place
// eligible: two nodes may not work in-place consecutively, since the
// second would corrupt a value the first still needs.
func (g *Graph) optimizeInPlace() error {
	for _, n := range g.sorted {
		op := n.Op
		if !op.SupportsInPlace() || op.Activation() == layer.ActSoftmax {
			// Softmax output is still needed downstream for its own
			// backward pass, so it keeps an independent buffer.
			continue
		}
		if len(op.InputNames()) != 1 {
			return fmt.Errorf("%w: in-place node %q has %d inputs after realization",
				ErrConfiguration, op.Name(), len(op.InputNames()))
		}

		producer, err := g.nodeByName(op.InputNames()[0])
		if err != nil {
			return fmt.Errorf("in-place pass on node %q: %w", op.Name(), err)
		}
		loc := indexFold(producer.Op.OutputNames(), op.Name())
		if loc < 0 {
			return fmt.Errorf("%w: node %q is not among the outputs of %q",
				ErrConfiguration, op.Name(), producer.Op.Name())
		}

		if producer.Op.Type() == layer.TypeInput {
			continue
		}
		if producer.Op.SupportsInPlace() {
			continue
		}

		shared := op.NetHidden()[0]
		switch op.InPlaceKind() {
		case layer.InPlaceFullShare:
			// Neither the producer's output value nor this node's input
			// value outlives this node: input slot and producer output
			// slot collapse into the output slot.
			op.SetNetInputSlot(0, shared)
			producer.Op.SetNetHiddenSlot(loc, shared)
		case layer.InPlaceOutputShare:
			// Backward here needs this node's own output, not its input:
			// the producer's output value and gradient buffers both become
			// aliases of this node's output value buffer. The consumer side
			// follows automatically because it holds the same VarGrad.
			prevOut := producer.Op.NetHidden()[loc]
			prevOut.UpdateGradientBy(shared.Variable())
			prevOut.UpdateVariableBy(shared.Variable())
		default:
			return fmt.Errorf("%w: %s layer is not supported for in-place optimization",
				ErrConfiguration, op.Type())
		}

		g.manager.Untrack(producer.Op.Name())
		g.aliases = append(g.aliases, AliasRecord{
			NodeID:       n.ID,
			NodeName:     op.Name(),
			ProducerID:   producer.ID,
			ProducerName: producer.Op.Name(),
			ProducerSlot: loc,
			Kind:         op.InPlaceKind(),
		})
		g.logger.Debug("aliased node storage",
			zap.String("node", op.Name()),
			zap.String("producer", producer.Op.Name()),
			zap.Int("producer_slot", loc))
	}
	return nil
}
