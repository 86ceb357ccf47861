package graph

import (
	"fmt"
	"strings"

	"github.com/lattice-ml/lattice/internal/storage"
	"github.com/lattice-ml/lattice/internal/tensor"
)

// finalize walks the sorted order once: it propagates producer output
// shapes into consumer input shapes, initializes every operator for the
// current batch size, allocates output storage, and wires shared slots so
// a consumer's input slot is the identical *VarGrad as its producer's
// output slot. Runs after sorting and is re-run by SetBatchSize.
func (g *Graph) finalize() error {
	g.manager.Reset()
	g.aliases = nil

	for _, n := range g.sorted {
		op := n.Op

		if isSource(op) {
			dims := op.InputDims()
			slots := make([]*storage.VarGrad, len(dims))
			for i, d := range dims {
				vg, err := storage.NewVarGrad(fmt.Sprintf("%s:in%d", op.Name(), i), d.WithBatch(g.batch))
				if err != nil {
					return fmt.Errorf("%w: node %q: %v", ErrConfiguration, op.Name(), err)
				}
				slots[i] = vg
			}
			op.SetNetInput(slots)
		} else {
			inputs := op.InputNames()
			dims := make([]tensor.Shape, len(inputs))
			slots := make([]*storage.VarGrad, len(inputs))
			for i, in := range inputs {
				producer, err := g.nodeByName(in)
				if err != nil {
					return fmt.Errorf("wiring inputs of node %q: %w", op.Name(), err)
				}
				loc := indexFold(producer.Op.OutputNames(), op.Name())
				if loc < 0 {
					return fmt.Errorf("%w: node %q is not among the outputs of %q",
						ErrConfiguration, op.Name(), producer.Op.Name())
				}
				dims[i] = producer.Op.OutputDims()[loc].Clone()
				slots[i] = producer.Op.NetHidden()[loc]
			}
			op.SetInputDims(dims)
			op.SetNetInput(slots)
		}

		if err := op.Initialize(g.batch); err != nil {
			return err
		}

		outDims := op.OutputDims()
		hidden := make([]*storage.VarGrad, len(outDims))
		for i, d := range outDims {
			vg, err := storage.NewVarGrad(fmt.Sprintf("%s:out%d", op.Name(), i), d.WithBatch(g.batch))
			if err != nil {
				return fmt.Errorf("%w: node %q: %v", ErrConfiguration, op.Name(), err)
			}
			hidden[i] = vg
		}
		op.SetNetHidden(hidden)

		tracked := hidden
		if isSource(op) {
			tracked = append(append([]*storage.VarGrad(nil), op.NetInput()...), hidden...)
		}
		g.manager.Track(op.Name(), tracked)
	}
	return nil
}

// isSource reports whether the operator consumes external data directly.
func isSource(op interface{ InputNames() []string }) bool {
	names := op.InputNames()
	return len(names) == 1 && strings.EqualFold(names[0], ExternalInput)
}
