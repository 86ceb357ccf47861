package graph

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lattice-ml/lattice/internal/layer"
	"github.com/lattice-ml/lattice/internal/tensor"
)

// realize rewrites the flat operator list into a complete graph. For each
// operator, in list order: bind sources to the external-input sentinel,
// insert a fan-in combiner when multiple inputs are declared, append the
// node, then realize the requested activation, a fan-out duplicator and a
// trailing flatten. After the loop a terminal loss node is attached when
// requested.
func (g *Graph) realize(ops []layer.Operator, loss layer.LossKind) error {
	for _, op := range ops {
		g.names.ensure(op, "", false)
	}
	if err := g.discoverOutputs(ops); err != nil {
		return err
	}

	for _, op := range ops {
		g.logger.Debug("realizing layer",
			zap.String("name", op.Name()),
			zap.String("type", op.Type()))

		if err := g.bindDefaultSource(op); err != nil {
			return err
		}
		if op.Type() != layer.TypeAddition && op.Type() != layer.TypeConcat {
			if err := g.realizeFanIn(op, ops); err != nil {
				return err
			}
		}
		g.addNode(op)
		if op.Type() != layer.TypeActivation {
			if err := g.realizeActivation(op, ops); err != nil {
				return err
			}
		}
		if op.Type() != layer.TypeOutput {
			if err := g.realizeFanOut(op, ops); err != nil {
				return err
			}
		}
		if op.FlattenRequested() {
			if err := g.realizeFlatten(op, ops); err != nil {
				return err
			}
		}
	}

	last := g.nodes[len(g.nodes)-1]
	if last.Op.Type() != layer.TypeLoss && loss != layer.LossNone {
		if err := g.attachLoss(loss); err != nil {
			return err
		}
	}
	return nil
}

// discoverOutputs infers every operator's output-name list by scanning all
// operators for references to its name. The last operator falls back to
// the external-output sentinel; any other operator left without outputs is
// disconnected. The scan is O(n²) in node count, acceptable at the graph
// sizes this engine targets.
func (g *Graph) discoverOutputs(ops []layer.Operator) error {
	for _, op := range ops {
		for _, consumer := range ops {
			if strings.EqualFold(consumer.Name(), op.Name()) {
				continue
			}
			for _, in := range consumer.InputNames() {
				if strings.EqualFold(in, op.Name()) && indexFold(op.OutputNames(), consumer.Name()) < 0 {
					op.SetOutputNames(append(op.OutputNames(), consumer.Name()))
				}
			}
		}
	}

	last := ops[len(ops)-1]
	if len(last.OutputNames()) == 0 {
		last.SetOutputNames([]string{ExternalOutput})
	}
	for _, op := range ops {
		if len(op.OutputNames()) == 0 {
			return fmt.Errorf("%w: node %q is not consumed by any other node", ErrConfiguration, op.Name())
		}
	}
	return nil
}

// bindDefaultSource connects an operator with no declared inputs to the
// external-input sentinel. Its input dimensions must already be fully
// specified since there is no upstream node to infer them from.
func (g *Graph) bindDefaultSource(op layer.Operator) error {
	if len(op.InputNames()) > 0 {
		return nil
	}
	dims := op.InputDims()
	if len(dims) == 0 {
		return fmt.Errorf("%w: source node %q: input dimension must be set", ErrConfiguration, op.Name())
	}
	for _, d := range dims {
		if !d.IsSet() {
			return fmt.Errorf("%w: source node %q: input dimension must be set", ErrConfiguration, op.Name())
		}
	}
	op.SetInputNames([]string{ExternalInput})
	return nil
}

// realizeFanIn inserts an addition combiner upstream of an operator that
// declares more than one input: the combiner takes over all declared
// inputs and the operator collapses to the combiner's single output.
func (g *Graph) realizeFanIn(op layer.Operator, ops []layer.Operator) error {
	if len(op.InputNames()) <= 1 {
		return nil
	}

	comb, err := g.registry.Create(layer.TypeAddition)
	if err != nil {
		return err
	}
	g.names.ensure(comb, op.Name(), false)

	inputs := append([]string(nil), op.InputNames()...)
	comb.SetInputNames(inputs)
	comb.SetInputDims(make([]tensor.Shape, len(inputs)))
	comb.SetOutputNames([]string{op.Name()})

	// Each producer's output entry for op now feeds the combiner.
	for _, producer := range inputs {
		g.updateOutputName(ops, producer, op.Name(), comb.Name())
	}
	op.SetInputNames([]string{comb.Name()})
	g.addNode(comb)

	g.logger.Debug("realized fan-in combiner",
		zap.String("node", comb.Name()),
		zap.Int("inputs", len(inputs)))
	return nil
}

// realizeActivation inserts an activation node downstream of an operator
// that requests a non-trivial activation. The activation inherits the
// operator's declared outputs; the operator's outputs collapse to the
// activation node.
func (g *Graph) realizeActivation(op layer.Operator, ops []layer.Operator) error {
	kind := op.Activation()
	if kind == layer.ActNone {
		return nil
	}
	if kind == layer.ActUnknown {
		return fmt.Errorf("%w: node %q: cannot realize unknown activation", ErrConfiguration, op.Name())
	}
	if op.Type() == layer.TypeActivation {
		return fmt.Errorf("%w: node %q: activation inserted directly after an activation node", ErrConfiguration, op.Name())
	}

	act, err := g.registry.Create(layer.TypeActivation)
	if err != nil {
		return err
	}
	g.names.ensure(act, op.Name(), false)
	act.SetActivation(kind)
	act.SetInputNames([]string{op.Name()})
	act.SetOutputNames(append([]string(nil), op.OutputNames()...))

	inherited := op.OutputNames()
	op.SetOutputNames([]string{act.Name()})
	g.addNode(act)

	for range inherited {
		g.updateNameInOps(ops, op.Name(), act.Name())
	}

	g.logger.Debug("realized activation",
		zap.String("node", act.Name()),
		zap.String("kind", kind.String()))
	return nil
}

// realizeFanOut inserts a duplicator downstream of an operator that
// declares more than one output: the duplicator takes the one output and
// fans out to all originally declared consumers.
func (g *Graph) realizeFanOut(op layer.Operator, ops []layer.Operator) error {
	if len(op.OutputNames()) <= 1 {
		return nil
	}

	dup, err := g.registry.Create(layer.TypeOutput)
	if err != nil {
		return err
	}
	g.names.ensure(dup, op.Name(), false)
	dup.SetInputNames([]string{op.Name()})
	dup.SetOutputNames(append([]string(nil), op.OutputNames()...))

	for range op.OutputNames() {
		g.updateNameInOps(ops, op.Name(), dup.Name())
	}
	op.SetOutputNames([]string{dup.Name()})
	g.addNode(dup)

	g.logger.Debug("realized fan-out duplicator",
		zap.String("node", dup.Name()),
		zap.Int("outputs", len(dup.OutputNames())))
	return nil
}

// realizeFlatten inserts a flatten adapter downstream, applied after
// activation and fan-out realization. Flattening a flatten node is a
// configuration error.
func (g *Graph) realizeFlatten(op layer.Operator, ops []layer.Operator) error {
	if op.Type() == layer.TypeFlatten {
		return fmt.Errorf("%w: node %q: flatten requested directly after a flatten node", ErrConfiguration, op.Name())
	}

	fl, err := g.registry.Create(layer.TypeFlatten)
	if err != nil {
		return err
	}
	g.names.ensure(fl, op.Name(), false)
	fl.SetInputNames([]string{op.Name()})
	fl.SetOutputNames(append([]string(nil), op.OutputNames()...))

	inherited := op.OutputNames()
	op.SetOutputNames([]string{fl.Name()})
	g.addNode(fl)

	for range inherited {
		g.updateNameInOps(ops, op.Name(), fl.Name())
	}

	g.logger.Debug("realized flatten", zap.String("node", fl.Name()))
	return nil
}

// attachLoss appends the terminal loss node. Plain cross-entropy requires
// the preceding node to be a sigmoid or softmax activation; the pair is
// fused into the matching numerically stable loss kind and the activation
// node is deleted.
func (g *Graph) attachLoss(loss layer.LossKind) error {
	if len(g.nodes) == 0 {
		return fmt.Errorf("%w: cannot attach a loss to an empty graph", ErrConfiguration)
	}

	updated := loss
	if loss == layer.LossCrossEntropy {
		last := g.nodes[len(g.nodes)-1]
		if last.Op.Type() != layer.TypeActivation {
			return fmt.Errorf("%w: cross entropy requires the last node to be a sigmoid or softmax activation",
				ErrNotSupported)
		}
		switch last.Op.Activation() {
		case layer.ActSigmoid:
			updated = layer.LossCrossEntropySigmoid
		case layer.ActSoftmax:
			updated = layer.LossCrossEntropySoftmax
		default:
			return fmt.Errorf("%w: cross entropy is not supported with %s activation",
				ErrNotSupported, last.Op.Activation())
		}

		// Fuse: the activation node is absorbed into the loss node.
		g.nodes = g.nodes[:len(g.nodes)-1]
		g.adj = g.adj[:len(g.adj)-1]
		g.logger.Debug("fused cross entropy with activation",
			zap.String("loss", updated.String()))
	}

	prev := g.nodes[len(g.nodes)-1]
	lossOp, err := g.registry.Create(layer.TypeLoss)
	if err != nil {
		return err
	}
	g.names.ensure(lossOp, "", false)

	setter, ok := lossOp.(interface{ SetLossKind(layer.LossKind) })
	if !ok {
		return fmt.Errorf("%w: registered loss operator does not accept a loss kind", ErrConfiguration)
	}
	setter.SetLossKind(updated)

	lossOp.SetInputNames([]string{prev.Op.Name()})
	lossOp.SetOutputNames([]string{ExternalOutput})
	prev.Op.SetOutputNames([]string{lossOp.Name()})
	g.addNode(lossOp)

	g.logger.Debug("attached loss node",
		zap.String("node", lossOp.Name()),
		zap.String("kind", updated.String()))
	return nil
}

// updateNameInOps rewires the first input reference to `from` among nodes
// already in the graph and the not-yet-added user operators, pointing it
// at `to`. Called once per inherited output when an adapter takes over an
// operator's downstream connections.
func (g *Graph) updateNameInOps(ops []layer.Operator, from, to string) {
	seen := make(map[layer.Operator]struct{})
	scan := make([]layer.Operator, 0, len(g.nodes)+len(ops))
	for _, n := range g.nodes {
		scan = append(scan, n.Op)
	}
	scan = append(scan, ops...)

	for _, op := range scan {
		if _, dup := seen[op]; dup {
			continue
		}
		seen[op] = struct{}{}
		// The adapter being wired in references `from` as its own input.
		if strings.EqualFold(op.Name(), to) {
			continue
		}
		inputs := op.InputNames()
		for i, in := range inputs {
			if strings.EqualFold(in, from) {
				inputs[i] = to
				return
			}
		}
	}
}

// updateOutputName rewrites the named producer's first output entry equal
// to `from`, pointing it at `to`. The producer is searched among nodes
// already in the graph and the not-yet-added user operators.
func (g *Graph) updateOutputName(ops []layer.Operator, producerName, from, to string) {
	scan := make([]layer.Operator, 0, len(g.nodes)+len(ops))
	for _, n := range g.nodes {
		scan = append(scan, n.Op)
	}
	scan = append(scan, ops...)

	for _, op := range scan {
		if !strings.EqualFold(op.Name(), producerName) {
			continue
		}
		outputs := op.OutputNames()
		for i, out := range outputs {
			if strings.EqualFold(out, from) {
				outputs[i] = to
				return
			}
		}
	}
}

// indexFold returns the index of needle in names, case-insensitively, or
// -1 when absent.
func indexFold(names []string, needle string) int {
	for i, n := range names {
		if strings.EqualFold(n, needle) {
			return i
		}
	}
	return -1
}
