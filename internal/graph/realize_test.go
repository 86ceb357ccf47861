package graph

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/lattice-ml/lattice/internal/layer"
	"github.com/lattice-ml/lattice/internal/tensor"
)

func TestRealizeActivationAdapter(t *testing.T) {
	in := layer.NewInput(tensor.Shape{4})
	in.SetName("in")
	fc := layer.NewFullyConnected(2)
	fc.SetName("fc")
	fc.SetInputNames([]string{"in"})
	fc.SetActivation(layer.ActSigmoid)

	g, err := Build([]layer.Operator{in, fc}, layer.LossNone)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// in, fc, and the realized activation node.
	if g.Len() != 3 {
		t.Fatalf("node count = %d, want 3", g.Len())
	}

	last := g.SortedNode(g.Len() - 1).Op
	if last.Type() != layer.TypeActivation {
		t.Fatalf("last node type = %q, want activation", last.Type())
	}
	if last.Activation() != layer.ActSigmoid {
		t.Errorf("adapter kind = %v, want sigmoid", last.Activation())
	}

	// fc now feeds the adapter, and the adapter inherits fc's downstream.
	if len(fc.OutputNames()) != 1 || fc.OutputNames()[0] != last.Name() {
		t.Errorf("fc outputs = %v, want [%q]", fc.OutputNames(), last.Name())
	}
	if last.OutputNames()[0] != ExternalOutput {
		t.Errorf("adapter outputs = %v, want [%q]", last.OutputNames(), ExternalOutput)
	}
}

func TestRealizeFanInCombiner(t *testing.T) {
	in := layer.NewInput(tensor.Shape{4})
	in.SetName("in")

	a := layer.NewFullyConnected(4)
	a.SetName("a")
	a.SetInputNames([]string{"in"})
	b := layer.NewFullyConnected(4)
	b.SetName("b")
	b.SetInputNames([]string{"in"})
	c := layer.NewFullyConnected(4)
	c.SetName("c")
	c.SetInputNames([]string{"in"})

	merge := layer.NewFullyConnected(2)
	merge.SetName("merge")
	merge.SetInputNames([]string{"a", "b", "c"})

	g, err := Build([]layer.Operator{in, a, b, c, merge}, layer.LossNone)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// merge collapsed to a single input: the inserted addition combiner.
	if len(merge.InputNames()) != 1 {
		t.Fatalf("merge inputs = %v, want exactly one", merge.InputNames())
	}
	comb, err := g.nodeByName(merge.InputNames()[0])
	if err != nil {
		t.Fatalf("combiner not found: %v", err)
	}
	if comb.Op.Type() != layer.TypeAddition {
		t.Errorf("combiner type = %q, want addition", comb.Op.Type())
	}
	if len(comb.Op.InputNames()) != 3 {
		t.Errorf("combiner inputs = %v, want the original three", comb.Op.InputNames())
	}

	// The fan-out from "in" to three consumers also realized a duplicator.
	if len(in.OutputNames()) != 1 {
		t.Errorf("in outputs = %v, want the single duplicator", in.OutputNames())
	}
	dup, err := g.nodeByName(in.OutputNames()[0])
	if err != nil {
		t.Fatalf("duplicator not found: %v", err)
	}
	if dup.Op.Type() != layer.TypeOutput {
		t.Errorf("duplicator type = %q, want output", dup.Op.Type())
	}
	if len(dup.Op.OutputNames()) != 3 {
		t.Errorf("duplicator outputs = %v, want three", dup.Op.OutputNames())
	}

	// The whole thing still runs.
	input, _ := tensor.NewRaw(tensor.Shape{1, 4})
	input.Randomize(1)
	if err := g.SetInput(input); err != nil {
		t.Fatalf("SetInput failed: %v", err)
	}
	if _, err := g.Forward(false); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
}

func TestRealizeFlattenAdapter(t *testing.T) {
	in := layer.NewInput(tensor.Shape{1, 4, 4})
	in.SetName("in")

	conv := layer.NewConv2D(2, 3, 3, 1, 0)
	conv.SetName("conv")
	conv.SetInputNames([]string{"in"})
	conv.RequestFlatten(true)

	fc := layer.NewFullyConnected(5)
	fc.SetName("fc")
	fc.SetInputNames([]string{"conv"})

	g, err := Build([]layer.Operator{in, conv, fc}, layer.LossNone)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// conv -> flatten -> fc: fc sees the collapsed shape 2*2*2 = 8.
	if len(fc.InputDims()) != 1 || !fc.InputDims()[0].Equal(tensor.Shape{8}) {
		t.Fatalf("fc input dims = %v, want [8]", fc.InputDims())
	}
	fl, err := g.nodeByName(conv.OutputNames()[0])
	if err != nil {
		t.Fatalf("flatten adapter not found: %v", err)
	}
	if fl.Op.Type() != layer.TypeFlatten {
		t.Errorf("adapter type = %q, want flatten", fl.Op.Type())
	}
}

func TestRealizeFlattenOnFlattenFails(t *testing.T) {
	in := layer.NewInput(tensor.Shape{2, 3})
	in.SetName("in")
	fl := layer.NewFlatten()
	fl.SetName("fl")
	fl.SetInputNames([]string{"in"})
	fl.RequestFlatten(true)

	_, err := Build([]layer.Operator{in, fl}, layer.LossNone)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Build error = %v, want ErrConfiguration", err)
	}
}

func TestRealizeActivationOnActivationFails(t *testing.T) {
	g := &Graph{
		names:    newNameRegistry(),
		registry: layer.BuiltinRegistry(),
		logger:   zap.NewNop(),
	}
	act := layer.NewActivation(layer.ActReLU)
	act.SetName("act")
	g.names.ensure(act, "", false)

	err := g.realizeActivation(act, nil)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("realizeActivation error = %v, want ErrConfiguration", err)
	}
}

func TestAttachLossFusesSoftmax(t *testing.T) {
	in := layer.NewInput(tensor.Shape{4})
	in.SetName("in")
	fc := layer.NewFullyConnected(3)
	fc.SetName("fc")
	fc.SetInputNames(
		[]string{"in"})
	fc.SetActivation(layer.ActSoftmax)

	g, err := Build([]layer.Operator{in, fc}, layer.LossCrossEntropy)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// The realized softmax node was absorbed: in, fc, loss.
	if g.Len() != 3 {
		t.Fatalf("node count = %d, want 3 after fusion", g.Len())
	}
	last := g.SortedNode(g.Len() - 1).Op
	lossOp, ok := last.(*layer.Loss)
	if !ok {
		t.Fatalf("last node is %T, want *layer.Loss", last)
	}
	if lossOp.LossKind() != layer.LossCrossEntropySoftmax {
		t.Errorf("fused kind = %v, want cross_entropy_softmax", lossOp.LossKind())
	}

	// End to end: forward with targets yields a finite positive loss.
	input, _ := tensor.NewRaw(tensor.Shape{1, 4})
	input.Randomize(1)
	if err := g.SetInput(input); err != nil {
		t.Fatalf("SetInput failed: %v", err)
	}
	targets, _ := tensor.FromSlice([]float32{1, 0, 0}, tensor.Shape{1, 3})
	if err := g.SetTargets(targets); err != nil {
		t.Fatalf("SetTargets failed: %v", err)
	}
	if _, err := g.Forward(false); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if lossOp.Value() <= 0 {
		t.Errorf("loss value = %v, want > 0", lossOp.Value())
	}
}

func TestAttachLossFusesSigmoid(t *testing.T) {
	in := layer.NewInput(tensor.Shape{4})
	in.SetName("in")
	fc := layer.NewFullyConnected(1)
	fc.SetName("fc")
	fc.SetInputNames([]string{"in"})
	fc.SetActivation(layer.ActSigmoid)

	g, err := Build([]layer.Operator{in, fc}, layer.LossCrossEntropy)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	last := g.SortedNode(g.Len() - 1).Op.(*layer.Loss)
	if last.LossKind() != layer.LossCrossEntropySigmoid {
		t.Errorf("fused kind = %v, want cross_entropy_sigmoid", last.LossKind())
	}
}

func TestAttachLossRejectsUnfusableActivation(t *testing.T) {
	in := layer.NewInput(tensor.Shape{4})
	in.SetName("in")
	fc := layer.NewFullyConnected(3)
	fc.SetName("fc")
	fc.SetInputNames([]string{"in"})
	fc.SetActivation(layer.ActReLU)

	_, err := Build([]layer.Operator{in, fc}, layer.LossCrossEntropy)
	if !errors.Is(err, ErrNotSupported) {
		t.Fatalf("Build error = %v, want ErrNotSupported", err)
	}
}

func TestAttachLossRejectsMissingActivation(t *testing.T) {
	_, err := Build(mlp(), layer.LossCrossEntropy)
	if !errors.Is(err, ErrNotSupported) {
		t.Fatalf("Build error = %v, want ErrNotSupported", err)
	}
}

func TestAttachLossMSENeedsNoActivation(t *testing.T) {
	g, err := Build(mlp(), layer.LossMSE)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	last := g.SortedNode(g.Len() - 1).Op
	if last.Type() != layer.TypeLoss {
		t.Fatalf("last node type = %q, want loss", last.Type())
	}
}
