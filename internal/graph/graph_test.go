package graph

import (
	"errors"
	"testing"

	"github.com/lattice-ml/lattice/internal/layer"
	"github.com/lattice-ml/lattice/internal/tensor"
)

// mlp builds input -> fc -> fc2, the smallest trainable chain.
func mlp() []layer.Operator {
	in := layer.NewInput(tensor.Shape{4})
	in.SetName("in")

	fc := layer.NewFullyConnected(8)
	fc.SetName("fc")
	fc.SetInputNames([]string{"in"})

	fc2 := layer.NewFullyConnected(2)
	fc2.SetName("fc2")
	fc2.SetInputNames([]string{"fc"})

	return []layer.Operator{in, fc, fc2}
}

func TestBuildSimpleChain(t *testing.T) {
	g, err := Build(mlp(), layer.LossNone)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	want := []string{"in", "fc", "fc2"}
	got := g.SortedNames()
	if len(got) != len(want) {
		t.Fatalf("sorted = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sorted = %v, want %v", got, want)
		}
	}

	if !g.InputDims()[0].Equal(tensor.Shape{4}) {
		t.Errorf("InputDims() = %v, want [4]", g.InputDims())
	}
	if !g.OutputDims()[0].Equal(tensor.Shape{2}) {
		t.Errorf("OutputDims() = %v, want [2]", g.OutputDims())
	}
	if g.BuildID() == "" {
		t.Error("build id is empty")
	}
}

func TestBuildEmptyGraph(t *testing.T) {
	_, err := Build(nil, layer.LossNone)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Build(nil) error = %v, want ErrConfiguration", err)
	}
}

func TestBuildDisconnectedNode(t *testing.T) {
	ops := mlp()

	orphan := layer.NewFullyConnected(3)
	orphan.SetName("orphan")
	orphan.SetInputNames([]string{"in"})
	// orphan consumes "in" but nothing consumes orphan, and it is not last.
	ops = append(ops[:2:2], orphan, ops[2])

	_, err := Build(ops, layer.LossNone)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Build error = %v, want ErrConfiguration for disconnected node", err)
	}
}

func TestBuildSourceWithoutShape(t *testing.T) {
	in := layer.NewInput(nil)
	in.SetName("in")
	_, err := Build([]layer.Operator{in}, layer.LossNone)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Build error = %v, want ErrConfiguration for unset source dims", err)
	}
}

func TestBuildUnknownInputName(t *testing.T) {
	in := layer.NewInput(tensor.Shape{4})
	in.SetName("in")
	fc := layer.NewFullyConnected(2)
	fc.SetName("fc")
	fc.SetInputNames([]string{"nope"})

	_, err := Build([]layer.Operator{in, fc}, layer.LossNone)
	if err == nil {
		t.Fatal("Build accepted a dangling input reference")
	}
}

func TestBuildRejectsCycle(t *testing.T) {
	a := layer.NewFullyConnected(2)
	a.SetName("a")
	a.SetInputNames([]string{"b"})
	b := layer.NewFullyConnected(2)
	b.SetName("b")
	b.SetInputNames([]string{"a"})

	_, err := Build([]layer.Operator{a, b}, layer.LossNone)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Build error = %v, want ErrConfiguration for cycle", err)
	}
}

func TestBuildUnknownActivation(t *testing.T) {
	ops := mlp()
	ops[1].SetActivation(layer.ParseActivation("swish9"))

	_, err := Build(ops, layer.LossNone)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Build error = %v, want ErrConfiguration for unknown activation", err)
	}
}

func TestForwardProducesOutput(t *testing.T) {
	g, err := Build(mlp(), layer.LossNone, WithBatchSize(2))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	in, _ := tensor.NewRaw(tensor.Shape{2, 4})
	in.Randomize(1)
	if err := g.SetInput(in); err != nil {
		t.Fatalf("SetInput failed: %v", err)
	}

	out, err := g.Forward(false)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if len(out) != 1 || !out[0].Shape().Equal(tensor.Shape{2, 2}) {
		t.Fatalf("output shape = %v, want [2 2]", out[0].Shape())
	}
}

func TestSetBatchSizeReallocates(t *testing.T) {
	g, err := Build(mlp(), layer.LossNone)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	before := g.Manager().TrackedBytes()

	if err := g.SetBatchSize(4); err != nil {
		t.Fatalf("SetBatchSize failed: %v", err)
	}
	if g.BatchSize() != 4 {
		t.Errorf("BatchSize() = %d, want 4", g.BatchSize())
	}
	if after := g.Manager().TrackedBytes(); after <= before {
		t.Errorf("tracked bytes %d after growing batch, want > %d", after, before)
	}

	in, _ := tensor.NewRaw(tensor.Shape{4, 4})
	if err := g.SetInput(in); err != nil {
		t.Fatalf("SetInput after SetBatchSize failed: %v", err)
	}
	if _, err := g.Forward(false); err != nil {
		t.Fatalf("Forward after SetBatchSize failed: %v", err)
	}

	if err := g.SetBatchSize(0); err == nil {
		t.Error("SetBatchSize accepted 0")
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	build := func() *Graph {
		in := layer.NewInput(tensor.Shape{3})
		in.SetName("in")
		fc := layer.NewFullyConnected(3)
		fc.SetName("fc")
		fc.SetInputNames([]string{"in"})
		bn := layer.NewBatchNorm(1e-5, 0.9)
		bn.SetName("bn")
		bn.SetInputNames([]string{"fc"})
		act := layer.NewActivation(layer.ActReLU)
		act.SetName("act")
		act.SetInputNames([]string{"bn"})

		g, err := Build([]layer.Operator{in, fc, bn, act}, layer.LossMSE)
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		return g
	}

	a, b := build(), build()
	an, bn := a.SortedNames(), b.SortedNames()
	if len(an) != len(bn) {
		t.Fatalf("orders differ in length: %v vs %v", an, bn)
	}
	for i := range an {
		if an[i] != bn[i] {
			t.Fatalf("orders differ: %v vs %v", an, bn)
		}
	}
	if len(a.AliasRecords()) != len(b.AliasRecords()) {
		t.Fatalf("alias records differ: %v vs %v", a.AliasRecords(), b.AliasRecords())
	}
	for i := range a.AliasRecords() {
		if a.AliasRecords()[i].NodeName != b.AliasRecords()[i].NodeName {
			t.Errorf("alias %d targets %q vs %q", i,
				a.AliasRecords()[i].NodeName, b.AliasRecords()[i].NodeName)
		}
	}
}

func TestSkipNonTrainablePrefix(t *testing.T) {
	g, err := Build(mlp(), layer.LossNone)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if g.SkipNonTrainable() != 1 {
		t.Errorf("SkipNonTrainable() = %d, want 1 (only the input)", g.SkipNonTrainable())
	}

	// A graph with no trainable node at all: the prefix spans everything.
	in := layer.NewInput(tensor.Shape{4})
	in.SetName("in")
	act := layer.NewActivation(layer.ActSigmoid)
	act.SetName("act")
	act.SetInputNames([]string{"in"})
	g2, err := Build([]layer.Operator{in, act}, layer.LossNone)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if g2.SkipNonTrainable() != g2.Len() {
		t.Errorf("SkipNonTrainable() = %d, want %d", g2.SkipNonTrainable(), g2.Len())
	}
}
