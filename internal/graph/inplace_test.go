package graph

import (
	"testing"

	"github.com/lattice-ml/lattice/internal/layer"
	"github.com/lattice-ml/lattice/internal/tensor"
)

// bnChain builds input -> fc -> bn -> act(relu), the canonical aliasing
// candidate chain.
func bnChain() (ops []layer.Operator, bn *layer.BatchNorm, act *layer.Activation, fc *layer.FullyConnected) {
	in := layer.NewInput(tensor.Shape{4})
	in.SetName("in")

	fc = layer.NewFullyConnected(4)
	fc.SetName("fc")
	fc.SetInputNames([]string{"in"})

	bn = layer.NewBatchNorm(1e-5, 0.9)
	bn.SetName("bn")
	bn.SetInputNames([]string{"fc"})

	act = layer.NewActivation(layer.ActReLU)
	act.SetName("act")
	act.SetInputNames([]string{"bn"})

	return []layer.Operator{in, fc, bn, act}, bn, act, fc
}

func TestInPlaceBatchNormFullShare(t *testing.T) {
	ops, bn, _, fc := bnChain()
	g, err := Build(ops, layer.LossNone)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	records := g.AliasRecords()
	if len(records) != 1 {
		t.Fatalf("alias records = %+v, want exactly one", records)
	}
	rec := records[0]
	if rec.NodeName != "bn" || rec.ProducerName != "fc" || rec.Kind != layer.InPlaceFullShare {
		t.Errorf("record = %+v, want bn full-share over fc", rec)
	}

	// Full share: bn's input slot, bn's output slot and fc's output slot
	// are the same object.
	if bn.NetInput()[0] != bn.NetHidden()[0] {
		t.Error("bn input slot is not its output slot")
	}
	if fc.NetHidden()[0] != bn.NetHidden()[0] {
		t.Error("fc output slot is not bn's output slot")
	}

	// fc no longer owns independent storage.
	if g.Manager().Tracked("fc") {
		t.Error("fc still tracked after absorption")
	}
	if !g.Manager().Tracked("bn") {
		t.Error("bn should remain tracked")
	}
}

func TestInPlaceConsecutiveSkipped(t *testing.T) {
	ops, _, _, _ := bnChain()
	g, err := Build(ops, layer.LossNone)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// act's producer bn already works in-place, so act keeps its buffers:
	// two consecutive in-place nodes would corrupt each other.
	for _, rec := range g.AliasRecords() {
		if rec.NodeName == "act" {
			t.Errorf("activation was aliased over an in-place producer: %+v", rec)
		}
	}
	if !g.Manager().Tracked("act") {
		t.Error("act should remain tracked")
	}
}

func TestInPlaceActivationOutputShare(t *testing.T) {
	in := layer.NewInput(tensor.Shape{4})
	in.SetName("in")
	fc := layer.NewFullyConnected(4)
	fc.SetName("fc")
	fc.SetInputNames([]string{"in"})
	act := layer.NewActivation(layer.ActTanh)
	act.SetName("act")
	act.SetInputNames([]string{"fc"})

	g, err := Build([]layer.Operator{in, fc, act}, layer.LossNone)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	records := g.AliasRecords()
	if len(records) != 1 || records[0].Kind != layer.InPlaceOutputShare {
		t.Fatalf("alias records = %+v, want one output-share record", records)
	}

	// Output share: fc's output value and gradient buffers are the
	// activation's output value buffer. The slot objects stay distinct.
	if fc.NetHidden()[0] == act.NetHidden()[0] {
		t.Error("output share should not merge slot objects")
	}
	if fc.NetHidden()[0].Variable() != act.NetHidden()[0].Variable() {
		t.Error("fc output value is not aliased to act output value")
	}
	if fc.NetHidden()[0].Gradient() != act.NetHidden()[0].Variable() {
		t.Error("fc output gradient is not aliased to act output value")
	}
	// The consumer side follows automatically: act reads the same slot.
	if act.NetInput()[0] != fc.NetHidden()[0] {
		t.Error("act input slot is not fc's output slot")
	}
	if g.Manager().Tracked("fc") {
		t.Error("fc still tracked after absorption")
	}
}

func TestInPlaceSoftmaxExcluded(t *testing.T) {
	in := layer.NewInput(tensor.Shape{4})
	in.SetName("in")
	fc := layer.NewFullyConnected(4)
	fc.SetName("fc")
	fc.SetInputNames([]string{"in"})
	act := layer.NewActivation(layer.ActSoftmax)
	act.SetName("act")
	act.SetInputNames([]string{"fc"})

	g, err := Build([]layer.Operator{in, fc, act}, layer.LossNone)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(g.AliasRecords()) != 0 {
		t.Errorf("alias records = %+v, want none for softmax", g.AliasRecords())
	}
}

func TestInPlaceInputProducerSkipped(t *testing.T) {
	in := layer.NewInput(tensor.Shape{4})
	in.SetName("in")
	act := layer.NewActivation(layer.ActReLU)
	act.SetName("act")
	act.SetInputNames([]string{"in"})

	g, err := Build([]layer.Operator{in, act}, layer.LossNone)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(g.AliasRecords()) != 0 {
		t.Errorf("alias records = %+v, want none over an input producer", g.AliasRecords())
	}
	if !g.Manager().Tracked("in") {
		t.Error("input node should remain tracked")
	}
}

func TestInPlaceForwardMatchesUnaliased(t *testing.T) {
	// The aliased chain must compute the same values a chain without
	// aliasing would: verify the end-to-end numbers by hand.
	in := layer.NewInput(tensor.Shape{2})
	in.SetName("in")
	fc := layer.NewFullyConnected(2)
	fc.SetName("fc")
	fc.SetInputNames([]string{"in"})
	act := layer.NewActivation(layer.ActReLU)
	act.SetName("act")
	act.SetInputNames([]string{"fc"})

	g, err := Build([]layer.Operator{in, fc, act}, layer.LossNone)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(g.AliasRecords()) != 1 {
		t.Fatalf("alias records = %+v, want one", g.AliasRecords())
	}

	// Identity weights, bias [1, -5]: y = relu(x + b).
	copy(fc.Weight().Data(), []float32{1, 0, 0, 1})
	copy(fc.Bias().Data(), []float32{1, -5})

	input, _ := tensor.FromSlice([]float32{2, 3}, tensor.Shape{1, 2})
	if err := g.SetInput(input); err != nil {
		t.Fatalf("SetInput failed: %v", err)
	}
	out, err := g.Forward(false)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	// fc: [3, -2]; relu: [3, 0].
	got := out[0].Data()
	if got[0] != 3 || got[1] != 0 {
		t.Errorf("output = %v, want [3 0]", got)
	}
}

func TestSetBatchSizeReappliesAliasing(t *testing.T) {
	ops, bn, _, fc := bnChain()
	g, err := Build(ops, layer.LossNone)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if err := g.SetBatchSize(3); err != nil {
		t.Fatalf("SetBatchSize failed: %v", err)
	}
	if len(g.AliasRecords()) != 1 {
		t.Fatalf("alias records after re-finalize = %+v, want one", g.AliasRecords())
	}
	if fc.NetHidden()[0] != bn.NetHidden()[0] {
		t.Error("aliasing not re-applied after batch resize")
	}
	if g.Manager().Tracked("fc") {
		t.Error("fc tracked again after re-finalize")
	}
}
