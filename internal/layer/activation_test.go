package layer

import (
	"testing"

	"github.com/lattice-ml/lattice/internal/tensor"
)

func TestSigmoidForward(t *testing.T) {
	a := NewActivation(ActSigmoid)
	wire(t, a, 1, tensor.Shape{5})

	copy(a.NetInput()[0].Variable().Data(), []float32{-2, -1, 0, 1, 2})
	if err := a.Forward(false); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	want := []float32{0.1192, 0.2689, 0.5, 0.7311, 0.8808}
	got := a.NetHidden()[0].Variable().Data()
	for i := range want {
		if !floatEqual(got[i], want[i], 0.001) {
			t.Errorf("sigmoid output[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestReLUForward(t *testing.T) {
	a := NewActivation(ActReLU)
	wire(t, a, 1, tensor.Shape{4})

	copy(a.NetInput()[0].Variable().Data(), []float32{-1, 0, 0.5, 2})
	if err := a.Forward(false); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	want := []float32{0, 0, 0.5, 2}
	got := a.NetHidden()[0].Variable().Data()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("relu output[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTanhForward(t *testing.T) {
	a := NewActivation(ActTanh)
	wire(t, a, 1, tensor.Shape{3})

	copy(a.NetInput()[0].Variable().Data(), []float32{-1, 0, 1})
	if err := a.Forward(false); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	want := []float32{-0.7616, 0, 0.7616}
	got := a.NetHidden()[0].Variable().Data()
	for i := range want {
		if !floatEqual(got[i], want[i], 0.001) {
			t.Errorf("tanh output[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSoftmaxRowsSumToOne(t *testing.T) {
	a := NewActivation(ActSoftmax)
	wire(t, a, 2, tensor.Shape{3})

	copy(a.NetInput()[0].Variable().Data(), []float32{1, 2, 3, 100, 101, 102})
	if err := a.Forward(false); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	y := a.NetHidden()[0].Variable().Data()

	for row := 0; row < 2; row++ {
		var sum float32
		for i := 0; i < 3; i++ {
			sum += y[row*3+i]
		}
		if !floatEqual(sum, 1, 1e-5) {
			t.Errorf("row %d sums to %v, want 1", row, sum)
		}
	}
	// Both rows have the same relative logits, so the same distribution.
	for i := 0; i < 3; i++ {
		if !floatEqual(y[i], y[3+i], 1e-5) {
			t.Errorf("shifted logits changed distribution: %v vs %v", y[i], y[3+i])
		}
	}
}

func TestSigmoidBackwardUsesOwnOutput(t *testing.T) {
	a := NewActivation(ActSigmoid)
	wire(t, a, 1, tensor.Shape{3})

	copy(a.NetInput()[0].Variable().Data(), []float32{-1, 0, 1})
	if err := a.Forward(false); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	// Clobber the input value: backward must not read it.
	a.NetInput()[0].Variable().Fill(1000)

	copy(a.NetHidden()[0].Gradient().Data(), []float32{1, 1, 1})
	if err := a.BackwardInput(); err != nil {
		t.Fatalf("BackwardInput failed: %v", err)
	}

	// dy * y * (1-y) with y = sigmoid(x).
	want := []float32{0.1966, 0.25, 0.1966}
	got := a.NetInput()[0].Gradient().Data()
	for i := range want {
		if !floatEqual(got[i], want[i], 0.001) {
			t.Errorf("gradient[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestActivationInitializeRejectsBadKinds(t *testing.T) {
	for _, kind := range []ActivationKind{ActNone, ActUnknown} {
		a := NewActivation(kind)
		a.SetInputDims([]tensor.Shape{{3}})
		if err := a.Initialize(1); err == nil {
			t.Errorf("Initialize accepted kind %v", kind)
		}
	}
}

func TestActivationMirrorsShapeToAllOutputs(t *testing.T) {
	a := NewActivation(ActReLU)
	a.SetOutputNames([]string{"x", "y"})
	a.SetInputDims([]tensor.Shape{{2, 3}})
	if err := a.Initialize(1); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	out := a.OutputDims()
	if len(out) != 2 || !out[0].Equal(tensor.Shape{2, 3}) || !out[1].Equal(tensor.Shape{2, 3}) {
		t.Errorf("OutputDims() = %v, want two copies of [2 3]", out)
	}
}
