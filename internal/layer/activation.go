package layer

import (
	"fmt"
	"math"

	"github.com/lattice-ml/lattice/internal/tensor"
)

// Activation applies an element-wise (or, for softmax, per-sample) function.
// It is in-place eligible: its backward pass needs its own output rather
// than its input, so the predecessor's output storage can be redirected to
// this node's output buffer (InPlaceOutputShare).
type Activation struct {
	Base
}

// NewActivation creates an activation operator of the given kind.
func NewActivation(kind ActivationKind) *Activation {
	a := &Activation{Base: NewBase(TypeActivation)}
	a.SetActivation(kind)
	return a
}

// SupportsInPlace marks activation as eligible for buffer aliasing.
func (a *Activation) SupportsInPlace() bool { return true }

// InPlaceKind selects the output-sharing rule: activation backward uses the
// activation's own output value.
func (a *Activation) InPlaceKind() InPlaceKind { return InPlaceOutputShare }

// Initialize validates the kind and mirrors the input shape to every
// output slot.
func (a *Activation) Initialize(batch int) error {
	switch a.Activation() {
	case ActSigmoid, ActSoftmax, ActReLU, ActTanh:
	default:
		return fmt.Errorf("%w: activation %q: cannot initialize kind %q", ErrConfiguration, a.Name(), a.Activation())
	}
	dims := a.InputDims()
	if len(dims) != 1 || !dims[0].IsSet() {
		return fmt.Errorf("%w: activation %q: input shape unset", ErrConfiguration, a.Name())
	}
	outs := len(a.OutputNames())
	if outs == 0 {
		outs = 1
	}
	outputDims := make([]tensor.Shape, outs)
	for i := range outputDims {
		outputDims[i] = dims[0].Clone()
	}
	a.SetOutputDims(outputDims)
	return nil
}

// Forward applies the activation into output slot 0 and copies the result
// to any additional output slots.
func (a *Activation) Forward(training bool) error {
	x := a.NetInput()[0].Variable().Data()
	y := a.NetHidden()[0].Variable().Data()
	if len(x) != len(y) {
		return fmt.Errorf("%w: activation %q: input and output sizes differ", ErrNumeric, a.Name())
	}

	switch a.Activation() {
	case ActSigmoid:
		for i, v := range x {
			y[i] = sigmoid(v)
		}
	case ActReLU:
		for i, v := range x {
			if v > 0 {
				y[i] = v
			} else {
				y[i] = 0
			}
		}
	case ActTanh:
		for i, v := range x {
			y[i] = float32(math.Tanh(float64(v)))
		}
	case ActSoftmax:
		features := a.InputDims()[0].NumElements()
		softmaxRows(x, y, features)
	default:
		return fmt.Errorf("%w: activation %q: kind %q", ErrNumeric, a.Name(), a.Activation())
	}

	for i := 1; i < len(a.NetHidden()); i++ {
		if err := a.NetHidden()[i].Variable().CopyFrom(a.NetHidden()[0].Variable()); err != nil {
			return fmt.Errorf("%w: activation %q: %v", ErrNumeric, a.Name(), err)
		}
	}
	return nil
}

// BackwardInput computes the input gradient from the output gradient and
// the activation's own output value. This is the property the in-place
// optimizer depends on: the input value is never read here.
func (a *Activation) BackwardInput() error {
	y := a.NetHidden()[0].Variable().Data()
	dy := a.NetHidden()[0].Gradient().Data()
	dx := a.NetInput()[0].Gradient().Data()

	switch a.Activation() {
	case ActSigmoid:
		for i := range dx {
			dx[i] = dy[i] * y[i] * (1 - y[i])
		}
	case ActReLU:
		for i := range dx {
			if y[i] > 0 {
				dx[i] = dy[i]
			} else {
				dx[i] = 0
			}
		}
	case ActTanh:
		for i := range dx {
			dx[i] = dy[i] * (1 - y[i]*y[i])
		}
	case ActSoftmax:
		// dx = y ⊙ (dy - Σ dy⊙y) per sample.
		features := a.InputDims()[0].NumElements()
		for off := 0; off+features <= len(y); off += features {
			var dot float32
			for i := 0; i < features; i++ {
				dot += dy[off+i] * y[off+i]
			}
			for i := 0; i < features; i++ {
				dx[off+i] = y[off+i] * (dy[off+i] - dot)
			}
		}
	default:
		return fmt.Errorf("%w: activation %q: kind %q", ErrNumeric, a.Name(), a.Activation())
	}
	return nil
}

func sigmoid(v float32) float32 {
	return float32(1.0 / (1.0 + math.Exp(float64(-v))))
}

// softmaxRows computes a numerically stable softmax over each row of
// `features` contiguous elements, using the max-subtraction trick.
func softmaxRows(x, y []float32, features int) {
	for off := 0; off+features <= len(x); off += features {
		maxV := x[off]
		for i := 1; i < features; i++ {
			if x[off+i] > maxV {
				maxV = x[off+i]
			}
		}
		var sum float32
		for i := 0; i < features; i++ {
			e := float32(math.Exp(float64(x[off+i] - maxV)))
			y[off+i] = e
			sum += e
		}
		for i := 0; i < features; i++ {
			y[off+i] /= sum
		}
	}
}
