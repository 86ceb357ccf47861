package layer

import (
	"fmt"

	"github.com/lattice-ml/lattice/internal/tensor"
)

// Output is the fan-out duplicator: one input copied to every declared
// output. The realizer inserts it downstream of a node that declares
// multiple outputs without being a duplicator itself.
type Output struct {
	Base
}

// NewOutput creates a fan-out duplicator.
func NewOutput() *Output {
	return &Output{Base: NewBase(TypeOutput)}
}

// Initialize mirrors the single input shape to every output slot.
func (o *Output) Initialize(batch int) error {
	dims := o.InputDims()
	if len(dims) != 1 || !dims[0].IsSet() {
		return fmt.Errorf("%w: output %q: requires one fully specified input", ErrConfiguration, o.Name())
	}
	outs := len(o.OutputNames())
	if outs == 0 {
		return fmt.Errorf("%w: output %q: no outputs declared", ErrConfiguration, o.Name())
	}
	outputDims := make([]tensor.Shape, outs)
	for i := range outputDims {
		outputDims[i] = dims[0].Clone()
	}
	o.SetOutputDims(outputDims)
	return nil
}

// Forward copies the input into every output slot.
func (o *Output) Forward(training bool) error {
	for i := range o.NetHidden() {
		if err := o.NetHidden()[i].Variable().CopyFrom(o.NetInput()[0].Variable()); err != nil {
			return fmt.Errorf("%w: output %q: %v", ErrNumeric, o.Name(), err)
		}
	}
	return nil
}

// BackwardInput sums the gradients of every output into the input gradient.
func (o *Output) BackwardInput() error {
	dx := o.NetInput()[0].Gradient().Data()
	for i := range dx {
		dx[i] = 0
	}
	for _, out := range o.NetHidden() {
		dy := out.Gradient().Data()
		if len(dy) != len(dx) {
			return fmt.Errorf("%w: output %q: gradient size mismatch", ErrNumeric, o.Name())
		}
		for i, v := range dy {
			dx[i] += v
		}
	}
	return nil
}
