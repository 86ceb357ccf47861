package layer

import (
	"fmt"

	"github.com/lattice-ml/lattice/internal/tensor"
)

// Flatten collapses a multi-dimensional per-sample shape into one axis.
// Inserted automatically when an upstream operator requests a trailing
// flatten.
type Flatten struct {
	Base
}

// NewFlatten creates a flatten adapter.
func NewFlatten() *Flatten {
	return &Flatten{Base: NewBase(TypeFlatten)}
}

// Initialize mirrors the input element count to every output slot.
func (f *Flatten) Initialize(batch int) error {
	dims := f.InputDims()
	if len(dims) != 1 || !dims[0].IsSet() {
		return fmt.Errorf("%w: flatten %q: input shape unset", ErrConfiguration, f.Name())
	}
	flat := tensor.Shape{dims[0].NumElements()}
	outs := len(f.OutputNames())
	if outs == 0 {
		outs = 1
	}
	outputDims := make([]tensor.Shape, outs)
	for i := range outputDims {
		outputDims[i] = flat.Clone()
	}
	f.SetOutputDims(outputDims)
	return nil
}

// Forward copies the input buffer; only the shape changes.
func (f *Flatten) Forward(training bool) error {
	for i := range f.NetHidden() {
		if err := f.NetHidden()[i].Variable().CopyFrom(f.NetInput()[0].Variable()); err != nil {
			return fmt.Errorf("%w: flatten %q: %v", ErrNumeric, f.Name(), err)
		}
	}
	return nil
}

// BackwardInput copies the output gradient back unchanged.
func (f *Flatten) BackwardInput() error {
	if err := f.NetInput()[0].Gradient().CopyFrom(f.NetHidden()[0].Gradient()); err != nil {
		return fmt.Errorf("%w: flatten %q: %v", ErrNumeric, f.Name(), err)
	}
	return nil
}
