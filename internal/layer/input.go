package layer

import (
	"fmt"

	"github.com/lattice-ml/lattice/internal/tensor"
)

// Input is the source operator: it forwards externally supplied data into
// the graph. Its input dimensions must be fully specified up front since
// there is no upstream node to infer them from.
type Input struct {
	Base
}

// NewInput creates an input operator. shape may be nil and set later via
// SetInputDims.
func NewInput(shape tensor.Shape) *Input {
	in := &Input{Base: NewBase(TypeInput)}
	if shape != nil {
		in.SetInputDims([]tensor.Shape{shape.Clone()})
	}
	return in
}

// Initialize validates the declared shape and mirrors it to the output.
func (in *Input) Initialize(batch int) error {
	dims := in.InputDims()
	if len(dims) != 1 || !dims[0].IsSet() {
		return fmt.Errorf("%w: input layer %q requires a fully specified input shape", ErrConfiguration, in.Name())
	}
	in.SetOutputDims([]tensor.Shape{dims[0].Clone()})
	return nil
}

// Forward copies the externally supplied buffer to the output slot.
func (in *Input) Forward(training bool) error {
	if err := in.NetHidden()[0].Variable().CopyFrom(in.NetInput()[0].Variable()); err != nil {
		return fmt.Errorf("%w: input %q: %v", ErrNumeric, in.Name(), err)
	}
	return nil
}

// BackwardInput is a no-op: there is nothing upstream of a source node.
func (in *Input) BackwardInput() error { return nil }
