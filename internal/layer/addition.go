package layer

import (
	"fmt"

	"github.com/lattice-ml/lattice/internal/tensor"
)

// Addition is the fan-in combiner: it sums any number of equally shaped
// inputs into one output. The realizer inserts it upstream of a node that
// declares multiple inputs without being a combiner itself.
type Addition struct {
	Base
}

// NewAddition creates an addition combiner.
func NewAddition() *Addition {
	return &Addition{Base: NewBase(TypeAddition)}
}

// Initialize requires all input shapes to match and mirrors them to the
// output.
func (a *Addition) Initialize(batch int) error {
	dims := a.InputDims()
	if len(dims) == 0 {
		return fmt.Errorf("%w: addition %q: no inputs", ErrConfiguration, a.Name())
	}
	for i, d := range dims {
		if !d.IsSet() {
			return fmt.Errorf("%w: addition %q: input %d shape unset", ErrConfiguration, a.Name(), i)
		}
		if !d.Equal(dims[0]) {
			return fmt.Errorf("%w: addition %q: input %d shape %s does not match %s",
				ErrConfiguration, a.Name(), i, d, dims[0])
		}
	}
	a.SetOutputDims([]tensor.Shape{dims[0].Clone()})
	return nil
}

// Forward sums all inputs element-wise.
func (a *Addition) Forward(training bool) error {
	y := a.NetHidden()[0].Variable().Data()
	for i := range y {
		y[i] = 0
	}
	for _, in := range a.NetInput() {
		x := in.Variable().Data()
		if len(x) != len(y) {
			return fmt.Errorf("%w: addition %q: input size mismatch", ErrNumeric, a.Name())
		}
		for i, v := range x {
			y[i] += v
		}
	}
	return nil
}

// BackwardInput copies the output gradient to every input gradient.
func (a *Addition) BackwardInput() error {
	dy := a.NetHidden()[0].Gradient()
	for _, in := range a.NetInput() {
		if err := in.Gradient().CopyFrom(dy); err != nil {
			return fmt.Errorf("%w: addition %q: %v", ErrNumeric, a.Name(), err)
		}
	}
	return nil
}
