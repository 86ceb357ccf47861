package layer

import (
	"fmt"

	"github.com/lattice-ml/lattice/internal/tensor"
)

// Concat is a fan-in combiner that concatenates its inputs along the
// leading feature axis. Like Addition it is exempt from fan-in
// realization: it handles multiple inputs natively.
type Concat struct {
	Base
}

// NewConcat creates a concat combiner.
func NewConcat() *Concat {
	return &Concat{Base: NewBase(TypeConcat)}
}

// Initialize sums the leading axis over inputs; trailing axes must match.
func (c *Concat) Initialize(batch int) error {
	dims := c.InputDims()
	if len(dims) == 0 {
		return fmt.Errorf("%w: concat %q: no inputs", ErrConfiguration, c.Name())
	}
	lead := 0
	for i, d := range dims {
		if !d.IsSet() {
			return fmt.Errorf("%w: concat %q: input %d shape unset", ErrConfiguration, c.Name(), i)
		}
		if len(d) != len(dims[0]) || !d[1:].Equal(dims[0][1:]) {
			return fmt.Errorf("%w: concat %q: input %d shape %s incompatible with %s",
				ErrConfiguration, c.Name(), i, d, dims[0])
		}
		lead += d[0]
	}
	out := dims[0].Clone()
	out[0] = lead
	c.SetOutputDims([]tensor.Shape{out})
	return nil
}

// Forward writes each input's samples into its band of the output.
func (c *Concat) Forward(training bool) error {
	y := c.NetHidden()[0].Variable().Data()
	outSample := c.OutputDims()[0].NumElements()
	offset := 0
	for idx, in := range c.NetInput() {
		x := in.Variable().Data()
		inSample := c.InputDims()[idx].NumElements()
		batch := len(x) / inSample
		for n := 0; n < batch; n++ {
			copy(y[n*outSample+offset:n*outSample+offset+inSample], x[n*inSample:(n+1)*inSample])
		}
		offset += inSample
	}
	return nil
}

// BackwardInput slices the output gradient back into per-input bands.
func (c *Concat) BackwardInput() error {
	dy := c.NetHidden()[0].Gradient().Data()
	outSample := c.OutputDims()[0].NumElements()
	offset := 0
	for idx, in := range c.NetInput() {
		dx := in.Gradient().Data()
		inSample := c.InputDims()[idx].NumElements()
		batch := len(dx) / inSample
		for n := 0; n < batch; n++ {
			copy(dx[n*inSample:(n+1)*inSample], dy[n*outSample+offset:n*outSample+offset+inSample])
		}
		offset += inSample
	}
	return nil
}
