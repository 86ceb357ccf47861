package layer

import (
	"fmt"
	"math"

	"github.com/lattice-ml/lattice/internal/tensor"
)

// Conv2D is a 2D convolution computed directly (no im2col).
//
// Input shape:  [in_channels, height, width]
// Weight shape: [filters, in_channels, kernel_h, kernel_w]
// Output shape: [filters, out_h, out_w]
//
// where
//
//	out_h = (height + 2*padding - kernel_h) / stride + 1
//	out_w = (width  + 2*padding - kernel_w) / stride + 1
type Conv2D struct {
	Base

	filters  int
	kernelH  int
	kernelW  int
	stride   int
	padding  int
	batch    int
	channels int
	inH, inW int

	weight     *tensor.RawTensor
	bias       *tensor.RawTensor
	weightGrad *tensor.RawTensor
	biasGrad   *tensor.RawTensor
}

// NewConv2D creates a convolution operator.
func NewConv2D(filters, kernelH, kernelW, stride, padding int) *Conv2D {
	c := &Conv2D{
		Base:    NewBase(TypeConv2D),
		filters: filters,
		kernelH: kernelH,
		kernelW: kernelW,
		stride:  stride,
		padding: padding,
	}
	c.SetTrainable(true)
	return c
}

// Configure resets the convolution geometry before initialization.
func (c *Conv2D) Configure(filters, kernelH, kernelW, stride, padding int) {
	c.filters = filters
	c.kernelH = kernelH
	c.kernelW = kernelW
	c.stride = stride
	c.padding = padding
}

// Initialize validates geometry and allocates Xavier-initialized filters.
func (c *Conv2D) Initialize(batch int) error {
	if c.filters <= 0 || c.kernelH <= 0 || c.kernelW <= 0 || c.stride <= 0 || c.padding < 0 {
		return fmt.Errorf("%w: conv2d %q: invalid geometry (filters=%d kernel=%dx%d stride=%d padding=%d)",
			ErrConfiguration, c.Name(), c.filters, c.kernelH, c.kernelW, c.stride, c.padding)
	}
	dims := c.InputDims()
	if len(dims) != 1 || len(dims[0]) != 3 || !dims[0].IsSet() {
		return fmt.Errorf("%w: conv2d %q: input must be [channels, height, width]", ErrConfiguration, c.Name())
	}
	c.batch = batch
	c.channels, c.inH, c.inW = dims[0][0], dims[0][1], dims[0][2]

	outH := (c.inH+2*c.padding-c.kernelH)/c.stride + 1
	outW := (c.inW+2*c.padding-c.kernelW)/c.stride + 1
	if outH <= 0 || outW <= 0 {
		return fmt.Errorf("%w: conv2d %q: kernel %dx%d does not fit input %s",
			ErrConfiguration, c.Name(), c.kernelH, c.kernelW, dims[0])
	}

	var err error
	wShape := tensor.Shape{c.filters, c.channels, c.kernelH, c.kernelW}
	if c.weight, err = tensor.NewRaw(wShape); err != nil {
		return fmt.Errorf("%w: conv2d %q: %v", ErrConfiguration, c.Name(), err)
	}
	if c.weightGrad, err = tensor.NewRaw(wShape); err != nil {
		return fmt.Errorf("%w: conv2d %q: %v", ErrConfiguration, c.Name(), err)
	}
	if c.bias, err = tensor.NewRaw(tensor.Shape{c.filters}); err != nil {
		return fmt.Errorf("%w: conv2d %q: %v", ErrConfiguration, c.Name(), err)
	}
	if c.biasGrad, err = tensor.NewRaw(tensor.Shape{c.filters}); err != nil {
		return fmt.Errorf("%w: conv2d %q: %v", ErrConfiguration, c.Name(), err)
	}

	fanIn := c.channels * c.kernelH * c.kernelW
	fanOut := c.filters * c.kernelH * c.kernelW
	limit := float32(math.Sqrt(6.0 / float64(fanIn+fanOut)))
	c.weight.Randomize(limit)

	c.SetOutputDims([]tensor.Shape{{c.filters, outH, outW}})
	return nil
}

// Forward computes the direct convolution for every sample.
func (c *Conv2D) Forward(training bool) error {
	x := c.NetInput()[0].Variable().Data()
	y := c.NetHidden()[0].Variable().Data()
	w := c.weight.Data()
	b := c.bias.Data()

	out := c.OutputDims()[0]
	outH, outW := out[1], out[2]
	inPlane := c.inH * c.inW
	inSample := c.channels * inPlane
	outPlane := outH * outW
	outSample := c.filters * outPlane

	for n := 0; n < c.batch; n++ {
		for f := 0; f < c.filters; f++ {
			for oy := 0; oy < outH; oy++ {
				for ox := 0; ox < outW; ox++ {
					sum := b[f]
					for ch := 0; ch < c.channels; ch++ {
						for ky := 0; ky < c.kernelH; ky++ {
							iy := oy*c.stride + ky - c.padding
							if iy < 0 || iy >= c.inH {
								continue
							}
							for kx := 0; kx < c.kernelW; kx++ {
								ix := ox*c.stride + kx - c.padding
								if ix < 0 || ix >= c.inW {
									continue
								}
								xv := x[n*inSample+ch*inPlane+iy*c.inW+ix]
								wv := w[((f*c.channels+ch)*c.kernelH+ky)*c.kernelW+kx]
								sum += xv * wv
							}
						}
					}
					y[n*outSample+f*outPlane+oy*outW+ox] = sum
				}
			}
		}
	}
	return nil
}

// BackwardInput scatters output gradients back through the filters.
func (c *Conv2D) BackwardInput() error {
	dy := c.NetHidden()[0].Gradient().Data()
	dx := c.NetInput()[0].Gradient().Data()
	w := c.weight.Data()

	out := c.OutputDims()[0]
	outH, outW := out[1], out[2]
	inPlane := c.inH * c.inW
	inSample := c.channels * inPlane
	outPlane := outH * outW
	outSample := c.filters * outPlane

	for i := range dx {
		dx[i] = 0
	}
	for n := 0; n < c.batch; n++ {
		for f := 0; f < c.filters; f++ {
			for oy := 0; oy < outH; oy++ {
				for ox := 0; ox < outW; ox++ {
					g := dy[n*outSample+f*outPlane+oy*outW+ox]
					if g == 0 {
						continue
					}
					for ch := 0; ch < c.channels; ch++ {
						for ky := 0; ky < c.kernelH; ky++ {
							iy := oy*c.stride + ky - c.padding
							if iy < 0 || iy >= c.inH {
								continue
							}
							for kx := 0; kx < c.kernelW; kx++ {
								ix := ox*c.stride + kx - c.padding
								if ix < 0 || ix >= c.inW {
									continue
								}
								dx[n*inSample+ch*inPlane+iy*c.inW+ix] +=
									g * w[((f*c.channels+ch)*c.kernelH+ky)*c.kernelW+kx]
							}
						}
					}
				}
			}
		}
	}
	return nil
}

// BackwardParams accumulates filter and bias gradients.
func (c *Conv2D) BackwardParams() error {
	x := c.NetInput()[0].Variable().Data()
	dy := c.NetHidden()[0].Gradient().Data()
	dw := c.weightGrad.Data()
	db := c.biasGrad.Data()

	out := c.OutputDims()[0]
	outH, outW := out[1], out[2]
	inPlane := c.inH * c.inW
	inSample := c.channels * inPlane
	outPlane := outH * outW
	outSample := c.filters * outPlane

	for n := 0; n < c.batch; n++ {
		for f := 0; f < c.filters; f++ {
			for oy := 0; oy < outH; oy++ {
				for ox := 0; ox < outW; ox++ {
					g := dy[n*outSample+f*outPlane+oy*outW+ox]
					if g == 0 {
						continue
					}
					db[f] += g
					for ch := 0; ch < c.channels; ch++ {
						for ky := 0; ky < c.kernelH; ky++ {
							iy := oy*c.stride + ky - c.padding
							if iy < 0 || iy >= c.inH {
								continue
							}
							for kx := 0; kx < c.kernelW; kx++ {
								ix := ox*c.stride + kx - c.padding
								if ix < 0 || ix >= c.inW {
									continue
								}
								dw[((f*c.channels+ch)*c.kernelH+ky)*c.kernelW+kx] +=
									g * x[n*inSample+ch*inPlane+iy*c.inW+ix]
							}
						}
					}
				}
			}
		}
	}
	return nil
}
