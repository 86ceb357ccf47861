package layer

import (
	"fmt"
	"math"

	"github.com/lattice-ml/lattice/internal/tensor"
)

// FullyConnected is a dense layer: y = x·W + b.
//
// Input shape:  [in_features] (flattened per sample)
// Weight shape: [in_features, out_features]
// Bias shape:   [out_features]
// Output shape: [out_features]
type FullyConnected struct {
	Base

	units int
	batch int

	weight     *tensor.RawTensor // [in, out]
	bias       *tensor.RawTensor // [out]
	weightGrad *tensor.RawTensor
	biasGrad   *tensor.RawTensor
}

// NewFullyConnected creates a dense layer with the given output width.
func NewFullyConnected(units int) *FullyConnected {
	fc := &FullyConnected{Base: NewBase(TypeFullyConnected), units: units}
	fc.SetTrainable(true)
	return fc
}

// SetUnits sets the output width before initialization.
func (fc *FullyConnected) SetUnits(units int) { fc.units = units }

// Initialize allocates parameters with Xavier-uniform weights.
func (fc *FullyConnected) Initialize(batch int) error {
	if fc.units <= 0 {
		return fmt.Errorf("%w: fully_connected %q: units must be positive, got %d", ErrConfiguration, fc.Name(), fc.units)
	}
	dims := fc.InputDims()
	if len(dims) != 1 {
		return fmt.Errorf("%w: fully_connected %q expects one input, got %d", ErrConfiguration, fc.Name(), len(dims))
	}
	if !dims[0].IsSet() {
		return fmt.Errorf("%w: fully_connected %q: input shape unset", ErrConfiguration, fc.Name())
	}
	inFeatures := dims[0].NumElements()

	var err error
	if fc.weight, err = tensor.NewRaw(tensor.Shape{inFeatures, fc.units}); err != nil {
		return fmt.Errorf("%w: fully_connected %q: %v", ErrConfiguration, fc.Name(), err)
	}
	if fc.bias, err = tensor.NewRaw(tensor.Shape{fc.units}); err != nil {
		return fmt.Errorf("%w: fully_connected %q: %v", ErrConfiguration, fc.Name(), err)
	}
	if fc.weightGrad, err = tensor.NewRaw(tensor.Shape{inFeatures, fc.units}); err != nil {
		return fmt.Errorf("%w: fully_connected %q: %v", ErrConfiguration, fc.Name(), err)
	}
	if fc.biasGrad, err = tensor.NewRaw(tensor.Shape{fc.units}); err != nil {
		return fmt.Errorf("%w: fully_connected %q: %v", ErrConfiguration, fc.Name(), err)
	}

	// Xavier-uniform: limit = sqrt(6 / (fan_in + fan_out)).
	limit := float32(math.Sqrt(6.0 / float64(inFeatures+fc.units)))
	fc.weight.Randomize(limit)

	fc.batch = batch
	fc.SetOutputDims([]tensor.Shape{{fc.units}})
	return nil
}

// Weight returns the weight buffer (for tests and serialization).
func (fc *FullyConnected) Weight() *tensor.RawTensor { return fc.weight }

// Bias returns the bias buffer.
func (fc *FullyConnected) Bias() *tensor.RawTensor { return fc.bias }

// Forward computes y = x·W + b for every sample in the batch.
func (fc *FullyConnected) Forward(training bool) error {
	x := fc.NetInput()[0].Variable().Data()
	y := fc.NetHidden()[0].Variable().Data()
	w := fc.weight.Data()
	b := fc.bias.Data()

	in := fc.weight.Shape()[0]
	out := fc.units
	if len(x) != fc.batch*in || len(y) != fc.batch*out {
		return fmt.Errorf("%w: fully_connected %q: buffer sizes do not match initialized dims", ErrNumeric, fc.Name())
	}

	for n := 0; n < fc.batch; n++ {
		xi := x[n*in : (n+1)*in]
		yi := y[n*out : (n+1)*out]
		copy(yi, b)
		for i, xv := range xi {
			if xv == 0 {
				continue
			}
			wi := w[i*out : (i+1)*out]
			for j, wv := range wi {
				yi[j] += xv * wv
			}
		}
	}
	return nil
}

// BackwardInput computes dx = dy·Wᵀ into the input gradient slot.
func (fc *FullyConnected) BackwardInput() error {
	dy := fc.NetHidden()[0].Gradient().Data()
	dx := fc.NetInput()[0].Gradient().Data()
	w := fc.weight.Data()

	in := fc.weight.Shape()[0]
	out := fc.units
	for n := 0; n < fc.batch; n++ {
		dyi := dy[n*out : (n+1)*out]
		dxi := dx[n*in : (n+1)*in]
		for i := range dxi {
			var sum float32
			wi := w[i*out : (i+1)*out]
			for j, wv := range wi {
				sum += dyi[j] * wv
			}
			dxi[i] = sum
		}
	}
	return nil
}

// BackwardParams accumulates dW = xᵀ·dy and db = Σ dy.
func (fc *FullyConnected) BackwardParams() error {
	x := fc.NetInput()[0].Variable().Data()
	dy := fc.NetHidden()[0].Gradient().Data()
	dw := fc.weightGrad.Data()
	db := fc.biasGrad.Data()

	in := fc.weight.Shape()[0]
	out := fc.units
	for n := 0; n < fc.batch; n++ {
		xi := x[n*in : (n+1)*in]
		dyi := dy[n*out : (n+1)*out]
		for i, xv := range xi {
			dwi := dw[i*out : (i+1)*out]
			for j, gv := range dyi {
				dwi[j] += xv * gv
			}
		}
		for j, gv := range dyi {
			db[j] += gv
		}
	}
	return nil
}
