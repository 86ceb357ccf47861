package layer

import (
	"fmt"
	"math"

	"github.com/lattice-ml/lattice/internal/tensor"
)

// BatchNorm normalizes each feature over the batch:
//
//	y = gamma * (x - mean) / sqrt(var + eps) + beta
//
// Running statistics accumulated during training are used at inference
// time. BatchNorm is in-place eligible with the full-share rule: neither
// its input value nor its predecessor's output value is needed by its
// backward pass (it keeps the normalized values internally), so input and
// output can collapse into one buffer.
type BatchNorm struct {
	Base

	epsilon  float32
	momentum float32
	batch    int
	features int

	gamma     *tensor.RawTensor // [features]
	beta      *tensor.RawTensor // [features]
	gammaGrad *tensor.RawTensor
	betaGrad  *tensor.RawTensor

	runningMean *tensor.RawTensor
	runningVar  *tensor.RawTensor

	// Saved by Forward(training=true) for the backward pass.
	normalized *tensor.RawTensor // x_hat, [batch, features]
	invStd     *tensor.RawTensor // 1/sqrt(var+eps), [features]
}

// NewBatchNorm creates a batch-normalization operator.
func NewBatchNorm(epsilon, momentum float32) *BatchNorm {
	bn := &BatchNorm{
		Base:     NewBase(TypeBatchNorm),
		epsilon:  epsilon,
		momentum: momentum,
	}
	bn.SetTrainable(true)
	return bn
}

// SupportsInPlace marks batch normalization as eligible for aliasing.
func (bn *BatchNorm) SupportsInPlace() bool { return true }

// InPlaceKind selects the full-share rule.
func (bn *BatchNorm) InPlaceKind() InPlaceKind { return InPlaceFullShare }

// Initialize allocates parameters and running statistics.
func (bn *BatchNorm) Initialize(batch int) error {
	dims := bn.InputDims()
	if len(dims) != 1 || !dims[0].IsSet() {
		return fmt.Errorf("%w: batch_normalization %q: input shape unset", ErrConfiguration, bn.Name())
	}
	bn.batch = batch
	bn.features = dims[0].NumElements()

	paramShape := tensor.Shape{bn.features}
	for _, p := range []**tensor.RawTensor{
		&bn.gamma, &bn.beta, &bn.gammaGrad, &bn.betaGrad,
		&bn.runningMean, &bn.runningVar, &bn.invStd,
	} {
		t, err := tensor.NewRaw(paramShape)
		if err != nil {
			return fmt.Errorf("%w: batch_normalization %q: %v", ErrConfiguration, bn.Name(), err)
		}
		*p = t
	}
	saved, err := tensor.NewRaw(dims[0].WithBatch(batch))
	if err != nil {
		return fmt.Errorf("%w: batch_normalization %q: %v", ErrConfiguration, bn.Name(), err)
	}
	bn.normalized = saved

	bn.gamma.Fill(1)
	bn.runningVar.Fill(1)

	bn.SetOutputDims([]tensor.Shape{dims[0].Clone()})
	return nil
}

// Forward normalizes over the batch (training) or with running statistics
// (inference).
func (bn *BatchNorm) Forward(training bool) error {
	x := bn.NetInput()[0].Variable().Data()
	y := bn.NetHidden()[0].Variable().Data()
	f := bn.features
	if len(x) != bn.batch*f {
		return fmt.Errorf("%w: batch_normalization %q: buffer size mismatch", ErrNumeric, bn.Name())
	}

	gamma := bn.gamma.Data()
	beta := bn.beta.Data()

	if !training {
		mean := bn.runningMean.Data()
		variance := bn.runningVar.Data()
		for n := 0; n < bn.batch; n++ {
			for j := 0; j < f; j++ {
				inv := float32(1.0 / math.Sqrt(float64(variance[j]+bn.epsilon)))
				y[n*f+j] = gamma[j]*(x[n*f+j]-mean[j])*inv + beta[j]
			}
		}
		return nil
	}

	xhat := bn.normalized.Data()
	invStd := bn.invStd.Data()
	runMean := bn.runningMean.Data()
	runVar := bn.runningVar.Data()
	inv := 1.0 / float32(bn.batch)

	for j := 0; j < f; j++ {
		var mean float32
		for n := 0; n < bn.batch; n++ {
			mean += x[n*f+j]
		}
		mean *= inv

		var variance float32
		for n := 0; n < bn.batch; n++ {
			d := x[n*f+j] - mean
			variance += d * d
		}
		variance *= inv

		invStd[j] = float32(1.0 / math.Sqrt(float64(variance+bn.epsilon)))
		for n := 0; n < bn.batch; n++ {
			xhat[n*f+j] = (x[n*f+j] - mean) * invStd[j]
			y[n*f+j] = gamma[j]*xhat[n*f+j] + beta[j]
		}

		runMean[j] = bn.momentum*runMean[j] + (1-bn.momentum)*mean
		runVar[j] = bn.momentum*runVar[j] + (1-bn.momentum)*variance
	}
	return nil
}

// BackwardInput computes the input gradient from the saved normalized
// values; the raw input and output values are not consulted.
func (bn *BatchNorm) BackwardInput() error {
	dy := bn.NetHidden()[0].Gradient().Data()
	dx := bn.NetInput()[0].Gradient().Data()
	xhat := bn.normalized.Data()
	gamma := bn.gamma.Data()
	invStd := bn.invStd.Data()
	f := bn.features
	inv := 1.0 / float32(bn.batch)

	for j := 0; j < f; j++ {
		var sumDy, sumDyXhat float32
		for n := 0; n < bn.batch; n++ {
			sumDy += dy[n*f+j]
			sumDyXhat += dy[n*f+j] * xhat[n*f+j]
		}
		for n := 0; n < bn.batch; n++ {
			dx[n*f+j] = gamma[j] * invStd[j] *
				(dy[n*f+j] - inv*sumDy - xhat[n*f+j]*inv*sumDyXhat)
		}
	}
	return nil
}

// BackwardParams accumulates dgamma = Σ dy⊙x_hat and dbeta = Σ dy.
func (bn *BatchNorm) BackwardParams() error {
	dy := bn.NetHidden()[0].Gradient().Data()
	xhat := bn.normalized.Data()
	dgamma := bn.gammaGrad.Data()
	dbeta := bn.betaGrad.Data()
	f := bn.features

	for j := 0; j < f; j++ {
		for n := 0; n < bn.batch; n++ {
			dgamma[j] += dy[n*f+j] * xhat[n*f+j]
			dbeta[j] += dy[n*f+j]
		}
	}
	return nil
}
