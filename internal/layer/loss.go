package layer

import (
	"fmt"
	"math"

	"github.com/lattice-ml/lattice/internal/tensor"
)

// Loss is the terminal operator. It passes predictions through to its
// output slot (applying the fused activation for the stable cross-entropy
// variants) and, when targets are bound, computes the scalar loss.
//
// Plain LossCrossEntropy is never executable: the realizer either fuses it
// with a preceding sigmoid/softmax activation into one of the stable
// variants or rejects the build.
type Loss struct {
	Base

	kind    LossKind
	targets *tensor.RawTensor
	value   float32
}

// NewLoss creates a loss operator of the given kind.
func NewLoss(kind LossKind) *Loss {
	l := &Loss{Base: NewBase(TypeLoss), kind: kind}
	return l
}

// SetLossKind updates the loss kind; called by the realizer when fusing.
func (l *Loss) SetLossKind(kind LossKind) {
	l.kind = kind
}

// LossKind returns the configured kind.
func (l *Loss) LossKind() LossKind {
	return l.kind
}

// SetTargets binds the ground-truth tensor. A nil target turns Forward
// into a pure passthrough.
func (l *Loss) SetTargets(t *tensor.RawTensor) {
	l.targets = t
}

// Value returns the loss computed by the most recent Forward.
func (l *Loss) Value() float32 {
	return l.value
}

// Initialize validates the kind and mirrors the input shape.
func (l *Loss) Initialize(batch int) error {
	switch l.kind {
	case LossMSE, LossCrossEntropySigmoid, LossCrossEntropySoftmax:
	case LossCrossEntropy:
		return fmt.Errorf("%w: loss %q: cross_entropy requires a preceding sigmoid or softmax activation to fuse with",
			ErrNotSupported, l.Name())
	default:
		return fmt.Errorf("%w: loss %q: cannot initialize kind %q", ErrConfiguration, l.Name(), l.kind)
	}
	dims := l.InputDims()
	if len(dims) != 1 || !dims[0].IsSet() {
		return fmt.Errorf("%w: loss %q: input shape unset", ErrConfiguration, l.Name())
	}
	l.SetOutputDims([]tensor.Shape{dims[0].Clone()})
	return nil
}

// Forward fills the output slot with the (activated) predictions and
// computes the scalar loss when targets are bound.
func (l *Loss) Forward(training bool) error {
	x := l.NetInput()[0].Variable().Data()
	y := l.NetHidden()[0].Variable().Data()
	if len(x) != len(y) {
		return fmt.Errorf("%w: loss %q: buffer size mismatch", ErrNumeric, l.Name())
	}

	features := l.InputDims()[0].NumElements()
	switch l.kind {
	case LossMSE:
		copy(y, x)
	case LossCrossEntropySigmoid:
		for i, v := range x {
			y[i] = sigmoid(v)
		}
	case LossCrossEntropySoftmax:
		softmaxRows(x, y, features)
	default:
		return fmt.Errorf("%w: loss %q: kind %q", ErrNumeric, l.Name(), l.kind)
	}

	if l.targets == nil {
		l.value = 0
		return nil
	}
	t := l.targets.Data()
	if len(t) != len(x) {
		return fmt.Errorf("%w: loss %q: targets have %d elements, want %d", ErrNumeric, l.Name(), len(t), len(x))
	}

	batch := len(x) / features
	switch l.kind {
	case LossMSE:
		var sum float64
		for i := range x {
			d := float64(x[i] - t[i])
			sum += d * d
		}
		l.value = float32(sum / float64(len(x)))
	case LossCrossEntropySigmoid:
		// Stable binary cross-entropy from logits:
		// max(x,0) - x*t + log(1 + exp(-|x|)).
		var sum float64
		for i, v := range x {
			m := float64(v)
			if m < 0 {
				m = 0
			}
			sum += m - float64(v)*float64(t[i]) +
				math.Log1p(math.Exp(-math.Abs(float64(v))))
		}
		l.value = float32(sum / float64(len(x)))
	case LossCrossEntropySoftmax:
		// -Σ t·log softmax(x) per sample via log-sum-exp.
		var sum float64
		for n := 0; n < batch; n++ {
			row := x[n*features : (n+1)*features]
			maxV := row[0]
			for _, v := range row[1:] {
				if v > maxV {
					maxV = v
				}
			}
			var lse float64
			for _, v := range row {
				lse += math.Exp(float64(v - maxV))
			}
			lse = math.Log(lse) + float64(maxV)
			for i, v := range row {
				sum -= float64(t[n*features+i]) * (float64(v) - lse)
			}
		}
		l.value = float32(sum / float64(batch))
	}
	return nil
}

// BackwardInput writes the loss gradient into the input gradient slot.
// For both fused cross-entropy kinds this is the well-known (y - t) form.
func (l *Loss) BackwardInput() error {
	if l.targets == nil {
		return fmt.Errorf("%w: loss %q: backward requires targets", ErrNumeric, l.Name())
	}
	y := l.NetHidden()[0].Variable().Data()
	x := l.NetInput()[0].Variable().Data()
	t := l.targets.Data()
	dx := l.NetInput()[0].Gradient().Data()

	features := l.InputDims()[0].NumElements()
	batch := len(x) / features
	switch l.kind {
	case LossMSE:
		scale := 2.0 / float32(len(x))
		for i := range dx {
			dx[i] = scale * (x[i] - t[i])
		}
	case LossCrossEntropySigmoid:
		scale := 1.0 / float32(len(x))
		for i := range dx {
			dx[i] = scale * (y[i] - t[i])
		}
	case LossCrossEntropySoftmax:
		scale := 1.0 / float32(batch)
		for i := range dx {
			dx[i] = scale * (y[i] - t[i])
		}
	default:
		return fmt.Errorf("%w: loss %q: kind %q", ErrNumeric, l.Name(), l.kind)
	}
	return nil
}
