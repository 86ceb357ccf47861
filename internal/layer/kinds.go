package layer

import "strings"

// Type tags for the built-in operators. The realizer branches on these when
// deciding which adapter nodes to insert.
const (
	TypeInput          = "input"
	TypeFullyConnected = "fully_connected"
	TypeConv2D         = "conv2d"
	TypeBatchNorm      = "batch_normalization"
	TypeActivation     = "activation"
	TypeFlatten        = "flatten"
	TypeAddition       = "addition"
	TypeConcat         = "concat"
	TypeOutput         = "output"
	TypeLoss           = "loss"
)

// ActivationKind identifies an element-wise activation function.
type ActivationKind int

// Supported activation kinds. ActUnknown is what ParseActivation returns for
// an unrecognized name; realizing it is a configuration error.
const (
	ActNone ActivationKind = iota
	ActSigmoid
	ActSoftmax
	ActReLU
	ActTanh
	ActUnknown
)

// ParseActivation maps a user-facing name to an activation kind. The empty
// string means "no activation requested".
func ParseActivation(name string) ActivationKind {
	switch strings.ToLower(name) {
	case "", "none":
		return ActNone
	case "sigmoid":
		return ActSigmoid
	case "softmax":
		return ActSoftmax
	case "relu":
		return ActReLU
	case "tanh":
		return ActTanh
	default:
		return ActUnknown
	}
}

// String returns the canonical activation name.
func (k ActivationKind) String() string {
	switch k {
	case ActNone:
		return "none"
	case ActSigmoid:
		return "sigmoid"
	case ActSoftmax:
		return "softmax"
	case ActReLU:
		return "relu"
	case ActTanh:
		return "tanh"
	default:
		return "unknown"
	}
}

// LossKind identifies the terminal loss computation.
type LossKind int

// Supported loss kinds. The fused cross-entropy variants replace a plain
// cross-entropy preceded by the matching activation; they compute the
// activation and the loss together from logits for numerical stability.
const (
	LossNone LossKind = iota
	LossMSE
	LossCrossEntropy
	LossCrossEntropySigmoid
	LossCrossEntropySoftmax
	LossUnknown
)

// ParseLoss maps a user-facing name to a loss kind.
func ParseLoss(name string) LossKind {
	switch strings.ToLower(name) {
	case "", "none":
		return LossNone
	case "mse":
		return LossMSE
	case "cross_entropy":
		return LossCrossEntropy
	case "cross_entropy_sigmoid":
		return LossCrossEntropySigmoid
	case "cross_entropy_softmax":
		return LossCrossEntropySoftmax
	default:
		return LossUnknown
	}
}

// String returns the canonical loss name.
func (k LossKind) String() string {
	switch k {
	case LossNone:
		return "none"
	case LossMSE:
		return "mse"
	case LossCrossEntropy:
		return "cross_entropy"
	case LossCrossEntropySigmoid:
		return "cross_entropy_sigmoid"
	case LossCrossEntropySoftmax:
		return "cross_entropy_softmax"
	default:
		return "unknown"
	}
}

// InPlaceKind selects the buffer-aliasing rule applied to an operator whose
// storage may be merged with its predecessor's.
type InPlaceKind int

const (
	// InPlaceNone: the operator cannot run in-place.
	InPlaceNone InPlaceKind = iota

	// InPlaceFullShare: neither the predecessor's output value nor this
	// operator's input value is needed after it runs. Input slot and the
	// predecessor's output slot collapse into this operator's output slot
	// (batch normalization).
	InPlaceFullShare

	// InPlaceOutputShare: the operator's backward pass needs its own output,
	// not its input. The predecessor's output value and gradient buffers are
	// redirected to this operator's output value buffer (activation).
	InPlaceOutputShare
)
