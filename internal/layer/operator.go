package layer

import (
	"github.com/lattice-ml/lattice/internal/storage"
	"github.com/lattice-ml/lattice/internal/tensor"
)

// Operator is the capability interface every graph node wraps. It combines
// identity (name, type tag), connectivity (ordered peer-name lists), shape
// metadata, in-place eligibility, and the numeric operations.
//
// The input and output name lists bind positionally to the operator's
// storage slots: input i is read from NetInput()[i], output j is written to
// NetHidden()[j]. The graph realizer mutates the name lists while rewriting
// the network; the name registry writes the final unique name back through
// SetName.
type Operator interface {
	// Name returns the node name, unique per graph after realization.
	Name() string
	SetName(name string)

	// Type returns the operator's type tag, e.g. "fully_connected".
	Type() string

	InputNames() []string
	SetInputNames(names []string)
	OutputNames() []string
	SetOutputNames(names []string)

	// InputDims and OutputDims hold one shape per slot, positionally
	// matching the name lists. Input dims of non-source nodes are filled by
	// the edge-resolution and finalization passes; output dims are computed
	// by Initialize.
	InputDims() []tensor.Shape
	SetInputDims(dims []tensor.Shape)
	OutputDims() []tensor.Shape

	// Activation is the activation kind this operator requests (realized as
	// a separate downstream node) or, for the activation operator itself,
	// the kind it applies.
	Activation() ActivationKind
	SetActivation(kind ActivationKind)

	// FlattenRequested reports whether a trailing flatten adapter should be
	// realized after this operator.
	FlattenRequested() bool

	// Trainable reports whether the operator carries parameters updated by
	// an optimizer.
	Trainable() bool

	// SupportsInPlace reports whether the operator is eligible for the
	// buffer-aliasing pass; InPlaceKind selects the rule to apply.
	SupportsInPlace() bool
	InPlaceKind() InPlaceKind

	// NetInput and NetHidden are the storage slots bound to the operator's
	// inputs and outputs. A consumer's input slot is the same *VarGrad as
	// the producer's output slot.
	NetInput() []*storage.VarGrad
	SetNetInput(slots []*storage.VarGrad)
	SetNetInputSlot(i int, slot *storage.VarGrad)
	NetHidden() []*storage.VarGrad
	SetNetHidden(slots []*storage.VarGrad)
	SetNetHiddenSlot(i int, slot *storage.VarGrad)

	// Initialize computes output dimensions from the (already set) input
	// dimensions and allocates parameters for the given batch size.
	Initialize(batch int) error

	// Forward computes this operator's outputs from its inputs. Failures
	// wrap ErrNumeric and abort the whole pass.
	Forward(training bool) error

	// BackwardInput propagates gradients from the output slots to the input
	// slots.
	BackwardInput() error

	// BackwardParams accumulates parameter gradients. No-op for operators
	// without parameters.
	BackwardParams() error
}
