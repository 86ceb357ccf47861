package layer

import (
	"github.com/lattice-ml/lattice/internal/storage"
	"github.com/lattice-ml/lattice/internal/tensor"
)

// Base carries the bookkeeping shared by every operator: identity,
// connectivity, shape metadata and storage slots. Concrete operators embed
// it and implement Initialize and Forward; trainable operators also
// override Trainable, BackwardInput and BackwardParams.
type Base struct {
	name        string
	typeTag     string
	inputNames  []string
	outputNames []string
	inputDims   []tensor.Shape
	outputDims  []tensor.Shape
	activation  ActivationKind
	flatten     bool
	trainable   bool
	netInput    []*storage.VarGrad
	netHidden   []*storage.VarGrad
}

// NewBase creates the shared bookkeeping for an operator of the given type.
func NewBase(typeTag string) Base {
	return Base{typeTag: typeTag}
}

// Name returns the node name.
func (b *Base) Name() string { return b.name }

// SetName sets the node name; called by the name registry.
func (b *Base) SetName(name string) { b.name = name }

// Type returns the operator's type tag.
func (b *Base) Type() string { return b.typeTag }

// InputNames returns the ordered upstream peer names.
func (b *Base) InputNames() []string { return b.inputNames }

// SetInputNames replaces the upstream peer names.
func (b *Base) SetInputNames(names []string) { b.inputNames = names }

// OutputNames returns the ordered downstream peer names.
func (b *Base) OutputNames() []string { return b.outputNames }

// SetOutputNames replaces the downstream peer names.
func (b *Base) SetOutputNames(names []string) { b.outputNames = names }

// InputDims returns one shape per input slot.
func (b *Base) InputDims() []tensor.Shape { return b.inputDims }

// SetInputDims replaces the input shapes.
func (b *Base) SetInputDims(dims []tensor.Shape) { b.inputDims = dims }

// OutputDims returns one shape per output slot.
func (b *Base) OutputDims() []tensor.Shape { return b.outputDims }

// SetOutputDims is used by concrete operators inside Initialize.
func (b *Base) SetOutputDims(dims []tensor.Shape) { b.outputDims = dims }

// Activation returns the requested (or applied) activation kind.
func (b *Base) Activation() ActivationKind { return b.activation }

// SetActivation sets the activation kind.
func (b *Base) SetActivation(kind ActivationKind) { b.activation = kind }

// FlattenRequested reports whether a trailing flatten was requested.
func (b *Base) FlattenRequested() bool { return b.flatten }

// RequestFlatten marks the operator for trailing flatten realization.
func (b *Base) RequestFlatten(flatten bool) { b.flatten = flatten }

// Trainable reports whether the operator has trainable parameters.
func (b *Base) Trainable() bool { return b.trainable }

// SetTrainable marks the operator as carrying trainable parameters.
func (b *Base) SetTrainable(trainable bool) { b.trainable = trainable }

// SupportsInPlace reports in-place eligibility; operators opt in by
// overriding this together with InPlaceKind.
func (b *Base) SupportsInPlace() bool { return false }

// InPlaceKind returns the aliasing rule for this operator.
func (b *Base) InPlaceKind() InPlaceKind { return InPlaceNone }

// NetInput returns the input storage slots.
func (b *Base) NetInput() []*storage.VarGrad { return b.netInput }

// SetNetInput binds the input storage slots.
func (b *Base) SetNetInput(slots []*storage.VarGrad) { b.netInput = slots }

// SetNetInputSlot rebinds a single input slot.
func (b *Base) SetNetInputSlot(i int, slot *storage.VarGrad) { b.netInput[i] = slot }

// NetHidden returns the output storage slots.
func (b *Base) NetHidden() []*storage.VarGrad { return b.netHidden }

// SetNetHidden binds the output storage slots.
func (b *Base) SetNetHidden(slots []*storage.VarGrad) { b.netHidden = slots }

// SetNetHiddenSlot rebinds a single output slot.
func (b *Base) SetNetHiddenSlot(i int, slot *storage.VarGrad) { b.netHidden[i] = slot }

// BackwardParams is a no-op for operators without parameters.
func (b *Base) BackwardParams() error { return nil }
