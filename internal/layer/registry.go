package layer

import (
	"fmt"
	"sort"
)

// Constructor creates a fresh, unconfigured operator instance.
type Constructor func() Operator

// Registry maps type tags to operator constructors. The graph realizer
// creates adapter nodes through it, and externally supplied operators plug
// in through the same table.
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register binds a type tag to a constructor, replacing any previous
// binding for the same tag.
func (r *Registry) Register(typeTag string, ctor Constructor) {
	r.constructors[typeTag] = ctor
}

// Create instantiates an operator for the given type tag.
func (r *Registry) Create(typeTag string) (Operator, error) {
	ctor, ok := r.constructors[typeTag]
	if !ok {
		return nil, fmt.Errorf("%w: no operator registered for type %q", ErrConfiguration, typeTag)
	}
	return ctor(), nil
}

// Types returns the registered type tags in sorted order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.constructors))
	for t := range r.constructors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// BuiltinRegistry returns a registry with every built-in operator
// registered.
func BuiltinRegistry() *Registry {
	r := NewRegistry()
	r.Register(TypeInput, func() Operator { return NewInput(nil) })
	r.Register(TypeFullyConnected, func() Operator { return NewFullyConnected(0) })
	r.Register(TypeConv2D, func() Operator { return NewConv2D(0, 3, 3, 1, 0) })
	r.Register(TypeBatchNorm, func() Operator { return NewBatchNorm(1e-5, 0.99) })
	r.Register(TypeActivation, func() Operator { return NewActivation(ActNone) })
	r.Register(TypeFlatten, func() Operator { return NewFlatten() })
	r.Register(TypeAddition, func() Operator { return NewAddition() })
	r.Register(TypeConcat, func() Operator { return NewConcat() })
	r.Register(TypeOutput, func() Operator { return NewOutput() })
	r.Register(TypeLoss, func() Operator { return NewLoss(LossNone) })
	return r
}
