package netconf

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/lattice-ml/lattice/internal/layer"
	"github.com/lattice-ml/lattice/internal/tensor"
)

// buildOperator turns one layer block into a configured operator.
func buildOperator(l *Layer) (layer.Operator, error) {
	attrs, diags := l.Rest.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: layer %q: %s", layer.ErrConfiguration, l.Name, diags.Error())
	}
	p := &params{layerName: l.Name, attrs: attrs}

	var op layer.Operator
	switch l.Type {
	case layer.TypeInput:
		shape, err := p.intList("shape", nil)
		if err != nil {
			return nil, err
		}
		if shape == nil {
			return nil, fmt.Errorf("%w: layer %q: input requires a shape", layer.ErrConfiguration, l.Name)
		}
		op = layer.NewInput(tensor.Shape(shape))

	case layer.TypeFullyConnected:
		units, err := p.integer("units", 0)
		if err != nil {
			return nil, err
		}
		op = layer.NewFullyConnected(units)

	case layer.TypeConv2D:
		filters, err := p.integer("filters", 0)
		if err != nil {
			return nil, err
		}
		kernel, err := p.intList("kernel", []int{3, 3})
		if err != nil {
			return nil, err
		}
		if len(kernel) != 2 {
			return nil, fmt.Errorf("%w: layer %q: kernel must be [height, width]", layer.ErrConfiguration, l.Name)
		}
		stride, err := p.integer("stride", 1)
		if err != nil {
			return nil, err
		}
		padding, err := p.integer("padding", 0)
		if err != nil {
			return nil, err
		}
		op = layer.NewConv2D(filters, kernel[0], kernel[1], stride, padding)

	case layer.TypeBatchNorm:
		epsilon, err := p.float("epsilon", 1e-5)
		if err != nil {
			return nil, err
		}
		momentum, err := p.float("momentum", 0.99)
		if err != nil {
			return nil, err
		}
		op = layer.NewBatchNorm(float32(epsilon), float32(momentum))

	case layer.TypeActivation:
		kind := layer.ParseActivation(l.Activation)
		op = layer.NewActivation(kind)

	case layer.TypeFlatten:
		op = layer.NewFlatten()

	case layer.TypeAddition:
		op = layer.NewAddition()

	case layer.TypeConcat:
		op = layer.NewConcat()

	case layer.TypeOutput:
		op = layer.NewOutput()

	case layer.TypeLoss:
		kindName, err := p.str("kind", "")
		if err != nil {
			return nil, err
		}
		kind := layer.ParseLoss(kindName)
		if kind == layer.LossUnknown {
			return nil, fmt.Errorf("%w: layer %q: unknown loss kind %q", layer.ErrConfiguration, l.Name, kindName)
		}
		op = layer.NewLoss(kind)

	default:
		return nil, fmt.Errorf("%w: layer %q: unknown type %q", layer.ErrConfiguration, l.Name, l.Type)
	}

	if err := p.unusedCheck(); err != nil {
		return nil, err
	}

	op.SetName(l.Name)
	if len(l.Inputs) > 0 {
		op.SetInputNames(append([]string(nil), l.Inputs...))
	}
	if l.Type != layer.TypeActivation && l.Activation != "" {
		op.SetActivation(layer.ParseActivation(l.Activation))
	}
	if l.Flatten {
		fl, ok := op.(interface{ RequestFlatten(bool) })
		if !ok {
			return nil, fmt.Errorf("%w: layer %q: type %q cannot request flatten", layer.ErrConfiguration, l.Name, l.Type)
		}
		fl.RequestFlatten(true)
	}
	return op, nil
}

// params decodes type-specific attributes from a layer block's remaining
// body using cty value conversion.
type params struct {
	layerName string
	attrs     hcl.Attributes
	used      map[string]struct{}
}

func (p *params) value(name string) (cty.Value, bool, error) {
	attr, ok := p.attrs[name]
	if !ok {
		return cty.NilVal, false, nil
	}
	if p.used == nil {
		p.used = make(map[string]struct{})
	}
	p.used[name] = struct{}{}

	v, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, false, fmt.Errorf("%w: layer %q: attribute %q: %s",
			layer.ErrConfiguration, p.layerName, name, diags.Error())
	}
	return v, true, nil
}

func (p *params) integer(name string, def int) (int, error) {
	v, ok, err := p.value(name)
	if err != nil || !ok {
		return def, err
	}
	var out int
	if err := gocty.FromCtyValue(v, &out); err != nil {
		return def, fmt.Errorf("%w: layer %q: attribute %q: %v", layer.ErrConfiguration, p.layerName, name, err)
	}
	return out, nil
}

func (p *params) float(name string, def float64) (float64, error) {
	v, ok, err := p.value(name)
	if err != nil || !ok {
		return def, err
	}
	var out float64
	if err := gocty.FromCtyValue(v, &out); err != nil {
		return def, fmt.Errorf("%w: layer %q: attribute %q: %v", layer.ErrConfiguration, p.layerName, name, err)
	}
	return out, nil
}

func (p *params) str(name, def string) (string, error) {
	v, ok, err := p.value(name)
	if err != nil || !ok {
		return def, err
	}
	var out string
	if err := gocty.FromCtyValue(v, &out); err != nil {
		return def, fmt.Errorf("%w: layer %q: attribute %q: %v", layer.ErrConfiguration, p.layerName, name, err)
	}
	return out, nil
}

func (p *params) intList(name string, def []int) ([]int, error) {
	v, ok, err := p.value(name)
	if err != nil || !ok {
		return def, err
	}
	if !v.CanIterateElements() {
		return def, fmt.Errorf("%w: layer %q: attribute %q must be a list of integers",
			layer.ErrConfiguration, p.layerName, name)
	}
	out := make([]int, 0, v.LengthInt())
	for it := v.ElementIterator(); it.Next(); {
		_, ev := it.Element()
		var n int
		if err := gocty.FromCtyValue(ev, &n); err != nil {
			return def, fmt.Errorf("%w: layer %q: attribute %q: %v",
				layer.ErrConfiguration, p.layerName, name, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// unusedCheck rejects attributes the layer type does not understand, so
// typos fail the build instead of being silently dropped.
func (p *params) unusedCheck() error {
	for name := range p.attrs {
		if _, ok := p.used[name]; !ok {
			return fmt.Errorf("%w: layer %q: unsupported attribute %q",
				layer.ErrConfiguration, p.layerName, name)
		}
	}
	return nil
}
