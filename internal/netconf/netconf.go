// Package netconf loads declarative network description files and turns
// them into the flat operator list the graph compiler consumes.
//
// A description looks like:
//
//	network {
//	  loss = "cross_entropy"
//
//	  layer "in" {
//	    type  = "input"
//	    shape = [1, 28, 28]
//	  }
//
//	  layer "conv1" {
//	    type       = "conv2d"
//	    inputs     = ["in"]
//	    filters    = 6
//	    kernel     = [5, 5]
//	    activation = "sigmoid"
//	    flatten    = true
//	  }
//	}
package netconf

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lattice-ml/lattice/internal/layer"
)

// File is the root of a network description.
type File struct {
	Network Network `hcl:"network,block"`
}

// Network is one network block: a loss kind plus an ordered layer list.
type Network struct {
	Loss   string  `hcl:"loss,optional"`
	Layers []Layer `hcl:"layer,block"`
}

// Layer is one layer block. The fixed attributes are shared by every
// layer type; type-specific parameters (units, filters, shape, ...) stay
// in Rest and are decoded by the operator factory.
type Layer struct {
	Name       string   `hcl:"name,label"`
	Type       string   `hcl:"type"`
	Inputs     []string `hcl:"inputs,optional"`
	Activation string   `hcl:"activation,optional"`
	Flatten    bool     `hcl:"flatten,optional"`
	Rest       hcl.Body `hcl:",remain"`
}

// Load reads and parses a network description file.
func Load(path string) (*Network, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading network description: %w", err)
	}
	return Parse(src, path)
}

// Parse decodes a network description from source bytes.
func Parse(src []byte, filename string) (*Network, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s", layer.ErrConfiguration, diags.Error())
	}

	var file File
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &file); diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s", layer.ErrConfiguration, diags.Error())
	}
	if len(file.Network.Layers) == 0 {
		return nil, fmt.Errorf("%w: network %q declares no layers", layer.ErrConfiguration, filename)
	}
	return &file.Network, nil
}

// LossKind returns the parsed terminal loss kind.
func (n *Network) LossKind() (layer.LossKind, error) {
	kind := layer.ParseLoss(n.Loss)
	if kind == layer.LossUnknown {
		return layer.LossNone, fmt.Errorf("%w: unknown loss kind %q", layer.ErrConfiguration, n.Loss)
	}
	return kind, nil
}

// Operators materializes the layer blocks into configured operators, in
// declaration order.
func (n *Network) Operators() ([]layer.Operator, error) {
	ops := make([]layer.Operator, 0, len(n.Layers))
	for i := range n.Layers {
		op, err := buildOperator(&n.Layers[i])
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}
