package graph

import (
	"fmt"
	"strings"
)

// resolveEdges turns symbolic input names into structural adjacency. Only
// safe to call after realization has inserted all adapters: a name that
// does not resolve to a node at this point is a lookup error.
//
// Nodes whose input dimensions are already fixed are sources; they consume
// external data and contribute no incoming edges.
func (g *Graph) resolveEdges() error {
	for _, n := range g.nodes {
		dims := n.Op.InputDims()
		if len(dims) > 0 && dims[0].IsSet() {
			continue
		}
		for _, in := range n.Op.InputNames() {
			if strings.EqualFold(in, ExternalInput) {
				continue
			}
			producer, err := g.nodeByName(in)
			if err != nil {
				return fmt.Errorf("resolving inputs of node %q: %w", n.Op.Name(), err)
			}
			g.adj[producer.ID] = append(g.adj[producer.ID], n.ID)
		}
	}
	return nil
}
