package graph

import "fmt"

// checkCycles rejects any cycle (including self-loops) before sorting.
// Three-color depth-first search: a back edge to an in-progress node means
// the adjacency relation is not a DAG.
func (g *Graph) checkCycles() error {
	const (
		white = iota // unvisited
		gray         // on the current DFS path
		black        // fully explored
	)
	color := make([]int, len(g.nodes))

	var visit func(id int) error
	visit = func(id int) error {
		color[id] = gray
		for _, succ := range g.adj[id] {
			switch color[succ] {
			case gray:
				return fmt.Errorf("%w: dependency cycle through node %q", ErrConfiguration, g.nodes[succ].Op.Name())
			case white:
				if err := visit(succ); err != nil {
					return err
				}
			}
		}
		color[id] = black
		return nil
	}

	for id := range g.nodes {
		if color[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// topologicalSort linearizes the graph: depth-first traversal from every
// unvisited node, pushing a node onto the completion stack only after all
// of its successors are fully visited, then draining the stack
// top-to-bottom. For every edge (u → v), u precedes v in the result.
//
// Must run after checkCycles; the traversal assumes an acyclic adjacency.
func (g *Graph) topologicalSort() {
	visited := make([]bool, len(g.nodes))
	stack := make([]*Node, 0, len(g.nodes))

	var visit func(id int)
	visit = func(id int) {
		visited[id] = true
		for _, succ := range g.adj[id] {
			if !visited[succ] {
				visit(succ)
			}
		}
		stack = append(stack, g.nodes[id])
	}

	for id := range g.nodes {
		if !visited[id] {
			visit(id)
		}
	}

	g.sorted = make([]*Node, 0, len(stack))
	for i := len(stack) - 1; i >= 0; i-- {
		g.sorted = append(g.sorted, stack[i])
	}

	g.countNonTrainableAtBegin()
}

// countNonTrainableAtBegin records how many leading sorted nodes carry no
// trainable parameters. Downstream optimizer bookkeeping skips them.
func (g *Graph) countNonTrainableAtBegin() {
	g.skipNonTrainable = len(g.sorted)
	for i, n := range g.sorted {
		if n.Op.Trainable() {
			g.skipNonTrainable = i
			break
		}
	}
}
