package graph

import (
	"strconv"
	"strings"

	"github.com/lattice-ml/lattice/internal/layer"
)

// nameRegistry assigns a unique name to every node of one build. Lookups
// are case-insensitive. The registry is scoped to a single graph
// construction; there is no process-wide name state.
type nameRegistry struct {
	used    map[string]struct{}
	counter int
}

func newNameRegistry() *nameRegistry {
	return &nameRegistry{used: make(map[string]struct{})}
}

func (r *nameRegistry) has(name string) bool {
	_, ok := r.used[strings.ToLower(name)]
	return ok
}

func (r *nameRegistry) register(name string) {
	r.used[strings.ToLower(name)] = struct{}{}
}

// ensure finalizes the operator's name and registers it. If the operator
// already has an unused name and force is not set, the name is kept.
// Otherwise prefix+original is tried, then prefix+base+counter with the
// counter incremented until an unused name is found (base is the original
// name, or the type tag when the original is empty). Never fails: the
// counter is unbounded.
func (r *nameRegistry) ensure(op layer.Operator, prefix string, force bool) {
	orig := op.Name()
	if orig != "" && !force && !r.has(orig) {
		r.register(orig)
		return
	}

	if orig != "" {
		direct := prefix + orig
		if !r.has(direct) {
			r.register(direct)
			op.SetName(direct)
			return
		}
	}

	base := orig
	if base == "" {
		base = op.Type()
	}
	direct := prefix + base
	for {
		name := direct + strconv.Itoa(r.counter)
		r.counter++
		if !r.has(name) {
			r.register(name)
			op.SetName(name)
			return
		}
	}
}
