package graph

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lattice-ml/lattice/internal/layer"
	"github.com/lattice-ml/lattice/internal/storage"
	"github.com/lattice-ml/lattice/internal/tensor"
)

// Reserved names marking the graph boundary: they denote external data
// rather than another node.
const (
	// ExternalInput is the input-name sentinel bound to source nodes.
	ExternalInput = "__data__"
	// ExternalOutput is the output-name sentinel bound to the final node.
	ExternalOutput = "__exit__"
)

// Error kinds, re-exported so graph callers need not import the layer
// package to classify failures.
var (
	ErrConfiguration = layer.ErrConfiguration
	ErrLookup        = layer.ErrLookup
	ErrNotSupported  = layer.ErrNotSupported
	ErrNumeric       = layer.ErrNumeric
)

// Node is one graph vertex: a dense id plus the operator it exclusively
// owns. Ids are assigned at insertion and never reused within a build.
type Node struct {
	ID int
	Op layer.Operator
}

// Graph owns all nodes, their adjacency and the post-sort linear order.
// It is built once by Build and must be discarded if construction fails.
type Graph struct {
	nodes  []*Node
	adj    [][]int // successor node ids, indexed by node id
	sorted []*Node

	names    *nameRegistry
	registry *layer.Registry
	manager  *storage.Manager
	logger   *zap.Logger
	profiler Profiler

	buildID          string
	batch            int
	skipNonTrainable int
	aliases          []AliasRecord
	finalized        bool
}

// Option configures a Build call.
type Option func(*Graph)

// WithLogger sets the construction/debug logger. The default is a nop
// logger so library use stays silent.
func WithLogger(l *zap.Logger) Option {
	return func(g *Graph) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithRegistry overrides the operator registry used to create adapter
// nodes. The default carries the built-in operators.
func WithRegistry(r *layer.Registry) Option {
	return func(g *Graph) {
		if r != nil {
			g.registry = r
		}
	}
}

// WithProfiler attaches a forward-pass profiler.
func WithProfiler(p Profiler) Option {
	return func(g *Graph) { g.profiler = p }
}

// WithBatchSize sets the initial batch size (default 1).
func WithBatchSize(n int) Option {
	return func(g *Graph) {
		if n > 0 {
			g.batch = n
		}
	}
}

// Build compiles the flat operator list into an executable graph:
// name assignment, adapter realization, edge resolution, cycle check,
// topological sort, shape/storage finalization and in-place buffer
// aliasing, in that order. Any error aborts the whole build.
func Build(ops []layer.Operator, loss layer.LossKind, opts ...Option) (*Graph, error) {
	g := &Graph{
		names:    newNameRegistry(),
		registry: layer.BuiltinRegistry(),
		logger:   zap.NewNop(),
		buildID:  uuid.NewString(),
		batch:    1,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(zap.String("build_id", g.buildID))
	g.manager = storage.NewManager(g.logger)

	if len(ops) == 0 {
		return nil, fmt.Errorf("%w: cannot build an empty graph", ErrConfiguration)
	}
	g.logger.Debug("building graph",
		zap.Int("layers", len(ops)),
		zap.String("loss", loss.String()))

	if err := g.realize(ops, loss); err != nil {
		return nil, err
	}
	if err := g.resolveEdges(); err != nil {
		return nil, err
	}
	if err := g.checkCycles(); err != nil {
		return nil, err
	}
	g.topologicalSort()
	if err := g.finalize(); err != nil {
		return nil, err
	}
	if err := g.optimizeInPlace(); err != nil {
		return nil, err
	}
	g.finalized = true
	g.logger.Debug("graph built",
		zap.Int("nodes", len(g.sorted)),
		zap.Int("aliased", len(g.aliases)),
		zap.Int("tracked_bytes", g.manager.TrackedBytes()))
	return g, nil
}

// addNode appends an operator as a new node. The operator's name must
// already have gone through the name registry.
func (g *Graph) addNode(op layer.Operator) *Node {
	n := &Node{ID: len(g.nodes), Op: op}
	g.nodes = append(g.nodes, n)
	g.adj = append(g.adj, nil)
	return n
}

// nodeByName resolves a symbolic name to its node, case-insensitively.
func (g *Graph) nodeByName(name string) (*Node, error) {
	for _, n := range g.nodes {
		if strings.EqualFold(n.Op.Name(), name) {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrLookup, name)
}

// BuildID returns the unique id of this build, used to correlate logs.
func (g *Graph) BuildID() string { return g.buildID }

// BatchSize returns the current batch size.
func (g *Graph) BatchSize() int { return g.batch }

// SetBatchSize re-finalizes the graph for a new batch size. Storage is
// reallocated and the aliasing pass re-runs; alias records returned before
// this call are invalidated.
func (g *Graph) SetBatchSize(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: batch size must be positive, got %d", ErrConfiguration, n)
	}
	if g.finalized && n == g.batch {
		return nil
	}
	g.batch = n
	g.finalized = false
	if err := g.finalize(); err != nil {
		return err
	}
	if err := g.optimizeInPlace(); err != nil {
		return err
	}
	g.finalized = true
	return nil
}

// SetInput copies external data into the source node's input buffer.
func (g *Graph) SetInput(data *tensor.RawTensor) error {
	if !g.finalized {
		return fmt.Errorf("%w: graph is not finalized", ErrConfiguration)
	}
	src := g.sorted[0].Op
	if err := src.NetInput()[0].Variable().CopyFrom(data); err != nil {
		return fmt.Errorf("%w: input for node %q: %v", ErrConfiguration, src.Name(), err)
	}
	return nil
}

// SetTargets binds ground-truth data to the terminal loss node.
func (g *Graph) SetTargets(targets *tensor.RawTensor) error {
	if !g.finalized {
		return fmt.Errorf("%w: graph is not finalized", ErrConfiguration)
	}
	last := g.sorted[len(g.sorted)-1].Op
	setter, ok := last.(interface{ SetTargets(*tensor.RawTensor) })
	if !ok {
		return fmt.Errorf("%w: final node %q (%s) does not accept targets", ErrConfiguration, last.Name(), last.Type())
	}
	setter.SetTargets(targets)
	return nil
}

// InputDims returns the input shapes of the first sorted node.
func (g *Graph) InputDims() []tensor.Shape {
	return g.sorted[0].Op.InputDims()
}

// OutputDims returns the output shapes of the last sorted node.
func (g *Graph) OutputDims() []tensor.Shape {
	return g.sorted[len(g.sorted)-1].Op.OutputDims()
}

// SortedNames returns the node names in execution order.
func (g *Graph) SortedNames() []string {
	names := make([]string, len(g.sorted))
	for i, n := range g.sorted {
		names[i] = n.Op.Name()
	}
	return names
}

// SortedNode returns the i-th node in execution order.
func (g *Graph) SortedNode(i int) *Node {
	return g.sorted[i]
}

// Len returns the node count.
func (g *Graph) Len() int { return len(g.nodes) }

// SkipNonTrainable returns the count of leading sorted nodes with no
// trainable parameters, consumed by optimizer bookkeeping.
func (g *Graph) SkipNonTrainable() int { return g.skipNonTrainable }

// AliasRecords returns the decisions of the most recent in-place pass.
// Records are invalidated whenever the graph is re-finalized.
func (g *Graph) AliasRecords() []AliasRecord { return g.aliases }

// Manager returns the storage tracker.
func (g *Graph) Manager() *storage.Manager { return g.manager }
