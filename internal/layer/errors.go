package layer

import "errors"

// Error kinds shared by operators and the graph construction pipeline.
// Every failure is terminal: a build that returns one of these leaves the
// graph unusable and it must be discarded, not patched.
var (
	// ErrConfiguration marks an invalid network description: bad arity,
	// unknown activation, disconnected node, double-realized adapter,
	// unset input dimensions, unsupported in-place kind.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrLookup marks a symbolic node name that does not resolve to a node.
	ErrLookup = errors.New("node not found")

	// ErrNotSupported marks a requested combination the engine refuses,
	// such as cross-entropy without a sigmoid or softmax activation.
	ErrNotSupported = errors.New("operation not supported")

	// ErrNumeric marks a failure inside an operator's numeric computation.
	// The execution driver propagates it unchanged.
	ErrNumeric = errors.New("numeric failure")
)
