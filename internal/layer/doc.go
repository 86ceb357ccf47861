// Package layer defines the operator capability interface consumed by the
// graph compiler, the shared error kinds, and the built-in operators:
// input, fully_connected, conv2d, batch_normalization, activation, flatten,
// addition, concat, output and loss.
//
// Externally supplied operators implement Operator (usually by embedding
// Base) and register a constructor in a Registry; the graph realizer creates
// adapter nodes through the same table.
package layer
