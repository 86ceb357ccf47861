// Package graph turns a flat, user-authored operator list into an
// executable computation graph.
//
// Construction is a fixed sequence of single-threaded passes: the name
// registry assigns unique node names, the realizer inserts adapter nodes
// wherever arity does not match (fan-in combiner, fan-out duplicator,
// flattener, activation realizer, terminal loss), the edge resolver turns
// symbolic name references into adjacency, the topological sorter
// linearizes the graph, finalization propagates shapes and wires shared
// storage slots, and the in-place optimizer merges buffers between eligible
// adjacent nodes to cut peak memory.
//
// A graph under construction is not safe for concurrent use, and any
// construction error leaves the graph unusable.
package graph
