// Package layout provides the placement algorithms driven by the layout
// manager.
//
// # Static Layouts
//
// A [Static] algorithm is a one-shot function from a graph and the positions
// known so far to a complete position map:
//
//   - [Circle] places every node on a circle. It is the initial layout.
//   - [Adding] keeps every known position and places only new nodes, near
//     their placed neighbours and clear of occupied points.
//   - [Graphviz] delegates to a Graphviz engine (neato, fdp, circo, ...).
//
// # Iterative Layouts
//
// An [Iterative] algorithm refines positions over repeated Iterate calls.
// [Spring] is the built-in force-directed implementation. Iterate is driven by
// a single goroutine at a time; every accessor may be called concurrently
// with it. Cancelling the context passed to Iterate stops after the current
// sub-step.
//
// # Registry
//
// A [Registry] maps names to algorithms. [DefaultRegistry] contains the
// built-ins; callers may register their own.
package layout
