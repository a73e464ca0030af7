// Package pkg provides the core libraries for Livegraph, a concurrent
// iterative graph layout and metrics engine.
//
// # Overview
//
// Livegraph keeps 2D positions for the nodes of a graph that may be replaced
// at any time, refines them with a force-directed layout running on a
// background task, and computes per-node, global and subset metrics that are
// cached per graph snapshot. The pkg directory is organized into four areas:
//
//  1. Model - [graph] (immutable graphs and JSON documents) and [coords]
//     (the coordinate store)
//  2. Layout - [layout] (static and iterative algorithms), [task] (the
//     periodic background task) and [manager] (the layout manager)
//  3. Metrics - [metrics] (metric definitions and the stats cache)
//  4. Infrastructure - [cache], [config], [errors], [event],
//     [observability] and [server]
//
// # Architecture
//
// The typical data flow through Livegraph:
//
//	graph.json
//	     ↓
//	[graph] package (parse into an immutable snapshot)
//	     ↓
//	[manager] package (place new nodes, reconcile the store)
//	     ↓                          ↓
//	[task] background ticks     [metrics] stats cache for the snapshot
//	     ↓                          ↓
//	[coords] positions          [server] / CLI output
//
// # Quick Start
//
// Lay out a graph in the background and read its metrics:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/livegraph/pkg/graph"
//	    "github.com/matzehuels/livegraph/pkg/layout"
//	    "github.com/matzehuels/livegraph/pkg/manager"
//	    "github.com/matzehuels/livegraph/pkg/metrics"
//	)
//
//	g, _ := graph.ReadGraphFile("graph.json")
//
//	// 1. Place the graph and start the background layout
//	m := manager.New(manager.Options[string]{})
//	defer m.Close()
//	m.SetLayoutAlgorithm(layout.NewSpring[string](layout.SpringOptions{}))
//	_ = m.SetGraph(context.Background(), g)
//	m.SetLayoutTaskActive(true)
//
//	// 2. Read positions at any time
//	positions := m.Store().ActiveLocationCopy()
//
//	// 3. Compute cached metrics for this snapshot
//	stats := metrics.NewGraphStats[string](g, nil)
//	deg, _ := metrics.NodeStats(context.Background(), stats, metrics.Degree[string]())
//
// # Main Packages
//
// [graph] - The read-only graph interface, a simple adjacency implementation
// with a builder, and the JSON graph document used by the CLI and server.
//
// [coords] - The coordinate store. Nodes of the current graph are active;
// positions of removed nodes are kept in a bounded inactive partition so a
// node that returns reappears where it was.
//
// [layout] - Static layouts (circle, adding, graphviz engines) that place
// nodes once, and the spring layout that refines positions iteratively.
//
// [manager] - Owns the graph, the store and the iterative algorithm, and
// runs the algorithm on a [task.Periodic] while layout is active.
//
// [metrics] - Node, graph and subset metrics with a per-snapshot cache that
// collapses concurrent computations of the same metric.
//
// [cache] - File, Redis and null result caches with content-addressed keys.
//
// [server] - The HTTP API over a manager, with Prometheus metrics.
package pkg
