// Package metrics computes and caches graph metrics over immutable snapshots.
//
// Three kinds of metric are supported:
//   - [NodeMetric] yields a value per node
//   - [GraphMetric] yields one value for the whole graph
//   - [SubsetMetric] yields one value for a set of nodes
//
// Subset metrics are built from node metrics in two ways. [Additive] sums the
// node metric over the subset. [Contractive] collapses the subset into one
// representative node with [Contract] and evaluates the node metric there.
//
// # Caching
//
// [GraphStats] binds a cache to one snapshot. Results are keyed by metric ID,
// so a metric must return the same ID for the same computation:
//
//	s := metrics.NewGraphStats[string](g, nil)
//	deg, err := metrics.NodeStats(ctx, s, metrics.Degree[string]())
//	if err != nil {
//	    return err
//	}
//	fmt.Println(deg.Summary)
//
// When the graph changes, build a new GraphStats for the new snapshot.
package metrics
