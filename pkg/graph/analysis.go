package graph

import (
	"fmt"
	"sort"

	"github.com/queelius/ctk/pkg/pool"
)

// ClusterAlgorithm selects a community-detection algorithm for Clusters.
type ClusterAlgorithm string

const (
	AlgoLabelPropagation ClusterAlgorithm = "label_propagation"
	AlgoGreedyModularity ClusterAlgorithm = "greedy_modularity"
)

// Clusters partitions the graph's nodes into communities, per
// ctk/interfaces/mcp/handlers/analysis.py's handle_get_clusters (which
// names exactly these two algorithms).
func (g *Graph) Clusters(algo ClusterAlgorithm) ([][]string, error) {
	switch algo {
	case AlgoLabelPropagation, "":
		return g.labelPropagation(), nil
	case AlgoGreedyModularity:
		return g.greedyModularity(), nil
	default:
		return nil, fmt.Errorf("unknown cluster algorithm: %s", algo)
	}
}

// labelPropagation runs asynchronous label propagation: each round visits
// the nodes in order and every node adopts the most common label among its
// neighbors, seeing labels already updated earlier in the same round; ties
// are broken by lowest label value for determinism. It stops when labels
// stop changing or a round cap is hit.
func (g *Graph) labelPropagation() [][]string {
	labels := make(map[string]string, len(g.Nodes))
	for _, n := range g.Nodes {
		labels[n] = n
	}

	for round := 0; round < 100; round++ {
		changed := false
		for _, n := range g.Nodes {
			counts := make(map[string]int)
			for neighbor := range g.Adjacency[n] {
				counts[labels[neighbor]]++
			}
			if len(counts) == 0 {
				continue
			}
			best := labels[n]
			bestCount := -1
			keys := make([]string, 0, len(counts))
			for k := range counts {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if counts[k] > bestCount {
					bestCount = counts[k]
					best = k
				}
			}
			if best != labels[n] {
				labels[n] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	groups := make(map[string][]string)
	for _, n := range g.Nodes {
		l := labels[n]
		groups[l] = append(groups[l], n)
	}
	return sortedClusters(groups)
}

// greedyModularity starts with every node in its own community and
// greedily merges the pair of communities whose merge most increases
// modularity, stopping when no merge improves it. This is the standard
// agglomerative approximation to Clauset-Newman-Moore greedy modularity
// maximization, the algorithm networkx.algorithms.community's
// greedy_modularity_communities implements.
func (g *Graph) greedyModularity() [][]string {
	m := totalWeight(g)
	if m == 0 {
		out := make([][]string, len(g.Nodes))
		for i, n := range g.Nodes {
			out[i] = []string{n}
		}
		return out
	}

	community := make(map[string]string, len(g.Nodes))
	for _, n := range g.Nodes {
		community[n] = n
	}

	for {
		bestGain := 0.0
		var bestA, bestB string
		found := false

		members := make(map[string][]string)
		for n, c := range community {
			members[c] = append(members[c], n)
		}
		ids := make([]string, 0, len(members))
		for c := range members {
			ids = append(ids, c)
		}
		sort.Strings(ids)

		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				gain := mergeGain(g, members[ids[i]], members[ids[j]], m)
				if gain > bestGain {
					bestGain = gain
					bestA, bestB = ids[i], ids[j]
					found = true
				}
			}
		}
		if !found {
			break
		}
		for n, c := range community {
			if c == bestB {
				community[n] = bestA
			}
		}
	}

	groups := make(map[string][]string)
	for n, c := range community {
		groups[c] = append(groups[c], n)
	}
	return sortedClusters(groups)
}

func totalWeight(g *Graph) float64 {
	var total float64
	for _, e := range g.Edges() {
		total += e.Weight
	}
	return total
}

// mergeGain estimates the modularity change from merging two communities,
// using unweighted edge counts between/within them.
func mergeGain(g *Graph, a, b []string, m float64) float64 {
	var eAB, degA, degB float64
	inA := pool.GetStringSet()
	defer pool.PutStringSet(inA)
	for _, n := range a {
		inA[n] = struct{}{}
		degA += float64(g.Degree(n))
	}
	inB := pool.GetStringSet()
	defer pool.PutStringSet(inB)
	for _, n := range b {
		inB[n] = struct{}{}
		degB += float64(g.Degree(n))
	}
	for _, n := range a {
		for neighbor := range g.Adjacency[n] {
			if _, ok := inB[neighbor]; ok {
				eAB++
			}
		}
	}
	return eAB/(2*m) - (degA*degB)/(2*m*m)
}

func sortedClusters(groups map[string][]string) [][]string {
	out := make([][]string, 0, len(groups))
	for _, members := range groups {
		sort.Strings(members)
		out = append(out, members)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i][0] < out[j][0]
	})
	return out
}

// Bridges returns the topN nodes with the highest betweenness centrality
// (computed via Brandes' algorithm), the conversations structurally
// connecting otherwise-separate parts of the graph.
func (g *Graph) Bridges(topN int) []string {
	centrality := betweennessCentrality(g)
	ids := make([]string, 0, len(centrality))
	for id := range centrality {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if centrality[ids[i]] != centrality[ids[j]] {
			return centrality[ids[i]] > centrality[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if topN > 0 && len(ids) > topN {
		ids = ids[:topN]
	}
	return ids
}

// betweennessCentrality implements unweighted Brandes' algorithm.
func betweennessCentrality(g *Graph) map[string]float64 {
	centrality := make(map[string]float64, len(g.Nodes))
	for _, n := range g.Nodes {
		centrality[n] = 0
	}

	for _, s := range g.Nodes {
		stack := []string{}
		pred := make(map[string][]string)
		sigma := map[string]float64{s: 1}
		dist := map[string]int{s: 0}
		queue := []string{s}

		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for w := range g.Adjacency[v] {
				if _, ok := dist[w]; !ok {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					pred[w] = append(pred[w], v)
				}
			}
		}

		delta := make(map[string]float64)
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range pred[w] {
				delta[v] += (sigma[v] / sigma[w]) * (1 + delta[w])
			}
			if w != s {
				centrality[w] += delta[w]
			}
		}
	}

	for n := range centrality {
		centrality[n] /= 2 // undirected graph: each shortest path counted from both endpoints
	}
	return centrality
}

// Summary reports aggregate network statistics, matching the fields of
// handle_get_network_summary's text report (density, avg degree, top-5
// most connected nodes).
type Summary struct {
	NodeCount     int
	EdgeCount     int
	Density       float64
	AvgDegree     float64
	MostConnected []NodeDegree
}

// NodeDegree pairs a node id with its degree, for Summary.MostConnected.
type NodeDegree struct {
	ID     string
	Degree int
}

// NetworkSummary computes Summary for the graph.
func (g *Graph) NetworkSummary() Summary {
	n := len(g.Nodes)
	edges := g.Edges()
	var density float64
	if n > 1 {
		density = float64(len(edges)) / (float64(n) * float64(n-1) / 2)
	}

	degrees := make([]NodeDegree, 0, n)
	var totalDegree int
	for _, node := range g.Nodes {
		d := g.Degree(node)
		totalDegree += d
		degrees = append(degrees, NodeDegree{ID: node, Degree: d})
	}
	sort.Slice(degrees, func(i, j int) bool {
		if degrees[i].Degree != degrees[j].Degree {
			return degrees[i].Degree > degrees[j].Degree
		}
		return degrees[i].ID < degrees[j].ID
	})
	top := degrees
	if len(top) > 5 {
		top = top[:5]
	}

	var avgDegree float64
	if n > 0 {
		avgDegree = float64(totalDegree) / float64(n)
	}

	return Summary{
		NodeCount:     n,
		EdgeCount:     len(edges),
		Density:       density,
		AvgDegree:     avgDegree,
		MostConnected: top,
	}
}
