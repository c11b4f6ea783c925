// Package graph builds and analyzes similarity graphs over conversations
// (C6): threshold-filtered, degree-capped construction; GEXF/Cytoscape
// export; and community/bridge/network-summary analysis.
package graph

import (
	"sort"

	"github.com/queelius/ctk/pkg/pool"
)

// Edge is one undirected weighted link between two conversation ids.
type Edge struct {
	A, B   string
	Weight float64
}

// Graph is an undirected weighted similarity graph over conversation ids.
type Graph struct {
	Nodes     []string
	Adjacency map[string]map[string]float64
}

func newGraph(nodes []string) *Graph {
	adj := make(map[string]map[string]float64, len(nodes))
	for _, n := range nodes {
		adj[n] = make(map[string]float64)
	}
	return &Graph{Nodes: nodes, Adjacency: adj}
}

func (g *Graph) addEdge(a, b string, w float64) {
	g.Adjacency[a][b] = w
	g.Adjacency[b][a] = w
}

// Degree returns the number of edges incident to id.
func (g *Graph) Degree(id string) int { return len(g.Adjacency[id]) }

// BuildGraph constructs a similarity graph from a precomputed score
// function over every node pair, keeping only edges at or above threshold
// and applying a greedy degree-capped pruning pass: candidate edges are
// considered in descending weight order, and an edge survives only if
// neither endpoint has already reached maxLinksPerNode. A maxLinksPerNode
// of 0 disables the degree cap.
func BuildGraph(nodes []string, score func(a, b string) (float64, error), threshold float64, maxLinksPerNode int) (*Graph, error) {
	g := newGraph(nodes)

	var candidates []Edge
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			w, err := score(nodes[i], nodes[j])
			if err != nil {
				return nil, err
			}
			if w >= threshold {
				candidates = append(candidates, Edge{A: nodes[i], B: nodes[j], Weight: w})
			}
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Weight > candidates[j].Weight })

	degree := make(map[string]int, len(nodes))
	for _, e := range candidates {
		if maxLinksPerNode > 0 && (degree[e.A] >= maxLinksPerNode || degree[e.B] >= maxLinksPerNode) {
			continue
		}
		g.addEdge(e.A, e.B, e.Weight)
		degree[e.A]++
		degree[e.B]++
	}
	return g, nil
}

// Edges returns every edge in the graph, each direction counted once.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	seen := pool.GetStringSet()
	defer pool.PutStringSet(seen)
	for a, neighbors := range g.Adjacency {
		for b, w := range neighbors {
			key := a + "\x00" + b
			rev := b + "\x00" + a
			if _, ok := seen[rev]; ok {
				continue
			}
			seen[key] = struct{}{}
			edges = append(edges, Edge{A: a, B: b, Weight: w})
		}
	}
	return edges
}

// AdjacencyView exposes the raw adjacency map, the nearest Go equivalent
// to the original's networkx.Graph conversion — there is no graph-object
// interchange format in the Go ecosystem worth depending on here.
func (g *Graph) AdjacencyView() map[string]map[string]float64 { return g.Adjacency }
