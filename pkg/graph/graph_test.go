package graph

import "testing"

func triangleScore(a, b string) (float64, error) {
	scores := map[string]float64{
		"a|b": 0.9, "b|a": 0.9,
		"a|c": 0.8, "c|a": 0.8,
		"b|c": 0.1, "c|b": 0.1,
	}
	return scores[a+"|"+b], nil
}

func TestBuildGraphThreshold(t *testing.T) {
	nodes := []string{"a", "b", "c"}
	g, err := BuildGraph(nodes, triangleScore, 0.5, 0)
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if len(g.Edges()) != 2 {
		t.Fatalf("expected 2 edges above threshold, got %d", len(g.Edges()))
	}
	if g.Degree("c") != 1 {
		t.Errorf("expected c to have degree 1 (only linked to a), got %d", g.Degree("c"))
	}
}

func TestBuildGraphDegreeCap(t *testing.T) {
	nodes := []string{"a", "b", "c"}
	g, err := BuildGraph(nodes, func(x, y string) (float64, error) { return 1.0, nil }, 0, 1)
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	for _, n := range g.Nodes {
		if g.Degree(n) > 1 {
			t.Errorf("expected degree cap of 1, node %s has degree %d", n, g.Degree(n))
		}
	}
}

func TestNetworkSummaryDensity(t *testing.T) {
	nodes := []string{"a", "b", "c"}
	g, _ := BuildGraph(nodes, func(x, y string) (float64, error) { return 1.0, nil }, 0, 0)
	summary := g.NetworkSummary()
	if summary.NodeCount != 3 {
		t.Errorf("expected 3 nodes, got %d", summary.NodeCount)
	}
	if summary.EdgeCount != 3 {
		t.Errorf("expected 3 edges (complete triangle), got %d", summary.EdgeCount)
	}
	if summary.Density != 1.0 {
		t.Errorf("expected density 1.0 for a complete graph, got %v", summary.Density)
	}
}

func TestLabelPropagationSeparatesComponents(t *testing.T) {
	nodes := []string{"a", "b", "c", "d"}
	score := func(x, y string) (float64, error) {
		pairs := map[string]bool{"a|b": true, "b|a": true, "c|d": true, "d|c": true}
		if pairs[x+"|"+y] {
			return 1.0, nil
		}
		return 0.0, nil
	}
	g, err := BuildGraph(nodes, score, 0.5, 0)
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	clusters, err := g.Clusters(AlgoLabelPropagation)
	if err != nil {
		t.Fatalf("Clusters: %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("expected 2 disconnected clusters, got %d", len(clusters))
	}
}

func TestBridgesNonEmpty(t *testing.T) {
	nodes := []string{"a", "b", "c"}
	g, _ := BuildGraph(nodes, func(x, y string) (float64, error) { return 1.0, nil }, 0, 0)
	bridges := g.Bridges(2)
	if len(bridges) == 0 {
		t.Fatal("expected at least one bridge candidate")
	}
}

func TestExportCytoscapeValidJSON(t *testing.T) {
	nodes := []string{"a", "b"}
	g, _ := BuildGraph(nodes, func(x, y string) (float64, error) { return 1.0, nil }, 0, 0)
	raw, err := g.ExportCytoscape()
	if err != nil {
		t.Fatalf("ExportCytoscape: %v", err)
	}
	if len(raw) == 0 {
		t.Fatal("expected non-empty cytoscape JSON")
	}
}

func TestExportGexfContainsNodes(t *testing.T) {
	nodes := []string{"a", "b"}
	g, _ := BuildGraph(nodes, func(x, y string) (float64, error) { return 1.0, nil }, 0, 0)
	gexf := g.ExportGexf()
	if len(gexf) == 0 {
		t.Fatal("expected non-empty GEXF output")
	}
}
