package graph

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExportGexf renders the graph as a minimal GEXF 1.2 document, the format
// Gephi imports directly.
func (g *Graph) ExportGexf() string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	sb.WriteString(`<gexf xmlns="http://gexf.net/1.2" version="1.2">` + "\n")
	sb.WriteString("  <graph mode=\"static\" defaultedgetype=\"undirected\">\n")

	sb.WriteString("    <nodes>\n")
	for _, n := range g.Nodes {
		fmt.Fprintf(&sb, "      <node id=%q label=%q />\n", n, n)
	}
	sb.WriteString("    </nodes>\n")

	sb.WriteString("    <edges>\n")
	for i, e := range g.Edges() {
		fmt.Fprintf(&sb, "      <edge id=\"%d\" source=%q target=%q weight=\"%f\" />\n", i, e.A, e.B, e.Weight)
	}
	sb.WriteString("    </edges>\n")

	sb.WriteString("  </graph>\n</gexf>\n")
	return sb.String()
}

// cytoscapeElement is one entry of Cytoscape.js's elements array.
type cytoscapeElement struct {
	Data map[string]interface{} `json:"data"`
}

type cytoscapeDocument struct {
	Elements []cytoscapeElement `json:"elements"`
}

// ExportCytoscape renders the graph as Cytoscape.js-compatible JSON:
// nodes followed by edges, each wrapped in a "data" envelope.
func (g *Graph) ExportCytoscape() ([]byte, error) {
	doc := cytoscapeDocument{}
	for _, n := range g.Nodes {
		doc.Elements = append(doc.Elements, cytoscapeElement{Data: map[string]interface{}{"id": n}})
	}
	for i, e := range g.Edges() {
		doc.Elements = append(doc.Elements, cytoscapeElement{Data: map[string]interface{}{
			"id":     fmt.Sprintf("e%d", i),
			"source": e.A,
			"target": e.B,
			"weight": e.Weight,
		}})
	}
	return json.Marshal(doc)
}
