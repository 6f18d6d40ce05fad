package callgraph

// Diagram size and shape rules for the vis.js payload.
const (
	minDiagramSize = 20
	maxDiagramSize = 50
)

// DiagramNode is one vis.js node.
type DiagramNode struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Title      string `json:"title"`
	SourceCode string `json:"source_code"`
	Size       int    `json:"size"`
	Shape      string `json:"shape"`
}

// DiagramEdge is one vis.js edge.
type DiagramEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// DiagramData is the renderer-facing payload: plain data, no behavior.
type DiagramData struct {
	Nodes []DiagramNode `json:"nodes"`
	Edges []DiagramEdge `json:"edges"`
}

// Diagram converts the graph to the vis.js payload. Node size scales
// with complexity relative to the largest node in the graph; async
// definitions render as diamonds, the truncation placeholder as a
// triangle, everything else as a box.
func Diagram(g *Graph) *DiagramData {
	maxComplexity := 1
	for _, n := range g.Nodes {
		if n.Complexity > maxComplexity {
			maxComplexity = n.Complexity
		}
	}

	data := &DiagramData{
		Nodes: make([]DiagramNode, 0, len(g.Nodes)),
		Edges: make([]DiagramEdge, 0, len(g.Edges)),
	}

	for _, n := range g.Nodes {
		dn := DiagramNode{
			ID:         n.QualifiedName,
			Label:      label(n),
			Title:      title(n),
			SourceCode: n.Source,
			Size:       scaledSize(n.Complexity, maxComplexity),
			Shape:      "box",
		}
		switch {
		case n.Truncated:
			dn.Shape = "triangle"
			dn.Size = minDiagramSize
		case n.IsAsync:
			dn.Shape = "diamond"
		}
		data.Nodes = append(data.Nodes, dn)
	}

	for _, e := range g.Edges {
		data.Edges = append(data.Edges, DiagramEdge{From: e.Caller, To: e.Callee})
	}
	return data
}

func label(n *Node) string {
	if n.ClassName != "" {
		return n.ClassName + "." + n.Name
	}
	return n.Name
}

// title prefers the summary, then the docstring, then the bare name.
func title(n *Node) string {
	if n.Summary != "" {
		return n.Summary
	}
	if n.Docstring != "" {
		return n.Docstring
	}
	return n.QualifiedName
}

func scaledSize(complexity, maxComplexity int) int {
	if complexity < 1 {
		complexity = 1
	}
	span := maxDiagramSize - minDiagramSize
	return minDiagramSize + span*(complexity-1)/maxComplexity
}
