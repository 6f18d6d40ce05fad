// Package callgraph resolves call sites against the symbol table and
// assembles the deduplicated call graph rooted at an entry point.
package callgraph

import "errors"

// Fatal entry-point errors. Everything else in a run degrades to
// warnings or per-node markers.
var (
	ErrEntryFileNotFound = errors.New("entry file not found in project")
	ErrEntryFuncNotFound = errors.New("entry function not found in entry file")
)

// TruncatedNodeName identifies the single shared placeholder node that
// receives edges for calls cut off by the depth or node caps.
const TruncatedNodeName = "(truncated)"

// Node is one function or method in the graph. Identity is the
// qualified name; the builder creates each node exactly once.
type Node struct {
	QualifiedName string `json:"qualified_name"`
	Name          string `json:"name"`
	ClassName     string `json:"class_name,omitempty"`
	FilePath      string `json:"file_path"`
	Line          int    `json:"line"`
	EndLine       int    `json:"end_line"`

	Source      string `json:"source,omitempty"`
	SourceError string `json:"source_error,omitempty"`

	Summary      string `json:"summary,omitempty"`
	SummaryError string `json:"summary_error,omitempty"`

	Docstring  string `json:"docstring,omitempty"`
	Params     string `json:"params,omitempty"`
	IsAsync    bool   `json:"is_async,omitempty"`
	IsMethod   bool   `json:"is_method,omitempty"`
	Complexity int    `json:"complexity"`

	// UnresolvedCalls counts call sites in this node's body that no
	// resolution tier could bind.
	UnresolvedCalls int `json:"unresolved_calls,omitempty"`

	// Truncated marks the shared placeholder node.
	Truncated bool `json:"truncated,omitempty"`
}

// Edge is a caller-to-callee relationship by qualified name. Self-edges
// represent direct recursion.
type Edge struct {
	Caller string `json:"caller"`
	Callee string `json:"callee"`
}

// Graph is the only artifact a run produces besides warnings. Nodes
// keep insertion (BFS discovery) order so output is deterministic.
type Graph struct {
	Nodes []*Node  `json:"nodes"`
	Edges []Edge   `json:"edges"`
	Roots []string `json:"roots"`
	// Truncated is set when any cap cut the traversal short.
	Truncated bool     `json:"truncated,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`

	byName map[string]*Node
	seen   map[string]struct{} // edge dedup keys
}

// NewGraph returns an empty graph ready for the builder.
func NewGraph() *Graph {
	return &Graph{
		byName: make(map[string]*Node),
		seen:   make(map[string]struct{}),
	}
}

// Node returns the node with the given qualified name, if present.
func (g *Graph) Node(qualifiedName string) (*Node, bool) {
	n, ok := g.byName[qualifiedName]
	return n, ok
}

func (g *Graph) addNode(n *Node) {
	if _, ok := g.byName[n.QualifiedName]; ok {
		return
	}
	g.byName[n.QualifiedName] = n
	g.Nodes = append(g.Nodes, n)
}

// addEdge records a caller->callee edge, collapsing duplicates.
func (g *Graph) addEdge(caller, callee string) {
	key := caller + "\x00" + callee
	if _, ok := g.seen[key]; ok {
		return
	}
	g.seen[key] = struct{}{}
	g.Edges = append(g.Edges, Edge{Caller: caller, Callee: callee})
}

func (g *Graph) warn(msg string) {
	g.Warnings = append(g.Warnings, msg)
}
