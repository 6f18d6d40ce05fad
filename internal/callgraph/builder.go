package callgraph

import (
	"context"
	"fmt"
	"os"

	"github.com/SPTS7/CodeGrapher/internal/index"
	"github.com/SPTS7/CodeGrapher/internal/pyast"
)

// Default traversal caps.
const (
	DefaultMaxDepth = 10
	DefaultMaxNodes = 500
)

// BuildConfig holds configuration for a Builder.
type BuildConfig struct {
	MaxDepth int // 0 means DefaultMaxDepth
	MaxNodes int // 0 means DefaultMaxNodes
	Logger   func(format string, args ...any)
}

// Builder runs a breadth-first traversal from the entry set, creating
// each reachable definition's node exactly once.
type Builder struct {
	table     *index.SymbolTable
	resolver  *Resolver
	extractor *index.Extractor
	maxDepth  int
	maxNodes  int
	log       func(format string, args ...any)
}

// NewBuilder creates a Builder over an indexed project.
func NewBuilder(table *index.SymbolTable, cfg BuildConfig) *Builder {
	maxDepth := cfg.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	maxNodes := cfg.MaxNodes
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	logFn := cfg.Logger
	if logFn == nil {
		logFn = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	}
	return &Builder{
		table:     table,
		resolver:  NewResolver(table),
		extractor: index.NewExtractor(),
		maxDepth:  maxDepth,
		maxNodes:  maxNodes,
		log:       logFn,
	}
}

type queueItem struct {
	def   *pyast.Definition
	depth int
}

// Build constructs the call graph starting at entryFunc in entryFile
// (a root-relative path). An empty entryFunc roots the traversal at
// every top-level definition of the entry file. The two entry errors
// are the only fatal outcomes; everything downstream degrades to
// warnings or per-node markers.
func (b *Builder) Build(ctx context.Context, entryFile, entryFunc string) (*Graph, error) {
	mod, ok := b.table.ModuleByRelPath(entryFile)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryFileNotFound, entryFile)
	}

	roots, err := b.entrySet(mod, entryFunc)
	if err != nil {
		return nil, err
	}

	graph := NewGraph()
	graph.Warnings = append(graph.Warnings, b.table.Warnings...)

	queue := make([]queueItem, 0, len(roots))
	for _, root := range roots {
		graph.Roots = append(graph.Roots, root.QualifiedName)
		if b.visit(graph, root) {
			queue = append(queue, queueItem{def: root})
		}
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return graph, err
		}
		item := queue[0]
		queue = queue[1:]

		for _, call := range item.def.Calls {
			res := b.resolver.Resolve(item.def, call)
			if res.Def == nil {
				// Bare builtin calls that nothing shadows are noise,
				// not unresolved project calls.
				if res.Reason == ReasonUnknown && call.Receiver == "" && isBuiltin(call.Target) {
					continue
				}
				node, _ := graph.Node(item.def.QualifiedName)
				node.UnresolvedCalls++
				graph.warn(fmt.Sprintf("unresolved call %s at %s:%d (%s)",
					call.Expr, item.def.Module.RelPath, call.Line, res.Reason))
				continue
			}

			callee := res.Def
			if _, seen := graph.Node(callee.QualifiedName); seen {
				graph.addEdge(item.def.QualifiedName, callee.QualifiedName)
				continue
			}

			if item.depth+1 >= b.maxDepth || len(graph.Nodes) >= b.maxNodes {
				b.truncate(graph, item.def.QualifiedName)
				continue
			}

			if b.visit(graph, callee) {
				queue = append(queue, queueItem{def: callee, depth: item.depth + 1})
			}
			graph.addEdge(item.def.QualifiedName, callee.QualifiedName)
		}
	}

	b.log("Graph built: %d nodes, %d edges, %d warnings",
		len(graph.Nodes), len(graph.Edges), len(graph.Warnings))
	return graph, nil
}

// entrySet picks the traversal roots. A named function must exist in
// the entry file; without a name, every top-level definition of the
// file is a root, and an empty file is fatal.
func (b *Builder) entrySet(mod *pyast.Module, entryFunc string) ([]*pyast.Definition, error) {
	if entryFunc != "" {
		if def, ok := b.table.Lookup(mod.DottedPath, entryFunc); ok {
			return []*pyast.Definition{def}, nil
		}
		return nil, fmt.Errorf("%w: %s in %s", ErrEntryFuncNotFound, entryFunc, mod.RelPath)
	}

	var roots []*pyast.Definition
	for _, def := range mod.Definitions {
		if !def.Nested && !def.IsMethod {
			roots = append(roots, def)
		}
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("%w: no top-level definitions in %s", ErrEntryFuncNotFound, mod.RelPath)
	}
	return roots, nil
}

// visit creates the node for def if it does not exist yet. Source
// extraction happens here; failures mark the node and the walk goes on.
func (b *Builder) visit(graph *Graph, def *pyast.Definition) bool {
	if _, ok := graph.Node(def.QualifiedName); ok {
		return false
	}

	node := &Node{
		QualifiedName: def.QualifiedName,
		Name:          def.Name,
		ClassName:     def.ClassName,
		FilePath:      def.Module.RelPath,
		Line:          def.StartLine,
		EndLine:       def.EndLine,
		Docstring:     def.Docstring,
		Params:        def.Params,
		IsAsync:       def.IsAsync,
		IsMethod:      def.IsMethod,
		Complexity:    def.Complexity,
	}

	source, err := b.extractor.Source(def)
	if err != nil {
		node.SourceError = err.Error()
		graph.warn(fmt.Sprintf("extracting %s: %v", def.QualifiedName, err))
	} else {
		node.Source = source
	}

	graph.addNode(node)
	return true
}

// truncate routes a cut-off call to the shared placeholder node.
func (b *Builder) truncate(graph *Graph, caller string) {
	if _, ok := graph.Node(TruncatedNodeName); !ok {
		graph.addNode(&Node{
			QualifiedName: TruncatedNodeName,
			Name:          TruncatedNodeName,
			Truncated:     true,
		})
	}
	graph.addEdge(caller, TruncatedNodeName)
	if !graph.Truncated {
		graph.Truncated = true
		graph.warn("traversal truncated by depth or node cap")
	}
}
