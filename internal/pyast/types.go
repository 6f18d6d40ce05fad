// Package pyast parses Python source files into the structural
// representation used by the indexer and the call-graph builder.
package pyast

// Module is one parsed Python source file. It is created once during
// indexing and is read-only afterwards.
type Module struct {
	// AbsPath is the absolute filesystem path the file was read from.
	AbsPath string
	// RelPath is the path relative to the indexed root, using forward slashes.
	RelPath string
	// DottedPath is the Python module path derived from RelPath,
	// e.g. "pkg.helper" for pkg/helper.py.
	DottedPath string
	// Definitions holds every function and method found in the file,
	// nested definitions included, in source order.
	Definitions []*Definition
	// Imports maps a local bound name to the import that introduced it.
	Imports map[string]ImportRef
	// Wildcards lists module paths pulled in via "from m import *".
	Wildcards []string
}

// ImportRef records where an imported local name comes from.
type ImportRef struct {
	// Module is the dotted module path. The parser stores it as written
	// (relative imports keep their leading dots); the indexer normalizes
	// it against the project root.
	Module string
	// Symbol is the name inside Module for "from m import f" style
	// imports. Empty when the binding refers to the module itself.
	Symbol string
	// Resolved is set by the indexer when Module names a file under the
	// indexed root. Unresolved imports fail closed during call resolution.
	Resolved bool
}

// Definition is a function or method. Classes are tracked only as
// containers for methods and never become definitions themselves.
type Definition struct {
	// QualifiedName is DottedPath plus the enclosing chain, e.g.
	// "pkg.helper.do_work" or "models.Animal.speak". Unique per project.
	QualifiedName string
	Name          string
	// ClassName is the directly enclosing class for methods, "" otherwise.
	ClassName string
	// Params is the literal parameter list text, parentheses included.
	Params string
	// Nested is true for functions defined inside another function.
	Nested bool

	// StartByte/EndByte delimit the exact source span, decorators included.
	StartByte uint32
	EndByte   uint32
	StartLine int
	EndLine   int

	IsAsync    bool
	IsMethod   bool
	Docstring  string
	Complexity int

	// Calls lists every call expression in the body, in source order.
	// Calls inside nested definitions belong to the nested definition.
	Calls []CallSite

	// LocalTypes maps a local variable or parameter name to a class name
	// inferred from a simple "v = Cls()" assignment or a "v: Cls"
	// annotation. Single hop only; used by resolution tier 3.
	LocalTypes map[string]string

	// Module is the owning module, set by the parser.
	Module *Module
}

// CallSite is a single call expression inside a definition's body.
type CallSite struct {
	// Target is the called name: the identifier for bare calls, the
	// attribute name for one-hop method calls.
	Target string
	// Receiver is the base identifier for one-hop attribute calls
	// ("self", "obj", an imported module name). Empty for bare calls.
	Receiver string
	// Dynamic marks callee expressions that are neither an identifier
	// nor a single-hop attribute: getattr(...)(), chains, subscripts.
	// These are unresolvable by design.
	Dynamic bool
	// Expr is the callee expression text, kept for diagnostics.
	Expr string
	Line int
}
