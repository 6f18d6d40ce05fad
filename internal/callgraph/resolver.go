package callgraph

import (
	"strings"

	"github.com/SPTS7/CodeGrapher/internal/index"
	"github.com/SPTS7/CodeGrapher/internal/pyast"
)

// Unresolved-call reasons. These are expected outcomes, never errors.
const (
	// ReasonDynamic covers callee expressions that cannot name a static
	// target: getattr results, attribute chains, subscripts.
	ReasonDynamic = "dynamic"
	// ReasonExternal covers calls through imports that point outside
	// the indexed tree (stdlib, third-party).
	ReasonExternal = "external"
	// ReasonUnknown covers names with no binding the resolver can see.
	ReasonUnknown = "unknown"
)

// Resolution is the tagged result of resolving one call site. Def is
// nil exactly when the call is unresolved, and Reason says why.
type Resolution struct {
	Def    *pyast.Definition
	Reason string
}

// Resolver binds call sites to definitions using the symbol table.
// Tiers are tried in order and the first hit wins: local names, the
// import table, then single-hop inferred receiver types.
type Resolver struct {
	table *index.SymbolTable
}

// NewResolver creates a Resolver over an indexed project.
func NewResolver(table *index.SymbolTable) *Resolver {
	return &Resolver{table: table}
}

// Resolve binds one call site occurring inside caller. A nil-Def result
// means unresolved; resolution never guesses, a plausible-but-uncertain
// target stays unresolved.
func (r *Resolver) Resolve(caller *pyast.Definition, call pyast.CallSite) Resolution {
	if call.Dynamic {
		return Resolution{Reason: ReasonDynamic}
	}
	if call.Receiver == "" {
		return r.resolveBare(caller, call.Target)
	}
	return r.resolveReceiver(caller, call)
}

// resolveBare handles plain-name calls: f(), Cls(), imported_name().
func (r *Resolver) resolveBare(caller *pyast.Definition, target string) Resolution {
	mod := caller.Module

	// Tier 1: names defined in the same module. Nested functions shadow
	// module-level ones inside their parent.
	if def, ok := r.table.Lookup(mod.DottedPath, callerChain(caller)+"."+target); ok {
		return Resolution{Def: def}
	}
	if def, ok := r.table.Lookup(mod.DottedPath, target); ok {
		return Resolution{Def: def}
	}
	if res, ok := r.constructor(mod.DottedPath, target); ok {
		return res
	}

	// Tier 2: the import table.
	if ref, ok := mod.Imports[target]; ok {
		if !ref.Resolved {
			return Resolution{Reason: ReasonExternal}
		}
		if ref.Symbol == "" {
			// "import m as f; f()" calls a module, not a function.
			return Resolution{Reason: ReasonUnknown}
		}
		if def, ok := r.table.Lookup(ref.Module, ref.Symbol); ok {
			return Resolution{Def: def}
		}
		if res, ok := r.constructor(ref.Module, ref.Symbol); ok {
			return res
		}
		return Resolution{Reason: ReasonUnknown}
	}

	return Resolution{Reason: ReasonUnknown}
}

// resolveReceiver handles single-hop attribute calls: recv.target().
func (r *Resolver) resolveReceiver(caller *pyast.Definition, call pyast.CallSite) Resolution {
	mod := caller.Module

	// self binds to the enclosing class.
	if call.Receiver == "self" && caller.IsMethod {
		if def, ok := r.table.Lookup(mod.DottedPath, caller.ClassName+"."+call.Target); ok {
			return Resolution{Def: def}
		}
		// Possibly inherited; base-class dispatch is out of scope.
		return Resolution{Reason: ReasonUnknown}
	}

	// Tier 2: receiver is an imported module or class.
	if ref, ok := mod.Imports[call.Receiver]; ok {
		if !ref.Resolved {
			return Resolution{Reason: ReasonExternal}
		}
		if ref.Symbol == "" {
			// "import m; m.f()"
			if def, ok := r.table.Lookup(ref.Module, call.Target); ok {
				return Resolution{Def: def}
			}
			if res, ok := r.constructor(ref.Module, call.Target); ok {
				return res
			}
			return Resolution{Reason: ReasonUnknown}
		}
		// "from m import Cls; Cls.method()"
		if def, ok := r.table.Lookup(ref.Module, ref.Symbol+"."+call.Target); ok {
			return Resolution{Def: def}
		}
		return Resolution{Reason: ReasonUnknown}
	}

	// Tier 3: single-hop inferred type from "v = Cls()" or "v: Cls".
	if cls, ok := caller.LocalTypes[call.Receiver]; ok {
		if def, ok := r.method(mod, cls, call.Target); ok {
			return Resolution{Def: def}
		}
		return Resolution{Reason: ReasonUnknown}
	}

	return Resolution{Reason: ReasonUnknown}
}

// method finds cls.target where cls is a class name visible from mod:
// defined there, imported by name, or written as "m.Cls" against an
// imported module.
func (r *Resolver) method(mod *pyast.Module, cls, target string) (*pyast.Definition, bool) {
	if base, name, ok := strings.Cut(cls, "."); ok {
		ref, found := mod.Imports[base]
		if !found || !ref.Resolved || ref.Symbol != "" {
			return nil, false
		}
		return r.table.Lookup(ref.Module, name+"."+target)
	}
	if r.table.HasClass(mod.DottedPath, cls) {
		return r.table.Lookup(mod.DottedPath, cls+"."+target)
	}
	if ref, ok := mod.Imports[cls]; ok && ref.Resolved && ref.Symbol != "" {
		return r.table.Lookup(ref.Module, ref.Symbol+"."+target)
	}
	return nil, false
}

// constructor maps a call to a class name onto its __init__, when the
// class defines one.
func (r *Resolver) constructor(dotted, cls string) (Resolution, bool) {
	if !r.table.HasClass(dotted, cls) {
		return Resolution{}, false
	}
	if def, ok := r.table.Lookup(dotted, cls+".__init__"); ok {
		return Resolution{Def: def}, true
	}
	// Class exists but has no explicit constructor; nothing to expand.
	return Resolution{Reason: ReasonUnknown}, true
}

// callerChain is the caller's qualified name minus the module prefix,
// used to probe for nested definitions.
func callerChain(def *pyast.Definition) string {
	return strings.TrimPrefix(def.QualifiedName, def.Module.DottedPath+".")
}

// pythonBuiltins are names resolvable by every Python interpreter
// without an import. Local or imported definitions shadow these: the
// resolver tries every tier first, so only genuinely unbound uses land
// here.
var pythonBuiltins = map[string]struct{}{
	"abs": {}, "all": {}, "any": {}, "bool": {}, "bytes": {}, "callable": {},
	"dict": {}, "dir": {}, "enumerate": {}, "filter": {}, "float": {},
	"format": {}, "frozenset": {}, "getattr": {}, "hasattr": {}, "hash": {},
	"id": {}, "input": {}, "int": {}, "isinstance": {}, "issubclass": {},
	"iter": {}, "len": {}, "list": {}, "map": {}, "max": {}, "min": {},
	"next": {}, "object": {}, "open": {}, "print": {}, "range": {},
	"repr": {}, "reversed": {}, "round": {}, "set": {}, "setattr": {},
	"sorted": {}, "str": {}, "sum": {}, "super": {}, "tuple": {}, "type": {},
	"vars": {}, "zip": {},
}

func isBuiltin(name string) bool {
	_, ok := pythonBuiltins[name]
	return ok
}
