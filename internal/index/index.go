// Package index walks a Python project tree, parses every source file,
// and builds the symbol table the call-graph builder resolves against.
package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/SPTS7/CodeGrapher/internal/pyast"
)

// IndexerConfig holds configuration for the Indexer.
type IndexerConfig struct {
	Root            string
	ExcludePatterns []string // glob patterns matched against the relative path
	Verbose         bool
	Logger          func(format string, args ...any) // optional, defaults to stderr
}

// Indexer parses a project tree into a SymbolTable.
type Indexer struct {
	root     string
	excludes []string
	verbose  bool
	log      func(format string, args ...any)
}

// SymbolTable is the immutable result of indexing one project tree.
type SymbolTable struct {
	Root    string
	Modules map[string]*pyast.Module     // by dotted path
	Defs    map[string]*pyast.Definition // by qualified name
	// Warnings collects per-file indexing problems; the run continues
	// past all of them.
	Warnings []string

	byModule map[string]map[string]*pyast.Definition // dotted path -> bare chain -> def
}

// NewIndexer creates a new Indexer rooted at cfg.Root.
func NewIndexer(cfg IndexerConfig) *Indexer {
	logFn := cfg.Logger
	if logFn == nil {
		logFn = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	}
	return &Indexer{
		root:     cfg.Root,
		excludes: cfg.ExcludePatterns,
		verbose:  cfg.Verbose,
		log:      logFn,
	}
}

// Index walks the root, parses every .py/.pyi file not filtered by
// .gitignore or the exclude patterns, and links imports. Unreadable or
// unparsable files become warnings, never errors.
func (idx *Indexer) Index(ctx context.Context) (*SymbolTable, error) {
	absRoot, err := filepath.Abs(idx.root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", idx.root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("project root %s: %w", idx.root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", idx.root)
	}

	table := &SymbolTable{
		Root:     absRoot,
		Modules:  make(map[string]*pyast.Module),
		Defs:     make(map[string]*pyast.Definition),
		byModule: make(map[string]map[string]*pyast.Definition),
	}

	matcher := idx.loadGitignore(absRoot, table)

	walkErr := filepath.Walk(absRoot, func(path string, fi os.FileInfo, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			table.warn("skipping %s: %v", path, err)
			if fi != nil && fi.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if fi.IsDir() {
			base := filepath.Base(path)
			if base == ".git" || base == "__pycache__" || base == "node_modules" {
				return filepath.SkipDir
			}
			if matcher != nil && matcher.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			if idx.excluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".py" && ext != ".pyi" {
			return nil
		}
		if matcher != nil && matcher.MatchesPath(rel) {
			return nil
		}
		if idx.excluded(rel) {
			return nil
		}

		idx.indexFile(ctx, path, rel, table)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walking %s: %w", idx.root, walkErr)
	}

	idx.linkImports(table)

	if idx.verbose {
		idx.log("Indexed %d modules, %d definitions", len(table.Modules), len(table.Defs))
	}
	return table, nil
}

func (idx *Indexer) loadGitignore(absRoot string, table *SymbolTable) *ignore.GitIgnore {
	giPath := filepath.Join(absRoot, ".gitignore")
	if _, err := os.Stat(giPath); err != nil {
		return nil
	}
	matcher, err := ignore.CompileIgnoreFile(giPath)
	if err != nil {
		table.warn("reading .gitignore: %v", err)
		return nil
	}
	return matcher
}

func (idx *Indexer) excluded(rel string) bool {
	for _, pattern := range idx.excludes {
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, filepath.Base(rel)); ok {
			return true
		}
	}
	return false
}

func (idx *Indexer) indexFile(ctx context.Context, absPath, relPath string, table *SymbolTable) {
	content, err := os.ReadFile(absPath)
	if err != nil {
		table.warn("reading %s: %v", relPath, err)
		return
	}

	dotted := DottedPath(relPath)
	mod, err := pyast.Parse(ctx, content, absPath, relPath, dotted)
	if err != nil {
		table.warn("parsing %s: %v", relPath, err)
		return
	}

	if idx.verbose {
		idx.log("Parsed %s (%d definitions)", relPath, len(mod.Definitions))
	}

	table.Modules[dotted] = mod
	names := make(map[string]*pyast.Definition, len(mod.Definitions))
	for _, def := range mod.Definitions {
		table.Defs[def.QualifiedName] = def
		// Bare chain is the qualified name minus the module prefix,
		// e.g. "Animal.speak" or "do_work".
		names[strings.TrimPrefix(def.QualifiedName, dotted+".")] = def
	}
	table.byModule[dotted] = names
}

// linkImports normalizes relative imports and marks import refs whose
// target module is part of the indexed tree. Anything else stays
// unresolved and fails closed during call resolution.
func (idx *Indexer) linkImports(table *SymbolTable) {
	for dotted, mod := range table.Modules {
		for name, ref := range mod.Imports {
			target := normalizeImport(ref.Module, dotted)
			if target == "" {
				continue
			}
			ref.Module = target
			if _, ok := table.Modules[target]; ok {
				ref.Resolved = true
			} else if _, ok := table.Modules[target+"."+ref.Symbol]; ref.Symbol != "" && ok {
				// "from pkg import sub" naming a submodule rather
				// than a symbol.
				ref.Module = target + "." + ref.Symbol
				ref.Symbol = ""
				ref.Resolved = true
			} else if _, ok := table.Modules[target+".__init__"]; ok {
				// The target is a package directory.
				ref.Module = target + ".__init__"
				ref.Resolved = true
			}
			mod.Imports[name] = ref
		}
	}
}

// normalizeImport resolves leading dots against the importing module's
// package. "from . import x" in pkg.mod yields "pkg"; "from ..a import y"
// one level up. Imports that escape the root yield "".
func normalizeImport(raw, importerDotted string) string {
	if !strings.HasPrefix(raw, ".") {
		return raw
	}
	dots := 0
	for dots < len(raw) && raw[dots] == '.' {
		dots++
	}
	rest := raw[dots:]

	parts := strings.Split(importerDotted, ".")
	// One dot is the importer's own package.
	if len(parts) < dots {
		return ""
	}
	base := parts[:len(parts)-dots]
	if rest == "" {
		return strings.Join(base, ".")
	}
	if len(base) == 0 {
		return rest
	}
	return strings.Join(base, ".") + "." + rest
}

// DottedPath converts a slash-relative .py path to a Python module path.
func DottedPath(relPath string) string {
	p := strings.TrimSuffix(relPath, ".py")
	p = strings.TrimSuffix(p, ".pyi")
	return strings.ReplaceAll(p, "/", ".")
}

func (t *SymbolTable) warn(format string, args ...any) {
	t.Warnings = append(t.Warnings, fmt.Sprintf(format, args...))
}

// Lookup returns the definition for a bare chain ("do_work",
// "Animal.speak") inside the given module.
func (t *SymbolTable) Lookup(dotted, chain string) (*pyast.Definition, bool) {
	names, ok := t.byModule[dotted]
	if !ok {
		return nil, false
	}
	def, ok := names[chain]
	return def, ok
}

// HasClass reports whether the given module defines a class with any
// methods under the given name. Method-less classes are invisible to the
// table, which is fine: they can never resolve a call anyway.
func (t *SymbolTable) HasClass(dotted, class string) bool {
	names, ok := t.byModule[dotted]
	if !ok {
		return false
	}
	prefix := class + "."
	for chain := range names {
		if strings.HasPrefix(chain, prefix) {
			return true
		}
	}
	return false
}

// ModuleByRelPath finds the module indexed under the given root-relative
// path (forward or native slashes).
func (t *SymbolTable) ModuleByRelPath(relPath string) (*pyast.Module, bool) {
	rel := filepath.ToSlash(relPath)
	for _, mod := range t.Modules {
		if mod.RelPath == rel {
			return mod, true
		}
	}
	return nil, false
}

// SortedModules returns modules in dotted-path order, for deterministic
// iteration.
func (t *SymbolTable) SortedModules() []*pyast.Module {
	paths := make([]string, 0, len(t.Modules))
	for p := range t.Modules {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	mods := make([]*pyast.Module, 0, len(paths))
	for _, p := range paths {
		mods = append(mods, t.Modules[p])
	}
	return mods
}
