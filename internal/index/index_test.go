package index

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeProject materializes a map of relative path -> source under a
// temp dir and returns the root.
func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, src := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	return root
}

func indexProject(t *testing.T, root string) *SymbolTable {
	t.Helper()
	idx := NewIndexer(IndexerConfig{Root: root, Logger: func(string, ...any) {}})
	table, err := idx.Index(context.Background())
	if err != nil {
		t.Fatalf("Index returned error: %v", err)
	}
	return table
}

func TestIndexBuildsSymbolTable(t *testing.T) {
	root := writeProject(t, map[string]string{
		"main.py": "from pkg.helper import do_work\n\ndef main():\n    do_work()\n",
		"pkg/__init__.py": "",
		"pkg/helper.py":   "def do_work():\n    pass\n\nclass Job:\n    def run(self):\n        pass\n",
	})
	table := indexProject(t, root)

	if len(table.Modules) != 3 {
		t.Fatalf("got %d modules, want 3", len(table.Modules))
	}
	for _, qn := range []string{"main.main", "pkg.helper.do_work", "pkg.helper.Job.run"} {
		if _, ok := table.Defs[qn]; !ok {
			t.Errorf("missing definition %q", qn)
		}
	}

	ref, ok := table.Modules["main"].Imports["do_work"]
	if !ok || !ref.Resolved || ref.Module != "pkg.helper" {
		t.Errorf("do_work import = %+v, want resolved pkg.helper", ref)
	}

	if def, ok := table.Lookup("pkg.helper", "Job.run"); !ok || def.QualifiedName != "pkg.helper.Job.run" {
		t.Errorf("Lookup(pkg.helper, Job.run) = %v, %v", def, ok)
	}
	if !table.HasClass("pkg.helper", "Job") {
		t.Error("HasClass(pkg.helper, Job) = false")
	}
}

func TestIndexRelativeImports(t *testing.T) {
	root := writeProject(t, map[string]string{
		"pkg/__init__.py": "",
		"pkg/a.py":        "from . import b\nfrom .b import helper\n\ndef go():\n    helper()\n",
		"pkg/b.py":        "def helper():\n    pass\n",
	})
	table := indexProject(t, root)

	a := table.Modules["pkg.a"]
	if ref := a.Imports["b"]; !ref.Resolved || ref.Module != "pkg.b" {
		t.Errorf(`"from . import b" = %+v, want resolved pkg.b`, ref)
	}
	if ref := a.Imports["helper"]; !ref.Resolved || ref.Module != "pkg.b" || ref.Symbol != "helper" {
		t.Errorf(`"from .b import helper" = %+v, want resolved pkg.b helper`, ref)
	}
}

func TestIndexUnresolvedExternalImport(t *testing.T) {
	root := writeProject(t, map[string]string{
		"app.py": "import requests\n\ndef fetch():\n    requests.get()\n",
	})
	table := indexProject(t, root)

	ref := table.Modules["app"].Imports["requests"]
	if ref.Resolved {
		t.Errorf("external import should stay unresolved, got %+v", ref)
	}
}

func TestIndexHonorsGitignoreAndExcludes(t *testing.T) {
	root := writeProject(t, map[string]string{
		".gitignore":         "ignored/\nskipme.py\n",
		"keep.py":            "def keep():\n    pass\n",
		"skipme.py":          "def gone():\n    pass\n",
		"ignored/mod.py":     "def gone_too():\n    pass\n",
		"venv/lib/big.py":    "def vendored():\n    pass\n",
	})
	idx := NewIndexer(IndexerConfig{
		Root:            root,
		ExcludePatterns: []string{"venv"},
		Logger:          func(string, ...any) {},
	})
	table, err := idx.Index(context.Background())
	if err != nil {
		t.Fatalf("Index returned error: %v", err)
	}

	if _, ok := table.Modules["keep"]; !ok {
		t.Error("keep.py should be indexed")
	}
	for _, dotted := range []string{"skipme", "ignored.mod", "venv.lib.big"} {
		if _, ok := table.Modules[dotted]; ok {
			t.Errorf("%s should have been filtered out", dotted)
		}
	}
}

func TestIndexWarnsOnUnreadableFileAndContinues(t *testing.T) {
	root := writeProject(t, map[string]string{
		"good.py": "def fine():\n    pass\n",
		"bad.py":  "def fine_too():\n    pass\n",
	})
	if err := os.Chmod(filepath.Join(root, "bad.py"), 0o000); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	if os.Getuid() == 0 {
		t.Skip("running as root, unreadable files are still readable")
	}
	table := indexProject(t, root)

	if _, ok := table.Modules["good"]; !ok {
		t.Error("good.py should still be indexed")
	}
	found := false
	for _, w := range table.Warnings {
		if strings.Contains(w, "bad.py") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a warning for bad.py, got %v", table.Warnings)
	}
}

func TestIndexMissingRootIsFatal(t *testing.T) {
	idx := NewIndexer(IndexerConfig{Root: filepath.Join(t.TempDir(), "nope")})
	if _, err := idx.Index(context.Background()); err == nil {
		t.Fatal("expected an error for a missing root")
	}
}

func TestDottedPath(t *testing.T) {
	tests := []struct{ rel, want string }{
		{"main.py", "main"},
		{"pkg/helper.py", "pkg.helper"},
		{"a/b/c.pyi", "a.b.c"},
	}
	for _, tt := range tests {
		if got := DottedPath(tt.rel); got != tt.want {
			t.Errorf("DottedPath(%q) = %q, want %q", tt.rel, got, tt.want)
		}
	}
}

func TestExtractorReturnsExactSpan(t *testing.T) {
	src := "import os\n\n@wraps\ndef decorated(x):\n    return x\n\ndef plain():\n    pass\n"
	root := writeProject(t, map[string]string{"m.py": src})
	table := indexProject(t, root)

	ex := NewExtractor()

	dec := table.Defs["m.decorated"]
	got, err := ex.Source(dec)
	if err != nil {
		t.Fatalf("Source returned error: %v", err)
	}
	want := "@wraps\ndef decorated(x):\n    return x"
	if got != want {
		t.Errorf("decorated source = %q, want %q", got, want)
	}

	plain, err := ex.Source(table.Defs["m.plain"])
	if err != nil {
		t.Fatalf("Source returned error: %v", err)
	}
	if plain != "def plain():\n    pass" {
		t.Errorf("plain source = %q", plain)
	}
}

func TestExtractorFailureIsPerNode(t *testing.T) {
	root := writeProject(t, map[string]string{"m.py": "def f():\n    pass\n"})
	table := indexProject(t, root)
	def := table.Defs["m.f"]

	// Shrink the file after indexing; the stale span must error, not panic.
	if err := os.WriteFile(filepath.Join(root, "m.py"), []byte("x"), 0o644); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	ex := NewExtractor()
	if _, err := ex.Source(def); err == nil {
		t.Fatal("expected an error for an out-of-range span")
	}
}
