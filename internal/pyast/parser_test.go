package pyast

import (
	"context"
	"strings"
	"testing"
)

const testSource = `"""A sample module."""

import os
import utils.text as txt
from models import Animal, Dog as Hound
from . import sibling
from .helpers import clean

class Shelter:
    """Holds animals."""

    def __init__(self, name: str):
        self.name = name
        self.animals = []

    def add(self, animal: Animal) -> None:
        animal.register()
        self.animals.append(animal)

    @property
    def size(self):
        return len(self.animals)

async def fetch_all(url):
    """Fetch every record."""
    data = load(url)
    if data:
        for item in data:
            process(item)
    return data

def make_shelter():
    s = Shelter("main")
    s.add(Hound())
    getattr(s, "add")(None)
    def finish():
        s.close()
    finish()
    return s
`

func parseTestSource(t *testing.T) *Module {
	t.Helper()
	mod, err := Parse(context.Background(), []byte(testSource), "/proj/shelter/sample.py", "shelter/sample.py", "shelter.sample")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	return mod
}

func defByName(t *testing.T, mod *Module, qn string) *Definition {
	t.Helper()
	for _, d := range mod.Definitions {
		if d.QualifiedName == qn {
			return d
		}
	}
	t.Fatalf("definition %q not found; have %v", qn, defNames(mod))
	return nil
}

func defNames(mod *Module) []string {
	names := make([]string, 0, len(mod.Definitions))
	for _, d := range mod.Definitions {
		names = append(names, d.QualifiedName)
	}
	return names
}

func TestParseDefinitions(t *testing.T) {
	mod := parseTestSource(t)

	// 3 methods + 2 top-level functions + 1 nested function
	if len(mod.Definitions) != 6 {
		t.Fatalf("got %d definitions, want 6: %v", len(mod.Definitions), defNames(mod))
	}

	init := defByName(t, mod, "shelter.sample.Shelter.__init__")
	if !init.IsMethod || init.ClassName != "Shelter" {
		t.Errorf("__init__: IsMethod=%v ClassName=%q, want method of Shelter", init.IsMethod, init.ClassName)
	}
	if init.Params != "(self, name: str)" {
		t.Errorf("__init__ Params = %q", init.Params)
	}

	size := defByName(t, mod, "shelter.sample.Shelter.size")
	// decorated_definition span starts at the decorator
	if got := testSource[size.StartByte:size.EndByte]; !strings.HasPrefix(got, "@property") {
		t.Errorf("size span should include decorator, got %q", got)
	}

	fetch := defByName(t, mod, "shelter.sample.fetch_all")
	if !fetch.IsAsync {
		t.Error("fetch_all should be async")
	}
	if fetch.Docstring != "Fetch every record." {
		t.Errorf("fetch_all Docstring = %q", fetch.Docstring)
	}
	// base 1 + if + for
	if fetch.Complexity != 3 {
		t.Errorf("fetch_all Complexity = %d, want 3", fetch.Complexity)
	}

	finish := defByName(t, mod, "shelter.sample.make_shelter.finish")
	if !finish.Nested {
		t.Error("finish should be marked nested")
	}
}

func TestParseCallSites(t *testing.T) {
	mod := parseTestSource(t)

	maker := defByName(t, mod, "shelter.sample.make_shelter")
	// Shelter(), s.add(Hound()), Hound(), getattr(s,"add")(None), getattr itself, finish()
	byExpr := make(map[string]CallSite)
	for _, c := range maker.Calls {
		byExpr[c.Expr] = c
	}

	ctor, ok := byExpr["Shelter"]
	if !ok || ctor.Receiver != "" || ctor.Dynamic {
		t.Errorf("Shelter() should be a bare static call, got %+v", ctor)
	}
	add, ok := byExpr["s.add"]
	if !ok || add.Target != "add" || add.Receiver != "s" {
		t.Errorf("s.add() should have Target=add Receiver=s, got %+v", add)
	}

	dynamic := 0
	for _, c := range maker.Calls {
		if c.Dynamic {
			dynamic++
		}
	}
	if dynamic != 1 {
		t.Errorf("got %d dynamic calls, want 1 (the getattr result call): %+v", dynamic, maker.Calls)
	}

	// Calls inside the nested function belong to the nested definition.
	finish := defByName(t, mod, "shelter.sample.make_shelter.finish")
	if len(finish.Calls) != 1 || finish.Calls[0].Target != "close" {
		t.Errorf("finish calls = %+v, want one s.close()", finish.Calls)
	}
	for _, c := range maker.Calls {
		if c.Target == "close" {
			t.Error("s.close() should not be attributed to make_shelter")
		}
	}

	// Within the class, self receiver is preserved.
	addMethod := defByName(t, mod, "shelter.sample.Shelter.add")
	foundRegister := false
	for _, c := range addMethod.Calls {
		if c.Target == "register" && c.Receiver == "animal" {
			foundRegister = true
		}
	}
	if !foundRegister {
		t.Errorf("Shelter.add calls = %+v, want animal.register()", addMethod.Calls)
	}
}

func TestParseLocalTypes(t *testing.T) {
	mod := parseTestSource(t)

	maker := defByName(t, mod, "shelter.sample.make_shelter")
	if maker.LocalTypes["s"] != "Shelter" {
		t.Errorf(`LocalTypes["s"] = %q, want "Shelter"`, maker.LocalTypes["s"])
	}

	add := defByName(t, mod, "shelter.sample.Shelter.add")
	if add.LocalTypes["animal"] != "Animal" {
		t.Errorf(`param annotation: LocalTypes["animal"] = %q, want "Animal"`, add.LocalTypes["animal"])
	}
}

func TestParseImports(t *testing.T) {
	mod := parseTestSource(t)

	tests := []struct {
		name   string
		module string
		symbol string
	}{
		{"os", "os", ""},
		{"txt", "utils.text", ""},
		{"Animal", "models", "Animal"},
		{"Hound", "models", "Dog"},
		{"sibling", ".", "sibling"},
		{"clean", ".helpers", "clean"},
	}
	for _, tt := range tests {
		ref, ok := mod.Imports[tt.name]
		if !ok {
			t.Errorf("import %q not recorded; have %v", tt.name, mod.Imports)
			continue
		}
		if ref.Module != tt.module || ref.Symbol != tt.symbol {
			t.Errorf("import %q = {Module:%q Symbol:%q}, want {%q %q}", tt.name, ref.Module, ref.Symbol, tt.module, tt.symbol)
		}
	}
}

func TestParseWildcardImport(t *testing.T) {
	src := "from os.path import *\n"
	mod, err := Parse(context.Background(), []byte(src), "/p/a.py", "a.py", "a")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(mod.Wildcards) != 1 || mod.Wildcards[0] != "os.path" {
		t.Errorf("Wildcards = %v, want [os.path]", mod.Wildcards)
	}
}

func TestParseBrokenSourceStillYieldsDefinitions(t *testing.T) {
	src := "def good():\n    pass\n\ndef broken(:\n"
	mod, err := Parse(context.Background(), []byte(src), "/p/b.py", "b.py", "b")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	found := false
	for _, d := range mod.Definitions {
		if d.Name == "good" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected 'good' to survive the syntax error; got %v", defNames(mod))
	}
}
