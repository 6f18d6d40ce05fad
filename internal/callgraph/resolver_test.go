package callgraph

import (
	"testing"

	"github.com/SPTS7/CodeGrapher/internal/pyast"
)

const resolverProject = `def local_fn():
    pass

class Worker:
    def __init__(self):
        self.jobs = []

    def run(self):
        self.step()

    def step(self):
        pass
`

func resolverFixture(t *testing.T) (*Resolver, map[string]*pyast.Definition) {
	t.Helper()
	root := writeProject(t, map[string]string{
		"app.py": `import tasks
import tasks as tk
from tasks import Worker, local_fn
import requests

def use(w: Worker):
    local_fn()
    tasks.local_fn()
    tk.local_fn()
    w.run()
    v = Worker()
    v.step()
    requests.get()
    mystery()
`,
		"tasks.py": resolverProject,
	})
	table := indexProject(t, root)
	defs := map[string]*pyast.Definition{}
	for qn, d := range table.Defs {
		defs[qn] = d
	}
	return NewResolver(table), defs
}

func TestResolveTiers(t *testing.T) {
	r, defs := resolverFixture(t)
	use := defs["app.use"]
	if use == nil {
		t.Fatal("fixture missing app.use")
	}

	want := map[string]struct {
		target string // resolved qualified name, or ""
		reason string
	}{
		"local_fn":       {target: "tasks.local_fn"},          // from-import bare call
		"tasks.local_fn": {target: "tasks.local_fn"},          // module receiver
		"tk.local_fn":    {target: "tasks.local_fn"},          // aliased module receiver
		"w.run":          {target: "tasks.Worker.run"},        // param annotation
		"Worker":         {target: "tasks.Worker.__init__"},   // constructor
		"v.step":         {target: "tasks.Worker.step"},       // local assignment type
		"requests.get":   {reason: ReasonExternal},
		"mystery":        {reason: ReasonUnknown},
	}

	for _, call := range use.Calls {
		expect, ok := want[call.Expr]
		if !ok {
			t.Errorf("unexpected call site %q", call.Expr)
			continue
		}
		res := r.Resolve(use, call)
		if expect.target != "" {
			if res.Def == nil {
				t.Errorf("%q: unresolved (%s), want %s", call.Expr, res.Reason, expect.target)
			} else if res.Def.QualifiedName != expect.target {
				t.Errorf("%q: resolved to %s, want %s", call.Expr, res.Def.QualifiedName, expect.target)
			}
			continue
		}
		if res.Def != nil {
			t.Errorf("%q: resolved to %s, want unresolved %s", call.Expr, res.Def.QualifiedName, expect.reason)
		} else if res.Reason != expect.reason {
			t.Errorf("%q: reason = %s, want %s", call.Expr, res.Reason, expect.reason)
		}
	}
}

func TestResolveSelfMethod(t *testing.T) {
	r, defs := resolverFixture(t)
	run := defs["tasks.Worker.run"]
	if run == nil {
		t.Fatal("fixture missing tasks.Worker.run")
	}
	if len(run.Calls) != 1 {
		t.Fatalf("Worker.run calls = %+v, want one", run.Calls)
	}
	res := r.Resolve(run, run.Calls[0])
	if res.Def == nil || res.Def.QualifiedName != "tasks.Worker.step" {
		t.Errorf("self.step() resolved to %+v, want tasks.Worker.step", res)
	}
}

func TestResolveDynamic(t *testing.T) {
	r, defs := resolverFixture(t)
	use := defs["app.use"]
	res := r.Resolve(use, pyast.CallSite{Target: "whatever", Dynamic: true, Expr: "getattr(o, n)"})
	if res.Def != nil || res.Reason != ReasonDynamic {
		t.Errorf("dynamic call resolved as %+v, want reason %s", res, ReasonDynamic)
	}
}

func TestResolveNeverGuessesAcrossModules(t *testing.T) {
	// A function with the right name exists in another module, but no
	// import binds it; resolution must fail closed.
	root := writeProject(t, map[string]string{
		"a.py": "def caller():\n    orphan()\n",
		"b.py": "def orphan():\n    pass\n",
	})
	table := indexProject(t, root)
	r := NewResolver(table)
	caller := table.Defs["a.caller"]

	res := r.Resolve(caller, caller.Calls[0])
	if res.Def != nil {
		t.Errorf("orphan() resolved to %s without an import binding", res.Def.QualifiedName)
	}
	if res.Reason != ReasonUnknown {
		t.Errorf("reason = %s, want %s", res.Reason, ReasonUnknown)
	}
}
