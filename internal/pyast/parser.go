package pyast

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// maxExprLen caps the stored text of dynamic callee expressions.
const maxExprLen = 100

// Parse parses one Python source file into a Module. The returned module
// carries every definition (methods and nested functions included) with
// exact byte spans, call sites, and the import table.
//
// Syntactically broken files still parse: tree-sitter produces a partial
// tree and extraction proceeds over what is recognizable.
func Parse(ctx context.Context, content []byte, absPath, relPath, dottedPath string) (*Module, error) {
	sitterParser := sitter.NewParser()
	sitterParser.SetLanguage(python.GetLanguage())

	tree, err := sitterParser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", relPath, err)
	}

	mod := &Module{
		AbsPath:    absPath,
		RelPath:    relPath,
		DottedPath: dottedPath,
		Imports:    make(map[string]ImportRef),
	}

	e := &extractor{mod: mod, content: content}
	root := tree.RootNode()
	if root == nil {
		return mod, nil
	}
	e.collectImports(root, 0)
	e.walkBody(root, nil, nil)

	return mod, nil
}

// extractor walks a tree-sitter Python AST and fills in a Module.
type extractor struct {
	mod     *Module
	content []byte
}

// walkBody visits the statements of a module, class, or function body and
// extracts the definitions found there. classChain holds the enclosing
// class names, funcChain the enclosing function names.
func (e *extractor) walkBody(body *sitter.Node, classChain, funcChain []string) {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		switch child.Type() {
		case "function_definition":
			e.extractFunction(child, child, classChain, funcChain, len(classChain) > 0 && len(funcChain) == 0)
		case "class_definition":
			e.extractClass(child, classChain, funcChain)
		case "decorated_definition":
			e.extractDecorated(child, classChain, funcChain)
		}
	}
}

// extractDecorated unwraps a decorated_definition. The outer node is kept
// as the span start so decorators are part of the extracted source.
func (e *extractor) extractDecorated(node *sitter.Node, classChain, funcChain []string) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "function_definition":
			e.extractFunction(node, child, classChain, funcChain, len(classChain) > 0 && len(funcChain) == 0)
		case "class_definition":
			e.extractClass(child, classChain, funcChain)
		}
	}
}

func (e *extractor) extractClass(node *sitter.Node, classChain, funcChain []string) {
	name := ""
	var bodyNode *sitter.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "identifier":
			name = e.nodeText(child)
		case "block":
			bodyNode = child
		}
	}
	if name == "" || bodyNode == nil {
		return
	}
	// Classes defined inside functions keep the function chain so method
	// qualified names stay unique.
	chain := append(append([]string{}, classChain...), name)
	e.walkBody(bodyNode, chain, funcChain)
}

// extractFunction builds a Definition for one function or method.
// outer is the span-defining node (decorated_definition when decorated),
// funcNode the function_definition itself.
func (e *extractor) extractFunction(outer, funcNode *sitter.Node, classChain, funcChain []string, isMethod bool) {
	name := ""
	params := ""
	isAsync := false
	var paramsNode, bodyNode *sitter.Node

	for i := 0; i < int(funcNode.ChildCount()); i++ {
		child := funcNode.Child(i)
		switch child.Type() {
		case "async":
			isAsync = true
		case "identifier":
			name = e.nodeText(child)
		case "parameters":
			paramsNode = child
			params = e.nodeText(child)
		case "block":
			bodyNode = child
		}
	}
	if name == "" {
		return
	}

	chain := make([]string, 0, len(classChain)+len(funcChain)+1)
	chain = append(chain, classChain...)
	chain = append(chain, funcChain...)
	chain = append(chain, name)

	def := &Definition{
		QualifiedName: e.mod.DottedPath + "." + strings.Join(chain, "."),
		Name:          name,
		Params:        params,
		Nested:        len(funcChain) > 0,
		StartByte:     outer.StartByte(),
		EndByte:       outer.EndByte(),
		StartLine:     int(outer.StartPoint().Row) + 1,
		EndLine:       int(outer.EndPoint().Row) + 1,
		IsAsync:       isAsync,
		IsMethod:      isMethod,
		LocalTypes:    make(map[string]string),
		Module:        e.mod,
	}
	if isMethod {
		def.ClassName = classChain[len(classChain)-1]
	}

	if paramsNode != nil {
		e.collectParamTypes(paramsNode, def)
	}
	if bodyNode != nil {
		def.Docstring = e.docstring(bodyNode)
		e.scanBody(bodyNode, def)
	}
	def.Complexity = 1 + e.countBranches(funcNode)

	e.mod.Definitions = append(e.mod.Definitions, def)

	// Nested definitions get their own Definition entries.
	if bodyNode != nil {
		e.walkBody(bodyNode, classChain, append(append([]string{}, funcChain...), name))
	}
}

// scanBody walks a function body collecting call sites and simple local
// type facts. It does not descend into nested function or class
// definitions; those own their statements.
func (e *extractor) scanBody(node *sitter.Node, def *Definition) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "function_definition", "class_definition", "decorated_definition":
			continue
		case "call":
			if cs, ok := e.callSite(child); ok {
				def.Calls = append(def.Calls, cs)
			}
		case "assignment":
			e.collectAssignmentType(child, def)
		}
		e.scanBody(child, def)
	}
}

// callSite classifies one call node. Identifier callees are bare calls,
// single-hop attributes are method calls, everything else is dynamic.
func (e *extractor) callSite(node *sitter.Node) (CallSite, bool) {
	funcNode := node.ChildByFieldName("function")
	if funcNode == nil && node.NamedChildCount() > 0 {
		funcNode = node.NamedChild(0)
	}
	if funcNode == nil {
		return CallSite{}, false
	}

	cs := CallSite{Line: int(node.StartPoint().Row) + 1}

	switch funcNode.Type() {
	case "identifier":
		cs.Target = e.nodeText(funcNode)
		cs.Expr = cs.Target
	case "attribute":
		objectNode := funcNode.ChildByFieldName("object")
		attrNode := funcNode.ChildByFieldName("attribute")
		if attrNode == nil {
			return CallSite{}, false
		}
		cs.Target = e.nodeText(attrNode)
		cs.Expr = e.truncated(funcNode)
		if objectNode != nil && objectNode.Type() == "identifier" {
			cs.Receiver = e.nodeText(objectNode)
		} else {
			// Attribute chains longer than one hop, calls on call
			// results, subscripts: unresolvable by design.
			cs.Dynamic = true
		}
	default:
		cs.Dynamic = true
		cs.Expr = e.truncated(funcNode)
		cs.Target = cs.Expr
	}

	if cs.Target == "" {
		return CallSite{}, false
	}
	return cs, true
}

// collectAssignmentType records "v = Cls(...)" and "v: Cls = ..." facts.
func (e *extractor) collectAssignmentType(node *sitter.Node, def *Definition) {
	left := node.ChildByFieldName("left")
	if left == nil || left.Type() != "identifier" {
		return
	}
	name := e.nodeText(left)

	if typeNode := node.ChildByFieldName("type"); typeNode != nil {
		if cls, ok := e.simpleTypeName(typeNode); ok {
			def.LocalTypes[name] = cls
			return
		}
	}

	right := node.ChildByFieldName("right")
	if right == nil || right.Type() != "call" {
		return
	}
	ctor := right.ChildByFieldName("function")
	if ctor == nil {
		return
	}
	switch ctor.Type() {
	case "identifier":
		def.LocalTypes[name] = e.nodeText(ctor)
	case "attribute":
		// One hop only: "m.Cls()". Deeper chains carry no usable fact.
		obj := ctor.ChildByFieldName("object")
		if obj != nil && obj.Type() == "identifier" {
			def.LocalTypes[name] = e.nodeText(ctor)
		}
	}
}

// collectParamTypes records "def f(v: Cls)" annotations.
func (e *extractor) collectParamTypes(params *sitter.Node, def *Definition) {
	for i := 0; i < int(params.NamedChildCount()); i++ {
		child := params.NamedChild(i)
		if child.Type() != "typed_parameter" && child.Type() != "typed_default_parameter" {
			continue
		}
		var name, cls string
		for j := 0; j < int(child.NamedChildCount()); j++ {
			part := child.NamedChild(j)
			switch part.Type() {
			case "identifier":
				if name == "" {
					name = e.nodeText(part)
				}
			case "type":
				if c, ok := e.simpleTypeName(part); ok {
					cls = c
				}
			}
		}
		if name != "" && cls != "" {
			def.LocalTypes[name] = cls
		}
	}
}

// simpleTypeName accepts a type annotation when it is a plain identifier
// or a one-hop attribute; generics, unions and the rest yield no fact.
func (e *extractor) simpleTypeName(typeNode *sitter.Node) (string, bool) {
	inner := typeNode
	if typeNode.NamedChildCount() == 1 {
		inner = typeNode.NamedChild(0)
	}
	switch inner.Type() {
	case "identifier":
		return e.nodeText(inner), true
	case "attribute":
		obj := inner.ChildByFieldName("object")
		if obj != nil && obj.Type() == "identifier" {
			return e.nodeText(inner), true
		}
	}
	return "", false
}

// branchNodeTypes are the constructs that add one point of cyclomatic
// complexity, mirroring the usual if/loop/except/boolean counting.
var branchNodeTypes = map[string]bool{
	"if_statement":           true,
	"elif_clause":            true,
	"while_statement":        true,
	"for_statement":          true,
	"except_clause":          true,
	"boolean_operator":       true,
	"conditional_expression": true,
}

func (e *extractor) countBranches(node *sitter.Node) int {
	count := 0
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "function_definition", "class_definition", "decorated_definition":
			continue
		}
		if branchNodeTypes[child.Type()] {
			count++
		}
		count += e.countBranches(child)
	}
	return count
}

// collectImports walks the whole tree so imports placed inside function
// bodies (a common way to dodge circular imports) are captured too.
func (e *extractor) collectImports(node *sitter.Node, depth int) {
	if depth > 50 {
		return
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "import_statement":
			e.importStatement(child)
		case "import_from_statement":
			e.importFromStatement(child)
		default:
			e.collectImports(child, depth+1)
		}
	}
}

// importStatement handles "import a", "import a.b", "import a.b as m".
func (e *extractor) importStatement(node *sitter.Node) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "dotted_name":
			path := e.nodeText(child)
			// "import a.b" binds the name "a"; only the first segment is
			// reachable as a one-hop receiver.
			base := path
			if idx := strings.Index(path, "."); idx >= 0 {
				base = path[:idx]
			}
			e.mod.Imports[base] = ImportRef{Module: base}
		case "aliased_import":
			var path, alias string
			for j := 0; j < int(child.NamedChildCount()); j++ {
				part := child.NamedChild(j)
				switch part.Type() {
				case "dotted_name":
					path = e.nodeText(part)
				case "identifier":
					alias = e.nodeText(part)
				}
			}
			if path != "" && alias != "" {
				e.mod.Imports[alias] = ImportRef{Module: path}
			}
		}
	}
}

// importFromStatement handles "from m import a, b as c" and relative
// forms like "from . import x". Keyword tokens are unnamed children, so
// this walks Child rather than NamedChild to know which side of the
// "import" keyword a dotted_name sits on.
func (e *extractor) importFromStatement(node *sitter.Node) {
	modulePath := ""
	sawImport := false

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "import":
			sawImport = true
		case "relative_import":
			modulePath = e.nodeText(child)
		case "dotted_name":
			if !sawImport {
				modulePath = e.nodeText(child)
			} else {
				name := e.nodeText(child)
				e.mod.Imports[name] = ImportRef{Module: modulePath, Symbol: name}
			}
		case "identifier":
			if sawImport {
				name := e.nodeText(child)
				e.mod.Imports[name] = ImportRef{Module: modulePath, Symbol: name}
			}
		case "aliased_import":
			var orig, alias string
			for j := 0; j < int(child.NamedChildCount()); j++ {
				part := child.NamedChild(j)
				switch part.Type() {
				case "dotted_name":
					orig = e.nodeText(part)
				case "identifier":
					if orig == "" {
						orig = e.nodeText(part)
					} else {
						alias = e.nodeText(part)
					}
				}
			}
			if orig != "" && alias != "" {
				e.mod.Imports[alias] = ImportRef{Module: modulePath, Symbol: orig}
			}
		case "wildcard_import":
			if modulePath != "" {
				e.mod.Wildcards = append(e.mod.Wildcards, modulePath)
			}
		}
	}
}

func (e *extractor) docstring(body *sitter.Node) string {
	if body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() == "expression_statement" && first.NamedChildCount() > 0 {
		expr := first.NamedChild(0)
		if expr.Type() == "string" {
			return cleanDocstring(e.nodeText(expr))
		}
	}
	return ""
}

func (e *extractor) nodeText(node *sitter.Node) string {
	return node.Content(e.content)
}

func (e *extractor) truncated(node *sitter.Node) string {
	text := e.nodeText(node)
	if len(text) > maxExprLen {
		text = text[:maxExprLen]
	}
	return text
}

func cleanDocstring(raw string) string {
	s := raw
	for _, prefix := range []string{`"""`, `'''`, `r"""`, `r'''`} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimPrefix(s, prefix)
			quote := prefix[len(prefix)-3:]
			s = strings.TrimSuffix(s, quote)
			break
		}
	}
	return strings.TrimSpace(strings.Trim(s, `"'`))
}
