package rewrite

import (
	"fmt"
	"maps"
	"slices"

	"github.com/rubiojr/layerize/ast"
)

// Templates maps an operation name to the initializer statement that builds
// its layer, for example relu -> self.relu = nn.ReLU(). The target's
// attribute name is replaced with the indexed name when the template is used.
type Templates map[string]ast.Statement

// NewTemplates validates every entry and returns the mapping. Entries are
// checked in name order so the reported error is deterministic.
func NewTemplates(m map[string]ast.Statement) (Templates, error) {
	t := make(Templates, len(m))
	for _, op := range slices.Sorted(maps.Keys(m)) {
		if _, err := validate(op, m[op]); err != nil {
			return nil, err
		}
		t[op] = m[op]
	}
	return t, nil
}

// Ops returns the operation names in sorted order.
func (t Templates) Ops() []string {
	return slices.Sorted(maps.Keys(t))
}

// instantiate returns a fresh copy of the template for op with its target
// renamed to name.
func (t Templates) instantiate(op, name string) (*ast.Assign, error) {
	st, ok := t[op]
	if !ok {
		return nil, &MissingTemplateError{Op: op}
	}
	target, err := validate(op, st)
	if err != nil {
		return nil, err
	}
	f := ast.NewFactory()
	value := st.(*ast.Assign).Value
	return f.Assign(f.Attribute(ast.CloneExpr(target.Value), name), ast.CloneExpr(value)), nil
}

// validate checks that st is a single assignment whose only target is an
// attribute access, and returns that target.
func validate(op string, st ast.Statement) (*ast.Attribute, error) {
	malformed := func(format string, args ...any) error {
		return &MalformedTemplateError{Op: op, Reason: fmt.Sprintf(format, args...)}
	}
	if st == nil {
		return nil, malformed("empty template")
	}
	asg, ok := st.(*ast.Assign)
	if !ok {
		return nil, malformed("expected an assignment, got %s", stmtKind(st))
	}
	if len(asg.Targets) != 1 {
		return nil, malformed("expected one assignment target, got %d", len(asg.Targets))
	}
	target, ok := asg.Targets[0].(*ast.Attribute)
	if !ok {
		return nil, malformed("assignment target must be an attribute such as self.%s", op)
	}
	return target, nil
}

func stmtKind(st ast.Statement) string {
	switch st.(type) {
	case *ast.AugAssign:
		return "augmented assignment"
	case *ast.ExprStmt:
		return "expression"
	case *ast.FuncDef:
		return "function definition"
	case *ast.ClassDef:
		return "class definition"
	case *ast.Import, *ast.ImportFrom:
		return "import"
	}
	return fmt.Sprintf("%T", st)
}
