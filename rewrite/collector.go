package rewrite

import "github.com/rubiojr/layerize/ast"

// CollectAttributes returns the set of attribute names assigned as
// <self>.<name> anywhere in the initializer body, nested if/for/while
// blocks included. Nested def and class bodies bind their own self and are
// not scanned. The initializer is not modified.
func CollectAttributes(init *ast.FuncDef, self string) map[string]bool {
	c := &collector{self: self, attrs: make(map[string]bool), f: ast.NewFactory()}
	if init != nil {
		c.stmts(init.Body)
	}
	return c.attrs
}

type collector struct {
	self  string
	attrs map[string]bool
	f     *ast.Factory
}

func (c *collector) stmts(stmts []ast.Statement) {
	for _, s := range stmts {
		switch st := s.(type) {
		case *ast.Assign:
			for _, t := range st.Targets {
				c.target(t)
			}
		case *ast.AugAssign:
			c.target(st.Target)
		case *ast.If:
			c.stmts(st.Body)
			c.stmts(st.Else)
		case *ast.For:
			c.stmts(st.Body)
			c.stmts(st.Else)
		case *ast.While:
			c.stmts(st.Body)
			c.stmts(st.Else)
		}
	}
}

// target records e if it is a self attribute, unpacking destructuring.
func (c *collector) target(e ast.Expr) {
	switch t := e.(type) {
	case *ast.Tuple:
		for _, el := range t.Elts {
			c.target(el)
		}
	case *ast.List:
		for _, el := range t.Elts {
			c.target(el)
		}
	case *ast.Starred:
		c.target(t.Value)
	default:
		if name, ok := c.f.QualifiedAttr(e, c.self); ok {
			c.attrs[name] = true
		}
	}
}
