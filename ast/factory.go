package ast

// Factory centralizes AST node creation for transform passes.
// It ensures consistent construction and provides a hook point for
// future enhancements like source position propagation.
type Factory struct{}

// NewFactory returns a new Factory.
func NewFactory() *Factory { return &Factory{} }

// Name creates an identifier reference.
func (f *Factory) Name(id string) *Name { return &Name{ID: id} }

// Attribute creates value.attr.
func (f *Factory) Attribute(value Expr, attr string) *Attribute {
	return &Attribute{Value: value, Attr: attr}
}

// SelfAttr creates <self>.<attr>, the instance field access used for
// rewritten callees and synthesized assignment targets.
func (f *Factory) SelfAttr(self, attr string) *Attribute {
	return f.Attribute(f.Name(self), attr)
}

// Assign creates a single-target assignment.
func (f *Factory) Assign(target, value Expr) *Assign {
	return &Assign{Targets: []Expr{target}, Value: value}
}

// --- Lookup helpers ---

// Method returns the first FuncDef named name directly inside cls, or nil.
func (f *Factory) Method(cls *ClassDef, name string) *FuncDef {
	for _, s := range cls.Body {
		if fd, ok := s.(*FuncDef); ok && fd.Name == name {
			return fd
		}
	}
	return nil
}

// QualifiedAttr reports whether e has the exact shape <base>.<attr>, with
// base a plain name, and returns the attribute name. It matches both
// instance fields (self.fc1) and namespace-qualified callees (F.relu).
func (f *Factory) QualifiedAttr(e Expr, base string) (string, bool) {
	attr, ok := e.(*Attribute)
	if !ok {
		return "", false
	}
	n, ok := attr.Value.(*Name)
	if !ok || n.ID != base {
		return "", false
	}
	return attr.Attr, true
}
