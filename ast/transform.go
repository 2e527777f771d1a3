package ast

// Transform rewrites an AST. Implementations may mutate the input module in
// place and return it; callers must treat the returned module as the result.
type Transform interface {
	Name() string
	Transform(mod *Module) (*Module, error)
}

// TransformFunc adapts a named function to the Transform interface.
type TransformFunc struct {
	N string
	F func(*Module) (*Module, error)
}

func (t TransformFunc) Name() string                           { return t.N }
func (t TransformFunc) Transform(mod *Module) (*Module, error) { return t.F(mod) }

// Chain composes transforms left-to-right into a single Transform.
// Each transform receives the output of the previous one. The chain stops
// at the first error and returns the module as it was at that point.
func Chain(transforms ...Transform) Transform {
	return TransformFunc{
		N: "chain",
		F: func(mod *Module) (*Module, error) {
			for _, t := range transforms {
				next, err := t.Transform(mod)
				if err != nil {
					return mod, err
				}
				mod = next
			}
			return mod, nil
		},
	}
}

// --- In-place traversal helpers ---
// Passes walk slices of nodes with these, storing each replacement back into
// its slot. The slice itself is never reallocated, so sibling positions are
// stable while a pass is running.

// mapSlice applies fn to each element and stores the result in place.
// Returns true if any element changed identity.
func mapSlice[T comparable](items []T, fn func(T) T) bool {
	changed := false
	for i, item := range items {
		if next := fn(item); next != item {
			items[i] = next
			changed = true
		}
	}
	return changed
}

// MapExprs replaces each expression with fn's result, in place.
func MapExprs(exprs []Expr, fn func(Expr) Expr) bool {
	return mapSlice(exprs, fn)
}
