// Package rewrite turns namespace-qualified calls in a class's compute
// method into calls on synthesized instance fields.
//
// For every class with both an initializer and a compute method, a run
// makes three passes in sequence:
//
//  1. collect the attribute names already assigned on self in the
//     initializer and seed the index counters from them;
//  2. rewrite each F.op(...) call in the compute method to self.opN(...),
//     logging (op, N) in encounter order;
//  3. replay the log, appending one templated self.opN = ... statement per
//     entry to the initializer.
//
// Counters and logs are scoped to a single class. The tree is mutated in
// place. The package does no logging of its own.
package rewrite

import (
	"errors"
	"fmt"

	"github.com/rubiojr/layerize/ast"
)

// UnitResult describes the run over one class.
type UnitResult struct {
	Class   string // qualified class name, Outer.Inner for nested classes
	Log     Log
	Skipped bool
	Reason  string // why the class was skipped
}

// Result collects the unit results of a module in source order.
type Result struct {
	Units []*UnitResult
}

// Rewritten returns the total number of rewritten calls.
func (r *Result) Rewritten() int {
	n := 0
	for _, u := range r.Units {
		n += len(u.Log)
	}
	return n
}

// unit is a class found in a module together with its qualified name.
type unit struct {
	cls  *ast.ClassDef
	name string
}

// units lists every class in stmts, nested ones included, in source order.
func units(stmts []ast.Statement, prefix string) []unit {
	var out []unit
	for _, s := range stmts {
		switch st := s.(type) {
		case *ast.ClassDef:
			name := prefix + st.Name
			out = append(out, unit{cls: st, name: name})
			out = append(out, units(st.Body, name+".")...)
		case *ast.FuncDef:
			out = append(out, units(st.Body, prefix+st.Name+".<locals>.")...)
		case *ast.If:
			out = append(out, units(st.Body, prefix)...)
			out = append(out, units(st.Else, prefix)...)
		case *ast.For:
			out = append(out, units(st.Body, prefix)...)
			out = append(out, units(st.Else, prefix)...)
		case *ast.While:
			out = append(out, units(st.Body, prefix)...)
			out = append(out, units(st.Else, prefix)...)
		}
	}
	return out
}

// sections returns the initializer and compute methods of cls, or a reason
// why cls is not a rewritable unit.
func sections(cls *ast.ClassDef, opts Options) (init, compute *ast.FuncDef, reason string) {
	f := ast.NewFactory()
	init = f.Method(cls, opts.Initializer)
	compute = f.Method(cls, opts.Compute)
	switch {
	case init == nil && compute == nil:
		reason = fmt.Sprintf("no %s or %s method", opts.Initializer, opts.Compute)
	case init == nil:
		reason = fmt.Sprintf("no %s method", opts.Initializer)
	case compute == nil:
		reason = fmt.Sprintf("no %s method", opts.Compute)
	}
	return init, compute, reason
}

// Class runs the three passes over one class. A class without both
// methods is skipped and reported, not an error. On a template error the
// compute method is already rewritten and the initializer may be partially
// extended.
func Class(cls *ast.ClassDef, opts Options, tmpl Templates) (*UnitResult, error) {
	return runUnit(unit{cls: cls, name: cls.Name}, opts, tmpl)
}

func runUnit(u unit, opts Options, tmpl Templates) (*UnitResult, error) {
	res := &UnitResult{Class: u.name}
	init, compute, reason := sections(u.cls, opts)
	if reason != "" {
		res.Skipped = true
		res.Reason = reason
		return res, nil
	}

	rw := &Rewriter{
		Namespace: opts.Namespace,
		Self:      opts.Self,
		Counters:  NewCounters(CollectAttributes(init, opts.Self)),
	}
	res.Log = rw.Rewrite(compute)

	if err := Synthesize(init, res.Log, tmpl); err != nil {
		var mt *MissingTemplateError
		if errors.As(err, &mt) {
			mt.Class = u.name
		}
		return res, fmt.Errorf("class %s: %w", u.name, err)
	}
	return res, nil
}

// Run rewrites every class of mod, nested classes included, in source
// order. It stops at the first error and returns the units processed so
// far, the failing one last.
func Run(mod *ast.Module, opts Options, tmpl Templates) (*Result, error) {
	res := &Result{}
	for _, u := range units(mod.Body, "") {
		ur, err := runUnit(u, opts, tmpl)
		res.Units = append(res.Units, ur)
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

// Plan reports what Run would rewrite without modifying mod. Each class is
// copied before the collector and rewriter passes run on it; no templates
// are needed.
func Plan(mod *ast.Module, opts Options) *Result {
	res := &Result{}
	for _, u := range units(mod.Body, "") {
		cp := ast.Clone(u.cls).(*ast.ClassDef)
		ur := &UnitResult{Class: u.name}
		init, compute, reason := sections(cp, opts)
		if reason != "" {
			ur.Skipped = true
			ur.Reason = reason
		} else {
			rw := &Rewriter{
				Namespace: opts.Namespace,
				Self:      opts.Self,
				Counters:  NewCounters(CollectAttributes(init, opts.Self)),
			}
			ur.Log = rw.Rewrite(compute)
		}
		res.Units = append(res.Units, ur)
	}
	return res
}

// Pass adapts Run to the ast.Transform interface. Each observer is called
// with the run's result, also when the run fails.
func Pass(opts Options, tmpl Templates, observers ...func(*Result)) ast.Transform {
	return ast.TransformFunc{
		N: "layerize",
		F: func(mod *ast.Module) (*ast.Module, error) {
			res, err := Run(mod, opts, tmpl)
			for _, obs := range observers {
				obs(res)
			}
			return mod, err
		},
	}
}

// NamespaceFreeCheck fails if the compute method of any rewritable class
// still calls <Namespace>.<op>. Classes nested inside a compute method are
// checked as units of their own.
func NamespaceFreeCheck(opts Options) ast.Check {
	return ast.CheckFunc{
		N: "namespace-free",
		F: func(mod *ast.Module) error {
			f := ast.NewFactory()
			for _, u := range units(mod.Body, "") {
				_, compute, reason := sections(u.cls, opts)
				if reason != "" {
					continue
				}
				var err error
				ast.Inspect(compute, func(n ast.Node) bool {
					if err != nil {
						return false
					}
					switch nd := n.(type) {
					case *ast.ClassDef:
						return false
					case *ast.Call:
						if op, ok := f.QualifiedAttr(nd.Func, opts.Namespace); ok {
							err = fmt.Errorf("class %s: %s.%s still called in %s", u.name, opts.Namespace, op, opts.Compute)
						}
					}
					return true
				})
				if err != nil {
					return err
				}
			}
			return nil
		},
	}
}
