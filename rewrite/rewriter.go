package rewrite

import "github.com/rubiojr/layerize/ast"

// Entry records one rewritten call: the operation name and the index
// appended to it.
type Entry struct {
	Op    string
	Index int
}

// Name returns the synthesized attribute name, relu1 for (relu, 1).
func (e Entry) Name() string { return IndexedName(e.Op, e.Index) }

// Log lists rewritten calls in encounter order.
type Log []Entry

// Rewriter replaces <Namespace>.<op>(...) calls with <Self>.<op><N>(...)
// calls, drawing indices from Counters.
type Rewriter struct {
	Namespace string
	Self      string
	Counters  *Counters

	log Log
	f   *ast.Factory
}

// Rewrite mutates the compute routine in place and returns the log of
// rewritten calls. Statements are visited in order and expressions left to
// right; the sub-expressions of a call (callee, arguments, keyword values)
// are rewritten before the call itself, so F.relu(F.relu(x)) assigns index
// 1 to the inner call. Nested functions and lambdas are traversed; nested
// classes are not.
func (r *Rewriter) Rewrite(compute *ast.FuncDef) Log {
	r.log = nil
	if r.f == nil {
		r.f = ast.NewFactory()
	}
	if r.Counters == nil {
		r.Counters = NewCounters(nil)
	}
	r.stmts(compute.Body)
	return r.log
}

func (r *Rewriter) stmts(stmts []ast.Statement) {
	for _, s := range stmts {
		r.stmt(s)
	}
}

func (r *Rewriter) stmt(s ast.Statement) {
	switch st := s.(type) {
	case *ast.Assign:
		ast.MapExprs(st.Targets, r.expr)
		st.Value = r.expr(st.Value)
	case *ast.AugAssign:
		st.Target = r.expr(st.Target)
		st.Value = r.expr(st.Value)
	case *ast.ExprStmt:
		st.Value = r.expr(st.Value)
	case *ast.Return:
		st.Value = r.expr(st.Value)
	case *ast.If:
		st.Test = r.expr(st.Test)
		r.stmts(st.Body)
		r.stmts(st.Else)
	case *ast.For:
		st.Target = r.expr(st.Target)
		st.Iter = r.expr(st.Iter)
		r.stmts(st.Body)
		r.stmts(st.Else)
	case *ast.While:
		st.Test = r.expr(st.Test)
		r.stmts(st.Body)
		r.stmts(st.Else)
	case *ast.Raise:
		st.Exc = r.expr(st.Exc)
		st.Cause = r.expr(st.Cause)
	case *ast.Assert:
		st.Test = r.expr(st.Test)
		st.Msg = r.expr(st.Msg)
	case *ast.FuncDef:
		ast.MapExprs(st.Decorators, r.expr)
		r.params(st.Params)
		r.stmts(st.Body)
	}
}

func (r *Rewriter) params(params []ast.Param) {
	for i := range params {
		params[i].Default = r.expr(params[i].Default)
	}
}

// expr rewrites e and returns the node to store in its slot.
func (r *Rewriter) expr(e ast.Expr) ast.Expr {
	switch ex := e.(type) {
	case nil:
		return nil
	case *ast.Call:
		ex.Func = r.expr(ex.Func)
		ast.MapExprs(ex.Args, r.expr)
		for _, kw := range ex.Keywords {
			kw.Value = r.expr(kw.Value)
		}
		if op, ok := r.f.QualifiedAttr(ex.Func, r.Namespace); ok {
			entry := Entry{Op: op, Index: r.Counters.Next(op)}
			ex.Func = r.f.SelfAttr(r.Self, entry.Name())
			r.log = append(r.log, entry)
		}
	case *ast.Attribute:
		ex.Value = r.expr(ex.Value)
	case *ast.Subscript:
		ex.Value = r.expr(ex.Value)
		ex.Index = r.expr(ex.Index)
	case *ast.Slice:
		ex.Lower = r.expr(ex.Lower)
		ex.Upper = r.expr(ex.Upper)
		ex.Step = r.expr(ex.Step)
	case *ast.Starred:
		ex.Value = r.expr(ex.Value)
	case *ast.BinOp:
		ex.Left = r.expr(ex.Left)
		ex.Right = r.expr(ex.Right)
	case *ast.UnaryOp:
		ex.Operand = r.expr(ex.Operand)
	case *ast.BoolOp:
		ast.MapExprs(ex.Values, r.expr)
	case *ast.Compare:
		ex.Left = r.expr(ex.Left)
		ast.MapExprs(ex.Comparators, r.expr)
	case *ast.IfExp:
		// evaluation order: condition first
		ex.Test = r.expr(ex.Test)
		ex.Body = r.expr(ex.Body)
		ex.OrElse = r.expr(ex.OrElse)
	case *ast.Lambda:
		r.params(ex.Params)
		ex.Body = r.expr(ex.Body)
	case *ast.Tuple:
		ast.MapExprs(ex.Elts, r.expr)
	case *ast.List:
		ast.MapExprs(ex.Elts, r.expr)
	case *ast.Dict:
		for i := range ex.Keys {
			ex.Keys[i] = r.expr(ex.Keys[i])
			ex.Values[i] = r.expr(ex.Values[i])
		}
	}
	return e
}
