package ast

// Inspect traverses n in source order and calls fn on every node it
// reaches: statements, expressions and call keywords. If fn returns false
// the children of that node are skipped.
func Inspect(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch nd := n.(type) {
	case *Module:
		inspectStmts(nd.Body, fn)
	case *ClassDef:
		inspectExprs(nd.Decorators, fn)
		inspectExprs(nd.Bases, fn)
		for _, kw := range nd.Keywords {
			Inspect(kw, fn)
		}
		inspectStmts(nd.Body, fn)
	case *FuncDef:
		inspectExprs(nd.Decorators, fn)
		inspectParams(nd.Params, fn)
		inspectExpr(nd.Returns, fn)
		inspectStmts(nd.Body, fn)
	case *Raise:
		inspectExpr(nd.Exc, fn)
		inspectExpr(nd.Cause, fn)
	case *Assert:
		inspectExpr(nd.Test, fn)
		inspectExpr(nd.Msg, fn)
	case *Assign:
		inspectExprs(nd.Targets, fn)
		inspectExpr(nd.Value, fn)
	case *AugAssign:
		inspectExpr(nd.Target, fn)
		inspectExpr(nd.Value, fn)
	case *ExprStmt:
		inspectExpr(nd.Value, fn)
	case *Return:
		inspectExpr(nd.Value, fn)
	case *If:
		inspectExpr(nd.Test, fn)
		inspectStmts(nd.Body, fn)
		inspectStmts(nd.Else, fn)
	case *For:
		inspectExpr(nd.Target, fn)
		inspectExpr(nd.Iter, fn)
		inspectStmts(nd.Body, fn)
		inspectStmts(nd.Else, fn)
	case *While:
		inspectExpr(nd.Test, fn)
		inspectStmts(nd.Body, fn)
		inspectStmts(nd.Else, fn)
	case *Attribute:
		inspectExpr(nd.Value, fn)
	case *Call:
		inspectExpr(nd.Func, fn)
		inspectExprs(nd.Args, fn)
		for _, kw := range nd.Keywords {
			Inspect(kw, fn)
		}
	case *Keyword:
		inspectExpr(nd.Value, fn)
	case *Starred:
		inspectExpr(nd.Value, fn)
	case *BinOp:
		inspectExpr(nd.Left, fn)
		inspectExpr(nd.Right, fn)
	case *UnaryOp:
		inspectExpr(nd.Operand, fn)
	case *BoolOp:
		inspectExprs(nd.Values, fn)
	case *Compare:
		inspectExpr(nd.Left, fn)
		inspectExprs(nd.Comparators, fn)
	case *IfExp:
		inspectExpr(nd.Test, fn)
		inspectExpr(nd.Body, fn)
		inspectExpr(nd.OrElse, fn)
	case *Lambda:
		inspectParams(nd.Params, fn)
		inspectExpr(nd.Body, fn)
	case *Subscript:
		inspectExpr(nd.Value, fn)
		inspectExpr(nd.Index, fn)
	case *Slice:
		inspectExpr(nd.Lower, fn)
		inspectExpr(nd.Upper, fn)
		inspectExpr(nd.Step, fn)
	case *Tuple:
		inspectExprs(nd.Elts, fn)
	case *List:
		inspectExprs(nd.Elts, fn)
	case *Dict:
		for i := range nd.Keys {
			inspectExpr(nd.Keys[i], fn)
			inspectExpr(nd.Values[i], fn)
		}
	}
}

// inspectExpr skips absent optional children (a bare return, an open slice bound).
func inspectExpr(e Expr, fn func(Node) bool) {
	if e == nil {
		return
	}
	Inspect(e, fn)
}

func inspectExprs(exprs []Expr, fn func(Node) bool) {
	for _, e := range exprs {
		inspectExpr(e, fn)
	}
}

func inspectStmts(stmts []Statement, fn func(Node) bool) {
	for _, s := range stmts {
		Inspect(s, fn)
	}
}

func inspectParams(params []Param, fn func(Node) bool) {
	for _, p := range params {
		inspectExpr(p.Annotation, fn)
		inspectExpr(p.Default, fn)
	}
}
