package ast

// Clone returns a deep copy of a statement. Source lines are kept.
func Clone(s Statement) Statement {
	switch st := s.(type) {
	case nil:
		return nil
	case *ClassDef:
		return &ClassDef{
			BaseStmt:   st.BaseStmt,
			Name:       st.Name,
			Bases:      CloneExprs(st.Bases),
			Keywords:   cloneKeywords(st.Keywords),
			Body:       CloneStmts(st.Body),
			Decorators: CloneExprs(st.Decorators),
		}
	case *FuncDef:
		return &FuncDef{
			BaseStmt:   st.BaseStmt,
			Name:       st.Name,
			Params:     cloneParams(st.Params),
			Returns:    CloneExpr(st.Returns),
			Body:       CloneStmts(st.Body),
			Decorators: CloneExprs(st.Decorators),
		}
	case *Assign:
		return &Assign{BaseStmt: st.BaseStmt, Targets: CloneExprs(st.Targets), Value: CloneExpr(st.Value)}
	case *AugAssign:
		return &AugAssign{BaseStmt: st.BaseStmt, Target: CloneExpr(st.Target), Op: st.Op, Value: CloneExpr(st.Value)}
	case *ExprStmt:
		return &ExprStmt{BaseStmt: st.BaseStmt, Value: CloneExpr(st.Value)}
	case *Return:
		return &Return{BaseStmt: st.BaseStmt, Value: CloneExpr(st.Value)}
	case *If:
		return &If{BaseStmt: st.BaseStmt, Test: CloneExpr(st.Test), Body: CloneStmts(st.Body), Else: CloneStmts(st.Else)}
	case *For:
		return &For{
			BaseStmt: st.BaseStmt,
			Target:   CloneExpr(st.Target),
			Iter:     CloneExpr(st.Iter),
			Body:     CloneStmts(st.Body),
			Else:     CloneStmts(st.Else),
		}
	case *While:
		return &While{BaseStmt: st.BaseStmt, Test: CloneExpr(st.Test), Body: CloneStmts(st.Body), Else: CloneStmts(st.Else)}
	case *Import:
		return &Import{BaseStmt: st.BaseStmt, Names: append([]Alias(nil), st.Names...)}
	case *ImportFrom:
		return &ImportFrom{BaseStmt: st.BaseStmt, Module: st.Module, Level: st.Level, Names: append([]Alias(nil), st.Names...)}
	case *Raise:
		return &Raise{BaseStmt: st.BaseStmt, Exc: CloneExpr(st.Exc), Cause: CloneExpr(st.Cause)}
	case *Assert:
		return &Assert{BaseStmt: st.BaseStmt, Test: CloneExpr(st.Test), Msg: CloneExpr(st.Msg)}
	case *Pass:
		cp := *st
		return &cp
	case *Break:
		cp := *st
		return &cp
	case *Continue:
		cp := *st
		return &cp
	default:
		panic("ast.Clone: unhandled statement type")
	}
}

// CloneStmts deep-copies a statement slice. A nil slice stays nil.
func CloneStmts(stmts []Statement) []Statement {
	if stmts == nil {
		return nil
	}
	out := make([]Statement, len(stmts))
	for i, s := range stmts {
		out[i] = Clone(s)
	}
	return out
}

// CloneExpr returns a deep copy of an expression.
func CloneExpr(e Expr) Expr {
	switch ex := e.(type) {
	case nil:
		return nil
	case *Name:
		return &Name{ID: ex.ID}
	case *Attribute:
		return &Attribute{Value: CloneExpr(ex.Value), Attr: ex.Attr}
	case *Call:
		return &Call{Func: CloneExpr(ex.Func), Args: CloneExprs(ex.Args), Keywords: cloneKeywords(ex.Keywords)}
	case *Starred:
		return &Starred{Value: CloneExpr(ex.Value)}
	case *BinOp:
		return &BinOp{Left: CloneExpr(ex.Left), Op: ex.Op, Right: CloneExpr(ex.Right)}
	case *UnaryOp:
		return &UnaryOp{Op: ex.Op, Operand: CloneExpr(ex.Operand)}
	case *BoolOp:
		return &BoolOp{Op: ex.Op, Values: CloneExprs(ex.Values)}
	case *Compare:
		return &Compare{
			Left:        CloneExpr(ex.Left),
			Ops:         append([]string(nil), ex.Ops...),
			Comparators: CloneExprs(ex.Comparators),
		}
	case *IfExp:
		return &IfExp{Test: CloneExpr(ex.Test), Body: CloneExpr(ex.Body), OrElse: CloneExpr(ex.OrElse)}
	case *Lambda:
		return &Lambda{Params: cloneParams(ex.Params), Body: CloneExpr(ex.Body)}
	case *Subscript:
		return &Subscript{Value: CloneExpr(ex.Value), Index: CloneExpr(ex.Index)}
	case *Slice:
		return &Slice{Lower: CloneExpr(ex.Lower), Upper: CloneExpr(ex.Upper), Step: CloneExpr(ex.Step)}
	case *Tuple:
		return &Tuple{Elts: CloneExprs(ex.Elts), Parens: ex.Parens}
	case *List:
		return &List{Elts: CloneExprs(ex.Elts)}
	case *Dict:
		return &Dict{Keys: CloneExprs(ex.Keys), Values: CloneExprs(ex.Values)}
	case *Num:
		return &Num{Value: ex.Value}
	case *Str:
		return &Str{Value: ex.Value}
	case *Constant:
		return &Constant{Value: ex.Value}
	default:
		panic("ast.CloneExpr: unhandled expression type")
	}
}

// CloneExprs deep-copies an expression slice. A nil slice stays nil.
// Nil elements (dict unpacking keys) are preserved.
func CloneExprs(exprs []Expr) []Expr {
	if exprs == nil {
		return nil
	}
	out := make([]Expr, len(exprs))
	for i, e := range exprs {
		out[i] = CloneExpr(e)
	}
	return out
}

func cloneKeywords(kws []*Keyword) []*Keyword {
	if kws == nil {
		return nil
	}
	out := make([]*Keyword, len(kws))
	for i, kw := range kws {
		out[i] = &Keyword{Name: kw.Name, Value: CloneExpr(kw.Value)}
	}
	return out
}

func cloneParams(params []Param) []Param {
	if params == nil {
		return nil
	}
	out := make([]Param, len(params))
	for i, p := range params {
		out[i] = Param{
			Name:       p.Name,
			Annotation: CloneExpr(p.Annotation),
			Default:    CloneExpr(p.Default),
			Star:       p.Star,
		}
	}
	return out
}
