package printer

import (
	"fmt"
	"strings"

	"github.com/rubiojr/layerize/ast"
)

// Binding strength, loosest first.
const (
	precTuple   = iota // bare tuple: a, b
	precTest           // lambda
	precIfExp          // a if b else c
	precOr             // or
	precAnd            // and
	precNot            // not
	precCompare        // < == in is ...
	precBitOr          // |
	precBitXor         // ^
	precBitAnd         // &
	precShift          // << >>
	precArith          // + -
	precTerm           // * / // % @
	precFactor         // unary + - ~
	precPower          // **
	precPrimary        // call, attribute, subscript
	precAtom
)

var binaryPrec = map[string]int{
	"|":  precBitOr,
	"^":  precBitXor,
	"&":  precBitAnd,
	"<<": precShift,
	">>": precShift,
	"+":  precArith,
	"-":  precArith,
	"*":  precTerm,
	"/":  precTerm,
	"//": precTerm,
	"%":  precTerm,
	"@":  precTerm,
	"**": precPower,
}

func precOf(e ast.Expr) int {
	switch ex := e.(type) {
	case *ast.Tuple:
		if ex.Parens || len(ex.Elts) == 0 {
			return precAtom
		}
		return precTuple
	case *ast.Lambda:
		return precTest
	case *ast.IfExp:
		return precIfExp
	case *ast.BoolOp:
		if ex.Op == "or" {
			return precOr
		}
		return precAnd
	case *ast.UnaryOp:
		if ex.Op == "not" {
			return precNot
		}
		return precFactor
	case *ast.Compare:
		return precCompare
	case *ast.BinOp:
		return binaryPrec[ex.Op]
	case *ast.Call, *ast.Attribute, *ast.Subscript:
		return precPrimary
	}
	return precAtom
}

// expr renders e, parenthesizing it when it binds looser than minPrec.
func expr(e ast.Expr, minPrec int) string {
	s := render(e)
	if precOf(e) < minPrec {
		return "(" + s + ")"
	}
	return s
}

func exprList(exprs []ast.Expr, minPrec int) []string {
	out := make([]string, len(exprs))
	for i, e := range exprs {
		out[i] = expr(e, minPrec)
	}
	return out
}

func render(e ast.Expr) string {
	switch ex := e.(type) {
	case *ast.Name:
		return ex.ID
	case *ast.Num:
		return ex.Value
	case *ast.Str:
		return ex.Value
	case *ast.Constant:
		return ex.Value
	case *ast.Attribute:
		if _, ok := ex.Value.(*ast.Num); ok {
			// 1.real would scan as a float literal
			return "(" + render(ex.Value) + ")." + ex.Attr
		}
		return expr(ex.Value, precPrimary) + "." + ex.Attr
	case *ast.Call:
		args := exprList(ex.Args, precTest)
		args = append(args, keywords(ex.Keywords)...)
		return expr(ex.Func, precPrimary) + "(" + strings.Join(args, ", ") + ")"
	case *ast.Subscript:
		return expr(ex.Value, precPrimary) + "[" + index(ex.Index) + "]"
	case *ast.Slice:
		s := optExpr(ex.Lower) + ":" + optExpr(ex.Upper)
		if ex.Step != nil {
			s += ":" + expr(ex.Step, precTest)
		}
		return s
	case *ast.Starred:
		return "*" + expr(ex.Value, precBitOr)
	case *ast.BinOp:
		prec := binaryPrec[ex.Op]
		if ex.Op == "**" {
			return expr(ex.Left, precPrimary) + " ** " + expr(ex.Right, precFactor)
		}
		return expr(ex.Left, prec) + " " + ex.Op + " " + expr(ex.Right, prec+1)
	case *ast.UnaryOp:
		if ex.Op == "not" {
			return "not " + expr(ex.Operand, precNot)
		}
		return ex.Op + expr(ex.Operand, precFactor)
	case *ast.BoolOp:
		prec := precOf(ex)
		parts := exprList(ex.Values, prec+1)
		return strings.Join(parts, " "+ex.Op+" ")
	case *ast.Compare:
		var sb strings.Builder
		sb.WriteString(expr(ex.Left, precBitOr))
		for i, op := range ex.Ops {
			fmt.Fprintf(&sb, " %s %s", op, expr(ex.Comparators[i], precBitOr))
		}
		return sb.String()
	case *ast.IfExp:
		return expr(ex.Body, precOr) + " if " + expr(ex.Test, precOr) + " else " + expr(ex.OrElse, precIfExp)
	case *ast.Lambda:
		if len(ex.Params) == 0 {
			return "lambda: " + expr(ex.Body, precTest)
		}
		return "lambda " + params(ex.Params, false) + ": " + expr(ex.Body, precTest)
	case *ast.Tuple:
		s := strings.Join(exprList(ex.Elts, precTest), ", ")
		if len(ex.Elts) == 1 {
			s += ","
		}
		if ex.Parens || len(ex.Elts) == 0 {
			return "(" + s + ")"
		}
		return s
	case *ast.List:
		return "[" + strings.Join(exprList(ex.Elts, precTest), ", ") + "]"
	case *ast.Dict:
		parts := make([]string, len(ex.Keys))
		for i, k := range ex.Keys {
			if k == nil {
				parts[i] = "**" + expr(ex.Values[i], precBitOr)
			} else {
				parts[i] = expr(k, precTest) + ": " + expr(ex.Values[i], precTest)
			}
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	panic(fmt.Sprintf("printer: unhandled expression %T", e))
}

func optExpr(e ast.Expr) string {
	if e == nil {
		return ""
	}
	return expr(e, precTest)
}

// index renders a subscript index. A tuple of indices is written without
// parentheses so slices inside it stay legal.
func index(e ast.Expr) string {
	if t, ok := e.(*ast.Tuple); ok && !t.Parens && len(t.Elts) > 0 {
		parts := make([]string, len(t.Elts))
		for i, el := range t.Elts {
			parts[i] = index(el)
		}
		s := strings.Join(parts, ", ")
		if len(t.Elts) == 1 {
			s += ","
		}
		return s
	}
	if _, ok := e.(*ast.Slice); ok {
		return render(e)
	}
	return expr(e, precTuple)
}
