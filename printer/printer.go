// Package printer renders layerize AST nodes back to Python source.
//
// Output uses four-space indentation and inserts only the parentheses the
// operator precedence requires. Number and string literals are written
// exactly as they appeared in the source.
package printer

import (
	"fmt"
	"strings"

	"github.com/rubiojr/layerize/ast"
)

// Print serializes a module to Python source.
func Print(m *ast.Module) string {
	p := &pyPrinter{}
	p.printBlock(m.Body)
	return p.sb.String()
}

// Stmt serializes a single statement, including any nested block.
func Stmt(s ast.Statement) string {
	p := &pyPrinter{}
	p.printStmt(s)
	return p.sb.String()
}

// Expr serializes a single expression.
func Expr(e ast.Expr) string {
	return expr(e, precTuple)
}

type pyPrinter struct {
	sb     strings.Builder
	indent int
}

func (p *pyPrinter) line(format string, args ...any) {
	p.writeIndent()
	fmt.Fprintf(&p.sb, format, args...)
	p.sb.WriteByte('\n')
}

func (p *pyPrinter) blank() {
	p.sb.WriteByte('\n')
}

func (p *pyPrinter) writeIndent() {
	for range p.indent {
		p.sb.WriteString("    ")
	}
}

func isDef(s ast.Statement) bool {
	switch s.(type) {
	case *ast.FuncDef, *ast.ClassDef:
		return true
	}
	return false
}

// printBlock writes stmts at the current indentation. Definitions are
// separated from their neighbours by one blank line.
func (p *pyPrinter) printBlock(stmts []ast.Statement) {
	for i, s := range stmts {
		if i > 0 && (isDef(s) || isDef(stmts[i-1])) {
			p.blank()
		}
		p.printStmt(s)
	}
}

// printSuite writes an indented body, falling back to pass when empty.
func (p *pyPrinter) printSuite(body []ast.Statement) {
	p.indent++
	if len(body) == 0 {
		p.line("pass")
	} else {
		p.printBlock(body)
	}
	p.indent--
}

func (p *pyPrinter) printStmt(s ast.Statement) {
	switch st := s.(type) {
	case *ast.ClassDef:
		for _, d := range st.Decorators {
			p.line("@%s", expr(d, precTest))
		}
		args := exprList(st.Bases, precTest)
		args = append(args, keywords(st.Keywords)...)
		if len(args) == 0 {
			p.line("class %s:", st.Name)
		} else {
			p.line("class %s(%s):", st.Name, strings.Join(args, ", "))
		}
		p.printSuite(st.Body)
	case *ast.FuncDef:
		for _, d := range st.Decorators {
			p.line("@%s", expr(d, precTest))
		}
		ret := ""
		if st.Returns != nil {
			ret = " -> " + expr(st.Returns, precTest)
		}
		p.line("def %s(%s)%s:", st.Name, params(st.Params, true), ret)
		p.printSuite(st.Body)
	case *ast.Assign:
		parts := exprList(st.Targets, precTuple)
		parts = append(parts, expr(st.Value, precTuple))
		p.line("%s", strings.Join(parts, " = "))
	case *ast.AugAssign:
		p.line("%s %s= %s", expr(st.Target, precTuple), st.Op, expr(st.Value, precTuple))
	case *ast.ExprStmt:
		p.line("%s", expr(st.Value, precTuple))
	case *ast.Return:
		if st.Value == nil {
			p.line("return")
		} else {
			p.line("return %s", expr(st.Value, precTuple))
		}
	case *ast.If:
		p.printIf(st, "if")
	case *ast.For:
		p.line("for %s in %s:", expr(st.Target, precTuple), expr(st.Iter, precTuple))
		p.printSuite(st.Body)
		p.printElse(st.Else)
	case *ast.While:
		p.line("while %s:", expr(st.Test, precTest))
		p.printSuite(st.Body)
		p.printElse(st.Else)
	case *ast.Pass:
		p.line("pass")
	case *ast.Break:
		p.line("break")
	case *ast.Continue:
		p.line("continue")
	case *ast.Import:
		p.line("import %s", aliases(st.Names))
	case *ast.ImportFrom:
		p.line("from %s%s import %s", strings.Repeat(".", st.Level), st.Module, aliases(st.Names))
	case *ast.Raise:
		switch {
		case st.Exc == nil:
			p.line("raise")
		case st.Cause == nil:
			p.line("raise %s", expr(st.Exc, precTest))
		default:
			p.line("raise %s from %s", expr(st.Exc, precTest), expr(st.Cause, precTest))
		}
	case *ast.Assert:
		if st.Msg == nil {
			p.line("assert %s", expr(st.Test, precTest))
		} else {
			p.line("assert %s, %s", expr(st.Test, precTest), expr(st.Msg, precTest))
		}
	default:
		panic(fmt.Sprintf("printer: unhandled statement %T", s))
	}
}

func (p *pyPrinter) printIf(st *ast.If, kw string) {
	p.line("%s %s:", kw, expr(st.Test, precTest))
	p.printSuite(st.Body)
	if len(st.Else) == 1 {
		if elif, ok := st.Else[0].(*ast.If); ok {
			p.printIf(elif, "elif")
			return
		}
	}
	p.printElse(st.Else)
}

func (p *pyPrinter) printElse(body []ast.Statement) {
	if len(body) == 0 {
		return
	}
	p.line("else:")
	p.printSuite(body)
}

func aliases(names []ast.Alias) string {
	parts := make([]string, len(names))
	for i, a := range names {
		parts[i] = a.Name
		if a.AsName != "" {
			parts[i] += " as " + a.AsName
		}
	}
	return strings.Join(parts, ", ")
}

func params(ps []ast.Param, def bool) string {
	parts := make([]string, len(ps))
	for i, prm := range ps {
		s := prm.Star + prm.Name
		if def && prm.Annotation != nil {
			s += ": " + expr(prm.Annotation, precTest)
		}
		if prm.Default != nil {
			if def && prm.Annotation != nil {
				s += " = " + expr(prm.Default, precTest)
			} else {
				s += "=" + expr(prm.Default, precTest)
			}
		}
		parts[i] = s
	}
	return strings.Join(parts, ", ")
}

func keywords(kws []*ast.Keyword) []string {
	out := make([]string, len(kws))
	for i, kw := range kws {
		if kw.Name == "" {
			out[i] = "**" + expr(kw.Value, precTest)
		} else {
			out[i] = kw.Name + "=" + expr(kw.Value, precTest)
		}
	}
	return out
}
